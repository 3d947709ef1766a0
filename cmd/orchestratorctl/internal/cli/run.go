package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmdevops/orchestrator/dag"
	"github.com/llmdevops/orchestrator/execctx"
	"github.com/llmdevops/orchestrator/obslog"
	"github.com/llmdevops/orchestrator/scheduler"
	"github.com/llmdevops/orchestrator/workflow"
)

// NewRunCommand executes a workflow definition and pretty-prints the
// resulting per-step status map, grounded on conductor's run command
// shape and on spec.md §6's CLI surface.
func NewRunCommand() *cobra.Command {
	var inputFlag string
	var maxConcurrency int

	cmd := &cobra.Command{
		Use:           "run <file>",
		Short:         "Execute a workflow definition",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args[0], inputFlag, maxConcurrency)
		},
	}
	cmd.Flags().StringVar(&inputFlag, "input", "", "initial inputs as a JSON literal or a path to a JSON file")
	cmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "bound on in-flight step attempts (0 = unbounded)")
	return cmd
}

func runRun(cmd *cobra.Command, path, inputFlag string, maxConcurrency int) error {
	w, err := loadWorkflowFile(path)
	if err != nil {
		return err
	}
	if err := w.Validate(); err != nil {
		return err
	}

	d, err := dag.Build(w)
	if err != nil {
		return err
	}

	inputs, err := parseInputs(inputFlag)
	if err != nil {
		return err
	}

	reg := registryFromEnv()
	if err := requireProviderFor(reg, llmProviderNames(w)); err != nil {
		return err
	}

	ctx := execctx.New(inputs)
	sched := scheduler.New(w, d, ctx, reg, scheduler.WithMaxConcurrency(maxConcurrency), scheduler.WithLogger(obslog.NoOp()))

	runCtx := context.Background()
	var cancel context.CancelFunc
	if w.TimeoutSeconds != nil {
		// Workflow-level timeout is declared but not enforced inside the
		// scheduler core (spec.md §9's open question); the CLI races the
		// whole execution against it as the invited "implementation
		// extension".
		runCtx, cancel = context.WithTimeout(runCtx, time.Duration(*w.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	results, err := sched.Execute(runCtx)
	if err != nil {
		return fmt.Errorf("executing workflow: %w", err)
	}

	return printResults(cmd, results, w)
}

// parseInputs accepts either a literal JSON object or a path to a file
// containing one; an empty flag yields an empty input map.
func parseInputs(flag string) (map[string]any, error) {
	if flag == "" {
		return map[string]any{}, nil
	}

	var data []byte
	if flag[0] == '{' || flag[0] == '[' {
		data = []byte(flag)
	} else {
		raw, err := os.ReadFile(flag)
		if err != nil {
			return nil, fmt.Errorf("reading --input file: %w", err)
		}
		data = raw
	}

	var inputs map[string]any
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parsing --input as JSON: %w", err)
	}
	return inputs, nil
}

// llmProviderNames collects the distinct provider names every LLM step
// in w references, so run can fail fast rather than mid-execution.
func llmProviderNames(w *workflow.Workflow) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range w.Steps {
		if s.Type != workflow.StepLLM {
			continue
		}
		cfg, ok := s.Config.(workflow.LLMConfig)
		if !ok || cfg.Provider == "" || seen[cfg.Provider] {
			continue
		}
		seen[cfg.Provider] = true
		names = append(names, cfg.Provider)
	}
	return names
}

// printResults renders the result map as indented JSON, with field
// names matching §7's "status: failed" / "error: <message>" shape.
func printResults(cmd *cobra.Command, results map[string]scheduler.StepResult, w *workflow.Workflow) error {
	type stepOut struct {
		Status   scheduler.StepStatus `json:"status"`
		Outputs  map[string]any       `json:"outputs,omitempty"`
		Error    string               `json:"error,omitempty"`
		Duration string               `json:"duration"`
	}

	out := make(map[string]stepOut, len(results))
	for _, s := range w.Steps {
		r, ok := results[s.ID]
		if !ok {
			continue
		}
		out[s.ID] = stepOut{Status: r.Status, Outputs: r.Outputs, Error: r.Error, Duration: r.Duration.String()}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("rendering results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
