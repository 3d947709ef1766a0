package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/llmdevops/orchestrator/dag"
	"github.com/llmdevops/orchestrator/execctx"
	"github.com/llmdevops/orchestrator/obslog"
	"github.com/llmdevops/orchestrator/providers/mock"
	"github.com/llmdevops/orchestrator/scheduler"
	"github.com/llmdevops/orchestrator/workflow"
)

// bundledCase is one entry of the fixed benchmark battery. Real
// provider HTTP clients and the full benchmark harness/markdown
// reporter are out of this core's scope (spec.md §1); this is a
// small stand-in battery run entirely against the mock provider so
// the CLI surface spec.md §6 describes is exercisable end to end.
type bundledCase struct {
	id string
	wf *workflow.Workflow
}

func bundledCases() []bundledCase {
	return []bundledCase{
		{
			id: "linear-three-step",
			wf: &workflow.Workflow{Name: "linear-three-step", Version: "1", Steps: []workflow.Step{
				{ID: "a", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
				{ID: "b", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
				{ID: "c", Type: workflow.StepTransform, DependsOn: []string{"b"}, Config: workflow.TransformConfig{}},
			}},
		},
		{
			id: "condition-skip",
			wf: &workflow.Workflow{Name: "condition-skip", Version: "1", Steps: []workflow.Step{
				{ID: "a", Type: workflow.StepTransform, Condition: "false", Config: workflow.TransformConfig{}},
				{ID: "b", Type: workflow.StepTransform, DependsOn: []string{"a"}, Config: workflow.TransformConfig{}},
			}},
		},
		{
			id: "branching-parallel",
			wf: &workflow.Workflow{Name: "branching-parallel", Version: "1", Steps: []workflow.Step{
				{ID: "root", Type: workflow.StepTransform, Config: workflow.TransformConfig{}},
				{ID: "left", Type: workflow.StepTransform, DependsOn: []string{"root"}, Config: workflow.TransformConfig{}},
				{ID: "right", Type: workflow.StepTransform, DependsOn: []string{"root"}, Config: workflow.TransformConfig{}},
				{ID: "join", Type: workflow.StepTransform, DependsOn: []string{"left", "right"}, Config: workflow.TransformConfig{}},
			}},
		},
		{
			id: "llm-mock-completion",
			wf: &workflow.Workflow{Name: "llm-mock-completion", Version: "1", Steps: []workflow.Step{
				{ID: "greet", Type: workflow.StepLLM, Output: []string{"greeting"}, Config: workflow.LLMConfig{
					Provider: "mock", Model: "bench", Prompt: "Hello {{ inputs.name }}",
				}},
			}},
		},
	}
}

// caseResult is one benchmark case's recorded outcome.
type caseResult struct {
	ID          string                           `json:"id"`
	DurationMs  float64                          `json:"duration_ms"`
	StepResults map[string]scheduler.StepResult  `json:"step_results"`
	FailedSteps int                              `json:"failed_steps"`
}

// NewBenchmarkCommand runs the bundled benchmark battery and writes
// raw per-run JSON, a latest_results.json snapshot, and (optionally) a
// markdown summary, grounded on spec.md §6's benchmark subcommand.
func NewBenchmarkCommand() *cobra.Command {
	var outputDir string
	var format string
	var quiet bool

	cmd := &cobra.Command{
		Use:           "benchmark",
		Short:         "Run the bundled benchmark workflow set",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, outputDir, format, quiet)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output", "benchmark-results", "directory to write benchmark artifacts into")
	cmd.Flags().StringVar(&format, "format", "both", "report format: json|markdown|both")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-case progress output")
	return cmd
}

func runBenchmark(cmd *cobra.Command, outputDir, format string, quiet bool) error {
	switch format {
	case "json", "markdown", "both":
	default:
		return fmt.Errorf("orchestratorctl: unknown --format %q (want json|markdown|both)", format)
	}

	rawDir := filepath.Join(outputDir, "raw")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	reg := registryFromEnv()
	reg.Register(mock.New("mock", "mock response"))

	ts := time.Now().UTC()
	tsSuffix := ts.Format("20060102-150405")

	var results []caseResult
	for _, bc := range bundledCases() {
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "running %s...\n", bc.id)
		}

		d, err := dag.Build(bc.wf)
		if err != nil {
			return fmt.Errorf("building dag for %s: %w", bc.id, err)
		}

		ectx := execctx.New(map[string]any{"name": "World"})
		sched := scheduler.New(bc.wf, d, ectx, reg, scheduler.WithLogger(obslog.NoOp()))

		start := time.Now()
		stepResults, err := sched.Execute(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			return fmt.Errorf("executing %s: %w", bc.id, err)
		}

		cr := caseResult{ID: bc.id, DurationMs: float64(elapsed.Microseconds()) / 1000.0, StepResults: stepResults}
		for _, r := range stepResults {
			if r.Status == scheduler.StatusFailed {
				cr.FailedSteps++
			}
		}
		results = append(results, cr)

		rawPath := filepath.Join(rawDir, fmt.Sprintf("%s_%s.json", bc.id, tsSuffix))
		if err := writeJSON(rawPath, cr); err != nil {
			return err
		}
	}

	if format == "json" || format == "both" {
		latestPath := filepath.Join(outputDir, "latest_results.json")
		if err := writeJSON(latestPath, results); err != nil {
			return err
		}
	}

	if format == "markdown" || format == "both" {
		summaryPath := filepath.Join(outputDir, "summary.md")
		if err := os.WriteFile(summaryPath, []byte(renderSummaryMarkdown(results, ts)), 0o644); err != nil {
			return fmt.Errorf("writing summary.md: %w", err)
		}
	}

	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "wrote benchmark results to %s\n", outputDir)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func renderSummaryMarkdown(results []caseResult, ts time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Benchmark summary\n\n")
	fmt.Fprintf(&b, "Run at %s\n\n", ts.Format(time.RFC3339))
	fmt.Fprintf(&b, "| case | steps | failed | duration (ms) |\n")
	fmt.Fprintf(&b, "|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %d | %d | %.2f |\n", r.ID, len(r.StepResults), r.FailedSteps, r.DurationMs)
	}
	return b.String()
}
