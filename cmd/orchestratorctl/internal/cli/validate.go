package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/llmdevops/orchestrator/dag"
	"github.com/llmdevops/orchestrator/workflow"
)

// NewValidateCommand checks a workflow file's schema and DAG structure
// without executing it, grounded on conductor's validate command
// (internal/commands/validate/command.go).
func NewValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "validate <file>",
		Short:         "Validate a workflow definition's schema and dependency graph",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0])
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, path string) error {
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

	stats := d.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "workflow %q (version %s) is valid\n", w.Name, w.Version)
	fmt.Fprintf(cmd.OutOrStdout(), "  steps:           %d\n", stats.TotalNodes)
	fmt.Fprintf(cmd.OutOrStdout(), "  max dependencies: %d\n", stats.MaxDependencies)
	fmt.Fprintf(cmd.OutOrStdout(), "  max parallelism:  %d\n", stats.MaxParallelism)
	fmt.Fprintf(cmd.OutOrStdout(), "  depth:            %d\n", stats.Depth)
	return nil
}

// loadWorkflowFile reads and parses a workflow definition, dispatching
// on file extension between YAML and JSON.
func loadWorkflowFile(path string) (*workflow.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		return workflow.LoadJSON(data)
	default:
		return workflow.LoadYAML(data)
	}
}
