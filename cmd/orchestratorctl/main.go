// Command orchestratorctl validates, runs, and benchmarks workflow
// definitions from the shell, grounded on the teacher's cmd/example
// entrypoint pattern and on the cobra-based CLI conductor/cmd/conductor
// exercises from the example pack.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llmdevops/orchestrator/cmd/orchestratorctl/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:           "orchestratorctl",
		Short:         "Validate, run, and benchmark LLM workflow pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(cli.NewValidateCommand())
	root.AddCommand(cli.NewRunCommand())
	root.AddCommand(cli.NewBenchmarkCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %v\n", err)
		os.Exit(1)
	}
}
