package cli

import (
	"fmt"
	"os"

	"github.com/llmdevops/orchestrator/providers"
	"github.com/llmdevops/orchestrator/providers/mock"
)

// ErrNoProviderRegistered is returned when a workflow declares an LLM
// step but no provider credentials were found in the environment, per
// spec.md §6's "the run aborts if no provider could be registered and
// an LLM step exists" rule.
var ErrNoProviderRegistered = fmt.Errorf("orchestratorctl: no LLM provider registered; set OPENAI_API_KEY or ANTHROPIC_API_KEY")

// registryFromEnv builds a provider Registry from the process
// environment. Concrete HTTP clients for OpenAI/Anthropic are outside
// this core's scope (spec.md §1); presence of the corresponding env
// var registers a deterministic stand-in under that provider's name so
// the CLI's run/benchmark surface is exercisable end to end without
// those clients. A "mock" provider is always registered so workflows
// written against it run with no credentials at all.
func registryFromEnv() *providers.Registry {
	reg := providers.NewRegistry()
	reg.Register(mock.New("mock", "mock response"))

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		reg.Register(mock.New("openai", "openai response"))
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		reg.Register(mock.New("anthropic", "anthropic response"))
	}
	return reg
}

// requireProviderFor validates that every LLM step in w references a
// registered provider, failing fast with ErrNoProviderRegistered
// before the scheduler ever dispatches a step.
func requireProviderFor(reg *providers.Registry, llmProviders []string) error {
	if len(llmProviders) == 0 {
		return nil
	}
	for _, name := range llmProviders {
		if _, err := reg.Get(name); err != nil {
			return fmt.Errorf("%w (step references provider %q)", ErrNoProviderRegistered, name)
		}
	}
	return nil
}
