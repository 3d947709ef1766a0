// Package mock is a deterministic LLMProvider used by tests and the
// CLI's benchmark command, grounded on the teacher's
// ai/providers/mock pattern of a no-network stand-in behind the same
// interface as a real client.
package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/llmdevops/orchestrator/providers"
)

// Provider echoes back a fixed reply and records every prompt it was
// asked to complete, so tests can assert on rendered template output.
type Provider struct {
	name  string
	reply string

	mu      sync.Mutex
	prompts []string
}

// New returns a mock provider named name that always replies with
// reply.
func New(name, reply string) *Provider {
	return &Provider{name: name, reply: reply}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) HealthCheck(ctx context.Context) error { return nil }

// Complete records the rendered prompt and returns the fixed reply.
func (p *Provider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, req.Prompt)
	p.mu.Unlock()

	return providers.CompletionResponse{
		Text:  p.reply,
		Model: req.Model,
		Metadata: map[string]any{
			"mock":   true,
			"prompt": req.Prompt,
		},
	}, nil
}

// Prompts returns every prompt this provider has been asked to
// complete, in call order.
func (p *Provider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

// Failing returns a provider that always fails with kind, for
// exercising the scheduler's retry/failure path in tests.
func Failing(name string, kind providers.ErrorKind) *FailingProvider {
	return &FailingProvider{name: name, kind: kind}
}

// FailingProvider always returns a ProviderError of a fixed kind.
type FailingProvider struct {
	name string
	kind providers.ErrorKind

	mu    sync.Mutex
	calls int
}

func (p *FailingProvider) Name() string                        { return p.name }
func (p *FailingProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *FailingProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return providers.CompletionResponse{}, &providers.ProviderError{
		Kind:    p.kind,
		Message: fmt.Sprintf("%s always fails", p.name),
	}
}

// Calls returns how many times Complete has been invoked.
func (p *FailingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// Slow returns a provider whose Complete blocks for delay before
// replying, without ever consulting ctx — exercising a scheduler-level
// timeout race against an attempt that cannot cooperate with
// cancellation, the same shape as a real HTTP client stalled on a slow
// upstream.
func Slow(name, reply string, delay time.Duration) *SlowProvider {
	return &SlowProvider{name: name, reply: reply, delay: delay}
}

// SlowProvider always takes delay to respond, ignoring ctx.
type SlowProvider struct {
	name  string
	reply string
	delay time.Duration
}

func (p *SlowProvider) Name() string                        { return p.name }
func (p *SlowProvider) HealthCheck(ctx context.Context) error { return nil }

func (p *SlowProvider) Complete(ctx context.Context, req providers.CompletionRequest) (providers.CompletionResponse, error) {
	time.Sleep(p.delay)
	return providers.CompletionResponse{Text: p.reply, Model: req.Model}, nil
}
