// Package providers defines the polymorphic LLM completion capability
// and its concurrent string-keyed registry, grounded on
// llm-orchestrator-core/src/providers.rs. Concrete HTTP clients
// (OpenAI/Anthropic) are out of scope here, same as the teacher's own
// ai/providers/openai and ai/providers/anthropic packages sit behind
// the same core.AIClient interface rather than being imported directly.
package providers

import (
	"context"
	"fmt"
	"sync"
)

// CompletionRequest carries everything a completion call needs.
type CompletionRequest struct {
	Model       string
	Prompt      string
	System      string
	Temperature *float64
	MaxTokens   *int
	Extra       map[string]any
}

// CompletionResponse carries a provider's completion result.
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed *int
	Metadata   map[string]any
}

// ErrorKind tags a ProviderError per spec.md §4.4.
type ErrorKind string

const (
	ErrorHTTP             ErrorKind = "http"
	ErrorAuth             ErrorKind = "auth"
	ErrorRateLimit        ErrorKind = "rate_limit"
	ErrorInvalidRequest   ErrorKind = "invalid_request"
	ErrorTimeout          ErrorKind = "timeout"
	ErrorSerialization    ErrorKind = "serialization"
	ErrorProviderSpecific ErrorKind = "provider_specific"
	ErrorUnknown          ErrorKind = "unknown"
)

// ProviderError is the tagged error type every provider returns.
type ProviderError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error (%s): %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %s", e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether the scheduler's default policy treats this
// kind as retryable. Per spec.md §4.4 only RateLimit and Timeout are
// retryable in the core path; the policy may be widened per provider
// at integration time.
func (e *ProviderError) Retryable() bool {
	return e.Kind == ErrorRateLimit || e.Kind == ErrorTimeout
}

// LLMProvider is the capability set a completion backend implements.
type LLMProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	Name() string
	HealthCheck(ctx context.Context) error
}

// Registry is a concurrent name -> LLMProvider mapping populated at
// executor construction time, per spec.md §4.4.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]LLMProvider
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]LLMProvider)}
}

// Register adds or replaces a provider under its own Name().
func (r *Registry) Register(p LLMProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// ErrProviderNotFound is returned by Get for an unregistered name.
var ErrProviderNotFound = fmt.Errorf("providers: provider not found")

// Get looks up a provider by name.
func (r *Registry) Get(name string) (LLMProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Names lists all registered provider names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
