package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProvider struct{ name string }

func (s stubProvider) Name() string                        { return s.name }
func (s stubProvider) HealthCheck(ctx context.Context) error { return nil }
func (s stubProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{Text: "ok"}, nil
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(stubProvider{name: "mock"})

	p, err := r.Get("mock")
	require.NoError(t, err)
	require.Equal(t, "mock", p.Name())
}

func TestRegistryGetUnknownReturnsError(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("missing")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestProviderErrorRetryableKinds(t *testing.T) {
	require.True(t, (&ProviderError{Kind: ErrorRateLimit}).Retryable())
	require.True(t, (&ProviderError{Kind: ErrorTimeout}).Retryable())
	require.False(t, (&ProviderError{Kind: ErrorAuth}).Retryable())
	require.False(t, (&ProviderError{Kind: ErrorInvalidRequest}).Retryable())
}

func TestRegistryNamesListsAll(t *testing.T) {
	r := NewRegistry()
	r.Register(stubProvider{name: "a"})
	r.Register(stubProvider{name: "b"})
	require.ElementsMatch(t, []string{"a", "b"}, r.Names())
}
