package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/llmdevops/orchestrator/providers"
)

func TestProviderEchoesReplyAndRecordsPrompt(t *testing.T) {
	p := New("mock", "hi")
	resp, err := p.Complete(context.Background(), providers.CompletionRequest{Prompt: "Hello World", Model: "x"})
	require.NoError(t, err)
	require.Equal(t, "hi", resp.Text)
	require.Equal(t, []string{"Hello World"}, p.Prompts())
}

func TestFailingProviderAlwaysErrors(t *testing.T) {
	p := Failing("bad", providers.ErrorRateLimit)
	_, err := p.Complete(context.Background(), providers.CompletionRequest{})
	require.Error(t, err)
	var pe *providers.ProviderError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, providers.ErrorRateLimit, pe.Kind)
	require.Equal(t, 1, p.Calls())
}
