package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const yamlDoc = `
id: wf-1
name: greet
version: "1.0.0"
steps:
  - id: a
    type: transform
    config: {}
  - id: b
    type: llm
    depends_on: [a]
    config:
      provider: mock
      model: test-model
      prompt: "Hello {{ inputs.name }}"
`

func TestLoadYAMLResolvesPolymorphicConfig(t *testing.T) {
	w, err := LoadYAML([]byte(yamlDoc))
	require.NoError(t, err)
	require.Equal(t, "greet", w.Name)
	require.Len(t, w.Steps, 2)

	llmCfg, ok := w.Steps[1].Config.(LLMConfig)
	require.True(t, ok)
	require.Equal(t, "mock", llmCfg.Provider)
	require.Equal(t, "Hello {{ inputs.name }}", llmCfg.Prompt)

	require.NoError(t, w.Validate())
}

const jsonDoc = `{
  "id": "wf-1",
  "name": "greet",
  "version": "1.0.0",
  "steps": [
    {"id": "a", "type": "transform", "config": {}},
    {"id": "b", "type": "llm", "depends_on": ["a"], "config": {"provider": "mock", "model": "test-model", "prompt": "hi"}}
  ]
}`

func TestLoadJSONResolvesPolymorphicConfig(t *testing.T) {
	w, err := LoadJSON([]byte(jsonDoc))
	require.NoError(t, err)
	require.Len(t, w.Steps, 2)

	llmCfg, ok := w.Steps[1].Config.(LLMConfig)
	require.True(t, ok)
	require.Equal(t, "mock", llmCfg.Provider)

	require.NoError(t, w.Validate())
}

func TestLoadYAMLRejectsUnknownStepType(t *testing.T) {
	_, err := LoadYAML([]byte("name: x\nversion: \"1\"\nsteps:\n  - id: a\n    type: bogus\n"))
	require.Error(t, err)
}
