package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const linearYAML = `
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
    output: [greeting]
    config:
      provider: mock
      model: test-model
      prompt: "Hello {{ inputs.name }}"
`

const cyclicYAML = `
name: cyclic
version: "1.0.0"
steps:
  - id: x
    type: transform
    depends_on: [y]
    config: {}
  - id: y
    type: transform
    depends_on: [x]
    config: {}
`

func writeTempWorkflow(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidateCommandPrintsStats(t *testing.T) {
	path := writeTempWorkflow(t, linearYAML)
	cmd := NewValidateCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path})
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "greet")
	require.Contains(t, buf.String(), "steps:")
}

func TestValidateCommandReportsCycle(t *testing.T) {
	path := writeTempWorkflow(t, cyclicYAML)
	cmd := NewValidateCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	require.Error(t, cmd.Execute())
}

func TestRunCommandExecutesAndPrintsResults(t *testing.T) {
	path := writeTempWorkflow(t, linearYAML)
	cmd := NewRunCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--input", `{"name":"World"}`})
	require.NoError(t, cmd.Execute())

	var out map[string]map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "completed", out["a"]["status"])
	require.Equal(t, "completed", out["b"]["status"])
}

func TestRunCommandRejectsUnregisteredProvider(t *testing.T) {
	doc := `
name: needs-real-provider
version: "1.0.0"
steps:
  - id: a
    type: llm
    config:
      provider: openai
      model: gpt-x
      prompt: hi
`
	path := writeTempWorkflow(t, doc)
	cmd := NewRunCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})
	err := cmd.Execute()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrNoProviderRegistered)
}

func TestBenchmarkCommandWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "results")

	cmd := NewBenchmarkCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--output", outputDir, "--quiet"})
	require.NoError(t, cmd.Execute())

	_, err := os.Stat(filepath.Join(outputDir, "latest_results.json"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(outputDir, "summary.md"))
	require.NoError(t, err)

	rawEntries, err := os.ReadDir(filepath.Join(outputDir, "raw"))
	require.NoError(t, err)
	require.NotEmpty(t, rawEntries)
}

func TestBenchmarkCommandRejectsUnknownFormat(t *testing.T) {
	cmd := NewBenchmarkCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--output", t.TempDir(), "--format", "xml"})
	require.Error(t, cmd.Execute())
}
