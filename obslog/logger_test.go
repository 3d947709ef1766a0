package obslog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONLoggerWritesLevelAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, LevelInfo)

	l.Info("step started", "step_id", "s1")

	out := buf.String()
	require.Contains(t, out, `"level":"info"`)
	require.Contains(t, out, `"msg":"step started"`)
	require.Contains(t, out, `"step_id":"s1"`)
}

func TestJSONLoggerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, LevelWarn)

	l.Debug("noisy")
	l.Info("still noisy")
	l.Warn("visible")

	out := buf.String()
	require.False(t, strings.Contains(out, "noisy"))
	require.Contains(t, out, "visible")
}

func TestWithContextInjectsWorkflowAndStepIDs(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, LevelDebug)

	ctx := WithWorkflowID(context.Background(), "wf-1")
	ctx = WithStepID(ctx, "step-2")

	l.InfoWithContext(ctx, "running")

	out := buf.String()
	require.Contains(t, out, `"workflow_id":"wf-1"`)
	require.Contains(t, out, `"step_id":"step-2"`)
}

func TestNoOpLoggerDoesNotPanic(t *testing.T) {
	l := NoOp()
	l.Info("anything")
	l.ErrorWithContext(context.Background(), "anything else")
}
