package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestComputeHashIsDeterministicForSameFields(t *testing.T) {
	e := New(EventWorkflowExecution, "execute", ResourceWorkflow, "wf-1", ResultSuccess())
	e.PreviousHash = "abc123"

	h1 := e.ComputeHash()
	h2 := e.ComputeHash()
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
}

func TestComputeHashChangesWhenPreviousHashChanges(t *testing.T) {
	e := New(EventWorkflowExecution, "execute", ResourceWorkflow, "wf-1", ResultSuccess())
	e.PreviousHash = "first"
	h1 := e.ComputeHash()

	e.PreviousHash = "second"
	h2 := e.ComputeHash()

	require.NotEqual(t, h1, h2)
}

func TestComputeHashIgnoresFailureMessage(t *testing.T) {
	base := New(EventWorkflowExecution, "execute", ResourceWorkflow, "wf-1", ResultFailure("boom"))
	other := base
	other.Result = ResultFailure("different message, same tag")

	require.Equal(t, base.ComputeHash(), other.ComputeHash())
}

func TestResultConstructors(t *testing.T) {
	require.True(t, ResultSuccess().IsSuccess())
	require.False(t, ResultFailure("x").IsSuccess())

	msg, ok := ResultFailure("boom").ErrorMessage()
	require.True(t, ok)
	require.Equal(t, "boom", msg)

	_, ok = ResultSuccess().ErrorMessage()
	require.False(t, ok)
}

func TestFilterMatchesAppliesEveryField(t *testing.T) {
	now := time.Now().UTC()
	e := Event{
		UserID:       "u1",
		EventType:    EventAuthAttempt,
		ResourceType: ResourceUser,
		ResourceID:   "u1",
		Timestamp:    now,
	}

	require.True(t, NewFilter().Matches(e))

	f := Filter{UserID: "u2"}
	require.False(t, f.Matches(e))

	since := now.Add(time.Hour)
	f = Filter{Since: &since}
	require.False(t, f.Matches(e))

	until := now.Add(-time.Hour)
	f = Filter{Until: &until}
	require.False(t, f.Matches(e))
}
