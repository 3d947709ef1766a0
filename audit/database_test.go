package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// These only cover the pure SQL-building helpers; exercising Store/Query/Get
// against a real audit_events table requires a live Postgres instance and is
// out of scope for unit tests run without one.

func TestBuildFilterClauseEmptyFilterProducesNoClause(t *testing.T) {
	clause, args := buildFilterClause(NewFilter(), 1)
	require.Empty(t, clause)
	require.Empty(t, args)
}

func TestBuildFilterClauseCombinesSetFieldsWithPlaceholders(t *testing.T) {
	since := time.Now().UTC()
	filter := Filter{
		UserID:    "user-1",
		EventType: EventAuthAttempt,
		Since:     &since,
	}

	clause, args := buildFilterClause(filter, 1)
	require.Equal(t, " AND user_id = $1 AND event_type = $2 AND timestamp >= $3", clause)
	require.Equal(t, []any{"user-1", string(EventAuthAttempt), since}, args)
}

func TestBuildFilterClauseStartParamOffsetsPlaceholders(t *testing.T) {
	filter := Filter{ResourceID: "wf-1"}
	clause, args := buildFilterClause(filter, 3)
	require.Equal(t, " AND resource_id = $3", clause)
	require.Equal(t, []any{"wf-1"}, args)
}

func TestNullableStringConvertsEmptyToNil(t *testing.T) {
	require.Nil(t, nullableString(""))
	require.Equal(t, "value", nullableString("value"))
}
