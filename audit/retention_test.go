package audit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCleanupDeletesEventsOlderThanRetentionWindow(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()

	old := New(EventStepExecution, "execute_step", ResourceStep, "s", ResultSuccess())
	old.Timestamp = time.Now().UTC().AddDate(0, 0, -10)
	recent := New(EventStepExecution, "execute_step", ResourceStep, "s", ResultSuccess())
	recent.Timestamp = time.Now().UTC()

	require.NoError(t, storage.Store(ctx, old))
	require.NoError(t, storage.Store(ctx, recent))

	manager := NewRetentionManager(storage, 7)
	deleted, err := manager.Cleanup(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestCutoffDateIsRetentionDaysInThePast(t *testing.T) {
	manager := NewRetentionManager(NewMemoryStorage(), 30)
	cutoff := manager.CutoffDate()
	expected := time.Now().UTC().AddDate(0, 0, -30)
	require.WithinDuration(t, expected, cutoff, time.Minute)
}

func TestStartBackgroundCleanupRunsUntilCanceled(t *testing.T) {
	storage := NewMemoryStorage()
	manager := NewRetentionManager(storage, 7)

	ctx, cancel := context.WithCancel(context.Background())
	var errCount int32
	done := manager.StartBackgroundCleanup(ctx, 5*time.Millisecond, func(error) {
		atomic.AddInt32(&errCount, 1)
	})

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background cleanup did not exit after cancellation")
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&errCount))
}
