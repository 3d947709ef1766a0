// Package retry implements the generic retry-with-backoff executor,
// grounded on resilience/retry.go from the teacher but reshaped to the
// spec's exact semantics: delay_n = min(max_delay, initial * m^n) with
// m = 2 for Exponential and a genuinely distinct per-attempt multiplier
// for Linear (see SPEC_FULL.md §9 for why Linear isn't collapsed into
// Constant), no jitter (not specified), and no error classification —
// every failure is retried, classification is left to the caller.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/llmdevops/orchestrator/workflow"
)

// ErrMaxAttemptsExceeded wraps the final error once all attempts are
// exhausted.
var ErrMaxAttemptsExceeded = errors.New("retry: max attempts exceeded")

// Policy mirrors workflow.RetryPolicy's shape in time.Duration form,
// used internally once the wire-level ints are resolved.
type Policy struct {
	MaxAttempts  int
	Backoff      workflow.BackoffStrategy
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// FromWorkflowPolicy converts a workflow.RetryPolicy into a Policy.
func FromWorkflowPolicy(p workflow.RetryPolicy) Policy {
	return Policy{
		MaxAttempts:  p.MaxAttempts,
		Backoff:      p.Backoff,
		InitialDelay: time.Duration(p.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(p.MaxDelayMs) * time.Millisecond,
	}
}

// Default returns the scheduler's built-in fallback policy: 3
// attempts, 100ms initial delay, exponential backoff, 30s cap.
func Default() Policy {
	return FromWorkflowPolicy(workflow.DefaultRetryPolicy())
}

// delayForAttempt computes delay_n for the n-th retry (1-indexed:
// the sleep taken after attempt n, before attempt n+1).
func delayForAttempt(p Policy, n int) time.Duration {
	var d time.Duration
	switch p.Backoff {
	case workflow.BackoffExponential:
		d = p.InitialDelay
		for i := 1; i < n; i++ {
			d *= 2
			if d > p.MaxDelay {
				d = p.MaxDelay
				break
			}
		}
	case workflow.BackoffLinear:
		d = p.InitialDelay * time.Duration(n)
	default: // Constant
		d = p.InitialDelay
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do attempts fn up to p.MaxAttempts times. After a failing attempt k
// (1-indexed) it sleeps delayForAttempt(p, k) before attempt k+1,
// never sleeping after the final attempt. It returns nil on the first
// success, or the last error wrapped in ErrMaxAttemptsExceeded. A
// context cancellation during a backoff sleep or before an attempt
// aborts early with ctx.Err().
func Do(ctx context.Context, p Policy, fn func(context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := delayForAttempt(p, attempt)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %v", ErrMaxAttemptsExceeded, p.MaxAttempts, lastErr)
}
