// Package scheduler drives a single workflow execution to completion:
// dependency barriers, bounded concurrency, per-step timeout and
// retry, and result aggregation. Grounded on
// orchestration/workflow_engine.go's executeDAG/worker/executeStep
// (the 5-worker channel pool, panic-recovered goroutines, polling
// dependency loop) narrowed to the exact algorithm spec.md §4.5
// specifies: per-step goroutines gated on a 10ms-polling barrier,
// a throttle on the in-flight handle queue rather than a fixed pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/llmdevops/orchestrator/dag"
	"github.com/llmdevops/orchestrator/execctx"
	"github.com/llmdevops/orchestrator/obslog"
	"github.com/llmdevops/orchestrator/providers"
	"github.com/llmdevops/orchestrator/retry"
	"github.com/llmdevops/orchestrator/workflow"
)

// BarrierPollInterval is the minimum pause between dependency-barrier
// checks, per spec.md §4.5 ("≥10 ms pause between checks").
const BarrierPollInterval = 10 * time.Millisecond

// StepStatus is the terminal/non-terminal state of a step's execution.
type StepStatus string

const (
	StatusPending   StepStatus = "pending"
	StatusRunning   StepStatus = "running"
	StatusCompleted StepStatus = "completed"
	StatusFailed    StepStatus = "failed"
	StatusSkipped   StepStatus = "skipped"
)

func (s StepStatus) terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// StepResult is the outcome recorded for one step.
type StepResult struct {
	StepID   string
	Status   StepStatus
	Outputs  map[string]any
	Error    string
	Duration time.Duration
}

// Scheduler drives one workflow execution.
type Scheduler struct {
	workflow      *workflow.Workflow
	dag           *dag.DAG
	ctx           *execctx.Context
	registry      *providers.Registry
	maxConcurrency int
	logger        obslog.Logger
	tracer        trace.Tracer

	mu       sync.Mutex
	statuses map[string]StepStatus
	results  map[string]StepResult

	completedMu sync.RWMutex
	completed   map[string]bool
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithMaxConcurrency bounds the number of in-flight step attempts.
// Zero means unbounded, per spec.md's boundary-behavior note.
func WithMaxConcurrency(n int) Option {
	return func(s *Scheduler) { s.maxConcurrency = n }
}

// WithLogger overrides the default no-op logger.
func WithLogger(l obslog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithTracer overrides the default OpenTelemetry tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Scheduler) { s.tracer = t }
}

// New builds a Scheduler for one execution of w against d, using ctx
// for template/condition evaluation and registry to resolve LLM
// providers by name.
func New(w *workflow.Workflow, d *dag.DAG, ctx *execctx.Context, registry *providers.Registry, opts ...Option) *Scheduler {
	s := &Scheduler{
		workflow:  w,
		dag:       d,
		ctx:       ctx,
		registry:  registry,
		logger:    obslog.NoOp(),
		tracer:    otel.Tracer("github.com/llmdevops/orchestrator/scheduler"),
		statuses:  make(map[string]StepStatus),
		results:   make(map[string]StepResult),
		completed: make(map[string]bool),
	}
	for _, id := range w.Steps {
		s.statuses[id.ID] = StatusPending
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type handle struct {
	stepID string
	done   chan struct{}
}

// Execute drives the workflow to terminal state and returns a result
// for every declared step, per spec.md §4.5's dispatch loop.
func (s *Scheduler) Execute(ctx context.Context) (map[string]StepResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.execute",
		trace.WithAttributes(attribute.String("workflow.id", s.workflow.ID), attribute.String("workflow.name", s.workflow.Name)))
	defer span.End()

	order := s.dag.Order()
	var handles []*handle

	for _, stepID := range order {
		step, _ := s.workflow.StepByID(stepID)

		if err := s.waitForDependencies(ctx, step.DependsOn); err != nil {
			return nil, err
		}

		should, err := s.shouldExecute(step)
		if err != nil {
			// A condition that fails to evaluate is treated as a step
			// failure, not a pre-execution validation error: the
			// workflow still proceeds for independent branches.
			s.recordResult(stepID, StepResult{StepID: stepID, Status: StatusFailed, Error: err.Error()})
			continue
		}
		if !should {
			s.markSkipped(stepID)
			continue
		}

		h := &handle{stepID: stepID, done: make(chan struct{})}
		handles = append(handles, h)
		s.setStatus(stepID, StatusRunning)

		go func(step workflow.Step, h *handle) {
			defer close(h.done)
			s.runStep(ctx, step)
		}(step, h)

		if s.maxConcurrency > 0 && len(handles) >= s.maxConcurrency {
			head := handles[0]
			handles = handles[1:]
			<-head.done
		}
	}

	for _, h := range handles {
		<-h.done
	}

	s.mu.Lock()
	out := make(map[string]StepResult, len(s.results))
	for k, v := range s.results {
		out[k] = v
	}
	s.mu.Unlock()

	return out, nil
}

// waitForDependencies busy-waits with a bounded sleep until every
// predecessor of deps has reached a terminal status, per the §4.5
// barrier step. It also returns promptly on context cancellation.
func (s *Scheduler) waitForDependencies(ctx context.Context, deps []string) error {
	for {
		if s.allCompleted(deps) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(BarrierPollInterval):
		}
	}
}

func (s *Scheduler) allCompleted(deps []string) bool {
	s.completedMu.RLock()
	defer s.completedMu.RUnlock()
	for _, d := range deps {
		if !s.completed[d] {
			return false
		}
	}
	return true
}

func (s *Scheduler) shouldExecute(step workflow.Step) (bool, error) {
	if step.Condition == "" {
		return true, nil
	}
	return s.ctx.EvaluateCondition(step.Condition)
}

func (s *Scheduler) markSkipped(stepID string) {
	s.recordResult(stepID, StepResult{StepID: stepID, Status: StatusSkipped, Outputs: map[string]any{}})
}

func (s *Scheduler) setStatus(stepID string, status StepStatus) {
	s.mu.Lock()
	s.statuses[stepID] = status
	s.mu.Unlock()
}

// recordResult stores a terminal result and marks the step completed
// in the dependency-barrier set, matching the "a step enters completed
// on reaching any terminal status" rule in spec.md §4.5.
func (s *Scheduler) recordResult(stepID string, result StepResult) {
	s.mu.Lock()
	s.statuses[stepID] = result.Status
	s.results[stepID] = result
	s.mu.Unlock()

	s.completedMu.Lock()
	s.completed[stepID] = true
	s.completedMu.Unlock()
}

// runStep wraps one step's attempt loop in its retry policy, applying
// a per-step timeout race when configured, and records the terminal
// result. Grounded on executor.rs's execute_step / execute_step_inner
// dispatch-by-kind shape and the teacher's executeStep panic-recovery
// idiom.
func (s *Scheduler) runStep(ctx context.Context, step workflow.Step) {
	ctx, span := s.tracer.Start(ctx, "scheduler.step",
		trace.WithAttributes(attribute.String("step.id", step.ID), attribute.String("step.type", string(step.Type))))
	defer span.End()

	start := time.Now()
	policy := retry.Default()
	if step.Retry != nil {
		policy = retry.FromWorkflowPolicy(*step.Retry)
	}

	var outputs map[string]any
	var lastErr error

	attemptErr := retry.Do(ctx, policy, func(attemptCtx context.Context) error {
		var out map[string]any
		var err error
		if step.TimeoutSeconds != nil {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(attemptCtx, time.Duration(*step.TimeoutSeconds)*time.Second)
			defer cancel()
			out, err = s.raceStepExecution(attemptCtx, step)
		} else {
			out, err = s.executeStepOnce(attemptCtx, step)
		}
		if err != nil {
			lastErr = err
			return err
		}
		outputs = out
		return nil
	})

	duration := time.Since(start)

	if attemptErr != nil {
		errMsg := attemptErr.Error()
		if lastErr != nil {
			errMsg = lastErr.Error()
		}
		s.logger.ErrorWithContext(ctx, "step failed", "step_id", step.ID, "error", errMsg)
		s.recordResult(step.ID, StepResult{StepID: step.ID, Status: StatusFailed, Error: errMsg, Duration: duration})
		return
	}

	func() {
		defer func() {
			// SetOutput panics on a double write (a programming error
			// per spec), but a well-formed scheduler never calls it
			// twice for the same step; recover defensively so a bug
			// elsewhere surfaces as a failed step instead of crashing
			// the whole execution.
			if r := recover(); r != nil {
				s.recordResult(step.ID, StepResult{StepID: step.ID, Status: StatusFailed, Error: fmt.Sprintf("panic recording output: %v", r), Duration: duration})
			}
		}()
		s.ctx.SetOutput(step.ID, outputs)
		s.recordResult(step.ID, StepResult{StepID: step.ID, Status: StatusCompleted, Outputs: outputs, Duration: duration})
	}()
}

// ErrUnimplemented is returned by step kinds declared in the model but
// not yet given a concrete execution path, per spec.md §4.5.
var ErrUnimplemented = fmt.Errorf("scheduler: step kind not implemented")

// raceStepExecution runs one attempt on its own goroutine and races it
// against ctx's deadline, grounded on executor.rs's
// tokio::time::timeout(timeout_duration, execute_step_inner(step)):
// the instant the timer elapses, the race resolves to a Timeout error
// and abandons the attempt goroutine rather than waiting on it to
// notice cancellation. None of the shipped step kinds or providers
// check ctx mid-call, so a bare context.WithTimeout signal would never
// actually interrupt them; this makes the timeout preemptive
// regardless of whether the attempt ever looks at ctx.
func (s *Scheduler) raceStepExecution(ctx context.Context, step workflow.Step) (map[string]any, error) {
	type attemptResult struct {
		outputs map[string]any
		err     error
	}

	resultCh := make(chan attemptResult, 1)
	go func() {
		out, err := s.executeStepOnce(ctx, step)
		resultCh <- attemptResult{outputs: out, err: err}
	}()

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &providers.ProviderError{
				Kind:    providers.ErrorTimeout,
				Message: fmt.Sprintf("step %q timed out", step.ID),
			}
		}
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.outputs, r.err
	}
}

// executeStepOnce performs one attempt, dispatching by step kind.
func (s *Scheduler) executeStepOnce(ctx context.Context, step workflow.Step) (map[string]any, error) {
	switch step.Type {
	case workflow.StepLLM:
		return s.executeLLMStep(ctx, step)
	case workflow.StepTransform, workflow.StepAction, workflow.StepParallel, workflow.StepBranch:
		return map[string]any{}, nil
	case workflow.StepEmbed, workflow.StepVectorSearch:
		return nil, fmt.Errorf("%w: %s", ErrUnimplemented, step.Type)
	default:
		return nil, fmt.Errorf("scheduler: unknown step type %q", step.Type)
	}
}

// executeLLMStep renders the configured prompt, calls the named
// provider, and shapes the outputs map: the first declared output
// name maps to the response text, plus a "_response" entry carrying
// metadata, grounded on executor.rs's execute_llm_step.
func (s *Scheduler) executeLLMStep(ctx context.Context, step workflow.Step) (map[string]any, error) {
	cfg, ok := step.Config.(workflow.LLMConfig)
	if !ok {
		return nil, fmt.Errorf("scheduler: step %q is type llm but config is %T", step.ID, step.Config)
	}

	provider, err := s.registry.Get(cfg.Provider)
	if err != nil {
		return nil, err
	}

	prompt, err := s.ctx.RenderTemplate(cfg.Prompt)
	if err != nil {
		return nil, err
	}

	system := cfg.System
	if system != "" {
		system, err = s.ctx.RenderTemplate(system)
		if err != nil {
			return nil, err
		}
	}

	resp, err := provider.Complete(ctx, providers.CompletionRequest{
		Model:       cfg.Model,
		Prompt:      prompt,
		System:      system,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Extra:       cfg.Extra,
	})
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{}
	if len(step.Output) > 0 {
		outputs[step.Output[0]] = resp.Text
	} else {
		outputs["text"] = resp.Text
	}
	outputs["_response"] = map[string]any{
		"text":        resp.Text,
		"model":       resp.Model,
		"tokens_used": resp.TokensUsed,
		"metadata":    resp.Metadata,
	}
	return outputs, nil
}

// Status returns the current status of a step.
func (s *Scheduler) Status(stepID string) StepStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[stepID]
}
