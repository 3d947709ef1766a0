// Package workflow holds the typed description of a workflow: steps,
// dependencies, step-kind-specific config, and retry/timeout policy.
// It mirrors the WorkflowDefinition/WorkflowStepDefinition shape from
// the teacher's orchestration engine, generalized to the step kinds
// and config variants this system requires.
package workflow

import (
	"errors"
	"fmt"
)

// StepKind enumerates the supported step types.
type StepKind string

const (
	StepLLM          StepKind = "llm"
	StepEmbed        StepKind = "embed"
	StepVectorSearch StepKind = "vector_search"
	StepTransform    StepKind = "transform"
	StepAction       StepKind = "action"
	StepParallel     StepKind = "parallel"
	StepBranch       StepKind = "branch"
)

func (k StepKind) valid() bool {
	switch k {
	case StepLLM, StepEmbed, StepVectorSearch, StepTransform, StepAction, StepParallel, StepBranch:
		return true
	default:
		return false
	}
}

// BackoffStrategy enumerates retry backoff shapes.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy configures the retry executor for a single step.
type RetryPolicy struct {
	MaxAttempts     int             `json:"max_attempts" yaml:"max_attempts"`
	Backoff         BackoffStrategy `json:"backoff" yaml:"backoff"`
	InitialDelayMs  int64           `json:"initial_delay_ms" yaml:"initial_delay_ms"`
	MaxDelayMs      int64           `json:"max_delay_ms" yaml:"max_delay_ms"`
}

// DefaultRetryPolicy matches the scheduler's built-in fallback per spec:
// 3 attempts, 100ms initial delay, 2x multiplier, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		Backoff:        BackoffExponential,
		InitialDelayMs: 100,
		MaxDelayMs:     30_000,
	}
}

// StepConfig is the tagged-variant config payload a Step carries. Each
// step kind has exactly one concrete implementation; Kind() must match
// the owning Step's Type field, enforced by Workflow.Validate.
type StepConfig interface {
	Kind() StepKind
}

// LLMConfig configures an LLM completion step.
type LLMConfig struct {
	Provider    string         `json:"provider" yaml:"provider"`
	Model       string         `json:"model" yaml:"model"`
	Prompt      string         `json:"prompt" yaml:"prompt"`
	System      string         `json:"system,omitempty" yaml:"system,omitempty"`
	Temperature *float64       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   *int           `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Stream      bool           `json:"stream,omitempty" yaml:"stream,omitempty"`
	Extra       map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

func (LLMConfig) Kind() StepKind { return StepLLM }

// EmbedConfig configures an embedding step.
type EmbedConfig struct {
	Provider string `json:"provider" yaml:"provider"`
	Model    string `json:"model" yaml:"model"`
	Input    string `json:"input" yaml:"input"`
}

func (EmbedConfig) Kind() StepKind { return StepEmbed }

// VectorSearchConfig configures a vector-search step.
type VectorSearchConfig struct {
	Index    string `json:"index" yaml:"index"`
	Query    string `json:"query" yaml:"query"`
	TopK     int    `json:"top_k" yaml:"top_k"`
}

func (VectorSearchConfig) Kind() StepKind { return StepVectorSearch }

// TransformConfig configures a transform step (currently a no-op in the
// reference scheduler; the config is carried for forward compatibility).
type TransformConfig struct {
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

func (TransformConfig) Kind() StepKind { return StepTransform }

// ActionConfig configures an action step (currently a no-op).
type ActionConfig struct {
	Name   string         `json:"name,omitempty" yaml:"name,omitempty"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

func (ActionConfig) Kind() StepKind { return StepAction }

// ParallelConfig configures a parallel-fan-out step (currently a no-op).
type ParallelConfig struct {
	Branches []string `json:"branches,omitempty" yaml:"branches,omitempty"`
}

func (ParallelConfig) Kind() StepKind { return StepParallel }

// BranchConfig configures a conditional-branch step (currently a no-op).
type BranchConfig struct {
	Cases map[string]string `json:"cases,omitempty" yaml:"cases,omitempty"`
}

func (BranchConfig) Kind() StepKind { return StepBranch }

// Step is one node in a workflow's dependency graph.
type Step struct {
	ID             string       `json:"id" yaml:"id"`
	Type           StepKind     `json:"type" yaml:"type"`
	DependsOn      []string     `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Condition      string       `json:"condition,omitempty" yaml:"condition,omitempty"`
	Config         StepConfig   `json:"config" yaml:"config"`
	Output         []string     `json:"output,omitempty" yaml:"output,omitempty"`
	TimeoutSeconds *int         `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Retry          *RetryPolicy `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// Workflow is the typed description of an executable pipeline.
type Workflow struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Version        string         `json:"version" yaml:"version"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Steps          []Step         `json:"steps" yaml:"steps"`
	Metadata       map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validation errors.
var (
	ErrEmptyName          = errors.New("workflow: name must not be empty")
	ErrEmptyVersion       = errors.New("workflow: version must not be empty")
	ErrDuplicateStepID    = errors.New("workflow: duplicate step id")
	ErrUnknownDependency  = errors.New("workflow: depends_on references unknown step")
	ErrSelfDependency     = errors.New("workflow: step depends on itself")
	ErrKindConfigMismatch = errors.New("workflow: step kind and config variant disagree")
)

// Validate checks the invariants spec.md §3 assigns to Workflow/Step:
// non-empty name/version, unique step ids, depends_on references
// declared steps, no self-dependency, and kind/config agreement.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return ErrEmptyName
	}
	if w.Version == "" {
		return ErrEmptyVersion
	}

	seen := make(map[string]bool, len(w.Steps))
	for _, s := range w.Steps {
		if seen[s.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateStepID, s.ID)
		}
		seen[s.ID] = true
	}

	for _, s := range w.Steps {
		if !s.Type.valid() {
			return fmt.Errorf("workflow: step %q has unknown type %q", s.ID, s.Type)
		}
		if s.Config != nil && s.Config.Kind() != s.Type {
			return fmt.Errorf("%w: step %q declares type %q but config is %q", ErrKindConfigMismatch, s.ID, s.Type, s.Config.Kind())
		}
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				return fmt.Errorf("%w: %q", ErrSelfDependency, s.ID)
			}
			if !seen[dep] {
				return fmt.Errorf("%w: step %q depends on %q", ErrUnknownDependency, s.ID, dep)
			}
		}
	}

	return nil
}

// StepByID returns the step with the given id, if present.
func (w *Workflow) StepByID(id string) (Step, bool) {
	for _, s := range w.Steps {
		if s.ID == id {
			return s, true
		}
	}
	return Step{}, false
}
