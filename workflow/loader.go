package workflow

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// wireStep is the on-the-wire shape of a Step before its polymorphic
// Config field is resolved against Type, matching §6's field names.
type wireStep struct {
	ID             string          `json:"id" yaml:"id"`
	Type           StepKind        `json:"type" yaml:"type"`
	DependsOn      []string        `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	Condition      string          `json:"condition,omitempty" yaml:"condition,omitempty"`
	Config         json.RawMessage `json:"config" yaml:"-"`
	RawConfigYAML  yaml.Node       `json:"-" yaml:"config"`
	Output         []string        `json:"output,omitempty" yaml:"output,omitempty"`
	TimeoutSeconds *int            `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Retry          *RetryPolicy    `json:"retry,omitempty" yaml:"retry,omitempty"`
}

type wireWorkflow struct {
	ID             string         `json:"id" yaml:"id"`
	Name           string         `json:"name" yaml:"name"`
	Version        string         `json:"version" yaml:"version"`
	Description    string         `json:"description,omitempty" yaml:"description,omitempty"`
	TimeoutSeconds *int           `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Steps          []wireStep     `json:"steps" yaml:"steps"`
	Metadata       map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

func newConfigForKind(kind StepKind) StepConfig {
	switch kind {
	case StepLLM:
		return &LLMConfig{}
	case StepEmbed:
		return &EmbedConfig{}
	case StepVectorSearch:
		return &VectorSearchConfig{}
	case StepTransform:
		return &TransformConfig{}
	case StepAction:
		return &ActionConfig{}
	case StepParallel:
		return &ParallelConfig{}
	case StepBranch:
		return &BranchConfig{}
	default:
		return nil
	}
}

// derefConfig returns the pointed-to value so Step.Config.Kind() is
// called on the same concrete type Validate expects (value receivers).
func derefConfig(c StepConfig) StepConfig {
	switch v := c.(type) {
	case *LLMConfig:
		return *v
	case *EmbedConfig:
		return *v
	case *VectorSearchConfig:
		return *v
	case *TransformConfig:
		return *v
	case *ActionConfig:
		return *v
	case *ParallelConfig:
		return *v
	case *BranchConfig:
		return *v
	default:
		return c
	}
}

func resolveSteps(wireSteps []wireStep, isYAML bool) ([]Step, error) {
	steps := make([]Step, 0, len(wireSteps))
	for _, ws := range wireSteps {
		cfg := newConfigForKind(ws.Type)
		if cfg == nil {
			return nil, fmt.Errorf("workflow: step %q has unknown type %q", ws.ID, ws.Type)
		}
		if isYAML {
			if !ws.RawConfigYAML.IsZero() {
				if err := ws.RawConfigYAML.Decode(cfg); err != nil {
					return nil, fmt.Errorf("workflow: step %q config: %w", ws.ID, err)
				}
			}
		} else if len(ws.Config) > 0 {
			if err := json.Unmarshal(ws.Config, cfg); err != nil {
				return nil, fmt.Errorf("workflow: step %q config: %w", ws.ID, err)
			}
		}
		steps = append(steps, Step{
			ID:             ws.ID,
			Type:           ws.Type,
			DependsOn:      ws.DependsOn,
			Condition:      ws.Condition,
			Config:         derefConfig(cfg),
			Output:         ws.Output,
			TimeoutSeconds: ws.TimeoutSeconds,
			Retry:          ws.Retry,
		})
	}
	return steps, nil
}

// LoadYAML parses a YAML workflow document per the §6 wire schema and
// resolves each step's polymorphic config against its declared type.
// This belongs outside the core scheduling packages; only the CLI
// front-end calls it.
func LoadYAML(data []byte) (*Workflow, error) {
	var w wireWorkflow
	if err := yaml.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("workflow: parsing yaml: %w", err)
	}
	steps, err := resolveSteps(w.Steps, true)
	if err != nil {
		return nil, err
	}
	return &Workflow{
		ID:             w.ID,
		Name:           w.Name,
		Version:        w.Version,
		Description:    w.Description,
		TimeoutSeconds: w.TimeoutSeconds,
		Steps:          steps,
		Metadata:       w.Metadata,
	}, nil
}

// LoadJSON parses a JSON workflow document per the §6 wire schema.
func LoadJSON(data []byte) (*Workflow, error) {
	var w wireWorkflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("workflow: parsing json: %w", err)
	}
	steps, err := resolveSteps(w.Steps, false)
	if err != nil {
		return nil, err
	}
	return &Workflow{
		ID:             w.ID,
		Name:           w.Name,
		Version:        w.Version,
		Description:    w.Description,
		TimeoutSeconds: w.TimeoutSeconds,
		Steps:          steps,
		Metadata:       w.Metadata,
	}, nil
}
