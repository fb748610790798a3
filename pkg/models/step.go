package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// StepKind identifies the executor responsible for a step.
type StepKind string

const (
	StepKindAction       StepKind = "action"
	StepKindDecision     StepKind = "decision"
	StepKindApproval     StepKind = "approval"
	StepKindNotification StepKind = "notification"
	StepKindWait         StepKind = "wait"
	StepKindParallel     StepKind = "parallel"
)

// DefaultApprovalTimeoutHours applies when an approval step declares no timeout.
const DefaultApprovalTimeoutHours = 48

// DefaultNotificationChannel applies when a notification step declares no channels.
const DefaultNotificationChannel = "email"

var ErrUnknownStepKind = errors.New("unknown step kind")

// StepConfig is the kind specific configuration of a step.
// Implementations are ActionConfig, DecisionConfig, ApprovalConfig,
// NotificationConfig, WaitConfig and ParallelConfig.
type StepConfig interface {
	Kind() StepKind
}

// Step is one node of the workflow dependency graph.
type Step struct {
	ID           string         `json:"id"`
	Name         string         `json:"name,omitempty"`
	Kind         StepKind       `json:"type"`
	Config       StepConfig     `json:"config"                 validate:"-"`
	Dependencies []string       `json:"dependencies,omitempty"`
	Conditions   []Condition    `json:"conditions,omitempty"`
	Outputs      map[string]any `json:"outputs,omitempty"`
}

type ActionConfig struct {
	Action string         `json:"action"         yaml:"action"         validate:"required"`
	Data   map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

func (*ActionConfig) Kind() StepKind { return StepKindAction }

// DecisionRule maps a condition to an output label. A rule with Default set
// always matches.
type DecisionRule struct {
	Condition *Condition `json:"condition,omitempty" yaml:"condition,omitempty"`
	Default   bool       `json:"default,omitempty"   yaml:"default,omitempty"`
	Output    string     `json:"output"              yaml:"output"              validate:"required"`
}

type DecisionConfig struct {
	Rules []DecisionRule `json:"rules" yaml:"rules" validate:"required,min=1,dive"`
}

func (*DecisionConfig) Kind() StepKind { return StepKindDecision }

// HasDefault reports whether one of the rules is a default arm.
func (c *DecisionConfig) HasDefault() bool {
	for _, rule := range c.Rules {
		if rule.Default {
			return true
		}
	}

	return false
}

type ApprovalConfig struct {
	Approver     string   `json:"approver"             yaml:"approver"             validate:"required"`
	TimeoutHours float64  `json:"timeout_hours"        yaml:"timeout_hours"        validate:"gte=0"`
	Escalation   string   `json:"escalation,omitempty" yaml:"escalation,omitempty"`
	Options      []string `json:"options,omitempty"    yaml:"options,omitempty"`
	Action       string   `json:"action,omitempty"     yaml:"action,omitempty"`
}

func (*ApprovalConfig) Kind() StepKind { return StepKindApproval }

// Timeout returns the configured timeout, or the 48 hour default.
func (c *ApprovalConfig) Timeout() float64 {
	if c.TimeoutHours <= 0 {
		return DefaultApprovalTimeoutHours
	}

	return c.TimeoutHours
}

type NotificationConfig struct {
	Template   string     `json:"template,omitempty"   yaml:"template,omitempty"`
	Channels   []string   `json:"channels,omitempty"   yaml:"channels,omitempty"`
	Recipients Recipients `json:"recipients,omitempty" yaml:"recipients,omitempty"`
	Urgency    string     `json:"urgency,omitempty"    yaml:"urgency,omitempty"`
}

func (*NotificationConfig) Kind() StepKind { return StepKindNotification }

// EffectiveChannels returns the configured channels, defaulting to email.
func (c *NotificationConfig) EffectiveChannels() []string {
	if len(c.Channels) == 0 {
		return []string{DefaultNotificationChannel}
	}

	return c.Channels
}

type WaitConfig struct {
	TimeoutHours       float64 `json:"timeout_hours"                  yaml:"timeout_hours"                  validate:"gte=0"`
	CheckIntervalHours float64 `json:"check_interval_hours,omitempty" yaml:"check_interval_hours,omitempty" validate:"gte=0"`
}

func (*WaitConfig) Kind() StepKind { return StepKindWait }

// ParallelAction is one sub action fanned out by a parallel step.
type ParallelAction struct {
	ID     string         `json:"id"             yaml:"id"             validate:"required"`
	Action string         `json:"action"         yaml:"action"         validate:"required"`
	Data   map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

type ParallelConfig struct {
	Steps []ParallelAction `json:"steps" yaml:"steps" validate:"required,min=1,dive"`
}

func (*ParallelConfig) Kind() StepKind { return StepKindParallel }

// NewStepConfig returns an empty configuration for kind.
func NewStepConfig(kind StepKind) (StepConfig, error) {
	switch kind {
	case StepKindAction:
		return &ActionConfig{}, nil
	case StepKindDecision:
		return &DecisionConfig{}, nil
	case StepKindApproval:
		return &ApprovalConfig{}, nil
	case StepKindNotification:
		return &NotificationConfig{}, nil
	case StepKindWait:
		return &WaitConfig{}, nil
	case StepKindParallel:
		return &ParallelConfig{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepKind, kind)
	}
}

type stepFields struct {
	ID           string         `json:"id"                     yaml:"id"`
	Name         string         `json:"name,omitempty"         yaml:"name,omitempty"`
	Kind         StepKind       `json:"type"                   yaml:"type"`
	Dependencies []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Conditions   []Condition    `json:"conditions,omitempty"   yaml:"conditions,omitempty"`
	Outputs      map[string]any `json:"outputs,omitempty"      yaml:"outputs,omitempty"`
}

func (s *Step) assign(fields stepFields, config StepConfig) {
	s.ID = fields.ID
	s.Name = fields.Name
	s.Kind = fields.Kind
	s.Config = config
	s.Dependencies = fields.Dependencies
	s.Conditions = fields.Conditions
	s.Outputs = fields.Outputs
}

// UnmarshalJSON decodes the config into the typed configuration of the step kind.
func (s *Step) UnmarshalJSON(data []byte) error {
	var raw struct {
		stepFields

		Config json.RawMessage `json:"config"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	config, err := NewStepConfig(raw.Kind)
	if err != nil {
		return fmt.Errorf("step %s: %w", raw.ID, err)
	}

	if len(raw.Config) > 0 && string(raw.Config) != "null" {
		if err := json.Unmarshal(raw.Config, config); err != nil {
			return fmt.Errorf("step %s: invalid %s config: %w", raw.ID, raw.Kind, err)
		}
	}

	s.assign(raw.stepFields, config)

	return nil
}

// UnmarshalYAML decodes the config into the typed configuration of the step kind.
func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		stepFields `yaml:",inline"`

		Config yaml.Node `yaml:"config"`
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}

	config, err := NewStepConfig(raw.Kind)
	if err != nil {
		return fmt.Errorf("step %s: %w", raw.ID, err)
	}

	if !raw.Config.IsZero() {
		if err := raw.Config.Decode(config); err != nil {
			return fmt.Errorf("step %s: invalid %s config: %w", raw.ID, raw.Kind, err)
		}
	}

	s.assign(raw.stepFields, config)

	return nil
}

// ConfigMap returns the configuration as a generic map, the shape used by
// JSON schema validation.
func (s *Step) ConfigMap() (map[string]any, error) {
	if s.Config == nil {
		return map[string]any{}, nil
	}

	data, err := json.Marshal(s.Config)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}

	return out, nil
}
