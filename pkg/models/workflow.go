// Package models defines the core domain models for construction workflow orchestration.
package models

import "time"

// TriggerType describes how instances of a workflow definition are started.
type TriggerType string

const (
	TriggerTypeManual    TriggerType = "manual"
	TriggerTypeEvent     TriggerType = "event"
	TriggerTypeSchedule  TriggerType = "schedule"
	TriggerTypeCondition TriggerType = "condition"
)

// Trigger is the start descriptor of a workflow definition.
type Trigger struct {
	Type   TriggerType    `json:"type"             yaml:"type"             validate:"required,oneof=manual event schedule condition"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// CronExpression returns the schedule expression of a schedule trigger.
func (t Trigger) CronExpression() string {
	cron, _ := t.Config["cron"].(string)

	return cron
}

// Timezone returns the IANA timezone of a schedule trigger, if any.
func (t Trigger) Timezone() string {
	tz, _ := t.Config["timezone"].(string)

	return tz
}

// EventName returns the event an event trigger listens for.
func (t Trigger) EventName() string {
	event, _ := t.Config["event"].(string)

	return event
}

// RetryPolicy controls how many times a failing external call is attempted.
type RetryPolicy struct {
	MaxAttempts            int      `json:"max_attempts"                       yaml:"max_attempts"                       validate:"min=1"`
	BackoffMultiplier      float64  `json:"backoff_multiplier"                 yaml:"backoff_multiplier"                 validate:"gte=0"`
	InitialIntervalSeconds float64  `json:"initial_interval_seconds,omitempty" yaml:"initial_interval_seconds,omitempty" validate:"gte=0"`
	RetryableErrors        []string `json:"retryable_errors,omitempty"         yaml:"retryable_errors,omitempty"`
}

// InitialInterval returns the delay before the first retry.
func (p RetryPolicy) InitialInterval() time.Duration {
	if p.InitialIntervalSeconds <= 0 {
		return time.Second
	}

	return time.Duration(p.InitialIntervalSeconds * float64(time.Second))
}

// WorkflowDefinition is the immutable template of a workflow.
type WorkflowDefinition struct {
	ID           string         `json:"id"                      yaml:"id"                      validate:"required"`
	Name         string         `json:"name"                    yaml:"name"                    validate:"required"`
	Description  string         `json:"description,omitempty"   yaml:"description,omitempty"`
	Trigger      Trigger        `json:"trigger"                 yaml:"trigger"`
	Steps        []*Step        `json:"steps"                   yaml:"steps"                   validate:"required,min=1,dive,required"`
	Variables    map[string]any `json:"variables,omitempty"     yaml:"variables,omitempty"`
	TimeoutHours float64        `json:"timeout_hours,omitempty" yaml:"timeout_hours,omitempty" validate:"gte=0"`
	RetryPolicy  *RetryPolicy   `json:"retry_policy,omitempty"  yaml:"retry_policy,omitempty"`
}

// Step returns the step with the given id.
func (d *WorkflowDefinition) Step(id string) (*Step, bool) {
	for _, step := range d.Steps {
		if step.ID == id {
			return step, true
		}
	}

	return nil, false
}

// Timeout returns the instance deadline, zero when unbounded.
func (d *WorkflowDefinition) Timeout() time.Duration {
	return Hours(d.TimeoutHours)
}

// Hours converts a fractional hour count to a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
