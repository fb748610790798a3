package models

import (
	"maps"
	"slices"
	"time"
)

// InstanceStatus is the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusRunning   InstanceStatus = "running"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusFailed    InstanceStatus = "failed"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// IsTerminal reports whether no further transition is possible.
func (s InstanceStatus) IsTerminal() bool {
	return s == InstanceStatusCompleted || s == InstanceStatusFailed || s == InstanceStatusCancelled
}

// StepStatus is the state of a step within one run.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// StepRecord tracks one step during a run. It is folded into variables and
// history rather than persisted on its own.
type StepRecord struct {
	StepID     string     `json:"step_id"`
	Status     StepStatus `json:"status"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Suspension marks a step parked until an external decision or a due time.
type Suspension struct {
	StepID      string    `json:"step_id"`
	ApprovalID  string    `json:"approval_id,omitempty"`
	ResumeToken string    `json:"resume_token"`
	DueAt       time.Time `json:"due_at"`
	Escalation  string    `json:"escalation,omitempty"`
}

// WorkflowInstance is one execution of a workflow definition.
type WorkflowInstance struct {
	ID           string         `json:"id"`
	DefinitionID string         `json:"definition_id"`
	Status       InstanceStatus `json:"status"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      *time.Time     `json:"end_time,omitempty"`
	Variables    map[string]any `json:"variables"`
	CurrentStep  string         `json:"current_step,omitempty"`
	History      []Event        `json:"history"`
	Error        string         `json:"error,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Suspensions  []Suspension   `json:"suspensions,omitempty"`
}

// Suspension returns the suspension recorded for stepID.
func (i *WorkflowInstance) Suspension(stepID string) (Suspension, bool) {
	for _, s := range i.Suspensions {
		if s.StepID == stepID {
			return s, true
		}
	}

	return Suspension{}, false
}

// Clone returns a copy that shares no slices or top level maps with i.
func (i *WorkflowInstance) Clone() *WorkflowInstance {
	c := *i
	c.Variables = maps.Clone(i.Variables)
	c.History = slices.Clone(i.History)
	c.Suspensions = slices.Clone(i.Suspensions)

	if i.EndTime != nil {
		end := *i.EndTime
		c.EndTime = &end
	}

	return &c
}

// CompletedSteps returns the ids of steps with a step_completed event, in
// completion order.
func (i *WorkflowInstance) CompletedSteps() []string {
	var ids []string

	for _, e := range i.History {
		if e.Type == EventStepCompleted && !slices.Contains(ids, e.StepID) {
			ids = append(ids, e.StepID)
		}
	}

	return ids
}
