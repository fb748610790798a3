package models

import "time"

// EventType is the kind of an instance history entry.
type EventType string

const (
	EventStarted       EventType = "started"
	EventStepCompleted EventType = "step_completed"
	EventStepFailed    EventType = "step_failed"
	EventDecisionMade  EventType = "decision_made"
	EventApproved      EventType = "approved"
	EventRejected      EventType = "rejected"
	EventEscalated     EventType = "escalated"
	EventSuspended     EventType = "suspended"
	EventCompleted     EventType = "completed"
	EventFailed        EventType = "failed"
	EventCancelled     EventType = "cancelled"
)

// Event is an append-only history record of an instance.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	StepID    string         `json:"step_id,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
