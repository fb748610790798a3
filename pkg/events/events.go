// Package events defines the messages exchanged over the event bus: instance
// history entries, external workflow triggers and approval decisions.
package events

import (
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every siteflow event.
const Topic = "siteflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// WorkflowTriggeredEvent asks the engine to start instances.
	WorkflowTriggeredEvent EventType = "workflow.triggered"

	// InstanceEventType mirrors an entry appended to an instance history.
	InstanceEventType EventType = "instance.event"

	// ApprovalDecidedEvent announces a decision on an approval request.
	ApprovalDecidedEvent EventType = "approval.decided"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowTriggered starts the definition named by WorkflowID or, when it is
// empty, every definition whose event trigger listens for Event.
type WorkflowTriggered struct {
	BaseEvent

	Event  string         `json:"event,omitempty"`
	Data   map[string]any `json:"data,omitempty"`
	UserID string         `json:"user_id,omitempty"`
}

func (w WorkflowTriggered) GetType() EventType {
	return WorkflowTriggeredEvent
}

// InstanceEvent is published for every history entry of an instance.
type InstanceEvent struct {
	BaseEvent

	InstanceID string                `json:"instance_id"`
	UserID     string                `json:"user_id,omitempty"`
	Status     models.InstanceStatus `json:"status"`
	Event      models.Event          `json:"event"`
}

func (i InstanceEvent) GetType() EventType {
	return InstanceEventType
}

// ApprovalDecided wakes the step waiting on ApprovalID.
type ApprovalDecided struct {
	BaseEvent

	ApprovalID string                `json:"approval_id"`
	InstanceID string                `json:"instance_id,omitempty"`
	Status     models.ApprovalStatus `json:"status"`
	Notes      string                `json:"notes,omitempty"`
}

func (a ApprovalDecided) GetType() EventType {
	return ApprovalDecidedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}
