// Package web provides the HTTP surface of the workflow engine.
package web

import "github.com/dukex/siteflow/pkg/models"

// StartWorkflowRequest represents the request body for starting an instance.
type StartWorkflowRequest struct {
	Variables map[string]any `json:"variables"`
	UserID    string         `json:"user_id"   validate:"required"`
}

// DecideApprovalRequest represents an approver's decision.
type DecideApprovalRequest struct {
	Status models.ApprovalStatus `json:"status" validate:"required,oneof=approved rejected escalated"`
	Notes  string                `json:"notes"`
}

// PublishEventRequest asks the engine to start the workflows listening for
// Event, or the single workflow named by WorkflowID.
type PublishEventRequest struct {
	Event      string         `json:"event"       validate:"required_without=WorkflowID"`
	WorkflowID string         `json:"workflow_id"`
	Data       map[string]any `json:"data"`
	UserID     string         `json:"user_id"`
}

// HistoryQuery holds the query parameters of the history endpoint.
type HistoryQuery struct {
	DefinitionID string `query:"definition_id"`
	Status       string `query:"status"        validate:"omitempty,oneof=pending running completed failed cancelled"`
	UserID       string `query:"user_id"`
	Limit        int    `query:"limit"         validate:"gte=0,lte=1000"`
}

// DefinitionSummary is the list view of a workflow definition.
type DefinitionSummary struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Trigger     models.TriggerType `json:"trigger"`
	Steps       int                `json:"steps"`
}
