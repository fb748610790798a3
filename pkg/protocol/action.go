// Package protocol defines the collaborator contracts the workflow engine
// calls out to. The engine owns none of their storage.
package protocol

import (
	"context"

	"github.com/dukex/siteflow/pkg/models"
)

// ActionExecutor runs side-effecting business actions such as budget
// updates or incident reports.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, data map[string]any, userID, projectID string) (any, error)
}

// NotificationDispatcher delivers a templated message on one channel.
type NotificationDispatcher interface {
	Send(ctx context.Context, channel string, recipients []string, template string, data map[string]any) (any, error)
}

// ApprovalStore keeps approval requests. Some external actor moves a request
// from pending to approved or rejected.
type ApprovalStore interface {
	Create(ctx context.Context, request *models.ApprovalRequest) (string, error)
	Get(ctx context.Context, approvalID string) (*models.ApprovalRequest, error)
}

// ApprovalDecider is implemented by approval stores that accept decisions
// from the approver UI.
type ApprovalDecider interface {
	Decide(ctx context.Context, approvalID string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error)
}
