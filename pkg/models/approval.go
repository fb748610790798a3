package models

import "time"

// ApprovalStatus is the state of an approval request.
type ApprovalStatus string

const (
	ApprovalStatusPending   ApprovalStatus = "pending"
	ApprovalStatusApproved  ApprovalStatus = "approved"
	ApprovalStatusRejected  ApprovalStatus = "rejected"
	ApprovalStatusEscalated ApprovalStatus = "escalated"
)

// ApprovalRequest is a human decision requested by an approval step.
type ApprovalRequest struct {
	ID           string         `json:"id"`
	InstanceID   string         `json:"instance_id"`
	StepID       string         `json:"step_id"`
	Approver     string         `json:"approver"`
	Status       ApprovalStatus `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	TimeoutHours float64        `json:"timeout_hours"`
	DueAt        time.Time      `json:"due_at"`
	CreatedAt    time.Time      `json:"created_at"`
	DecidedAt    *time.Time     `json:"decided_at,omitempty"`
}

// IsPending reports whether a decision is still outstanding.
func (a *ApprovalRequest) IsPending() bool {
	return a.Status == "" || a.Status == ApprovalStatusPending
}
