package persistence

import (
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/google/uuid"
)

// PrepareApproval fills the id, status and creation time of a new request.
func PrepareApproval(request *models.ApprovalRequest, now time.Time) *models.ApprovalRequest {
	prepared := *request

	if prepared.ID == "" {
		prepared.ID = uuid.NewString()
	}

	if prepared.Status == "" {
		prepared.Status = models.ApprovalStatusPending
	}

	if prepared.CreatedAt.IsZero() {
		prepared.CreatedAt = now
	}

	return &prepared
}

// ApplyDecision records a decision on a pending request.
func ApplyDecision(request *models.ApprovalRequest, status models.ApprovalStatus, notes string, now time.Time) error {
	switch status {
	case models.ApprovalStatusApproved, models.ApprovalStatusRejected, models.ApprovalStatusEscalated:
	default:
		return NewApprovalError("Decide", request.ID, ErrInvalidApprovalStatus)
	}

	if !request.IsPending() {
		return NewApprovalError("Decide", request.ID, ErrApprovalAlreadyDecided)
	}

	decidedAt := now
	request.Status = status
	request.Notes = notes
	request.DecidedAt = &decidedAt

	return nil
}
