package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/google/uuid"
)

func (e *Executor) executeApproval(ctx context.Context, req Request, config *models.ApprovalConfig, logger *slog.Logger) (any, error) {
	if e.approvals == nil || e.waiter == nil {
		return nil, errors.New("approval store not configured")
	}

	suspension := req.Suspension

	if suspension == nil || suspension.ApprovalID == "" {
		created, err := e.requestApproval(ctx, req, config)
		if err != nil {
			return nil, err
		}

		suspension = created
	} else {
		logger.InfoContext(ctx, "Resuming suspended approval", "approval_id", suspension.ApprovalID)
	}

	decided, err := e.waiter.Wait(ctx, suspension.ApprovalID, suspension.DueAt)

	switch {
	case errors.Is(err, ErrApprovalDue):
		if config.Escalation == "" {
			return nil, fmt.Errorf("%w: %s did not decide within %g hours", ErrApprovalTimeout, config.Approver, config.Timeout())
		}

		return e.escalate(req, suspension.ApprovalID, config.Escalation), nil
	case err != nil:
		return nil, fmt.Errorf("failed to wait for approval %s: %w", suspension.ApprovalID, err)
	}

	switch decided.Status {
	case models.ApprovalStatusApproved:
		req.record(models.EventApproved, map[string]any{"approvalId": decided.ID, "notes": decided.Notes})
	case models.ApprovalStatusRejected:
		req.record(models.EventRejected, map[string]any{"approvalId": decided.ID, "notes": decided.Notes})
	case models.ApprovalStatusEscalated:
		target := config.Escalation
		if target == "" {
			return nil, fmt.Errorf("%w: approval %s escalated without a target", ErrApprovalTimeout, decided.ID)
		}

		return e.escalate(req, decided.ID, target), nil
	case models.ApprovalStatusPending:
	}

	return map[string]any{
		"status":     string(decided.Status),
		"notes":      decided.Notes,
		"approvalId": decided.ID,
	}, nil
}

func (e *Executor) requestApproval(ctx context.Context, req Request, config *models.ApprovalConfig) (*models.Suspension, error) {
	now := e.clock.Now()
	timeout := config.Timeout()

	request := &models.ApprovalRequest{
		InstanceID:   req.InstanceID,
		StepID:       req.Step.ID,
		Approver:     config.Approver,
		Status:       models.ApprovalStatusPending,
		TimeoutHours: timeout,
		CreatedAt:    now,
		DueAt:        now.Add(models.Hours(timeout)),
	}

	approvalID, err := e.approvals.Create(context.WithoutCancel(ctx), request)
	if err != nil {
		return nil, fmt.Errorf("failed to create approval request: %w", err)
	}

	suspension := models.Suspension{
		StepID:      req.Step.ID,
		ApprovalID:  approvalID,
		ResumeToken: uuid.NewString(),
		DueAt:       request.DueAt,
		Escalation:  config.Escalation,
	}

	if err := req.suspend(ctx, suspension); err != nil {
		return nil, fmt.Errorf("failed to suspend step: %w", err)
	}

	req.record(models.EventSuspended, map[string]any{
		"approvalId": approvalID,
		"approver":   config.Approver,
		"dueAt":      request.DueAt,
	})

	return &suspension, nil
}

func (e *Executor) escalate(req Request, approvalID, target string) map[string]any {
	req.record(models.EventEscalated, map[string]any{"approvalId": approvalID, "escalatedTo": target})

	return map[string]any{
		"status":      string(models.ApprovalStatusEscalated),
		"escalatedTo": target,
		"approvalId":  approvalID,
	}
}
