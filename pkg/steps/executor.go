// Package steps implements one executor per workflow step kind.
package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

// ApprovalWaiter parks until an approval leaves pending. It returns
// ErrApprovalDue once dueAt passes without a decision.
type ApprovalWaiter interface {
	Wait(ctx context.Context, approvalID string, dueAt time.Time) (*models.ApprovalRequest, error)
}

// Request carries everything a step needs for one dispatch.
type Request struct {
	InstanceID  string
	UserID      string
	ProjectID   string
	Step        *models.Step
	Variables   map[string]any
	RetryPolicy *models.RetryPolicy

	// Suspension is set when the step was parked by an earlier run.
	Suspension *models.Suspension

	// Suspend persists a suspension before the step parks.
	Suspend func(ctx context.Context, suspension models.Suspension) error

	// Record appends an event to the instance history.
	Record func(eventType models.EventType, data map[string]any)
}

func (r Request) record(eventType models.EventType, data map[string]any) {
	if r.Record != nil {
		r.Record(eventType, data)
	}
}

func (r Request) suspend(ctx context.Context, suspension models.Suspension) error {
	if r.Suspend == nil {
		return nil
	}

	return r.Suspend(ctx, suspension)
}

type Executor struct {
	logger        *slog.Logger
	actions       protocol.ActionExecutor
	notifications protocol.NotificationDispatcher
	approvals     protocol.ApprovalStore
	waiter        ApprovalWaiter
	clock         clockwork.Clock
}

func NewExecutor(
	logger *slog.Logger,
	actions protocol.ActionExecutor,
	notifications protocol.NotificationDispatcher,
	approvals protocol.ApprovalStore,
	waiter ApprovalWaiter,
	clock clockwork.Clock,
) *Executor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Executor{
		logger:        logger.With("module", "steps"),
		actions:       actions,
		notifications: notifications,
		approvals:     approvals,
		waiter:        waiter,
		clock:         clock,
	}
}

// Execute runs the step described by req and returns its result.
func (e *Executor) Execute(ctx context.Context, req Request) (any, error) {
	logger := e.logger.With("instance_id", req.InstanceID, "step_id", req.Step.ID, "kind", req.Step.Kind)
	logger.DebugContext(ctx, "Executing step")

	switch config := req.Step.Config.(type) {
	case *models.ActionConfig:
		return e.executeAction(ctx, req, config)
	case *models.DecisionConfig:
		return e.executeDecision(req, config)
	case *models.ApprovalConfig:
		return e.executeApproval(ctx, req, config, logger)
	case *models.NotificationConfig:
		return e.executeNotification(ctx, req, config)
	case *models.WaitConfig:
		return e.executeWait(ctx, req, config)
	case *models.ParallelConfig:
		return e.executeParallel(ctx, req, config)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedStep, config)
	}
}

// projectID returns the project the instance works on, if any.
func projectID(req Request) string {
	if req.ProjectID != "" {
		return req.ProjectID
	}

	for _, key := range []string{"projectId", "project_id"} {
		if id, ok := req.Variables[key].(string); ok && id != "" {
			return id
		}
	}

	return ""
}
