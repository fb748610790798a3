package workflow

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dukex/siteflow/pkg/models"
)

// run drives one live instance. The instance is owned by the run and only
// touched under mu; everything else reads snapshots.
type run struct {
	engine     *Engine
	definition *models.WorkflowDefinition
	logger     *slog.Logger

	mu       sync.Mutex
	instance *models.WorkflowInstance

	// carried holds results of steps that completed in a round the previous
	// run never merged. They are reused instead of dispatched again.
	carried map[string]any

	cancel context.CancelCauseFunc
	done   chan struct{}
}

func (r *run) status() models.InstanceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.instance.Status
}

func (r *run) suspension(stepID string) *models.Suspension {
	r.mu.Lock()
	defer r.mu.Unlock()

	suspension, ok := r.instance.Suspension(stepID)
	if !ok {
		return nil
	}

	return &suspension
}

// suspend records that stepID is parked and persists the instance so that a
// restarted engine can resume the wait.
func (r *run) suspend(ctx context.Context, suspension models.Suspension) error {
	r.mu.Lock()
	if r.instance.Status.IsTerminal() {
		r.mu.Unlock()

		return nil
	}

	r.instance.Suspensions = slices.DeleteFunc(r.instance.Suspensions, func(s models.Suspension) bool {
		return s.StepID == suspension.StepID
	})
	r.instance.Suspensions = append(r.instance.Suspensions, suspension)
	r.mu.Unlock()

	return r.checkpoint(ctx)
}

// begin moves a pending instance to running.
func (r *run) begin(ctx context.Context) {
	r.mu.Lock()
	fresh := r.instance.Status == models.InstanceStatusPending
	if fresh {
		r.instance.Status = models.InstanceStatusRunning
	}
	r.mu.Unlock()

	if fresh {
		r.record(ctx, models.EventStarted, "", map[string]any{"definitionId": r.definition.ID})
		r.engine.metrics.InstanceStarted(r.definition.ID)
	}
}

// finish moves the instance to a terminal status, appends the matching event
// and persists it. It reports false when the instance already finished.
func (r *run) finish(ctx context.Context, status models.InstanceStatus, cause error) bool {
	now := r.engine.clock.Now().UTC()

	r.mu.Lock()
	if r.instance.Status.IsTerminal() {
		r.mu.Unlock()

		return false
	}

	r.instance.Status = status
	r.instance.EndTime = &now
	r.instance.Suspensions = nil

	data := map[string]any{}
	if cause != nil {
		r.instance.Error = cause.Error()
		data["error"] = cause.Error()

		var stepErr *StepError
		if errors.As(cause, &stepErr) {
			data["stepId"] = stepErr.StepID
		}
	}

	event := models.Event{Timestamp: now, Type: terminalEvent(status), Data: data}
	r.instance.History = append(r.instance.History, event)
	startTime := r.instance.StartTime
	r.mu.Unlock()

	_ = r.checkpoint(ctx)
	r.publish(ctx, status, event)
	r.engine.metrics.InstanceFinished(r.definition.ID, status, now.Sub(startTime))

	switch status {
	case models.InstanceStatusFailed:
		r.logger.WarnContext(ctx, "Workflow instance failed", "error", cause)
	default:
		r.logger.InfoContext(ctx, "Workflow instance finished", "status", status)
	}

	return true
}

func terminalEvent(status models.InstanceStatus) models.EventType {
	switch status {
	case models.InstanceStatusCompleted:
		return models.EventCompleted
	case models.InstanceStatusCancelled:
		return models.EventCancelled
	default:
		return models.EventFailed
	}
}

// interrupted handles a cancelled run context. It reports false while the
// context is still live.
func (r *run) interrupted(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}

	switch cause := context.Cause(ctx); {
	case errors.Is(cause, ErrInstanceTimeout):
		r.finish(ctx, models.InstanceStatusFailed, ErrInstanceTimeout)
	case errors.Is(cause, errEngineClosed):
		r.logger.InfoContext(ctx, "Engine closing, instance left running for recovery")
		_ = r.checkpoint(ctx)
	default:
		// Cancelled: CancelWorkflow already recorded the terminal state.
	}

	return true
}
