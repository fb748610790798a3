package steps

import (
	"context"
	"fmt"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/google/uuid"
)

// executeWait blocks for the configured hours. The due time is persisted as a
// suspension so that a recovered run only waits for the remainder.
func (e *Executor) executeWait(ctx context.Context, req Request, config *models.WaitConfig) (any, error) {
	dueAt := e.clock.Now().Add(models.Hours(config.TimeoutHours))

	switch {
	case req.Suspension != nil:
		dueAt = req.Suspension.DueAt
	case config.TimeoutHours > 0:
		suspension := models.Suspension{
			StepID:      req.Step.ID,
			ResumeToken: uuid.NewString(),
			DueAt:       dueAt,
		}

		if err := req.suspend(ctx, suspension); err != nil {
			return nil, fmt.Errorf("failed to suspend step: %w", err)
		}
	}

	if remaining := dueAt.Sub(e.clock.Now()); remaining > 0 {
		timer := e.clock.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-timer.Chan():
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return map[string]any{"waited": config.TimeoutHours}, nil
}
