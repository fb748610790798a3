package workflow

import (
	"context"
	"fmt"
	"maps"
	"strconv"

	"github.com/dukex/siteflow/pkg/conditional"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/otelhelper"
	"github.com/dukex/siteflow/pkg/steps"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// execute drives the instance round by round until every step completed,
// a step failed, the graph deadlocked or the run was interrupted.
func (r *run) execute(ctx context.Context) {
	defer close(r.done)
	defer r.engine.forget(r.instance.ID)
	defer r.cancel(nil)

	ctx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "workflow.instance",
		attribute.String(otelhelper.WorkflowIDKey, r.definition.ID),
		attribute.String(otelhelper.WorkflowNameKey, r.definition.Name),
		attribute.String(otelhelper.InstanceIDKey, r.instance.ID),
		attribute.String(otelhelper.UserIDKey, r.instance.UserID),
	)
	defer span.End()

	if timeout := r.definition.Timeout(); timeout > 0 {
		remaining := r.instance.StartTime.Add(timeout).Sub(r.engine.clock.Now())
		timer := r.engine.clock.AfterFunc(max(remaining, 0), func() { r.cancel(ErrInstanceTimeout) })

		defer timer.Stop()
	}

	r.begin(ctx)

	if err := r.checkpoint(ctx); err != nil {
		otelhelper.SetError(span, err)
	}

	completed := r.restore()

	for round := 1; len(completed) < len(r.definition.Steps); round++ {
		if r.interrupted(ctx) {
			return
		}

		variables := r.variables()

		executable := r.executable(completed, variables)
		if len(executable) == 0 {
			err := fmt.Errorf("%w: %d of %d steps completed, waiting on %v",
				ErrDeadlock, len(completed), len(r.definition.Steps), r.remaining(completed))
			otelhelper.SetError(span, err)
			r.finish(ctx, models.InstanceStatusFailed, err)

			return
		}

		results, err := r.runRound(ctx, round, executable, variables)
		if err != nil {
			if r.interrupted(ctx) {
				return
			}

			otelhelper.SetError(span, err)
			r.finish(ctx, models.InstanceStatusFailed, err)

			return
		}

		if !r.merge(executable, results) {
			r.logger.DebugContext(ctx, "Instance finished during the round, results discarded", "round", round)

			return
		}

		for _, step := range executable {
			completed[step.ID] = true
		}

		_ = r.checkpoint(ctx)
	}

	if r.interrupted(ctx) {
		return
	}

	r.finish(ctx, models.InstanceStatusCompleted, nil)
}

// restore rebuilds the completed set from history. A step counts as
// completed once its round was merged into the variables. Steps that finished
// in a round that was never merged are carried: the round runs again and
// reuses their results, so their writes still appear only after it.
func (r *run) restore() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed := map[string]bool{}
	r.carried = map[string]any{}

	if r.instance.Variables == nil {
		r.instance.Variables = map[string]any{}
	}

	for _, event := range r.instance.History {
		if event.Type != models.EventStepCompleted {
			continue
		}

		step, ok := r.definition.Step(event.StepID)
		if !ok {
			continue
		}

		if _, merged := r.instance.Variables[step.ID]; merged {
			completed[step.ID] = true

			continue
		}

		r.carried[step.ID] = event.Data["result"]
	}

	return completed
}

// takeCarried returns, once, the result a step recorded before a restart.
func (r *run) takeCarried(stepID string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, ok := r.carried[stepID]
	if ok {
		delete(r.carried, stepID)
	}

	return result, ok
}

// variables returns the round snapshot every step of the round reads.
func (r *run) variables() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.instance.Variables)
}

// executable returns, in definition order, the steps whose dependencies all
// completed and whose conditions hold.
func (r *run) executable(completed map[string]bool, variables map[string]any) []*models.Step {
	var ready []*models.Step

	for _, step := range r.definition.Steps {
		if completed[step.ID] {
			continue
		}

		satisfied := true

		for _, dependency := range step.Dependencies {
			if !completed[dependency] {
				satisfied = false

				break
			}
		}

		if satisfied && conditional.All(step.Conditions, variables) {
			ready = append(ready, step)
		}
	}

	return ready
}

func (r *run) remaining(completed map[string]bool) []string {
	var ids []string

	for _, step := range r.definition.Steps {
		if !completed[step.ID] {
			ids = append(ids, step.ID)
		}
	}

	return ids
}

// runRound dispatches every step concurrently and waits for all of them. The
// first failure cancels the round so parked siblings stop waiting.
func (r *run) runRound(ctx context.Context, round int, executable []*models.Step, variables map[string]any) ([]any, error) {
	r.logger.DebugContext(ctx, "Starting round", "round", round, "steps", len(executable))

	r.mu.Lock()
	r.instance.CurrentStep = executable[len(executable)-1].ID
	r.mu.Unlock()

	results := make([]any, len(executable))

	group, roundCtx := errgroup.WithContext(ctx)

	for i, step := range executable {
		group.Go(func() error {
			result, err := r.runStep(roundCtx, round, step, variables)
			if err != nil {
				return &StepError{StepID: step.ID, Err: err}
			}

			results[i] = result

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (r *run) runStep(ctx context.Context, round int, step *models.Step, variables map[string]any) (any, error) {
	started := r.engine.clock.Now()
	logger := r.logger.With("step_id", step.ID, "kind", step.Kind)

	if result, ok := r.takeCarried(step.ID); ok {
		logger.DebugContext(ctx, "Reusing result recorded before restart", "round", round)

		return result, nil
	}

	ctx, span := otelhelper.StartSpan(ctx, r.engine.tracer, "workflow.step",
		attribute.String(otelhelper.InstanceIDKey, r.instance.ID),
		attribute.String(otelhelper.StepIDKey, step.ID),
		attribute.String(otelhelper.StepKindKey, string(step.Kind)),
		attribute.String(otelhelper.RoundKey, strconv.Itoa(round)),
	)
	defer span.End()

	result, err := r.engine.executor.Execute(ctx, steps.Request{
		InstanceID:  r.instance.ID,
		UserID:      r.instance.UserID,
		Step:        step,
		Variables:   variables,
		RetryPolicy: r.definition.RetryPolicy,
		Suspension:  r.suspension(step.ID),
		Suspend:     r.suspend,
		Record: func(eventType models.EventType, data map[string]any) {
			r.record(ctx, eventType, step.ID, data)
		},
	})

	elapsed := r.engine.clock.Since(started)

	if err != nil {
		if ctx.Err() != nil {
			logger.DebugContext(ctx, "Step interrupted", "error", err)

			return nil, err
		}

		otelhelper.SetError(span, err, attribute.String(otelhelper.StepIDKey, step.ID))
		r.record(ctx, models.EventStepFailed, step.ID, map[string]any{"error": err.Error()})
		r.engine.metrics.StepFinished(step.Kind, models.StepStatusFailed, elapsed)
		logger.WarnContext(ctx, "Step failed", "error", err)

		return nil, err
	}

	if !r.record(ctx, models.EventStepCompleted, step.ID, map[string]any{"result": result}) {
		return result, nil
	}

	r.engine.metrics.StepFinished(step.Kind, models.StepStatusCompleted, elapsed)
	logger.DebugContext(ctx, "Step completed", "elapsed", elapsed)

	return result, nil
}

// merge publishes the results of a finished round: each result under its
// step id, then the step's declared outputs, in definition order. It reports
// false, leaving the variables untouched, once the instance finished.
func (r *run) merge(executable []*models.Step, results []any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.instance.Status.IsTerminal() {
		return false
	}

	for i, step := range executable {
		r.instance.Variables[step.ID] = results[i]
		maps.Copy(r.instance.Variables, step.Outputs)
	}

	completed := make(map[string]bool, len(executable))
	for _, step := range executable {
		completed[step.ID] = true
	}

	var kept []models.Suspension

	for _, suspension := range r.instance.Suspensions {
		if !completed[suspension.StepID] {
			kept = append(kept, suspension)
		}
	}

	r.instance.Suspensions = kept

	return true
}
