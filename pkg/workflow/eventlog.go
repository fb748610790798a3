package workflow

import (
	"context"
	"maps"

	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/models"
)

// record appends an event to the instance history and streams it on the
// event bus. The history is persisted with the next checkpoint. Events of a
// finished instance are dropped.
func (r *run) record(ctx context.Context, eventType models.EventType, stepID string, data map[string]any) bool {
	event := models.Event{
		Timestamp: r.engine.clock.Now().UTC(),
		Type:      eventType,
		StepID:    stepID,
		Data:      maps.Clone(data),
	}

	r.mu.Lock()
	status := r.instance.Status
	if status.IsTerminal() {
		r.mu.Unlock()
		r.logger.DebugContext(ctx, "Dropping event of finished instance", "event_type", eventType, "step_id", stepID)

		return false
	}

	r.instance.History = append(r.instance.History, event)
	r.mu.Unlock()

	r.publish(ctx, status, event)

	return true
}

func (r *run) publish(ctx context.Context, status models.InstanceStatus, event models.Event) {
	if r.engine.publisher == nil {
		return
	}

	message := events.InstanceEvent{
		BaseEvent:  events.NewBaseEvent(events.InstanceEventType, r.definition.ID),
		InstanceID: r.instance.ID,
		UserID:     r.instance.UserID,
		Status:     status,
		Event:      event,
	}

	if err := r.engine.publisher.Publish(context.WithoutCancel(ctx), r.instance.ID, message); err != nil {
		r.logger.WarnContext(ctx, "Failed to publish instance event", "event_type", event.Type, "error", err)
	}
}

// checkpoint persists a copy of the instance.
func (r *run) checkpoint(ctx context.Context) error {
	snapshot := r.snapshot()

	if err := r.engine.instances.Upsert(context.WithoutCancel(ctx), snapshot); err != nil {
		r.logger.ErrorContext(ctx, "Failed to persist instance", "status", snapshot.Status, "error", err)

		return err
	}

	return nil
}

func (r *run) snapshot() *models.WorkflowInstance {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.instance.Clone()
}
