package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/registry"
	"github.com/robfig/cron/v3"
)

// SchedulerUserID is recorded as the user of scheduled instances.
const SchedulerUserID = "scheduler"

// TriggerManager starts instances for schedule and event triggers.
type TriggerManager struct {
	engine *Engine
	logger *slog.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewTriggerManager(logger *slog.Logger, engine *Engine) *TriggerManager {
	logger = logger.With("module", "trigger_manager")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &TriggerManager{
		engine: engine,
		logger: logger,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cronLogger),
			cron.Recover(cronLogger),
		)),
		entries: make(map[string]cron.EntryID),
	}
}

// Schedule adds a cron job for a definition with a schedule trigger,
// replacing an earlier job of the same definition. Other triggers are ignored.
func (m *TriggerManager) Schedule(definition *models.WorkflowDefinition) error {
	if definition.Trigger.Type != models.TriggerTypeSchedule {
		return nil
	}

	schedule, err := registry.ParseSchedule(definition.Trigger)
	if err != nil {
		return fmt.Errorf("workflow %s: %w", definition.ID, err)
	}

	definitionID := definition.ID

	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.entries[definitionID]; ok {
		m.cron.Remove(id)
	}

	m.entries[definitionID] = m.cron.Schedule(schedule, cron.FuncJob(func() {
		m.fire(context.Background(), definitionID, nil, SchedulerUserID)
	}))

	m.logger.Info("Scheduled workflow", "workflow_id", definitionID, "schedule", registry.ScheduleSpec(definition.Trigger))

	return nil
}

// ScheduleAll schedules every registered definition.
func (m *TriggerManager) ScheduleAll() error {
	var errs []error

	for _, definition := range m.engine.registry.List() {
		if err := m.Schedule(definition); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Scheduled returns the number of scheduled definitions.
func (m *TriggerManager) Scheduled() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

func (m *TriggerManager) Start() {
	m.cron.Start()
}

// Stop halts the scheduler and waits for running jobs to return.
func (m *TriggerManager) Stop() {
	<-m.cron.Stop().Done()
}

// HandleWorkflowTriggered is the event bus handler for external triggers. A
// named workflow is started directly; otherwise every definition whose event
// trigger listens for the event is started.
func (m *TriggerManager) HandleWorkflowTriggered(ctx context.Context, event any) error {
	triggered, ok := event.(*events.WorkflowTriggered)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}

	if triggered.WorkflowID != "" {
		m.fire(ctx, triggered.WorkflowID, triggered.Data, triggered.UserID)

		return nil
	}

	matched := 0

	for _, definition := range m.engine.registry.List() {
		if definition.Trigger.Type == models.TriggerTypeEvent && definition.Trigger.EventName() == triggered.Event {
			m.fire(ctx, definition.ID, triggered.Data, triggered.UserID)
			matched++
		}
	}

	if matched == 0 {
		m.logger.DebugContext(ctx, "No workflow listens for event", "event", triggered.Event)
	}

	return nil
}

func (m *TriggerManager) fire(ctx context.Context, definitionID string, data map[string]any, userID string) {
	instance, err := m.engine.StartWorkflow(ctx, definitionID, maps.Clone(data), userID)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to start triggered workflow", "workflow_id", definitionID, "error", err)

		return
	}

	m.logger.InfoContext(ctx, "Triggered workflow", "workflow_id", definitionID, "instance_id", instance.ID)
}
