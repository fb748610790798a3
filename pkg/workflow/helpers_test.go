package workflow_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukex/siteflow/pkg/definitions"
	"github.com/dukex/siteflow/pkg/eventbus"
	"github.com/dukex/siteflow/pkg/mocks"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence/memory"
	"github.com/dukex/siteflow/pkg/workflow"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type harness struct {
	engine *workflow.Engine
	store  *memory.Persistence
	clock  *clockwork.FakeClock
	calls  *callLog
}

// callLog records the actions dispatched to the action executor.
type callLog struct {
	mu      sync.Mutex
	actions []string
}

func (c *callLog) add(action string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.actions = append(c.actions, action)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.actions...)
}

// dataLog keeps the resolved data each action was dispatched with.
type dataLog struct {
	mu   sync.Mutex
	data map[string]map[string]any
}

func (d *dataLog) add(action string, data map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.data == nil {
		d.data = map[string]map[string]any{}
	}

	d.data[action] = data
}

func (d *dataLog) get(action string) (map[string]any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	data, ok := d.data[action]

	return data, ok
}

type option func(*workflow.Config)

func withActions(actions mocks.ActionFunc) option {
	return func(cfg *workflow.Config) { cfg.Actions = actions }
}

func withPublisher(publisher eventbus.EventPublisher) option {
	return func(cfg *workflow.Config) { cfg.Publisher = publisher }
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()

	h := &harness{
		store: memory.NewPersistence(),
		clock: clockwork.NewFakeClockAt(epoch),
		calls: &callLog{},
	}

	cfg := workflow.Config{
		Instances: h.store.Instances(),
		Approvals: h.store.Approvals(),
		Actions: mocks.ActionFunc(func(_ context.Context, action string, _ map[string]any, _, _ string) (any, error) {
			h.calls.add(action)

			return map[string]any{"action": action, "ok": true}, nil
		}),
		Notifications: mocks.NotificationFunc(func(_ context.Context, channel string, recipients []string, _ string, _ map[string]any) (any, error) {
			return map[string]any{"channel": channel, "sent": len(recipients)}, nil
		}),
		Clock: h.clock,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	engine, err := workflow.NewEngine(slog.Default(), cfg)
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	h.engine = engine

	return h
}

func (h *harness) start(t *testing.T, definitionID string, variables map[string]any) string {
	t.Helper()

	instance, err := h.engine.StartWorkflow(context.Background(), definitionID, variables, "user-1")
	require.NoError(t, err)

	return instance.ID
}

func (h *harness) wait(t *testing.T, instanceID string) *models.WorkflowInstance {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	instance, err := h.engine.Wait(ctx, instanceID)
	require.NoError(t, err)

	return instance
}

// suspended waits until stepID of the instance is parked and returns its
// suspension.
func (h *harness) suspended(t *testing.T, instanceID, stepID string) models.Suspension {
	t.Helper()

	var suspension models.Suspension

	require.Eventually(t, func() bool {
		instance, err := h.engine.GetWorkflowInstance(context.Background(), instanceID)
		if err != nil {
			return false
		}

		var ok bool
		suspension, ok = instance.Suspension(stepID)

		return ok
	}, 5*time.Second, 5*time.Millisecond)

	return suspension
}

func registerStandard(t *testing.T, h *harness) {
	t.Helper()

	standard, err := definitions.Standard()
	require.NoError(t, err)
	require.NoError(t, h.engine.Registry().RegisterAll(standard))
}

func actionStep(id string, deps ...string) *models.Step {
	return &models.Step{
		ID:           id,
		Kind:         models.StepKindAction,
		Config:       &models.ActionConfig{Action: "do-" + id},
		Dependencies: deps,
	}
}

func definition(id string, steps ...*models.Step) *models.WorkflowDefinition {
	return &models.WorkflowDefinition{
		ID:      id,
		Name:    "Test " + id,
		Trigger: models.Trigger{Type: models.TriggerTypeManual},
		Steps:   steps,
	}
}

func eventTypes(instance *models.WorkflowInstance) []models.EventType {
	types := make([]models.EventType, 0, len(instance.History))
	for _, event := range instance.History {
		types = append(types, event.Type)
	}

	return types
}

// capturePublisher keeps every published event.
type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func (p *capturePublisher) published() []eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]eventbus.Event(nil), p.events...)
}
