package eventbus_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/siteflow/pkg/channels/gochannel"
	"github.com/dukex/siteflow/pkg/eventbus"
	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBus(t *testing.T) *eventbus.WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(slog.Default(), pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	bus := newBus(t)

	received := make(chan *events.WorkflowTriggered, 1)

	require.NoError(t, bus.Handle(events.WorkflowTriggeredEvent, func(_ context.Context, event any) error {
		triggered, ok := event.(*events.WorkflowTriggered)
		if ok {
			received <- triggered
		}

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	err := bus.Publish(ctx, "incident-7", events.WorkflowTriggered{
		BaseEvent: events.NewBaseEvent(events.WorkflowTriggeredEvent, ""),
		Event:     "safety_incident_reported",
		Data:      map[string]any{"severity": "critical"},
		UserID:    "user-1",
	})
	require.NoError(t, err)

	select {
	case triggered := <-received:
		assert.Equal(t, "safety_incident_reported", triggered.Event)
		assert.Equal(t, "critical", triggered.Data["severity"])
		assert.Equal(t, "user-1", triggered.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	bus := newBus(t)

	decided := make(chan *events.ApprovalDecided, 1)

	require.NoError(t, bus.Handle(events.ApprovalDecidedEvent, func(_ context.Context, event any) error {
		decided <- event.(*events.ApprovalDecided)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "instance-1", events.InstanceEvent{
		BaseEvent:  events.NewBaseEvent(events.InstanceEventType, "rfi-response"),
		InstanceID: "instance-1",
		Event:      models.Event{Type: models.EventStarted},
	}))
	require.NoError(t, bus.Publish(ctx, "approval-1", events.ApprovalDecided{
		BaseEvent:  events.NewBaseEvent(events.ApprovalDecidedEvent, ""),
		ApprovalID: "approval-1",
		Status:     models.ApprovalStatusApproved,
	}))

	select {
	case event := <-decided:
		assert.Equal(t, "approval-1", event.ApprovalID)
		assert.Equal(t, models.ApprovalStatusApproved, event.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("approval decision was not delivered")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}

func TestWatermillEventBus_HandleUnknownType(t *testing.T) {
	t.Parallel()

	bus := newBus(t)

	err := bus.Handle(events.EventType("node_activation"), func(context.Context, any) error { return nil })

	require.ErrorIs(t, err, eventbus.ErrUnknownEventType)
}
