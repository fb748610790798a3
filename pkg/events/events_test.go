package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dukex/siteflow/pkg/events"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	t.Parallel()

	before := time.Now().UTC()
	base := events.NewBaseEvent(events.InstanceEventType, "change-order-approval")

	assert.NotEmpty(t, base.ID)
	assert.Equal(t, events.InstanceEventType, base.Type)
	assert.Equal(t, "change-order-approval", base.WorkflowID)
	assert.False(t, base.Timestamp.Before(before))
	assert.NotNil(t, base.Metadata)
}

func TestEventTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, events.WorkflowTriggeredEvent, events.WorkflowTriggered{}.GetType())
	assert.Equal(t, events.InstanceEventType, events.InstanceEvent{}.GetType())
	assert.Equal(t, events.ApprovalDecidedEvent, events.ApprovalDecided{}.GetType())
}

func TestInstanceEvent_JSON(t *testing.T) {
	t.Parallel()

	event := events.InstanceEvent{
		BaseEvent:  events.NewBaseEvent(events.InstanceEventType, "rfi-response"),
		InstanceID: "instance-1",
		Status:     models.InstanceStatusRunning,
		Event: models.Event{
			Type:   models.EventStepCompleted,
			StepID: "classify-rfi",
			Data:   map[string]any{"result": "design"},
		},
	}

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "instance.event", decoded["type"])
	assert.Equal(t, "instance-1", decoded["instance_id"])
	assert.Equal(t, "running", decoded["status"])

	inner, ok := decoded["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "step_completed", inner["type"])
	assert.Equal(t, "classify-rfi", inner["step_id"])
}
