package definitions_test

import (
	"log/slog"
	"testing"

	"github.com/dukex/siteflow/pkg/definitions"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandard(t *testing.T) {
	t.Parallel()

	standard, err := definitions.Standard()
	require.NoError(t, err)

	r := registry.NewRegistry(slog.Default())
	require.NoError(t, r.RegisterAll(standard))

	assert.Equal(t, []string{
		"change-order-approval",
		"daily-construction-report",
		"rfi-response",
		"safety-incident-response",
	}, r.IDs())

	daily, ok := r.Get("daily-construction-report")
	require.True(t, ok)
	assert.Equal(t, models.TriggerTypeSchedule, daily.Trigger.Type)
	assert.Equal(t, "CRON_TZ=America/New_York 0 17 * * 1-5", registry.ScheduleSpec(daily.Trigger))

	safety, ok := r.Get("safety-incident-response")
	require.True(t, ok)
	assert.Equal(t, "safety_incident_reported", safety.Trigger.EventName())

	changeOrder, ok := r.Get("change-order-approval")
	require.True(t, ok)

	pm, ok := changeOrder.Step("pm-approval")
	require.True(t, ok)

	approval, ok := pm.Config.(*models.ApprovalConfig)
	require.True(t, ok)
	assert.Equal(t, "director-approval", approval.Escalation)
	assert.InDelta(t, 48.0, approval.TimeoutHours, 0)
}
