package steps_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/dukex/siteflow/pkg/mocks"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/steps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecutor_NotificationPerChannel(t *testing.T) {
	t.Parallel()

	vars := map[string]any{"project_id": "p-1", "stakeholders": []any{"owner@site", "architect@site"}}

	dispatcher := &mocks.MockNotificationDispatcher{}
	dispatcher.On("Send", mock.Anything, "email", []string{"owner@site", "architect@site", "project_team"}, "daily_construction_report", vars).
		Return("queued", nil).Once()
	dispatcher.On("Send", mock.Anything, "teams", []string{"project_channel"}, "daily_construction_report", vars).
		Return("posted", nil).Once()

	step := &models.Step{ID: "distribute-report", Kind: models.StepKindNotification, Config: &models.NotificationConfig{
		Template: "daily_construction_report",
		Channels: []string{"email", "teams"},
		Recipients: models.Recipients{PerChannel: map[string][]string{
			"email": {"{{stakeholders}}", "project_team"},
			"teams": {"project_channel"},
		}},
	}}

	executor := steps.NewExecutor(slog.Default(), nil, dispatcher, nil, nil, nil)
	result, err := executor.Execute(context.Background(), newRequest(step, vars, &recorder{}))

	require.NoError(t, err)

	deliveries := result.(map[string]any)["notifications"].([]any)
	require.Len(t, deliveries, 2)
	assert.Equal(t, "email", deliveries[0].(map[string]any)["channel"])
	assert.Equal(t, "posted", deliveries[1].(map[string]any)["result"])
	dispatcher.AssertExpectations(t)
}

func TestExecutor_NotificationDefaultsToEmail(t *testing.T) {
	t.Parallel()

	dispatcher := &mocks.MockNotificationDispatcher{}
	dispatcher.On("Send", mock.Anything, "email", []string{}, "rfi_assignment", mock.Anything).Return(nil, nil).Once()

	step := &models.Step{ID: "notify-responder", Kind: models.StepKindNotification, Config: &models.NotificationConfig{
		Template: "rfi_assignment",
		Urgency:  "high",
	}}

	executor := steps.NewExecutor(slog.Default(), nil, dispatcher, nil, nil, nil)
	_, err := executor.Execute(context.Background(), newRequest(step, nil, &recorder{}))

	require.NoError(t, err)
	dispatcher.AssertExpectations(t)
}

func TestExecutor_NotificationFailure(t *testing.T) {
	t.Parallel()

	dispatcher := &mocks.MockNotificationDispatcher{}
	dispatcher.On("Send", mock.Anything, "email", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("smtp down"))

	step := &models.Step{ID: "notify", Kind: models.StepKindNotification, Config: &models.NotificationConfig{Template: "t"}}

	executor := steps.NewExecutor(slog.Default(), nil, dispatcher, nil, nil, nil)
	_, err := executor.Execute(context.Background(), newRequest(step, nil, &recorder{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel email")
}

func TestResolveRecipients(t *testing.T) {
	t.Parallel()

	vars := map[string]any{
		"pm":      "pm@site",
		"team":    []string{"a@site", "b@site"},
		"mixed":   []any{"c@site", nil, 7},
		"project": map[string]any{"owner": "owner@site"},
	}

	got := steps.ResolveRecipients([]string{"{{pm}}", "{{team}}", "{{mixed}}", "{{project.owner}}", "{{missing}}", "safety_team"}, vars)

	assert.Equal(t, []string{"pm@site", "a@site", "b@site", "c@site", "7", "owner@site", "safety_team"}, got)
}
