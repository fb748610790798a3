package steps_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/siteflow/pkg/mocks"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/steps"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func approvalStep(escalation string) *models.Step {
	return &models.Step{
		ID:   "pm-approval",
		Kind: models.StepKindApproval,
		Config: &models.ApprovalConfig{
			Approver:     "project_manager",
			TimeoutHours: 48,
			Escalation:   escalation,
		},
	}
}

func TestExecutor_ApprovalDecided(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status    models.ApprovalStatus
		wantEvent models.EventType
	}{
		{models.ApprovalStatusApproved, models.EventApproved},
		{models.ApprovalStatusRejected, models.EventRejected},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
			store := &mocks.MockApprovalStore{}
			store.On("Create", mock.Anything, mock.MatchedBy(func(r *models.ApprovalRequest) bool {
				return r.InstanceID == "wf-1" && r.StepID == "pm-approval" && r.Approver == "project_manager" &&
					r.Status == models.ApprovalStatusPending && r.DueAt.Equal(clock.Now().Add(48*time.Hour))
			})).Return("apr-1", nil).Once()

			waiter := waiterFunc(func(_ context.Context, approvalID string, dueAt time.Time) (*models.ApprovalRequest, error) {
				assert.Equal(t, "apr-1", approvalID)
				assert.Equal(t, clock.Now().Add(48*time.Hour), dueAt)

				return &models.ApprovalRequest{ID: approvalID, Status: tt.status, Notes: "looks fine"}, nil
			})

			var suspended []models.Suspension

			rec := &recorder{}
			req := newRequest(approvalStep(""), nil, rec)
			req.Suspend = func(_ context.Context, s models.Suspension) error {
				suspended = append(suspended, s)

				return nil
			}

			executor := steps.NewExecutor(slog.Default(), nil, nil, store, waiter, clock)
			result, err := executor.Execute(context.Background(), req)

			require.NoError(t, err)
			assert.Equal(t, map[string]any{"status": string(tt.status), "notes": "looks fine", "approvalId": "apr-1"}, result)
			assert.Equal(t, []models.EventType{models.EventSuspended, tt.wantEvent}, rec.events)

			require.Len(t, suspended, 1)
			assert.Equal(t, "apr-1", suspended[0].ApprovalID)
			assert.NotEmpty(t, suspended[0].ResumeToken)
			store.AssertExpectations(t)
		})
	}
}

func TestExecutor_ApprovalTimeout(t *testing.T) {
	t.Parallel()

	due := waiterFunc(func(context.Context, string, time.Time) (*models.ApprovalRequest, error) {
		return nil, steps.ErrApprovalDue
	})

	t.Run("escalates when configured", func(t *testing.T) {
		t.Parallel()

		store := &mocks.MockApprovalStore{}
		store.On("Create", mock.Anything, mock.Anything).Return("apr-2", nil)

		rec := &recorder{}
		executor := steps.NewExecutor(slog.Default(), nil, nil, store, due, nil)

		result, err := executor.Execute(context.Background(), newRequest(approvalStep("director-approval"), nil, rec))

		require.NoError(t, err)
		assert.Equal(t, "escalated", result.(map[string]any)["status"])
		assert.Equal(t, "director-approval", result.(map[string]any)["escalatedTo"])
		assert.Contains(t, rec.events, models.EventEscalated)
	})

	t.Run("fails without escalation", func(t *testing.T) {
		t.Parallel()

		store := &mocks.MockApprovalStore{}
		store.On("Create", mock.Anything, mock.Anything).Return("apr-3", nil)

		executor := steps.NewExecutor(slog.Default(), nil, nil, store, due, nil)

		_, err := executor.Execute(context.Background(), newRequest(approvalStep(""), nil, &recorder{}))

		require.ErrorIs(t, err, steps.ErrApprovalTimeout)
	})
}

func TestExecutor_ApprovalResume(t *testing.T) {
	t.Parallel()

	store := &mocks.MockApprovalStore{}
	waiter := waiterFunc(func(_ context.Context, approvalID string, _ time.Time) (*models.ApprovalRequest, error) {
		return &models.ApprovalRequest{ID: approvalID, Status: models.ApprovalStatusApproved}, nil
	})

	req := newRequest(approvalStep(""), nil, &recorder{})
	req.Suspension = &models.Suspension{StepID: "pm-approval", ApprovalID: "apr-existing", ResumeToken: "tok", DueAt: time.Now().Add(time.Hour)}
	req.Suspend = func(context.Context, models.Suspension) error {
		t.Fatal("resumed approval must not suspend again")

		return nil
	}

	executor := steps.NewExecutor(slog.Default(), nil, nil, store, waiter, nil)
	result, err := executor.Execute(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "apr-existing", result.(map[string]any)["approvalId"])
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestExecutor_ApprovalCreateFails(t *testing.T) {
	t.Parallel()

	store := &mocks.MockApprovalStore{}
	store.On("Create", mock.Anything, mock.Anything).Return("", errors.New("db down"))

	executor := steps.NewExecutor(slog.Default(), nil, nil, store, waiterFunc(nil), nil)

	_, err := executor.Execute(context.Background(), newRequest(approvalStep(""), nil, &recorder{}))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create approval request")
}
