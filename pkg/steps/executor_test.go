package steps_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dukex/siteflow/pkg/mocks"
	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/steps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type waiterFunc func(ctx context.Context, approvalID string, dueAt time.Time) (*models.ApprovalRequest, error)

func (f waiterFunc) Wait(ctx context.Context, approvalID string, dueAt time.Time) (*models.ApprovalRequest, error) {
	return f(ctx, approvalID, dueAt)
}

type recorder struct {
	mu     sync.Mutex
	events []models.EventType
	data   []map[string]any
}

func (r *recorder) record(eventType models.EventType, data map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
}

func newRequest(step *models.Step, vars map[string]any, rec *recorder) steps.Request {
	return steps.Request{
		InstanceID: "wf-1",
		UserID:     "user-1",
		Step:       step,
		Variables:  vars,
		Record:     rec.record,
	}
}

func TestExecutor_Action(t *testing.T) {
	t.Parallel()

	actions := &mocks.MockActionExecutor{}
	actions.On("Execute", mock.Anything, "updateBudget", map[string]any{
		"project": "p-9",
		"amount":  7500,
		"source":  "change_order",
	}, "user-1", "p-9").Return(map[string]any{"updated": true}, nil)

	executor := steps.NewExecutor(slog.Default(), actions, nil, nil, nil, nil)
	step := &models.Step{ID: "update-budget", Kind: models.StepKindAction, Config: &models.ActionConfig{
		Action: "updateBudget",
		Data: map[string]any{
			"project": "{{project_id}}",
			"amount":  "{{cost_impact}}",
			"source":  "change_order",
		},
	}}

	result, err := executor.Execute(context.Background(), newRequest(step, map[string]any{
		"project_id":  "p-9",
		"cost_impact": 7500,
	}, &recorder{}))

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"updated": true}, result)
	actions.AssertExpectations(t)
}

func TestExecutor_ActionProjectID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		variables map[string]any
		want      string
	}{
		{name: "camel case", variables: map[string]any{"projectId": "p-1"}, want: "p-1"},
		{name: "snake case", variables: map[string]any{"project_id": "p-2"}, want: "p-2"},
		{name: "camel case first", variables: map[string]any{"projectId": "p-1", "project_id": "p-2"}, want: "p-1"},
		{name: "empty camel case", variables: map[string]any{"projectId": "", "project_id": "p-2"}, want: "p-2"},
		{name: "not a string", variables: map[string]any{"projectId": 7}, want: ""},
		{name: "absent", variables: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			actions := &mocks.MockActionExecutor{}
			actions.On("Execute", mock.Anything, "logProgress", mock.Anything, "user-1", tt.want).Return("ok", nil).Once()

			executor := steps.NewExecutor(slog.Default(), actions, nil, nil, nil, nil)
			step := &models.Step{ID: "log", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "logProgress"}}

			_, err := executor.Execute(context.Background(), newRequest(step, tt.variables, &recorder{}))

			require.NoError(t, err)
			actions.AssertExpectations(t)
		})
	}
}

func TestExecutor_ActionFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("budget service unavailable")
	actions := &mocks.MockActionExecutor{}
	actions.On("Execute", mock.Anything, "updateBudget", mock.Anything, "user-1", "").Return(nil, boom).Once()

	executor := steps.NewExecutor(slog.Default(), actions, nil, nil, nil, nil)
	step := &models.Step{ID: "update-budget", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "updateBudget"}}

	_, err := executor.Execute(context.Background(), newRequest(step, nil, &recorder{}))

	require.ErrorIs(t, err, boom)
	actions.AssertExpectations(t)
}

func TestExecutor_ActionRetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		policy    *models.RetryPolicy
		failures  int32
		wantCalls int32
		wantErr   bool
	}{
		{
			name:      "no policy fails fast",
			failures:  1,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "retries until success",
			policy:    &models.RetryPolicy{MaxAttempts: 3, BackoffMultiplier: 2, InitialIntervalSeconds: 0.001},
			failures:  2,
			wantCalls: 3,
		},
		{
			name:      "gives up after max attempts",
			policy:    &models.RetryPolicy{MaxAttempts: 2, BackoffMultiplier: 2, InitialIntervalSeconds: 0.001},
			failures:  5,
			wantCalls: 2,
			wantErr:   true,
		},
		{
			name: "non retryable error",
			policy: &models.RetryPolicy{
				MaxAttempts:            4,
				InitialIntervalSeconds: 0.001,
				RetryableErrors:        []string{"timeout"},
			},
			failures:  3,
			wantCalls: 1,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32

			actions := mocks.ActionFunc(func(_ context.Context, _ string, _ map[string]any, _, _ string) (any, error) {
				if calls.Add(1) <= tt.failures {
					return nil, errors.New("connection refused")
				}

				return "ok", nil
			})

			executor := steps.NewExecutor(slog.Default(), actions, nil, nil, nil, nil)
			step := &models.Step{ID: "validate", Kind: models.StepKindAction, Config: &models.ActionConfig{Action: "validateChangeOrder"}}

			req := newRequest(step, nil, &recorder{})
			req.RetryPolicy = tt.policy

			result, err := executor.Execute(context.Background(), req)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "ok", result)
			}

			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestExecutor_UnsupportedConfig(t *testing.T) {
	t.Parallel()

	executor := steps.NewExecutor(slog.Default(), nil, nil, nil, nil, nil)

	_, err := executor.Execute(context.Background(), newRequest(&models.Step{ID: "x"}, nil, &recorder{}))

	assert.ErrorIs(t, err, steps.ErrUnsupportedStep)
}
