package mocks

import (
	"context"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockActionExecutor is a mock implementation of protocol.ActionExecutor interface.
type MockActionExecutor struct {
	mock.Mock
}

func (m *MockActionExecutor) Execute(ctx context.Context, action string, data map[string]any, userID, projectID string) (any, error) {
	args := m.Called(ctx, action, data, userID, projectID)

	return args.Get(0), args.Error(1)
}

// MockNotificationDispatcher is a mock implementation of protocol.NotificationDispatcher interface.
type MockNotificationDispatcher struct {
	mock.Mock
}

func (m *MockNotificationDispatcher) Send(ctx context.Context, channel string, recipients []string, template string, data map[string]any) (any, error) {
	args := m.Called(ctx, channel, recipients, template, data)

	return args.Get(0), args.Error(1)
}

// MockApprovalStore is a mock implementation of protocol.ApprovalStore and protocol.ApprovalDecider interfaces.
type MockApprovalStore struct {
	mock.Mock
}

func (m *MockApprovalStore) Create(ctx context.Context, request *models.ApprovalRequest) (string, error) {
	args := m.Called(ctx, request)

	return args.String(0), args.Error(1)
}

func (m *MockApprovalStore) Get(ctx context.Context, approvalID string) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, approvalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalStore) Decide(ctx context.Context, approvalID string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	args := m.Called(ctx, approvalID, status, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ApprovalRequest), args.Error(1)
}

// ActionFunc adapts a function to protocol.ActionExecutor.
type ActionFunc func(ctx context.Context, action string, data map[string]any, userID, projectID string) (any, error)

func (f ActionFunc) Execute(ctx context.Context, action string, data map[string]any, userID, projectID string) (any, error) {
	return f(ctx, action, data, userID, projectID)
}

// NotificationFunc adapts a function to protocol.NotificationDispatcher.
type NotificationFunc func(ctx context.Context, channel string, recipients []string, template string, data map[string]any) (any, error)

func (f NotificationFunc) Send(ctx context.Context, channel string, recipients []string, template string, data map[string]any) (any, error) {
	return f(ctx, channel, recipients, template, data)
}
