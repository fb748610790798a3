package mocks

import (
	"context"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockInstanceRepository is a mock implementation of persistence.InstanceRepository interface.
type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) Upsert(ctx context.Context, instance *models.WorkflowInstance) error {
	args := m.Called(ctx, instance)

	return args.Error(0)
}

func (m *MockInstanceRepository) Get(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.WorkflowInstance), args.Error(1)
}

func (m *MockInstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowInstance), args.Error(1)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	instances *MockInstanceRepository
	approvals *MockApprovalStore
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		instances: &MockInstanceRepository{},
		approvals: &MockApprovalStore{},
	}
}

func (m *MockPersistence) GetMockInstanceRepository() *MockInstanceRepository {
	return m.instances
}

func (m *MockPersistence) GetMockApprovalStore() *MockApprovalStore {
	return m.approvals
}

func (m *MockPersistence) Instances() persistence.InstanceRepository {
	return m.instances
}

func (m *MockPersistence) Approvals() persistence.ApprovalRepository {
	return m.approvals
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

var _ persistence.Persistence = (*MockPersistence)(nil)
