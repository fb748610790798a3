// Package memory provides an in-process persistence implementation used by
// tests and single node development setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
)

// Persistence keeps instances and approval requests in maps.
type Persistence struct {
	instances *InstanceRepository
	approvals *ApprovalRepository
}

func NewPersistence() *Persistence {
	return &Persistence{
		instances: &InstanceRepository{instances: make(map[string]*models.WorkflowInstance)},
		approvals: &ApprovalRepository{approvals: make(map[string]*models.ApprovalRequest)},
	}
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return p.instances
}

func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return p.approvals
}

func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	return nil
}

type InstanceRepository struct {
	mu        sync.RWMutex
	instances map[string]*models.WorkflowInstance
}

func (r *InstanceRepository) Upsert(_ context.Context, instance *models.WorkflowInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.instances[instance.ID] = instance.Clone()

	return nil
}

func (r *InstanceRepository) Get(_ context.Context, id string) (*models.WorkflowInstance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.instances[id]
	if !ok {
		return nil, persistence.NewInstanceError("Get", id, persistence.ErrInstanceNotFound)
	}

	return instance.Clone(), nil
}

func (r *InstanceRepository) List(_ context.Context, opts persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	r.mu.RLock()

	all := make([]*models.WorkflowInstance, 0, len(r.instances))
	for _, instance := range r.instances {
		all = append(all, instance.Clone())
	}

	r.mu.RUnlock()

	return persistence.Select(all, opts), nil
}

type ApprovalRepository struct {
	mu        sync.RWMutex
	approvals map[string]*models.ApprovalRequest
}

func (r *ApprovalRepository) Create(_ context.Context, request *models.ApprovalRequest) (string, error) {
	prepared := persistence.PrepareApproval(request, time.Now().UTC())

	r.mu.Lock()
	defer r.mu.Unlock()

	r.approvals[prepared.ID] = prepared

	return prepared.ID, nil
}

func (r *ApprovalRepository) Get(_ context.Context, id string) (*models.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.approvals[id]
	if !ok {
		return nil, persistence.NewApprovalError("Get", id, persistence.ErrApprovalNotFound)
	}

	c := *request

	return &c, nil
}

func (r *ApprovalRepository) Decide(_ context.Context, id string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, ok := r.approvals[id]
	if !ok {
		return nil, persistence.NewApprovalError("Decide", id, persistence.ErrApprovalNotFound)
	}

	if err := persistence.ApplyDecision(request, status, notes, time.Now().UTC()); err != nil {
		return nil, err
	}

	c := *request

	return &c, nil
}
