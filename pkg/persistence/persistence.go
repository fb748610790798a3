// Package persistence provides the storage abstraction for workflow instances
// and approval requests.
package persistence

import (
	"cmp"
	"context"
	"slices"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/protocol"
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 100

type Persistence interface {
	Instances() InstanceRepository
	Approvals() ApprovalRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// InstanceRepository stores workflow instances. Writers on different
// instances may call it concurrently.
type InstanceRepository interface {
	Upsert(ctx context.Context, instance *models.WorkflowInstance) error
	Get(ctx context.Context, id string) (*models.WorkflowInstance, error)
	List(ctx context.Context, opts ListInstancesOptions) ([]*models.WorkflowInstance, error)
}

// ApprovalRepository stores approval requests on behalf of approval steps and
// the approver surface.
type ApprovalRepository interface {
	protocol.ApprovalStore
	protocol.ApprovalDecider
}

// ListInstancesOptions filters a history query. Zero fields match anything.
type ListInstancesOptions struct {
	DefinitionID string
	Status       models.InstanceStatus
	UserID       string
	Limit        int
}

// EffectiveLimit returns Limit, or DefaultListLimit when unset.
func (o ListInstancesOptions) EffectiveLimit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}

	return o.Limit
}

// Matches reports whether instance passes the filters of o.
func (o ListInstancesOptions) Matches(instance *models.WorkflowInstance) bool {
	if o.DefinitionID != "" && instance.DefinitionID != o.DefinitionID {
		return false
	}

	if o.Status != "" && instance.Status != o.Status {
		return false
	}

	if o.UserID != "" && instance.UserID != o.UserID {
		return false
	}

	return true
}

// SortNewestFirst orders instances by start time descending, ties by id.
func SortNewestFirst(instances []*models.WorkflowInstance) {
	slices.SortFunc(instances, func(a, b *models.WorkflowInstance) int {
		if c := b.StartTime.Compare(a.StartTime); c != 0 {
			return c
		}

		return cmp.Compare(a.ID, b.ID)
	})
}

// Select filters, sorts and truncates instances according to opts.
func Select(instances []*models.WorkflowInstance, opts ListInstancesOptions) []*models.WorkflowInstance {
	selected := make([]*models.WorkflowInstance, 0, len(instances))

	for _, instance := range instances {
		if opts.Matches(instance) {
			selected = append(selected, instance)
		}
	}

	SortNewestFirst(selected)

	if limit := opts.EffectiveLimit(); len(selected) > limit {
		selected = selected[:limit]
	}

	return selected
}
