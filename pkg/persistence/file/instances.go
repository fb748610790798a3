package file

import (
	"context"
	"errors"
	"os"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
)

// InstanceRepository handles instance-related file operations.
type InstanceRepository struct {
	dir string
}

func (r *InstanceRepository) Upsert(_ context.Context, instance *models.WorkflowInstance) error {
	if err := validateID(instance.ID); err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, err)
	}

	toSave := *instance
	if toSave.Variables == nil {
		toSave.Variables = make(map[string]any)
	}

	if toSave.History == nil {
		toSave.History = []models.Event{}
	}

	if err := writeJSON(r.dir, instance.ID, toSave); err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) Get(_ context.Context, id string) (*models.WorkflowInstance, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewInstanceError("Get", id, err)
	}

	var instance models.WorkflowInstance

	if err := readJSON(r.dir, id, &instance); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewInstanceError("Get", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("Get", id, err)
	}

	return &instance, nil
}

func (r *InstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	ids, err := listIDs(r.dir)
	if err != nil {
		return nil, err
	}

	instances := make([]*models.WorkflowInstance, 0, len(ids))

	for _, id := range ids {
		instance, err := r.Get(ctx, id)
		if err != nil {
			// Skip invalid files
			continue
		}

		instances = append(instances, instance)
	}

	return persistence.Select(instances, opts), nil
}
