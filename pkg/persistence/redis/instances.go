package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// InstanceRepository stores instances as JSON documents indexed by start time.
type InstanceRepository struct {
	client *redis.Client
	prefix string
}

func (r *InstanceRepository) keyInstance(id string) string {
	return r.prefix + "inst:" + id
}

func (r *InstanceRepository) keyStartIndex() string {
	return r.prefix + "idx:start"
}

func (r *InstanceRepository) Upsert(ctx context.Context, instance *models.WorkflowInstance) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, fmt.Errorf("failed to marshal instance: %w", err))
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.keyInstance(instance.ID), data, 0)
	pipe.ZAdd(ctx, r.keyStartIndex(), redis.Z{Score: float64(instance.StartTime.UnixMilli()), Member: instance.ID})

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, err)
	}

	return nil
}

func (r *InstanceRepository) Get(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	data, err := r.client.Get(ctx, r.keyInstance(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewInstanceError("Get", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("Get", id, err)
	}

	var instance models.WorkflowInstance
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, persistence.NewInstanceError("Get", id, fmt.Errorf("failed to unmarshal instance: %w", err))
	}

	return &instance, nil
}

// List walks the start time index newest first. Without filters only the
// first page of ids is fetched.
func (r *InstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	stop := int64(-1)
	if opts.DefinitionID == "" && opts.Status == "" && opts.UserID == "" {
		stop = int64(opts.EffectiveLimit()) - 1
	}

	ids, err := r.client.ZRevRange(ctx, r.keyStartIndex(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read instance index: %w", err)
	}

	if len(ids) == 0 {
		return []*models.WorkflowInstance{}, nil
	}

	pipe := r.client.Pipeline()

	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, r.keyInstance(id))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read instances: %w", err)
	}

	instances := make([]*models.WorkflowInstance, 0, len(cmds))

	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			return nil, err
		}

		var instance models.WorkflowInstance
		if err := json.Unmarshal(data, &instance); err != nil {
			return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
		}

		instances = append(instances, &instance)
	}

	return persistence.Select(instances, opts), nil
}
