package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/redis/go-redis/v9"
)

// decideRetries bounds optimistic transaction retries when a request is
// decided concurrently.
const decideRetries = 5

type ApprovalRepository struct {
	client *redis.Client
	prefix string
}

func (r *ApprovalRepository) keyApproval(id string) string {
	return r.prefix + "approval:" + id
}

func (r *ApprovalRepository) Create(ctx context.Context, request *models.ApprovalRequest) (string, error) {
	prepared := persistence.PrepareApproval(request, time.Now().UTC())

	data, err := json.Marshal(prepared)
	if err != nil {
		return "", persistence.NewApprovalError("Create", prepared.ID, err)
	}

	if err := r.client.Set(ctx, r.keyApproval(prepared.ID), data, 0).Err(); err != nil {
		return "", persistence.NewApprovalError("Create", prepared.ID, err)
	}

	return prepared.ID, nil
}

func (r *ApprovalRepository) Get(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	return r.read(ctx, r.client, "Get", id)
}

// Decide applies the decision inside a WATCH transaction so that two
// concurrent decisions cannot both succeed.
func (r *ApprovalRepository) Decide(ctx context.Context, id string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	key := r.keyApproval(id)

	var decided *models.ApprovalRequest

	for range decideRetries {
		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			request, err := r.read(ctx, tx, "Decide", id)
			if err != nil {
				return err
			}

			if err := persistence.ApplyDecision(request, status, notes, time.Now().UTC()); err != nil {
				return err
			}

			data, err := json.Marshal(request)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)

				return nil
			})
			if err != nil {
				return err
			}

			decided = request

			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, err
		}

		return decided, nil
	}

	return nil, persistence.NewApprovalError("Decide", id, errors.New("too many concurrent decisions"))
}

func (r *ApprovalRepository) read(ctx context.Context, client redis.Cmdable, op, id string) (*models.ApprovalRequest, error) {
	data, err := client.Get(ctx, r.keyApproval(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, persistence.NewApprovalError(op, id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewApprovalError(op, id, err)
	}

	var request models.ApprovalRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, persistence.NewApprovalError(op, id, err)
	}

	return &request, nil
}
