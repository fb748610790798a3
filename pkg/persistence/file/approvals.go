package file

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
)

// ApprovalRepository handles approval request file operations. Decisions
// are serialized so that only the first one is kept.
type ApprovalRepository struct {
	dir string
	mu  sync.Mutex
}

func (r *ApprovalRepository) Create(_ context.Context, request *models.ApprovalRequest) (string, error) {
	prepared := persistence.PrepareApproval(request, time.Now().UTC())

	if err := validateID(prepared.ID); err != nil {
		return "", persistence.NewApprovalError("Create", prepared.ID, err)
	}

	if err := writeJSON(r.dir, prepared.ID, prepared); err != nil {
		return "", persistence.NewApprovalError("Create", prepared.ID, err)
	}

	return prepared.ID, nil
}

func (r *ApprovalRepository) Get(_ context.Context, id string) (*models.ApprovalRequest, error) {
	return r.read("Get", id)
}

func (r *ApprovalRepository) Decide(_ context.Context, id string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	request, err := r.read("Decide", id)
	if err != nil {
		return nil, err
	}

	if err := persistence.ApplyDecision(request, status, notes, time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := writeJSON(r.dir, id, request); err != nil {
		return nil, persistence.NewApprovalError("Decide", id, err)
	}

	return request, nil
}

func (r *ApprovalRepository) read(op, id string) (*models.ApprovalRequest, error) {
	if err := validateID(id); err != nil {
		return nil, persistence.NewApprovalError(op, id, err)
	}

	var request models.ApprovalRequest

	if err := readJSON(r.dir, id, &request); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewApprovalError(op, id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewApprovalError(op, id, err)
	}

	return &request, nil
}
