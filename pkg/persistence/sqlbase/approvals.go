package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
)

// ApprovalRepository stores approval requests in the approval_requests table.
type ApprovalRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewApprovalRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *ApprovalRepository {
	return &ApprovalRepository{db: db, dialect: dialect, logger: logger}
}

const approvalColumns = `id, instance_id, step_id, approver, status, notes, timeout_hours, due_at, created_at, decided_at`

func (r *ApprovalRepository) Create(ctx context.Context, request *models.ApprovalRequest) (string, error) {
	prepared := persistence.PrepareApproval(request, time.Now().UTC())

	_, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`INSERT INTO approval_requests (`+approvalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		prepared.ID,
		prepared.InstanceID,
		prepared.StepID,
		prepared.Approver,
		string(prepared.Status),
		nullString(prepared.Notes),
		prepared.TimeoutHours,
		prepared.DueAt.UTC(),
		prepared.CreatedAt.UTC(),
		nullTime(prepared.DecidedAt),
	)
	if err != nil {
		return "", persistence.NewApprovalError("Create", prepared.ID, err)
	}

	return prepared.ID, nil
}

func (r *ApprovalRepository) Get(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	request, err := scanApproval(r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewApprovalError("Get", id, persistence.ErrApprovalNotFound)
		}

		return nil, persistence.NewApprovalError("Get", id, err)
	}

	return request, nil
}

// Decide records the decision if the request is still pending. The update is
// guarded on the pending status so that concurrent deciders cannot both win.
func (r *ApprovalRepository) Decide(ctx context.Context, id string, status models.ApprovalStatus, notes string) (*models.ApprovalRequest, error) {
	request, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := persistence.ApplyDecision(request, status, notes, time.Now().UTC()); err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind(`UPDATE approval_requests SET status = ?, notes = ?, decided_at = ? WHERE id = ? AND status = ?`),
		string(request.Status), nullString(request.Notes), nullTime(request.DecidedAt), id, string(models.ApprovalStatusPending))
	if err != nil {
		return nil, persistence.NewApprovalError("Decide", id, err)
	}

	updated, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read decision result: %w", err)
	}

	if updated == 0 {
		return nil, persistence.NewApprovalError("Decide", id, persistence.ErrApprovalAlreadyDecided)
	}

	r.logger.InfoContext(ctx, "Approval decided", "approval_id", id, "status", status)

	return request, nil
}

func scanApproval(row scanner) (*models.ApprovalRequest, error) {
	var (
		request   models.ApprovalRequest
		notes     sql.NullString
		decidedAt sql.NullTime
	)

	err := row.Scan(
		&request.ID,
		&request.InstanceID,
		&request.StepID,
		&request.Approver,
		&request.Status,
		&notes,
		&request.TimeoutHours,
		&request.DueAt,
		&request.CreatedAt,
		&decidedAt,
	)
	if err != nil {
		return nil, err
	}

	request.Notes = notes.String
	request.DueAt = request.DueAt.UTC()
	request.CreatedAt = request.CreatedAt.UTC()

	if decidedAt.Valid {
		decided := decidedAt.Time.UTC()
		request.DecidedAt = &decided
	}

	return &request, nil
}
