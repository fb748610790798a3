package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
)

// InstanceRepository stores workflow instances in the workflow_instances
// table. Variables, history and suspensions are kept as JSON documents.
type InstanceRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

func NewInstanceRepository(db *sql.DB, dialect Dialect, logger *slog.Logger) *InstanceRepository {
	return &InstanceRepository{db: db, dialect: dialect, logger: logger}
}

const instanceColumns = `id, definition_id, status, user_id, start_time, end_time, current_step, error_message, variables, history, suspensions`

// Upsert inserts the instance or replaces its stored state.
func (r *InstanceRepository) Upsert(ctx context.Context, instance *models.WorkflowInstance) error {
	variables, err := json.Marshal(nonNilMap(instance.Variables))
	if err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, fmt.Errorf("failed to marshal variables: %w", err))
	}

	history, err := json.Marshal(nonNilSlice(instance.History))
	if err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, fmt.Errorf("failed to marshal history: %w", err))
	}

	suspensions, err := json.Marshal(nonNilSlice(instance.Suspensions))
	if err != nil {
		return persistence.NewInstanceError("Upsert", instance.ID, fmt.Errorf("failed to marshal suspensions: %w", err))
	}

	query := `
		INSERT INTO workflow_instances (` + instanceColumns + `, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (id) DO UPDATE SET
			definition_id = excluded.definition_id,
			status = excluded.status,
			user_id = excluded.user_id,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			current_step = excluded.current_step,
			error_message = excluded.error_message,
			variables = excluded.variables,
			history = excluded.history,
			suspensions = excluded.suspensions,
			updated_at = CURRENT_TIMESTAMP`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		instance.ID,
		instance.DefinitionID,
		string(instance.Status),
		nullString(instance.UserID),
		instance.StartTime.UTC(),
		nullTime(instance.EndTime),
		nullString(instance.CurrentStep),
		nullString(instance.Error),
		string(variables),
		string(history),
		string(suspensions),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to upsert instance", "instance_id", instance.ID, "error", err)

		return persistence.NewInstanceError("Upsert", instance.ID, err)
	}

	return nil
}

// Get retrieves an instance by id.
func (r *InstanceRepository) Get(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(`SELECT `+instanceColumns+` FROM workflow_instances WHERE id = ?`), id)

	instance, err := scanInstance(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewInstanceError("Get", id, persistence.ErrInstanceNotFound)
		}

		return nil, persistence.NewInstanceError("Get", id, err)
	}

	return instance, nil
}

// List returns instances matching opts, newest first.
func (r *InstanceRepository) List(ctx context.Context, opts persistence.ListInstancesOptions) ([]*models.WorkflowInstance, error) {
	var (
		conditions []string
		args       []any
	)

	if opts.DefinitionID != "" {
		conditions = append(conditions, "definition_id = ?")
		args = append(args, opts.DefinitionID)
	}

	if opts.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(opts.Status))
	}

	if opts.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, opts.UserID)
	}

	query := `SELECT ` + instanceColumns + ` FROM workflow_instances`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	query += ` ORDER BY start_time DESC, id ASC LIMIT ?`
	args = append(args, opts.EffectiveLimit())

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	defer func() { _ = rows.Close() }()

	var instances []*models.WorkflowInstance

	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}

	return instances, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstance(row scanner) (*models.WorkflowInstance, error) {
	var (
		instance                          models.WorkflowInstance
		userID, currentStep, errorMessage sql.NullString
		endTime                           sql.NullTime
		variables, history, suspensions   []byte
	)

	err := row.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.Status,
		&userID,
		&instance.StartTime,
		&endTime,
		&currentStep,
		&errorMessage,
		&variables,
		&history,
		&suspensions,
	)
	if err != nil {
		return nil, err
	}

	instance.UserID = userID.String
	instance.CurrentStep = currentStep.String
	instance.Error = errorMessage.String
	instance.StartTime = instance.StartTime.UTC()

	if endTime.Valid {
		end := endTime.Time.UTC()
		instance.EndTime = &end
	}

	if err := json.Unmarshal(variables, &instance.Variables); err != nil {
		return nil, fmt.Errorf("failed to unmarshal variables: %w", err)
	}

	if err := json.Unmarshal(history, &instance.History); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	if err := json.Unmarshal(suspensions, &instance.Suspensions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suspensions: %w", err)
	}

	return &instance, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}

	return m
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}

	return s
}
