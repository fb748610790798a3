// Package sqlite provides single-node persistence for workflow instances and
// approval requests on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/persistence/sqlbase"
	_ "modernc.org/sqlite"
)

type Persistence struct {
	db        *sql.DB
	logger    *slog.Logger
	instances *sqlbase.InstanceRepository
	approvals *sqlbase.ApprovalRepository
}

// NewPersistence opens (creating if needed) the database at path and migrates
// it. A sqlite:// prefix is accepted.
func NewPersistence(ctx context.Context, logger *slog.Logger, path string) (*Persistence, error) {
	path = strings.TrimPrefix(path, "sqlite://")

	database, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite has a single writer.
	database.SetMaxOpenConns(1)

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger = logger.With("module", "sqlite")

	if err := sqlbase.NewMigrationManager(logger, database, sqlbase.SQLite, migrations()).RunMigrations(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:        database,
		logger:    logger,
		instances: sqlbase.NewInstanceRepository(database, sqlbase.SQLite, logger),
		approvals: sqlbase.NewApprovalRepository(database, sqlbase.SQLite, logger),
	}, nil
}

func (p *Persistence) Instances() persistence.InstanceRepository {
	return p.instances
}

func (p *Persistence) Approvals() persistence.ApprovalRepository {
	return p.approvals
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Close(_ context.Context) error {
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
