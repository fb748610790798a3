package sqlite_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/persistence/persistencetest"
	"github.com/dukex/siteflow/pkg/persistence/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSQLitePersistence(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	n := 0

	suite.Run(t, &persistencetest.Suite{
		New: func() persistence.Persistence {
			n++

			store, err := sqlite.NewPersistence(context.Background(), logger(), filepath.Join(dir, fmt.Sprintf("siteflow-%d.db", n)))
			require.NoError(t, err)

			return store
		},
	})
}

func TestNewPersistence_Reopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := "sqlite://" + filepath.Join(t.TempDir(), "siteflow.db")

	store, err := sqlite.NewPersistence(ctx, logger(), path)
	require.NoError(t, err)

	id, err := store.Approvals().Create(ctx, persistencetest.Approval("wf-1"))
	require.NoError(t, err)
	require.NoError(t, store.Close(ctx))

	// Migrations already applied are skipped.
	store, err = sqlite.NewPersistence(ctx, logger(), path)
	require.NoError(t, err)

	defer func() { _ = store.Close(ctx) }()

	request, err := store.Approvals().Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "wf-1", request.InstanceID)
	assert.NoError(t, store.HealthCheck(ctx))
}
