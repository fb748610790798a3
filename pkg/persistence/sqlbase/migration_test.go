package sqlbase

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationManager_LatestVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		migrations map[int]string
		want       int
	}{
		{name: "none", migrations: map[int]string{}, want: 0},
		{name: "single", migrations: map[int]string{1: "SELECT 1"}, want: 1},
		{name: "unordered", migrations: map[int]string{3: "c", 1: "a", 2: "b"}, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			manager := NewMigrationManager(slog.Default(), nil, Postgres, tt.migrations)

			assert.Equal(t, tt.want, manager.LatestVersion())
		})
	}
}

func TestDialect_Rebind(t *testing.T) {
	t.Parallel()

	query := "SELECT id FROM t WHERE a = ? AND b = ? LIMIT ?"

	assert.Equal(t, "SELECT id FROM t WHERE a = $1 AND b = $2 LIMIT $3", Postgres.Rebind(query))
	assert.Equal(t, query, SQLite.Rebind(query))
}
