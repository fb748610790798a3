package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/persistence/file"
	"github.com/dukex/siteflow/pkg/persistence/memory"
	"github.com/dukex/siteflow/pkg/persistence/postgresql"
	"github.com/dukex/siteflow/pkg/persistence/redis"
	"github.com/dukex/siteflow/pkg/persistence/sqlite"
)

// redisPrefix namespaces every key the redis store writes.
const redisPrefix = "siteflow"

var supportedPersistenceProviders = []string{"file", "memory", "postgres", "postgresql", "redis", "rediss", "sqlite"}

// NewPersistence opens the store named by the scheme of databaseURL. A URL
// without a known scheme is treated as a file store directory.
//
// nolint:ireturn // callers only need the store contract
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	logger.InfoContext(ctx, "Opening persistence", "provider", provider)

	switch provider {
	case "memory":
		return memory.NewPersistence(), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, databaseURL, redisPrefix)
	case "sqlite":
		return sqlite.NewPersistence(ctx, logger, databaseURL)
	case "file":
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	default:
		return nil, fmt.Errorf("unsupported persistence provider: %s", provider)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	if databaseURL == "" || databaseURL == "memory" {
		return "memory"
	}

	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return provider
}
