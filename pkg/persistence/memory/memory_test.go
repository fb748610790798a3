package memory_test

import (
	"context"
	"testing"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/dukex/siteflow/pkg/persistence/memory"
	"github.com/dukex/siteflow/pkg/persistence/persistencetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestMemoryPersistence(t *testing.T) {
	t.Parallel()

	suite.Run(t, &persistencetest.Suite{
		New: func() persistence.Persistence { return memory.NewPersistence() },
	})
}

func TestMemoryPersistence_IsolatesCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memory.NewPersistence()

	instance := &models.WorkflowInstance{ID: "i-1", Variables: map[string]any{"a": 1}}
	require.NoError(t, store.Instances().Upsert(ctx, instance))

	instance.Variables["a"] = 2

	got, err := store.Instances().Get(ctx, "i-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Variables["a"])
}
