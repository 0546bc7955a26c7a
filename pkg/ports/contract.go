package ports

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a
// CheckpointStore implementation adheres to the interface contract.
// The store must start empty.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()

	t.Run("Get Empty", func(t *testing.T) {
		doc, err := store.Get(ctx)
		require.NoError(t, err, "an empty store is not an error")
		assert.Empty(t, doc)
	})

	t.Run("Save and Get", func(t *testing.T) {
		doc := domain.Document{
			"build": {"src": map[string]any{domain.KeyCommit: "1f2e3d"}},
			"docs":  {"pages": map[string]any{domain.KeyCommit: "4c5b6a"}, "readme": map[string]any{domain.KeyCommit: "4c5b6a"}},
		}
		require.NoError(t, store.Save(ctx, doc, ":white_check_mark: build"))

		loaded, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"build", "docs"}, loaded.PipeIDs())
		assert.Equal(t, "1f2e3d", commitOf(t, loaded, "build", "src"))
		assert.Equal(t, "4c5b6a", commitOf(t, loaded, "docs", "readme"))
	})

	t.Run("Save Replaces Document", func(t *testing.T) {
		doc := domain.Document{"build": {"src": map[string]any{domain.KeyCommit: "7a8b9c"}}}
		require.NoError(t, store.Save(ctx, doc, ""))

		loaded, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"build"}, loaded.PipeIDs())
		assert.Equal(t, "7a8b9c", commitOf(t, loaded, "build", "src"))
	})

	t.Run("Saved Document Is Not Aliased", func(t *testing.T) {
		doc := domain.Document{"lint": {"src": map[string]any{domain.KeyCommit: "aaaaaa"}}}
		require.NoError(t, store.Save(ctx, doc, ""))
		doc["lint"]["src"].(map[string]any)[domain.KeyCommit] = "mutated"

		loaded, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "aaaaaa", commitOf(t, loaded, "lint", "src"))
	})
}

func commitOf(t *testing.T, doc domain.Document, pipe, cond string) any {
	t.Helper()
	value, ok := doc[pipe][cond].(map[string]any)
	require.True(t, ok, "checkpoint %s/%s should decode as a mapping, got %T", pipe, cond, doc[pipe][cond])
	return value[domain.KeyCommit]
}
