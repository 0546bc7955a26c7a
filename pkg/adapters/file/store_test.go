package file_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/adapters/file"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

func TestFileStore_Contract(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		ports.RunCheckpointStoreContract(t, file.New(filepath.Join(t.TempDir(), ".plumber.checkpoint.yml")))
	})
	t.Run("JSON", func(t *testing.T) {
		ports.RunCheckpointStoreContract(t, file.New(filepath.Join(t.TempDir(), "nested", "checkpoint.json")))
	})
}

func TestFileStore_DefaultPath(t *testing.T) {
	assert.Equal(t, domain.DefaultCheckpointFile, file.New("").Path())
}

func TestFileStore_ReadsExistingYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.yml")
	require.NoError(t, os.WriteFile(path, []byte("build:\n  src:\n    commit: abc123\ndocs:\n"), 0o644))

	doc, err := file.New(path).Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{domain.KeyCommit: "abc123"}, doc["build"]["src"])
	assert.True(t, doc.Has("docs"))
}

func TestFileStore_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.yml")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	doc, err := file.New(path).Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.yml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a mapping\n"), 0o644))

	_, err := file.New(path).Get(context.Background())
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "get", storeErr.Op)
}

func TestFileStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	store := file.New(filepath.Join(dir, "cp.yml"))
	doc := domain.Document{"a": {"c": map[string]any{domain.KeyCommit: "1"}}}

	require.NoError(t, store.Save(context.Background(), doc, ""))
	require.NoError(t, store.Save(context.Background(), doc, ""))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cp.yml", entries[0].Name())
}

func TestFileStore_SaveNeverRemovesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.yml")
	store := file.New(path)
	doc := domain.Document{"build": {"src": map[string]any{domain.KeyCommit: "abc"}}}
	require.NoError(t, store.Save(context.Background(), doc, ""))

	var (
		missing atomic.Int64
		done    atomic.Bool
		wg      sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for !done.Load() {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				missing.Add(1)
			}
		}
	}()

	for range 500 {
		require.NoError(t, store.Save(context.Background(), doc, ""))
	}
	done.Store(true)
	wg.Wait()

	assert.Zero(t, missing.Load(), "checkpoint file disappeared during Save")
}
