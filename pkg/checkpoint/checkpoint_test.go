package checkpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/adapters/file"
	"github.com/plumber-ci/plumber/pkg/adapters/gitfile"
	"github.com/plumber-ci/plumber/pkg/adapters/memory"
	"github.com/plumber-ci/plumber/pkg/adapters/objectstore"
	"github.com/plumber-ci/plumber/pkg/adapters/redis"
	"github.com/plumber-ci/plumber/pkg/config"
	"github.com/plumber-ci/plumber/pkg/domain"
)

func TestOpen_Default(t *testing.T) {
	store, tag, err := Open(context.Background(), config.Checkpointing{}, nil)
	require.NoError(t, err)
	assert.Equal(t, file.Type, tag)
	require.IsType(t, &file.Store{}, store)
	assert.Equal(t, domain.DefaultCheckpointFile, store.(*file.Store).Path())
}

func TestOpen_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cp.yml")
	store, _, err := Open(context.Background(), config.Checkpointing{
		Type:   "LocalFile",
		Config: map[string]any{"path": path},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, path, store.(*file.Store).Path())
}

func TestOpen_LocalGit(t *testing.T) {
	store, tag, err := Open(context.Background(), config.Checkpointing{
		Type:   "localgit",
		Config: map[string]any{"path": "cp.yml", "remote": "upstream", "push": false},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, gitfile.Type, tag)
	assert.Equal(t, "cp.yml", store.(*gitfile.Store).Path())
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, _, err := Open(context.Background(), config.Checkpointing{
		Type:   "redis",
		Config: map[string]any{"address": mr.Addr(), "key": "ci:cp", "ttl": 60},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(store) })

	require.NoError(t, store.Save(context.Background(), domain.Document{"a": {}}, ""))
	assert.True(t, mr.Exists("ci:cp"))
	assert.Equal(t, "ci:cp", store.(*redis.Store).Key())
}

func TestOpen_S3(t *testing.T) {
	store, _, err := Open(context.Background(), config.Checkpointing{
		Type:   "s3",
		Config: map[string]any{"endpoint": "localhost:9000", "bucket": "ci", "access_key": "k", "secret_key": "s"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &objectstore.Store{}, store)
}

func TestOpen_Memory(t *testing.T) {
	store, _, err := Open(context.Background(), config.Checkpointing{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
	assert.NoError(t, Close(store))
}

func TestOpen_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		spec config.Checkpointing
		key  string
	}{
		{"UnknownType", config.Checkpointing{Type: "floppy"}, "global.checkpointing.type"},
		{"UnknownField", config.Checkpointing{Type: "localfile", Config: map[string]any{"paht": "x"}}, "global.checkpointing.config"},
		{"WrongFieldType", config.Checkpointing{Type: "redis", Config: map[string]any{"db": "zero"}}, "global.checkpointing.config"},
		{"RedisWithoutAddress", config.Checkpointing{Type: "redis"}, "global.checkpointing.config"},
		{"RedisBadURL", config.Checkpointing{Type: "redis", Config: map[string]any{"url": "http://x"}}, "global.checkpointing.config.url"},
		{"S3WithoutBucket", config.Checkpointing{Type: "s3", Config: map[string]any{"endpoint": "localhost:9000"}}, "global.checkpointing.config"},
		{"PostgresWithoutURL", config.Checkpointing{Type: "postgres"}, "global.checkpointing.config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Open(context.Background(), tt.spec, nil)
			var ce *domain.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.key, ce.Key)
		})
	}
}

func TestOpen_Unreachable(t *testing.T) {
	_, _, err := Open(context.Background(), config.Checkpointing{
		Type:   "postgres",
		Config: map[string]any{"url": "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"},
	}, nil)
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "open", storeErr.Op)
}

func TestTypes(t *testing.T) {
	assert.Equal(t, []string{"kubeconfig", "localfile", "localgit", "memory", "postgres", "redis", "s3"}, Types())
}
