package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/adapters/redis"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunCheckpointStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_KeyAndInfo(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithKey("ci:checkpoint"))
	doc := domain.Document{"build": {"src": map[string]any{domain.KeyCommit: "abc"}}}

	require.NoError(t, store.Save(context.Background(), doc, ":white_check_mark: build"))

	assert.True(t, mr.Exists("ci:checkpoint"))
	info, err := mr.Get("ci:checkpoint:info")
	require.NoError(t, err)
	assert.Equal(t, ":white_check_mark: build", info)
	assert.False(t, mr.Exists("ci:checkpoint:lock:save"), "lock is released after save")
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Document{"a": {}}, ""))
	assert.Equal(t, time.Minute, mr.TTL(redis.DefaultKey))

	mr.FastForward(2 * time.Minute)
	doc, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := setup(t)
	require.NoError(t, mr.Set(redis.DefaultKey, "{not json"))

	_, err := redis.NewFromClient(client).Get(context.Background())
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, redis.Type, storeErr.Store)
}

func TestRedisStore_FromURL(t *testing.T) {
	mr, _ := setup(t)
	store, err := redis.NewFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer store.Close()

	ports.RunCheckpointStoreContract(t, store)

	_, err = redis.NewFromURL("http://nope")
	assert.Error(t, err)
}
