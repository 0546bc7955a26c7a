package objectstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

type fakeBucket struct {
	mu        sync.Mutex
	objects   map[string][]byte
	summaries map[string]string
	ensured   int
	ensureErr error
	readErr   error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{objects: map[string][]byte{}, summaries: map[string]string{}}
}

func (f *fakeBucket) Ensure(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return f.ensureErr
}

func (f *fakeBucket) Read(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return data, nil
}

func (f *fakeBucket) Write(_ context.Context, key string, data []byte, summary string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = append([]byte(nil), data...)
	f.summaries[key] = summary
	return nil
}

func TestObjectStore_Contract(t *testing.T) {
	ports.RunCheckpointStoreContract(t, New(newFakeBucket(), ""))
}

func TestObjectStore_EnsuresBucketOnce(t *testing.T) {
	bucket := newFakeBucket()
	store := New(bucket, "ci/cp.json")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.Document{}, "one"))
	require.NoError(t, store.Save(ctx, domain.Document{}, "two"))

	assert.Equal(t, 1, bucket.ensured)
	assert.Contains(t, bucket.objects, "ci/cp.json")
}

func TestObjectStore_EnsureFailure(t *testing.T) {
	bucket := newFakeBucket()
	bucket.ensureErr = errors.New("access denied")

	err := New(bucket, "").Save(context.Background(), domain.Document{}, "")
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "save", storeErr.Op)
}

func TestObjectStore_SummaryIsOneLine(t *testing.T) {
	bucket := newFakeBucket()
	require.NoError(t, New(bucket, "").Save(context.Background(), domain.Document{}, ":white_check_mark: build\n:x: deploy"))
	assert.Equal(t, ":white_check_mark: build :x: deploy", bucket.summaries[DefaultKey])
}

func TestObjectStore_ReadError(t *testing.T) {
	bucket := newFakeBucket()
	bucket.readErr = errors.New("timeout")

	_, err := New(bucket, "").Get(context.Background())
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, Type, storeErr.Store)
}

func TestMapError(t *testing.T) {
	missing := mapError(minio.ErrorResponse{Code: "NoSuchKey", StatusCode: 404})
	assert.ErrorIs(t, missing, ErrObjectNotFound)

	other := mapError(minio.ErrorResponse{Code: "AccessDenied", StatusCode: 403})
	assert.NotErrorIs(t, other, ErrObjectNotFound)
}

func TestConfig_Validate(t *testing.T) {
	_, err := NewMinioBucket(Config{Bucket: "b"})
	assert.Error(t, err)
	_, err = NewMinioBucket(Config{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	store, err := Open(Config{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, DefaultKey, store.key)
}
