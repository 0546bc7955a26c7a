// Package redis stores the checkpoint document as a JSON value in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "redis"

// DefaultKey holds the document when no key is configured.
const DefaultKey = "plumber:checkpoint"

// lockTTL bounds how long a crashed writer can block others.
const lockTTL = 30 * time.Second

// Store implements ports.CheckpointStore using Redis.
type Store struct {
	client backend.UniversalClient
	key    string
	ttl    time.Duration
	locker *Locker
}

var _ ports.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithTTL sets the expiration of the stored document.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithKey sets the key holding the document.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromURL creates a store from a redis:// URL.
func NewFromURL(url string, opts ...Option) (*Store, error) {
	options, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewFromClient(backend.NewClient(options), opts...), nil
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		key:    DefaultKey,
		ttl:    0, // No expiration by default
	}
	for _, opt := range opts {
		opt(store)
	}
	store.locker = NewLocker(client, store.key+":")
	return store
}

// Key returns the key holding the document.
func (s *Store) Key() string {
	return s.key
}

// Get retrieves the document. A missing key is an empty document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	val, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Document{}, nil
		}
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}

	var raw map[string]any
	if err := json.Unmarshal(val, &raw); err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("failed to unmarshal checkpoint: %w", err)}
	}
	doc, err := domain.DocumentFromMap(raw)
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}
	return doc, nil
}

// Save replaces the document while holding the store lock. The run summary
// is kept next to it under "<key>:info".
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	data, err := json.Marshal(doc.ToMap())
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("failed to marshal checkpoint: %w", err)}
	}

	unlock, err := s.locker.Lock(ctx, "save", lockTTL)
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	defer func() { _ = unlock(context.WithoutCancel(ctx)) }()

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key, data, s.ttl)
	if info != "" {
		pipe.Set(ctx, s.key+":info", info, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	return nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
