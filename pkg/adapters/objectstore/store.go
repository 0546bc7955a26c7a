// Package objectstore stores the checkpoint document as a JSON object in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "s3"

// DefaultKey is the object name when none is configured.
const DefaultKey = "plumber/checkpoint.json"

// ErrObjectNotFound is returned by a Bucket when the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Bucket is the narrow object API the store needs.
type Bucket interface {
	Ensure(ctx context.Context) error
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, summary string) error
}

// Store implements ports.CheckpointStore on top of a Bucket.
type Store struct {
	bucket Bucket
	key    string

	ensureOnce sync.Once
	ensureErr  error
}

var _ ports.CheckpointStore = (*Store)(nil)

// New creates a store writing key in bucket.
func New(bucket Bucket, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{bucket: bucket, key: key}
}

// Get reads the object. A missing object is an empty document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	data, err := s.bucket.Read(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return domain.Document{}, nil
		}
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}

	var raw map[string]any
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("failed to unmarshal checkpoint: %w", err)}
		}
	}
	doc, err := domain.DocumentFromMap(raw)
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}
	return doc, nil
}

// Save uploads the document, creating the bucket on first use.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	s.ensureOnce.Do(func() {
		s.ensureErr = s.bucket.Ensure(ctx)
	})
	if s.ensureErr != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("ensure bucket: %w", s.ensureErr)}
	}

	data, err := json.MarshalIndent(doc.ToMap(), "", "  ")
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: fmt.Errorf("failed to marshal checkpoint: %w", err)}
	}
	if err := s.bucket.Write(ctx, s.key, data, summaryLine(info)); err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	return nil
}

// summaryLine flattens info so it fits in an object metadata header.
func summaryLine(info string) string {
	return strings.Join(strings.Fields(info), " ")
}
