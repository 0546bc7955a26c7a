// Package memory keeps the checkpoint document in process memory.
package memory

import (
	"context"
	"sync"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "memory"

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	doc   domain.Document
	infos []string
}

var _ ports.CheckpointStore = (*Store)(nil)

// NewStore creates an in-memory store holding a copy of initial, if any.
func NewStore(initial domain.Document) *Store {
	if initial == nil {
		initial = domain.Document{}
	}
	return &Store{doc: initial.Clone()}
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Copy on read so the caller can't mutate the stored document.
	return s.doc.Clone(), nil
}

// Save replaces the stored document with a copy of doc.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.infos = append(s.infos, info)
	return nil
}

// Saves returns the info text of every Save, oldest first.
func (s *Store) Saves() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.infos...)
}
