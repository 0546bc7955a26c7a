// Package file stores the checkpoint document in a local YAML or JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "localfile"

// Store implements ports.CheckpointStore on the local filesystem.
type Store struct {
	path   string
	logger *slog.Logger
}

var _ ports.CheckpointStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store writing to path.
// If path is empty, it defaults to domain.DefaultCheckpointFile.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = domain.DefaultCheckpointFile
	}
	s := &Store{path: path, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) isJSON() bool {
	return strings.EqualFold(filepath.Ext(s.path), ".json")
}

// Get reads the document. A missing file is an empty document.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn("checkpoint file not found, will be created upon persistence", "path", s.path)
			return domain.Document{}, nil
		}
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: err}
	}

	doc, err := Decode(data, s.isJSON())
	if err != nil {
		return nil, &domain.StoreError{Store: Type, Op: "get", Err: fmt.Errorf("%s: %w", s.path, err)}
	}
	return doc, nil
}

// Save writes the document atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	data, err := Encode(doc, s.isJSON())
	if err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	if err := writeAtomic(s.path, data); err != nil {
		return &domain.StoreError{Store: Type, Op: "save", Err: err}
	}
	s.logger.Debug("checkpoint written", "path", s.path, "pipes", len(doc))
	return nil
}

// Decode parses a serialized document. Empty input is an empty document.
func Decode(data []byte, asJSON bool) (domain.Document, error) {
	var raw map[string]any
	if len(strings.TrimSpace(string(data))) > 0 {
		var err error
		if asJSON {
			err = json.Unmarshal(data, &raw)
		} else {
			err = yaml.Unmarshal(data, &raw)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
		}
	}
	return domain.DocumentFromMap(raw)
}

// Encode serializes a document as YAML, or indented JSON when asJSON is set.
func Encode(doc domain.Document, asJSON bool) ([]byte, error) {
	if asJSON {
		data, err := json.MarshalIndent(doc.ToMap(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
		}
		return append(data, '\n'), nil
	}
	data, err := yaml.Marshal(doc.ToMap())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return data, nil
}

func writeAtomic(destPath string, data []byte) error {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure checkpoint directory: %w", err)
	}

	// Same directory, so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(destPath)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Rename replaces destPath in one step, so readers never see it missing.
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
