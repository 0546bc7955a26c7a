// Package gitfile stores the checkpoint document in a file tracked by git,
// committing and pushing it after every run.
package gitfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/adapters/file"
	"github.com/plumber-ci/plumber/pkg/adapters/git"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Type is the checkpointing type tag of this store.
const Type = "localgit"

// CommitPrefix heads every checkpoint commit message.
const CommitPrefix = ":wrench::construction_worker: [Plumber]"

// DefaultRemote receives the checkpoint commits.
const DefaultRemote = "origin"

// Store is a file.Store whose writes are committed to the enclosing
// repository.
type Store struct {
	file   *file.Store
	repo   *git.Repository
	remote string
	push   bool
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

// WithRemote sets the remote pushed to.
func WithRemote(remote string) Option {
	return func(s *Store) {
		s.remote = remote
	}
}

// WithPush enables or disables pushing after a commit. Pushing is on by
// default.
func WithPush(push bool) Option {
	return func(s *Store) {
		s.push = push
	}
}

// New creates a Store for path. The repository is the one containing the
// directory of path.
func New(path string, opts ...Option) *Store {
	if path == "" {
		path = domain.DefaultCheckpointFile
	}
	s := &Store{
		repo:   git.NewRepository(filepath.Dir(path)),
		remote: DefaultRemote,
		push:   true,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.file = file.New(path, file.WithLogger(s.logger))
	return s
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.file.Path()
}

// Get reads the checkpoint file.
func (s *Store) Get(ctx context.Context) (domain.Document, error) {
	return s.file.Get(ctx)
}

// Save writes and stages the file. With a non-empty info it also commits
// with info as message body and pushes. An unchanged file is not committed.
func (s *Store) Save(ctx context.Context, doc domain.Document, info string) error {
	if err := s.file.Save(ctx, doc, info); err != nil {
		return err
	}

	name := filepath.Base(s.file.Path())
	if err := s.repo.Add(ctx, name); err != nil {
		return s.fail(err)
	}
	if info == "" {
		s.logger.Error("commit content not provided, checkpoint left staged", "path", s.file.Path())
		return nil
	}

	staged, err := s.repo.HasStagedChanges(ctx, name)
	if err != nil {
		return s.fail(err)
	}
	if !staged {
		s.logger.Debug("checkpoint unchanged, nothing to commit")
		return nil
	}

	if err := s.repo.Commit(ctx, fmt.Sprintf("%s\n%s", CommitPrefix, info)); err != nil {
		return s.fail(err)
	}
	if !s.push {
		return nil
	}
	if err := s.repo.Push(ctx, s.remote); err != nil {
		return s.fail(fmt.Errorf("push to %s: %w", s.remote, err))
	}
	s.logger.Info("checkpoint committed and pushed", "remote", s.remote)
	return nil
}

func (s *Store) fail(err error) error {
	return &domain.StoreError{Store: Type, Op: "save", Err: err}
}
