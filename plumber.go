package plumber

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/config"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/planner"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Version is the release of the module, overridden at link time.
var Version = "dev"

// DefaultConfigPath is read when no configuration path is given.
const DefaultConfigPath = "plumber.yml"

// Engine is the high-level entry point of the library. It loads one
// configuration file and runs its pipes through a Planner.
type Engine struct {
	planner *planner.Planner
	logger  *slog.Logger
	opts    []planner.Option
	Path    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, planner.WithLifecycleHooks(hooks))
	}
}

// WithStore injects a checkpoint store, bypassing `global.checkpointing`.
func WithStore(store ports.CheckpointStore, name string) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, planner.WithStore(store, name))
	}
}

// WithChangeSource replaces the git repository of the working directory.
func WithChangeSource(src ports.ChangeSource) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, planner.WithChangeSource(src))
	}
}

// WithWorkDir sets the directory steps run in and git is inspected from.
func WithWorkDir(dir string) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, planner.WithWorkDir(dir))
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.opts = append(e.opts, planner.WithRunID(id))
	}
}

// New loads the configuration at path (DefaultConfigPath when empty) and
// builds the planner. A missing or empty file yields config.ErrNotFound.
func New(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	eng := newEngine(path, opts)
	if eng.Path == "" {
		eng.Path = DefaultConfigPath
	}
	eng.logger = eng.logger.With("config", filepath.Base(eng.Path))

	cfg, err := config.LoadConfig(eng.Path, eng.logger)
	if err != nil {
		return nil, err
	}
	return eng.build(ctx, cfg)
}

// NewFromConfig builds an engine from an already decoded configuration.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Engine, error) {
	return newEngine("", opts).build(ctx, cfg)
}

func newEngine(path string, opts []Option) *Engine {
	eng := &Engine{Path: path}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	return eng
}

func (e *Engine) build(ctx context.Context, cfg *config.Config) (*Engine, error) {
	p, err := planner.New(ctx, cfg, append([]planner.Option{planner.WithLogger(e.logger)}, e.opts...)...)
	if err != nil {
		return nil, fmt.Errorf("building planner: %w", err)
	}
	e.planner = p
	return e, nil
}

// RunID returns the identifier of this engine's run.
func (e *Engine) RunID() string {
	return e.planner.RunID()
}

// Pipes returns the configured pipe ids in declaration order.
func (e *Engine) Pipes() []string {
	return e.planner.PipeIDs()
}

// Analyze reports which pipes would run, without running them.
func (e *Engine) Analyze(ctx context.Context) ([]domain.AnalysisRecord, error) {
	return e.planner.Analyze(ctx)
}

// Execute runs every triggered pipe. persist=false never writes the
// checkpoint.
func (e *Engine) Execute(ctx context.Context, persist bool) ([]domain.PipeRecord, error) {
	return e.planner.Execute(ctx, persist)
}

// InitCheckpoint records the current state of every pipe as the baseline.
func (e *Engine) InitCheckpoint(ctx context.Context, force bool) error {
	return e.planner.InitCheckpoint(ctx, force)
}

// Close releases the checkpoint store.
func (e *Engine) Close() error {
	return e.planner.Close()
}
