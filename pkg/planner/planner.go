// Package planner orchestrates a run: it builds every pipe from the
// configuration, evaluates and executes them in order inside the global
// hooks, and decides whether the resulting checkpoint is persisted.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/adapters/git"
	"github.com/plumber-ci/plumber/pkg/checkpoint"
	"github.com/plumber-ci/plumber/pkg/condition"
	"github.com/plumber-ci/plumber/pkg/config"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/executor"
	"github.com/plumber-ci/plumber/pkg/hooks"
	"github.com/plumber-ci/plumber/pkg/pipe"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Planner owns the checkpoint store, the current checkpoint document and
// the pipes built from one configuration.
type Planner struct {
	runID     string
	unit      domain.CheckpointUnit
	store     ports.CheckpointStore
	storeName string
	current   domain.Document
	pipes     []*pipe.Pipe
	hooks     *hooks.Set

	logger    *slog.Logger
	lifecycle domain.LifecycleHooks
	registry  *condition.Registry
	source    ports.ChangeSource
	workDir   string
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Planner) {
		p.lifecycle = hooks
	}
}

// WithRegistry replaces the registry of condition types.
func WithRegistry(r *condition.Registry) Option {
	return func(p *Planner) {
		p.registry = r
	}
}

// WithChangeSource replaces the git repository of the working directory.
func WithChangeSource(src ports.ChangeSource) Option {
	return func(p *Planner) {
		p.source = src
	}
}

// WithStore bypasses `global.checkpointing` and uses store, reported under
// name.
func WithStore(store ports.CheckpointStore, name string) Option {
	return func(p *Planner) {
		p.store = store
		p.storeName = name
	}
}

// WithWorkDir sets the directory steps run in and the repository inspected
// by the default change source.
func WithWorkDir(dir string) Option {
	return func(p *Planner) {
		p.workDir = dir
	}
}

// WithRunID overrides the generated run identifier.
func WithRunID(id string) Option {
	return func(p *Planner) {
		p.runID = id
	}
}

// New opens the checkpoint store, reads the current document and builds
// every pipe. Configuration errors of all pipes are reported together and
// take precedence over store failures.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Planner, error) {
	p := &Planner{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.registry == nil {
		p.registry = condition.DefaultRegistry()
	}
	if p.runID == "" {
		p.runID = uuid.NewString()
	}
	if p.source == nil {
		dir := p.workDir
		if dir == "" {
			dir = "."
		}
		p.source = git.NewRepository(dir)
	}
	p.logger = p.logger.With("run_id", p.runID)
	p.unit = cfg.Global.Checkpointing.Unit
	if p.unit == "" {
		p.unit = domain.UnitSingle
	}

	execOpts := []executor.Option{
		executor.WithLogger(p.logger),
		executor.WithLifecycleHooks(p.lifecycle),
	}
	if p.workDir != "" {
		execOpts = append(execOpts, executor.WithBaseDir(p.workDir))
	}

	var errs []error
	var storeErr error

	set, err := hooks.Parse("global", cfg.Global.PreHook, cfg.Global.PostHook, p.logger, execOpts...)
	if err != nil {
		errs = append(errs, err)
	}
	p.hooks = set

	if p.store == nil {
		store, name, err := checkpoint.Open(ctx, cfg.Global.Checkpointing, p.logger)
		p.store, p.storeName = store, name
		if err != nil {
			if len(domain.ConfigErrors(err)) > 0 {
				errs = append(errs, err)
			} else {
				storeErr = err
			}
		}
	}

	p.current = domain.Document{}
	if p.store != nil {
		doc, err := p.store.Get(ctx)
		if err != nil {
			storeErr = err
		} else {
			p.current = doc
		}
	}

	seen := map[string]bool{}
	for i, spec := range cfg.Pipes {
		key := config.Key(i)
		if spec.ID != "" && seen[spec.ID] {
			errs = append(errs, domain.NewConfigError(key+".id", fmt.Sprintf("duplicate pipe id %q", spec.ID), nil))
			continue
		}
		seen[spec.ID] = true

		var slice domain.PipeCheckpoint
		if p.current.Has(spec.ID) {
			slice = p.current.Pipe(spec.ID)
		}
		built, err := pipe.New(ctx, key, spec, slice, pipe.Deps{
			Registry:    p.registry,
			Source:      p.source,
			Logger:      p.logger,
			Lifecycle:   p.lifecycle,
			ExecOptions: execOpts,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.pipes = append(p.pipes, built)
	}

	if err := domain.Collect(errs); err != nil {
		return nil, err
	}
	if storeErr != nil {
		return nil, storeErr
	}
	p.logger.Debug("planner ready", "pipes", len(p.pipes), "store", p.storeName, "unit", p.unit)
	return p, nil
}

// RunID returns the identifier attached to every log line and event.
func (p *Planner) RunID() string { return p.runID }

// PipeIDs returns the pipe ids in declaration order.
func (p *Planner) PipeIDs() []string {
	ids := make([]string, len(p.pipes))
	for i, pp := range p.pipes {
		ids[i] = pp.ID()
	}
	return ids
}

// Checkpoint returns a copy of the current checkpoint document.
func (p *Planner) Checkpoint() domain.Document { return p.current.Clone() }

// Close releases the checkpoint store.
func (p *Planner) Close() error { return checkpoint.Close(p.store) }

// Analyze evaluates every pipe without running actions or writing the
// checkpoint. Hooks of both scopes still run.
func (p *Planner) Analyze(ctx context.Context) ([]domain.AnalysisRecord, error) {
	if len(p.pipes) == 0 {
		return nil, domain.PreconditionFailure(domain.ErrNoPipes)
	}

	start := time.Now()
	var records []domain.AnalysisRecord

	op := func(ctx context.Context) error {
		for _, pp := range p.pipes {
			var detected bool
			err := pp.Wrap(func(ctx context.Context) error {
				var err error
				detected, err = pp.Evaluate(ctx)
				return err
			}, nil)(ctx)
			if err != nil {
				return err
			}
			p.logger.Info("pipe analyzed", "pipe", pp.ID(), "detected", detected)
			records = append(records, domain.AnalysisRecord{ID: pp.ID(), Detected: detected})
		}
		return nil
	}

	err := p.hooks.Wrap(op, nil)(ctx)
	p.lifecycle.RunFinished(ctx, &domain.RunEvent{
		EventBase: p.event(),
		Mode:      domain.ModeAnalyze,
		Outcome:   domain.OutcomeOf(err),
		Records:   analysisAsRecords(records),
		Duration:  time.Since(start),
	})
	return records, err
}

func analysisAsRecords(in []domain.AnalysisRecord) []domain.PipeRecord {
	out := make([]domain.PipeRecord, len(in))
	for i, r := range in {
		out[i] = domain.PipeRecord{ID: r.ID, Status: domain.StatusNotDetected}
		if r.Detected {
			out[i].Status = domain.StatusDetected
		}
	}
	return out
}

// Execute runs every triggered pipe in order and stops at the first
// failure. The records are returned even when the run fails. With persist
// set, the updated checkpoint is saved when some pipe was active and either
// the run succeeded or the checkpoint unit is "pipe".
func (p *Planner) Execute(ctx context.Context, persist bool) ([]domain.PipeRecord, error) {
	if len(p.pipes) == 0 {
		return nil, domain.PreconditionFailure(domain.ErrNoPipes)
	}

	start := time.Now()
	records := make([]domain.PipeRecord, len(p.pipes))
	for i, pp := range p.pipes {
		records[i] = domain.PipeRecord{ID: pp.ID(), Status: domain.StatusUnknown}
	}
	next := p.current.Clone()
	persisted := false

	op := func(ctx context.Context) error {
		for i, pp := range p.pipes {
			pipeStart := time.Now()
			err := pp.Wrap(func(ctx context.Context) error {
				return p.runPipe(ctx, pp, &records[i], next)
			}, nil)(ctx)
			if err != nil {
				records[i].Status = domain.StatusFailed
				p.logger.Error("pipe failed", "pipe", pp.ID(), "err", err)
			}
			p.lifecycle.PipeFinished(ctx, &domain.PipeEvent{
				EventBase: p.event(),
				PipeID:    pp.ID(),
				Status:    records[i].Status,
				Duration:  time.Since(pipeStart),
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	fin := func(ctx context.Context, outcome domain.Outcome) error {
		if !p.shouldPersist(persist, records, outcome) {
			p.logger.Info("checkpoint not persisted", "outcome", outcome, "unit", p.unit, "persist", persist)
			return nil
		}
		if err := p.save(ctx, next, domain.Summary(records)); err != nil {
			return err
		}
		persisted = true
		return nil
	}

	err := p.hooks.Wrap(op, fin)(ctx)
	p.lifecycle.RunFinished(ctx, &domain.RunEvent{
		EventBase: p.event(),
		Mode:      domain.ModeExecute,
		Outcome:   domain.OutcomeOf(err),
		Records:   slices.Clone(records),
		Persisted: persisted,
		Duration:  time.Since(start),
	})
	return records, err
}

func (p *Planner) runPipe(ctx context.Context, pp *pipe.Pipe, record *domain.PipeRecord, next domain.Document) error {
	triggered, err := pp.Evaluate(ctx)
	if err != nil {
		return err
	}
	if !triggered {
		record.Status = domain.StatusNotDetected
		p.logger.Info("no changes detected", "pipe", pp.ID())
		return nil
	}

	record.Status = domain.StatusDetected
	p.logger.Info("changes detected, running actions", "pipe", pp.ID())
	if err := pp.Execute(ctx); err != nil {
		return err
	}
	record.Status = domain.StatusExecuted

	if cp := pp.NewCheckpoint(); cp != nil {
		next[pp.ID()] = cp
	}
	return nil
}

func (p *Planner) shouldPersist(persist bool, records []domain.PipeRecord, outcome domain.Outcome) bool {
	if !persist || !domain.ContainsActivity(records) {
		return false
	}
	return outcome == domain.OutcomeSuccess || p.unit == domain.UnitPipe
}

// InitCheckpoint records every pipe's current checkpoint as the baseline
// without evaluating conditions or running actions. It refuses to replace
// an existing checkpoint unless force is set.
func (p *Planner) InitCheckpoint(ctx context.Context, force bool) error {
	if len(p.pipes) == 0 {
		return domain.PreconditionFailure(domain.ErrNoPipes)
	}
	if len(p.current) > 0 && !force {
		return domain.PreconditionFailure(domain.ErrCheckpointExists)
	}

	start := time.Now()
	doc := domain.Document{}
	var ids []string
	for _, pp := range p.pipes {
		if cp := pp.NewCheckpoint(); cp != nil {
			doc[pp.ID()] = cp
			ids = append(ids, pp.ID())
		}
	}

	err := p.save(ctx, doc, "Initialized checkpoint for "+strings.Join(ids, ", "))
	p.lifecycle.RunFinished(ctx, &domain.RunEvent{
		EventBase: p.event(),
		Mode:      domain.ModeInit,
		Outcome:   domain.OutcomeOf(err),
		Persisted: err == nil,
		Duration:  time.Since(start),
	})
	return err
}

func (p *Planner) save(ctx context.Context, doc domain.Document, info string) error {
	if err := p.store.Save(ctx, doc, info); err != nil {
		return err
	}
	p.current = doc.Clone()
	p.logger.Info("checkpoint persisted", "store", p.storeName, "pipes", len(doc))
	p.lifecycle.CheckpointSaved(ctx, &domain.CheckpointEvent{
		EventBase: p.event(),
		Store:     p.storeName,
		Pipes:     doc.PipeIDs(),
		Info:      info,
	})
	return nil
}

func (p *Planner) event() domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), RunID: p.runID}
}
