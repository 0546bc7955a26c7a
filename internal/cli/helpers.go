package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/plumber-ci/plumber"
	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/internal/presentation/tui"
	"github.com/plumber-ci/plumber/pkg/observability"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Running steps receive the cancellation and are stopped.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// session bundles what one command needs: output, logging, metrics and the
// engine built from the configuration.
type session struct {
	opts    RunOptions
	printer *tui.Printer
	logger  *slog.Logger
	metrics *observability.Metrics
	engine  *plumber.Engine
}

func newSession(ctx context.Context, opts RunOptions) (*session, error) {
	s := &session{
		opts:    opts,
		printer: tui.NewPrinter(opts.out()),
		logger:  logging.NewWithWriter(opts.log(), logging.LevelForVerbosity(opts.Verbosity)),
		metrics: observability.NewMetrics(),
	}
	if !opts.NoBanner {
		s.printer.PrintBanner()
	}

	hooks := s.metrics.Hooks().Merge(observability.LogHooks(s.logger))
	engine, err := createEngine(ctx, opts, s.logger, hooks)
	if err != nil {
		s.logger.Error("failed to load configuration", "path", opts.ConfigPath, "err", err)
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// close pushes metrics when a Pushgateway is configured and releases the
// checkpoint store. A failed push is logged, never returned.
func (s *session) close(ctx context.Context) {
	if s.opts.Pushgateway != "" {
		if err := s.metrics.Push(context.WithoutCancel(ctx), s.opts.Pushgateway, s.engine.RunID()); err != nil {
			s.logger.Warn("metrics push failed", "err", err)
		}
	}
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("closing checkpoint store", "err", err)
	}
}
