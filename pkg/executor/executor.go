package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"
	"time"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/domain"
)

// DefaultShell runs every step.
const DefaultShell = "sh"

// waitDelay bounds how long Wait blocks on output pipes held open by
// orphaned grandchildren after the step itself was killed.
const waitDelay = 2 * time.Second

// Executor runs the steps of one Config and accumulates their results.
type Executor struct {
	steps   []string
	batch   bool
	timeout time.Duration
	env     []string
	dir     string
	shell   string
	scope   string
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	results []domain.StepResult
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for step output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithScope labels the executor in logs and events (e.g. "pipes[0].actions").
func WithScope(scope string) Option {
	return func(e *Executor) {
		e.scope = scope
	}
}

// WithLifecycleHooks registers observers notified after every step.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Executor) {
		e.hooks = hooks
	}
}

// WithShell overrides the interpreter used for `<shell> -c <step>`.
func WithShell(shell string) Option {
	return func(e *Executor) {
		e.shell = shell
	}
}

// WithBaseDir sets the working directory when the config does not name one.
func WithBaseDir(dir string) Option {
	return func(e *Executor) {
		if e.dir == "" {
			e.dir = dir
		}
	}
}

// New creates an Executor from a validated Config.
func New(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		steps:  slices.Clone(cfg.Steps),
		batch:  cfg.Batch,
		dir:    cfg.Dir,
		shell:  DefaultShell,
		logger: logging.NewNop(),
	}
	if cfg.Timeout != nil {
		e.timeout = time.Duration(*cfg.Timeout) * time.Second
	}
	if len(cfg.Env) > 0 {
		e.env = os.Environ()
		for k, v := range cfg.Env {
			e.env = append(e.env, k+"="+v)
		}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Steps returns the configured step list.
func (e *Executor) Steps() []string {
	return slices.Clone(e.steps)
}

// Results returns a copy of every recorded invocation, oldest first.
func (e *Executor) Results() []domain.StepResult {
	return slices.Clone(e.results)
}

// Execute runs the steps. The first failing invocation is returned as a
// *domain.ExecutionFailure after its result has been recorded.
func (e *Executor) Execute(ctx context.Context) error {
	if e.batch {
		return e.runStep(ctx, strings.Join(e.steps, "\n"))
	}
	for _, step := range e.steps {
		if err := e.runStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runStep(ctx context.Context, script string) error {
	res := e.run(ctx, script)
	e.results = append(e.results, res)
	e.hooks.StepFinished(ctx, &domain.StepEvent{
		EventBase: domain.EventBase{Timestamp: time.Now()},
		Scope:     e.scope,
		Result:    res,
	})

	if res.Succeeded() {
		e.logger.Log(ctx, logging.LevelStep, "step finished",
			"scope", e.scope,
			"step", script,
			"duration", res.Duration,
			"stdout", string(res.Stdout),
			"stderr", string(res.Stderr))
		return nil
	}

	e.logger.Error("step failed",
		"scope", e.scope,
		"step", script,
		"exit_code", res.ExitCode,
		"stdout", string(res.Stdout),
		"stderr", string(res.Stderr))
	return &domain.ExecutionFailure{Step: script, ExitCode: res.ExitCode}
}

func (e *Executor) run(ctx context.Context, script string) domain.StepResult {
	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(runCtx, e.shell, "-c", script)
	cmd.Dir = e.dir
	cmd.Env = e.env
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	e.logger.Debug("running step", "scope", e.scope, "step", script, "timeout", e.timeout)

	start := time.Now()
	err := cmd.Run()
	res := domain.StepResult{Step: script, Duration: time.Since(start)}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case e.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		res.ExitCode = domain.TimeoutExitCode
		fmt.Fprintf(&stderr, "\nStep execution timed out after %d seconds", int(e.timeout/time.Second))
	case errors.As(err, &exitErr) && exitErr.ExitCode() >= 0:
		res.ExitCode = exitErr.ExitCode()
	default:
		// Killed by a signal or never started.
		res.ExitCode = -1
		if stderr.Len() > 0 {
			stderr.WriteByte('\n')
		}
		stderr.WriteString(err.Error())
	}

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	return res
}
