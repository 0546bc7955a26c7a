// Package pipe composes conditions, an action and hooks into the unit the
// planner iterates over.
package pipe

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/condition"
	"github.com/plumber-ci/plumber/pkg/config"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/executor"
	"github.com/plumber-ci/plumber/pkg/expr"
	"github.com/plumber-ci/plumber/pkg/hooks"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// Deps carries the collaborators shared by every pipe of a run.
type Deps struct {
	Registry    *condition.Registry
	Source      ports.ChangeSource
	Logger      *slog.Logger
	Lifecycle   domain.LifecycleHooks
	ExecOptions []executor.Option
}

// Pipe is one named entry of the `pipes` list.
type Pipe struct {
	id         string
	expression *expr.Expr
	conditions []ports.Conditional
	action     *executor.Executor
	hooks      *hooks.Set
	checkpoint domain.PipeCheckpoint
	logger     *slog.Logger
}

// New builds the pipe at config path key. checkpoint is the slice of the
// last persisted document recorded for the pipe; it may be nil. Every
// configuration problem found is reported at once.
func New(ctx context.Context, key string, spec config.PipeSpec, checkpoint domain.PipeCheckpoint, deps Deps) (*Pipe, error) {
	if spec.ID == "" {
		return nil, domain.NewConfigError(key+".id", "pipe id is required", nil)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = condition.DefaultRegistry()
	}
	if checkpoint == nil {
		checkpoint = domain.PipeCheckpoint{}
	}

	p := &Pipe{
		id:         spec.ID,
		checkpoint: checkpoint.Clone(),
		logger:     deps.Logger.With("pipe", spec.ID),
	}
	var errs []error

	execOpts := append(slices.Clone(deps.ExecOptions),
		executor.WithLogger(p.logger),
		executor.WithLifecycleHooks(deps.Lifecycle),
	)

	set, err := hooks.Parse(key, spec.PreHook, spec.PostHook, p.logger, execOpts...)
	if err != nil {
		errs = append(errs, err)
	}
	p.hooks = set

	ids := make([]string, 0, len(spec.Conditions))
	seen := map[string]bool{}
	for i, raw := range spec.Conditions {
		condKey := fmt.Sprintf("%s.conditions[%d]", key, i)
		cs, err := condition.ParseSpec(condKey, raw, p.checkpoint)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[cs.ID] {
			errs = append(errs, domain.NewConfigError(condKey+".id",
				fmt.Sprintf("duplicate condition id %q", cs.ID), nil))
			continue
		}
		seen[cs.ID] = true
		ids = append(ids, cs.ID)

		c, err := deps.Registry.Build(ctx, cs, condition.Deps{
			PipeID: spec.ID,
			Source: deps.Source,
			Logger: deps.Logger,
			Hooks:  deps.Lifecycle,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.conditions = append(p.conditions, c)
	}

	if spec.Expression != "" {
		compiled, err := compileExpression(key+".expression", spec.Expression, ids)
		if err != nil {
			errs = append(errs, err)
		}
		p.expression = compiled
	}

	if spec.Actions != nil {
		cfg, err := executor.ParseConfig(key+".actions", spec.Actions)
		if err != nil {
			errs = append(errs, err)
		} else {
			p.action = executor.New(cfg, append(execOpts, executor.WithScope(key+".actions"))...)
		}
	}

	if err := domain.Collect(errs); err != nil {
		return nil, err
	}
	return p, nil
}

func compileExpression(key, source string, ids []string) (*expr.Expr, error) {
	compiled, err := expr.Compile(source)
	if err != nil {
		return nil, domain.NewConfigError(key, err.Error(), source)
	}
	for _, name := range compiled.Variables() {
		if !slices.Contains(ids, name) {
			return nil, domain.NewConfigError(key,
				fmt.Sprintf("references undeclared condition %q", name), source)
		}
	}
	return compiled, nil
}

// ID returns the pipe identifier.
func (p *Pipe) ID() string { return p.id }

// Hooks returns the pipe-scoped hook set.
func (p *Pipe) Hooks() *hooks.Set { return p.hooks }

// Conditions returns the built conditions in declaration order.
func (p *Pipe) Conditions() []ports.Conditional { return slices.Clone(p.conditions) }

// Wrap runs op inside the pipe's hooks.
func (p *Pipe) Wrap(op hooks.Operation, fin hooks.Finalizer) hooks.Operation {
	return p.hooks.Wrap(op, fin)
}

// Evaluate reports whether the pipe should run. A pipe without conditions
// always runs. With an expression, every condition is evaluated and bound by
// id; without one, the first triggered condition decides.
func (p *Pipe) Evaluate(ctx context.Context) (bool, error) {
	if len(p.conditions) == 0 {
		p.logger.Debug("no conditions, pipe always runs")
		return true, nil
	}

	if p.expression != nil {
		vars := make(map[string]bool, len(p.conditions))
		for _, c := range p.conditions {
			ok, err := c.Evaluate(ctx)
			if err != nil {
				return false, fmt.Errorf("pipe %s: condition %s: %w", p.id, c.ID(), err)
			}
			vars[c.ID()] = ok
		}
		return p.expression.Eval(vars)
	}

	for _, c := range p.conditions {
		ok, err := c.Evaluate(ctx)
		if err != nil {
			return false, fmt.Errorf("pipe %s: condition %s: %w", p.id, c.ID(), err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Execute runs the action. A pipe without actions succeeds immediately.
func (p *Pipe) Execute(ctx context.Context) error {
	if p.action == nil {
		p.logger.Debug("no actions configured")
		return nil
	}
	return p.action.Execute(ctx)
}

// Results returns the step records of the action.
func (p *Pipe) Results() []domain.StepResult {
	if p.action == nil {
		return nil
	}
	return p.action.Results()
}

// NewCheckpoint folds every condition's next checkpoint value into the
// pipe's previous slice. It returns nil for a pipe without conditions.
func (p *Pipe) NewCheckpoint() domain.PipeCheckpoint {
	if len(p.conditions) == 0 {
		return nil
	}
	out := p.checkpoint.Clone()
	for _, c := range p.conditions {
		out[c.ID()] = c.Checkpoint()
	}
	return out
}
