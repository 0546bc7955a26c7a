// Package hooks implements the pre/post hook lifecycle shared by pipes and
// the planner.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/executor"
)

// KeyCondition selects when a post-hook runs.
const KeyCondition = "condition"

// When is the outcome a post-hook is bound to.
type When string

const (
	Always    When = "always"
	OnSuccess When = "success"
	OnFailure When = "failure"
)

// Runner is anything that can run as a hook. *executor.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context) error
}

// Operation is the unit of work wrapped by a Set.
type Operation func(ctx context.Context) error

// Finalizer observes the outcome after post-hooks ran.
type Finalizer func(ctx context.Context, outcome domain.Outcome) error

// Set owns the pre-hooks and the three post-hook lists of one scope.
// The zero value is an empty, usable Set.
type Set struct {
	pre       []Runner
	post      []Runner
	onSuccess []Runner
	onFailure []Runner
	logger    *slog.Logger
}

// New returns an empty Set logging to logger.
func New(logger *slog.Logger) *Set {
	return &Set{logger: logger}
}

// AddPre appends a pre-hook.
func (s *Set) AddPre(r Runner) {
	s.pre = append(s.pre, r)
}

// AddPost appends a post-hook bound to when.
func (s *Set) AddPost(when When, r Runner) error {
	switch when {
	case Always, "":
		s.post = append(s.post, r)
	case OnSuccess:
		s.onSuccess = append(s.onSuccess, r)
	case OnFailure:
		s.onFailure = append(s.onFailure, r)
	default:
		return fmt.Errorf("unknown post-hook condition %q", when)
	}
	return nil
}

// Len returns the total number of hooks.
func (s *Set) Len() int {
	return len(s.pre) + len(s.post) + len(s.onSuccess) + len(s.onFailure)
}

func (s *Set) log() *slog.Logger {
	if s.logger == nil {
		return logging.NewNop()
	}
	return s.logger
}

// RunPre runs every pre-hook in order and stops at the first failure.
func (s *Set) RunPre(ctx context.Context) error {
	return runAll(ctx, s.pre)
}

// RunPost runs the unconditional post-hooks, then the list matching outcome.
func (s *Set) RunPost(ctx context.Context, outcome domain.Outcome) error {
	if err := runAll(ctx, s.post); err != nil {
		return err
	}
	switch outcome {
	case domain.OutcomeSuccess:
		return runAll(ctx, s.onSuccess)
	case domain.OutcomeFailure:
		return runAll(ctx, s.onFailure)
	}
	return nil
}

// Wrap returns an Operation that runs the pre-hooks, then op, then the
// post-hooks keyed on op's outcome, then fin. A failing pre-hook is returned
// as is and nothing else runs. Post-hooks and fin run whether op failed or
// not; fin sees a failure if either op or a post-hook failed. All errors
// observed are returned together.
func (s *Set) Wrap(op Operation, fin Finalizer) Operation {
	return func(ctx context.Context) error {
		if err := s.RunPre(ctx); err != nil {
			s.log().Error("pre-hook failed", "err", err)
			return err
		}

		opErr := op(ctx)
		outcome := domain.OutcomeOf(opErr)

		postErr := s.RunPost(ctx, outcome)
		if postErr != nil {
			s.log().Error("post-hook failed", "outcome", outcome, "err", postErr)
			outcome = domain.OutcomeFailure
		}

		var finErr error
		if fin != nil {
			finErr = fin(ctx, outcome)
		}
		return join(opErr, postErr, finErr)
	}
}

func runAll(ctx context.Context, runners []Runner) error {
	for _, r := range runners {
		if err := r.Execute(ctx); err != nil {
			return err
		}
	}
	return nil
}

// join returns the single non-nil error untouched so callers can keep
// type-asserting it; several are combined with errors.Join.
func join(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	}
	return errors.Join(nonNil...)
}

// Parse builds a Set from the raw `prehook` and `posthook` lists of one
// scope. Every malformed entry is reported; the result is a
// *domain.AggregateError when more than one entry is wrong.
func Parse(key string, pre, post any, logger *slog.Logger, opts ...executor.Option) (*Set, error) {
	s := New(logger)
	var errs []error

	preList, err := asList(key+".prehook", pre)
	errs = append(errs, err)
	for i, raw := range preList {
		entryKey := fmt.Sprintf("%s.prehook[%d]", key, i)
		cfg, err := executor.ParseConfig(entryKey, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.AddPre(executor.New(cfg, withScope(opts, entryKey)...))
	}

	postList, err := asList(key+".posthook", post)
	errs = append(errs, err)
	for i, raw := range postList {
		entryKey := fmt.Sprintf("%s.posthook[%d]", key, i)
		m, ok := raw.(map[string]any)
		if !ok {
			errs = append(errs, domain.NewConfigError(entryKey, "hook must be a mapping", raw))
			continue
		}

		when := Always
		if v, ok := m[KeyCondition]; ok {
			tag, ok := v.(string)
			if !ok {
				errs = append(errs, domain.NewConfigError(entryKey+"."+KeyCondition, "must be one of always, success, failure", v))
				continue
			}
			when = When(tag)
			m = maps.Clone(m)
			delete(m, KeyCondition)
		}

		cfg, err := executor.ParseConfig(entryKey, m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.AddPost(when, executor.New(cfg, withScope(opts, entryKey)...)); err != nil {
			errs = append(errs, domain.NewConfigError(entryKey+"."+KeyCondition, "must be one of always, success, failure", string(when)))
		}
	}

	if err := domain.Collect(errs); err != nil {
		return nil, err
	}
	return s, nil
}

func asList(key string, raw any) ([]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		return v, nil
	case map[string]any:
		// A single hook written without the surrounding list.
		return []any{v}, nil
	}
	return nil, domain.NewConfigError(key, "must be a list of executors", raw)
}

func withScope(opts []executor.Option, scope string) []executor.Option {
	out := make([]executor.Option, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, executor.WithScope(scope))
}
