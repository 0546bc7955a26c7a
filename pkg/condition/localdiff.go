package condition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/expr"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// BranchGate restricts where a LocalDiff is evaluated.
type BranchGate struct {
	// Active disables the condition unless this branch is checked out.
	Active string
	// Target evaluates history as seen from this branch, checking it out
	// for the duration of the evaluation.
	Target string
}

// LocalDiff fires when tracked paths changed since the checkpointed revision.
type LocalDiff struct {
	id         string
	pipeID     string
	rules      []DiffRule
	branch     BranchGate
	expression *expr.Expr

	source   ports.ChangeSource
	logger   *slog.Logger
	hooks    domain.LifecycleHooks
	previous string // revision of the last persisted run, "" if none
	next     string // head when the condition was built

	result    *bool
	contents  map[string][]byte
	changedBy map[string][]string // path -> revisions it differs from head against
}

var _ ports.Conditional = (*LocalDiff)(nil)

// NewLocalDiff is the Factory of the "localdiff" type. It records the current
// head as the condition's next checkpoint, so it needs a working change
// source even when the condition is never evaluated.
func NewLocalDiff(ctx context.Context, spec Spec, deps Deps) (ports.Conditional, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("condition %s: no change source", spec.ID)
	}

	c := &LocalDiff{
		id:        spec.ID,
		pipeID:    deps.PipeID,
		source:    deps.Source,
		hooks:     deps.Hooks,
		logger:    deps.Logger.With("pipe", deps.PipeID, "condition", spec.ID),
		contents:  map[string][]byte{},
		changedBy: map[string][]string{},
	}
	if err := c.configure(spec); err != nil {
		return nil, err
	}
	c.previous = previousRevision(spec.Checkpoint, c.logger)

	head, err := deps.Source.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("condition %s: reading head: %w", spec.ID, err)
	}
	c.next = head
	return c, nil
}

func (c *LocalDiff) configure(spec Spec) error {
	var errs []error

	rawRules, present := spec.Raw["diff"]
	list, ok := rawRules.([]any)
	switch {
	case !present || rawRules == nil:
		errs = append(errs, domain.NewConfigError(spec.Key+".diff", "no diffs specified in the localdiff condition", nil))
	case !ok:
		errs = append(errs, domain.NewConfigError(spec.Key+".diff", "must be a list of diff rules", rawRules))
	}

	ids := map[string]bool{}
	for i, raw := range list {
		rule, err := parseRule(fmt.Sprintf("%s.diff[%d]", spec.Key, i), raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if rule.ID != "" {
			ids[rule.ID] = true
		}
		c.rules = append(c.rules, rule)
	}

	if rawBranch, present := spec.Raw["branch"]; present && rawBranch != nil {
		m, ok := rawBranch.(map[string]any)
		if !ok {
			errs = append(errs, domain.NewConfigError(spec.Key+".branch", "must be a mapping with active and/or target", rawBranch))
		} else {
			for _, field := range []struct {
				name string
				dst  *string
			}{{"active", &c.branch.Active}, {"target", &c.branch.Target}} {
				v, present := m[field.name]
				if !present || v == nil {
					continue
				}
				s, ok := v.(string)
				if !ok {
					errs = append(errs, domain.NewConfigError(spec.Key+".branch."+field.name, "must be a branch name", v))
					continue
				}
				*field.dst = s
			}
		}
	}

	if rawExpr, present := spec.Raw["expression"]; present && rawExpr != nil {
		source, ok := rawExpr.(string)
		if !ok {
			errs = append(errs, domain.NewConfigError(spec.Key+".expression", "must be a string", rawExpr))
		} else if compiled, err := expr.Compile(source); err != nil {
			errs = append(errs, domain.NewConfigError(spec.Key+".expression", err.Error(), source))
		} else {
			for _, name := range compiled.Variables() {
				if !ids[name] {
					errs = append(errs, domain.NewConfigError(spec.Key+".expression",
						fmt.Sprintf("references undeclared diff rule id %q", name), source))
				}
			}
			c.expression = compiled
		}
	}

	return domain.Collect(errs)
}

// previousRevision extracts the recorded revision; anything unexpected is
// treated as "never checkpointed".
func previousRevision(checkpoint any, logger *slog.Logger) string {
	if checkpoint == nil {
		return ""
	}
	m, ok := checkpoint.(map[string]any)
	if !ok {
		logger.Warn("ignoring malformed checkpoint", "value", checkpoint)
		return ""
	}
	rev, _ := m[domain.KeyCommit].(string)
	return rev
}

// ID returns the condition id.
func (c *LocalDiff) ID() string {
	return c.id
}

// Checkpoint returns {commit: <head at construction>}.
func (c *LocalDiff) Checkpoint() any {
	c.logger.Info("new checkpoint", "commit", c.next)
	return map[string]any{domain.KeyCommit: c.next}
}

// Evaluate resolves the condition once and caches the answer.
func (c *LocalDiff) Evaluate(ctx context.Context) (bool, error) {
	if c.result != nil {
		return *c.result, nil
	}

	triggered, err := c.evaluate(ctx)
	if err != nil {
		return false, err
	}
	c.result = &triggered
	c.hooks.ConditionResolved(ctx, &domain.ConditionEvent{
		EventBase:   domain.EventBase{Timestamp: time.Now()},
		PipeID:      c.pipeID,
		ConditionID: c.id,
		Triggered:   triggered,
	})
	return triggered, nil
}

func (c *LocalDiff) evaluate(ctx context.Context) (_ bool, err error) {
	if c.branch.Active == "" && c.branch.Target == "" {
		return c.hasDiff(ctx)
	}

	current, err := c.source.CurrentBranch(ctx)
	if err != nil {
		return false, err
	}
	if c.branch.Active != "" && current != c.branch.Active {
		c.logger.Info("not on active branch, condition disabled", "branch", current, "active", c.branch.Active)
		return false, nil
	}
	if c.branch.Target == "" || current == c.branch.Target {
		return c.hasDiff(ctx)
	}

	c.logger.Info("checking out target branch", "target", c.branch.Target)
	if err := c.source.Checkout(ctx, c.branch.Target); err != nil {
		return false, err
	}
	defer func() {
		if restoreErr := c.source.Checkout(ctx, current); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restoring branch %s: %w", current, restoreErr))
		}
	}()
	return c.hasDiff(ctx)
}

func (c *LocalDiff) hasDiff(ctx context.Context) (bool, error) {
	if c.previous == "" {
		c.logger.Warn("no checkpoint found, pipe will be executed")
		return true, nil
	}

	head, err := c.source.Head(ctx)
	if err != nil {
		return false, err
	}
	if err := c.collectChanges(ctx, head); err != nil {
		return false, err
	}

	if c.expression != nil {
		c.logger.Info("detecting through expression evaluation", "expression", c.expression.String())
		return c.matchExpression(ctx, head)
	}
	c.logger.Info("detecting any of the diffs")
	return c.matchAny(ctx, head)
}

// collectChanges walks history from head back to the checkpointed revision
// and records every path that differs between head and a visited commit.
func (c *LocalDiff) collectChanges(ctx context.Context, head string) error {
	found := false
	for rev, err := range c.source.Commits(ctx) {
		if err != nil {
			return err
		}
		files, err := c.source.ChangedFiles(ctx, rev, head)
		if err != nil {
			return err
		}
		for _, p := range files {
			c.changedBy[p] = append(c.changedBy[p], rev)
		}
		if rev == c.previous {
			found = true
			break
		}
	}
	if !found {
		c.logger.Warn("traversed all history, checkpoint commit not found", "commit", c.previous)
	}
	c.logger.Info("detected changes since last run", "paths", len(c.changedBy))
	return nil
}

func (c *LocalDiff) matchAny(ctx context.Context, head string) (bool, error) {
	for _, rule := range c.rules {
		ok, err := c.ruleMatches(ctx, head, rule)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (c *LocalDiff) matchExpression(ctx context.Context, head string) (bool, error) {
	vars := map[string]bool{}
	for _, rule := range c.rules {
		if rule.ID == "" {
			continue
		}
		ok, err := c.ruleMatches(ctx, head, rule)
		if err != nil {
			return false, err
		}
		vars[rule.ID] = vars[rule.ID] || ok
	}
	return c.expression.Eval(vars)
}

func (c *LocalDiff) ruleMatches(ctx context.Context, head string, rule DiffRule) (bool, error) {
	if !rule.selects() {
		return false, nil
	}
	for path, revs := range c.changedBy {
		if !rule.matchesPath(path) {
			continue
		}
		c.logger.Debug("path rule matches", "rule", rule.String(), "path", path)
		if rule.content == nil {
			return true, nil
		}
		for _, rev := range revs {
			ok, err := c.contentMatches(ctx, head, rev, path, rule)
			if err != nil || ok {
				return ok, err
			}
		}
	}
	return false, nil
}

func (c *LocalDiff) contentMatches(ctx context.Context, head, rev, path string, rule DiffRule) (bool, error) {
	newer, err := c.content(ctx, head, path)
	if err != nil {
		return false, err
	}
	older, err := c.content(ctx, rev, path)
	if err != nil {
		return false, err
	}
	for _, line := range addedLines(newer, older) {
		if rule.content.MatchString(line) {
			c.logger.Debug("content rule matches", "rule", rule.String(), "path", path, "line", line)
			return true, nil
		}
	}
	return false, nil
}

func (c *LocalDiff) content(ctx context.Context, rev, path string) ([]byte, error) {
	key := rev + ":" + path
	if data, ok := c.contents[key]; ok {
		return data, nil
	}
	data, err := c.source.FileContent(ctx, rev, path)
	if err != nil {
		return nil, err
	}
	c.contents[key] = data
	return data, nil
}
