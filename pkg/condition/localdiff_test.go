package condition

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/internal/testutils"
	"github.com/plumber-ci/plumber/pkg/adapters/git"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// newSource returns a fake with history c3 (head), c2, c1 where c1 is the
// usual checkpoint.
func newSource() *testutils.FakeChangeSource {
	src := testutils.NewFakeChangeSource("c3", "c2", "c1")
	src.Changes["c3..c3"] = nil
	src.Changes["c2..c3"] = []string{"mypath/file1"}
	src.Changes["c1..c3"] = []string{"mypath/file1", "path1/file1"}
	return src
}

func checkpointAt(rev string) any {
	return map[string]any{domain.KeyCommit: rev}
}

func build(t *testing.T, src ports.ChangeSource, raw map[string]any, checkpoint any) ports.Conditional {
	t.Helper()
	cond, err := tryBuild(src, raw, checkpoint)
	require.NoError(t, err)
	return cond
}

func tryBuild(src ports.ChangeSource, raw map[string]any, checkpoint any) (ports.Conditional, error) {
	raw["id"] = "conditional"
	spec, err := ParseSpec("pipes[0].conditions[0]", raw, domain.PipeCheckpoint{"conditional": checkpoint})
	if err != nil {
		return nil, err
	}
	return DefaultRegistry().Build(context.Background(), spec, Deps{PipeID: "pipe", Source: src})
}

func rules(rs ...map[string]any) []any {
	out := make([]any, len(rs))
	for i, r := range rs {
		out[i] = r
	}
	return out
}

func TestLocalDiff_NoCheckpointTriggers(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{"diff": rules(map[string]any{"path": "nothing-matches/"})}, nil)

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, src.CallCount("Commits"), "history is not walked without a checkpoint")
}

func TestLocalDiff_EmptyCheckpointTriggers(t *testing.T) {
	cond := build(t, newSource(), map[string]any{"diff": rules(map[string]any{"path": "x"})}, map[string]any{})

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalDiff_AnyMode(t *testing.T) {
	tests := []struct {
		name string
		rule map[string]any
		want bool
	}{
		{"PathMatches", map[string]any{"path": "mypath/.*"}, true},
		{"PathIsAnchored", map[string]any{"path": "file1"}, false},
		{"PrefixIsEnough", map[string]any{"path": "path1/"}, true},
		{"GlobMatches", map[string]any{"glob": "mypath/*"}, true},
		{"GlobNoMatch", map[string]any{"glob": "*.md"}, false},
		{"NoSelector", map[string]any{"id": "a", "file": "mypath/.*"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := build(t, newSource(), map[string]any{"diff": rules(tt.rule)}, checkpointAt("c1"))
			ok, err := cond.Evaluate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestLocalDiff_StopsAtCheckpoint(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{"diff": rules(map[string]any{"path": "path1/"})}, checkpointAt("c2"))

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "path1 only changed before the checkpoint")
	assert.Equal(t, 2, src.CallCount("ChangedFiles"))
}

func TestLocalDiff_CheckpointNotInHistory(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{"diff": rules(map[string]any{"path": "path1/"})}, checkpointAt("rewritten"))

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok, "the whole history counts as changed")
	assert.Equal(t, 3, src.CallCount("ChangedFiles"))
}

func TestLocalDiff_Expression(t *testing.T) {
	diff := rules(
		map[string]any{"id": "a", "path": "mypath/.*"},
		map[string]any{"id": "b", "path": "elsewhere/"},
	)

	for expression, want := range map[string]bool{
		"a and b":     false,
		"a or b":      true,
		"a and not b": true,
		"not a":       false,
	} {
		t.Run(expression, func(t *testing.T) {
			cond := build(t, newSource(), map[string]any{"diff": diff, "expression": expression}, checkpointAt("c1"))
			ok, err := cond.Evaluate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, want, ok)
		})
	}
}

func TestLocalDiff_ExpressionRuleWithoutPathIsFalse(t *testing.T) {
	cond := build(t, newSource(), map[string]any{
		"diff":       rules(map[string]any{"id": "a"}),
		"expression": "not a",
	}, checkpointAt("c1"))

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalDiff_Content(t *testing.T) {
	src := newSource()
	src.Contents["c3:mypath/file1"] = "name: app\nversion: 2.0.0\n"
	src.Contents["c1:mypath/file1"] = "name: app\nversion: 1.0.0\n"
	src.Contents["c2:mypath/file1"] = "name: app\nversion: 1.5.0\n"

	tests := []struct {
		content string
		want    bool
	}{
		{"version: 2", true},
		// unchanged line
		{"name:", false},
		// anchored at line start
		{"2\\.0", false},
		// removed lines do not count
		{"version: 1", false},
	}

	for _, tt := range tests {
		t.Run(tt.content, func(t *testing.T) {
			cond := build(t, src, map[string]any{
				"diff": rules(map[string]any{"path": "mypath/", "content": tt.content}),
			}, checkpointAt("c1"))
			ok, err := cond.Evaluate(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestLocalDiff_ContentOfDeletedFile(t *testing.T) {
	src := newSource()
	src.Contents["c1:mypath/file1"] = "version: 1\n"

	cond := build(t, src, map[string]any{
		"diff": rules(map[string]any{"path": "mypath/", "content": "version"}),
	}, checkpointAt("c1"))
	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalDiff_ActiveBranchGate(t *testing.T) {
	src := newSource()
	src.Branch = "feature"
	cond := build(t, src, map[string]any{
		"diff":   rules(map[string]any{"path": ".*"}),
		"branch": map[string]any{"active": "main"},
	}, checkpointAt("c1"))

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, src.CallCount("Commits"))
	assert.Zero(t, src.CallCount("ChangedFiles"))
}

func TestLocalDiff_TargetBranch(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{
		"diff":   rules(map[string]any{"path": "mypath/"}),
		"branch": map[string]any{"active": "main", "target": "testing"},
	}, checkpointAt("c1"))

	ok, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"testing", "main"}, src.Checkouts)
	assert.Equal(t, "main", src.Branch)
}

func TestLocalDiff_TargetBranchRestoredOnError(t *testing.T) {
	src := newSource()
	boom := errors.New("diff exploded")
	src.Errs["ChangedFiles"] = boom
	cond := build(t, src, map[string]any{
		"diff":   rules(map[string]any{"path": "mypath/"}),
		"branch": map[string]any{"target": "testing"},
	}, checkpointAt("c1"))

	_, err := cond.Evaluate(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"testing", "main"}, src.Checkouts)
	assert.Equal(t, "main", src.Branch)
}

func TestLocalDiff_TargetIsCurrentBranch(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{
		"diff":   rules(map[string]any{"path": "mypath/"}),
		"branch": map[string]any{"target": "main"},
	}, checkpointAt("c1"))

	_, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, src.Checkouts)
}

func TestLocalDiff_Memoized(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{"diff": rules(map[string]any{"path": "mypath/"})}, checkpointAt("c1"))

	first, err := cond.Evaluate(context.Background())
	require.NoError(t, err)
	src.Changes = map[string][]string{}
	second, err := cond.Evaluate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.CallCount("Commits"))
}

func TestLocalDiff_CheckpointCapturedAtConstruction(t *testing.T) {
	src := newSource()
	cond := build(t, src, map[string]any{"diff": rules(map[string]any{"path": "x"})}, nil)

	src.History = append([]string{"c4"}, src.History...)
	assert.Equal(t, map[string]any{domain.KeyCommit: "c3"}, cond.Checkpoint())
	assert.Equal(t, "conditional", cond.ID())
}

func TestLocalDiff_ConstructionNeedsHead(t *testing.T) {
	src := newSource()
	src.Errs["Head"] = errors.New("not a git repository")
	_, err := tryBuild(src, map[string]any{"diff": rules()}, nil)
	assert.ErrorContains(t, err, "not a git repository")
}

func TestLocalDiff_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		key  string
	}{
		{"MissingDiff", map[string]any{}, "pipes[0].conditions[0].diff"},
		{"DiffNotAList", map[string]any{"diff": map[string]any{}}, "pipes[0].conditions[0].diff"},
		{"RuleNotAMapping", map[string]any{"diff": []any{"mypath/.*"}}, "pipes[0].conditions[0].diff[0]"},
		{"RuleFieldType", map[string]any{"diff": []any{map[string]any{"path": 3}}}, "pipes[0].conditions[0].diff[0]"},
		{"BadRegexp", map[string]any{"diff": rules(map[string]any{"path": "("})}, "pipes[0].conditions[0].diff[0].path"},
		{"BadContent", map[string]any{"diff": rules(map[string]any{"path": "a", "content": "[z-a]"})}, "pipes[0].conditions[0].diff[0].content"},
		{"BranchNotAMapping", map[string]any{"diff": rules(), "branch": "main"}, "pipes[0].conditions[0].branch"},
		{"BranchNameType", map[string]any{"diff": rules(), "branch": map[string]any{"active": 1}}, "pipes[0].conditions[0].branch.active"},
		{"ExpressionType", map[string]any{"diff": rules(), "expression": []any{"a and b"}}, "pipes[0].conditions[0].expression"},
		{"ExpressionSyntax", map[string]any{"diff": rules(map[string]any{"id": "a", "path": "x"}), "expression": "a and"}, "pipes[0].conditions[0].expression"},
		{"UndeclaredRuleID", map[string]any{"diff": rules(map[string]any{"id": "b", "path": "x"}), "expression": "a"}, "pipes[0].conditions[0].expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tryBuild(newSource(), tt.raw, checkpointAt("c1"))

			errs := domain.ConfigErrors(err)
			require.NotEmpty(t, errs, "expected a ConfigError, got %v", err)
			assert.Equal(t, tt.key, errs[0].Key)
		})
	}
}

func TestLocalDiff_ConditionEvent(t *testing.T) {
	var events []*domain.ConditionEvent
	spec, err := ParseSpec("c", map[string]any{"id": "src", "diff": rules(map[string]any{"path": "x"})}, nil)
	require.NoError(t, err)

	cond, err := DefaultRegistry().Build(context.Background(), spec, Deps{
		PipeID: "build",
		Source: newSource(),
		Hooks: domain.LifecycleHooks{OnConditionResolve: func(_ context.Context, e *domain.ConditionEvent) {
			events = append(events, e)
		}},
	})
	require.NoError(t, err)

	_, err = cond.Evaluate(context.Background())
	require.NoError(t, err)
	_, err = cond.Evaluate(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "build", events[0].PipeID)
	assert.Equal(t, "src", events[0].ConditionID)
	assert.True(t, events[0].Triggered)
}

func TestLocalDiff_GitRepository(t *testing.T) {
	fixture := testutils.SetupGitRepo(t)
	repo := git.NewRepository(fixture.Dir)
	ctx := context.Background()
	raw := func() map[string]any {
		return map[string]any{"diff": rules(
			map[string]any{"path": "services/api/"},
			map[string]any{"path": "VERSION", "content": "2\\."},
		)}
	}

	// Baseline: nothing changed since the checkpoint.
	baseline := build(t, repo, raw(), nil).Checkpoint()
	ok, err := build(t, repo, raw(), baseline).Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fixture.WriteFile("docs/readme.md", "unrelated\n")
	fixture.Commit("docs")
	ok, err = build(t, repo, raw(), baseline).Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fixture.WriteFile("VERSION", "1.0\n")
	fixture.Commit("version 1")
	ok, err = build(t, repo, raw(), baseline).Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "content rule wants a 2.x line")

	fixture.WriteFile("services/api/main.go", "package main\n")
	fixture.Commit("api")
	ok, err = build(t, repo, raw(), baseline).Evaluate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	moved := build(t, repo, raw(), nil).Checkpoint()
	ok, err = build(t, repo, raw(), moved).Evaluate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
