package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/domain"
)

type recorder struct {
	calls *[]string
	name  string
	err   error
}

func (r recorder) Execute(context.Context) error {
	*r.calls = append(*r.calls, r.name)
	return r.err
}

func newSet(t *testing.T, calls *[]string, failing ...string) *Set {
	t.Helper()
	fail := func(name string) error {
		for _, f := range failing {
			if f == name {
				return errors.New(name + " failed")
			}
		}
		return nil
	}

	s := New(logging.NewNop())
	s.AddPre(recorder{calls, "pre", fail("pre")})
	require.NoError(t, s.AddPost(Always, recorder{calls, "post", fail("post")}))
	require.NoError(t, s.AddPost(OnSuccess, recorder{calls, "success", fail("success")}))
	require.NoError(t, s.AddPost(OnFailure, recorder{calls, "failure", fail("failure")}))
	return s
}

func TestWrap_Success(t *testing.T) {
	var calls []string
	s := newSet(t, &calls)

	var seen domain.Outcome
	op := s.Wrap(func(context.Context) error {
		calls = append(calls, "op")
		return nil
	}, func(_ context.Context, o domain.Outcome) error {
		seen = o
		calls = append(calls, "finalizer")
		return nil
	})

	require.NoError(t, op(context.Background()))
	assert.Equal(t, []string{"pre", "op", "post", "success", "finalizer"}, calls)
	assert.Equal(t, domain.OutcomeSuccess, seen)
}

func TestWrap_OperationFailure(t *testing.T) {
	var calls []string
	s := newSet(t, &calls)
	boom := errors.New("boom")

	var seen domain.Outcome
	err := s.Wrap(func(context.Context) error {
		calls = append(calls, "op")
		return boom
	}, func(_ context.Context, o domain.Outcome) error {
		seen = o
		return nil
	})(context.Background())

	assert.Same(t, boom, err, "the operation error is returned untouched")
	assert.Equal(t, []string{"pre", "op", "post", "failure"}, calls)
	assert.Equal(t, domain.OutcomeFailure, seen)
}

func TestWrap_PreHookFailure(t *testing.T) {
	var calls []string
	s := newSet(t, &calls, "pre")

	finalized := false
	err := s.Wrap(func(context.Context) error {
		calls = append(calls, "op")
		return nil
	}, func(context.Context, domain.Outcome) error {
		finalized = true
		return nil
	})(context.Background())

	assert.EqualError(t, err, "pre failed")
	assert.Equal(t, []string{"pre"}, calls)
	assert.False(t, finalized)
}

func TestWrap_PostHookFailure(t *testing.T) {
	var calls []string
	s := newSet(t, &calls, "post")

	var seen domain.Outcome
	err := s.Wrap(func(context.Context) error { return nil },
		func(_ context.Context, o domain.Outcome) error {
			seen = o
			return nil
		})(context.Background())

	assert.EqualError(t, err, "post failed")
	assert.Equal(t, domain.OutcomeFailure, seen)
	assert.Equal(t, []string{"pre", "post"}, calls, "outcome lists are skipped after an unconditional hook fails")
}

func TestWrap_CombinesErrors(t *testing.T) {
	var calls []string
	s := newSet(t, &calls, "failure")
	opErr := errors.New("op failed")
	finErr := errors.New("save failed")

	err := s.Wrap(func(context.Context) error { return opErr },
		func(context.Context, domain.Outcome) error { return finErr })(context.Background())

	assert.ErrorIs(t, err, opErr)
	assert.ErrorIs(t, err, finErr)
	assert.ErrorContains(t, err, "failure failed")
}

func TestWrap_EmptySet(t *testing.T) {
	var s Set
	ran := false
	require.NoError(t, s.Wrap(func(context.Context) error {
		ran = true
		return nil
	}, nil)(context.Background()))
	assert.True(t, ran)
}

func TestParse(t *testing.T) {
	s, err := Parse("global",
		[]any{map[string]any{"steps": []any{"echo pre"}}},
		[]any{
			map[string]any{"steps": []any{"echo always"}},
			map[string]any{"steps": []any{"echo ok"}, "condition": "success"},
			map[string]any{"steps": []any{"echo ko"}, "condition": "failure"},
			map[string]any{"steps": []any{"echo explicit"}, "condition": "always"},
		}, logging.NewNop())
	require.NoError(t, err)

	assert.Len(t, s.pre, 1)
	assert.Len(t, s.post, 2)
	assert.Len(t, s.onSuccess, 1)
	assert.Len(t, s.onFailure, 1)
	assert.Equal(t, 5, s.Len())
}

func TestParse_SingleMapping(t *testing.T) {
	s, err := Parse("pipes[0]", map[string]any{"steps": []any{"echo pre"}}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestParse_CollectsErrors(t *testing.T) {
	_, err := Parse("global",
		[]any{"echo not-a-mapping"},
		[]any{
			map[string]any{"steps": []any{"x"}, "condition": "sometimes"},
			map[string]any{"condition": "success"},
			map[string]any{"steps": []any{"x"}, "condition": 3},
		}, nil)

	keys := []string{}
	for _, ce := range domain.ConfigErrors(err) {
		keys = append(keys, ce.Key)
	}
	assert.Equal(t, []string{
		"global.prehook[0]",
		"global.posthook[0].condition",
		"global.posthook[1].steps",
		"global.posthook[2].condition",
	}, keys)
}

func TestParse_NotAList(t *testing.T) {
	_, err := Parse("global", "echo", nil, nil)

	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "global.prehook", ce.Key)
}

func TestParse_UnknownPostHookKey(t *testing.T) {
	_, err := Parse("global", nil, []any{
		map[string]any{"steps": []any{"echo ko"}, "when": "failure"},
	}, nil)

	var ce *domain.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "global.posthook[0]", ce.Key)
	assert.Contains(t, ce.Error(), "when")
}
