package testutils

import (
	"context"
	"fmt"
	"iter"
	"sync"
)

// FakeChangeSource is an in-memory ports.ChangeSource. Revisions are listed
// newest first; Changes maps "from..to" to the paths changed between them
// and Contents maps "rev:path" to file content.
type FakeChangeSource struct {
	mu        sync.Mutex
	Branch    string
	History   []string
	Changes   map[string][]string
	Contents  map[string]string
	Calls     map[string]int
	Checkouts []string
	Err       error            // returned by every method
	Errs      map[string]error // per method name, checked before Err
}

// NewFakeChangeSource returns a fake on branch main with the given history.
func NewFakeChangeSource(history ...string) *FakeChangeSource {
	return &FakeChangeSource{
		Branch:   "main",
		History:  history,
		Changes:  map[string][]string{},
		Contents: map[string]string{},
		Calls:    map[string]int{},
		Errs:     map[string]error{},
	}
}

func (f *FakeChangeSource) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[name]++
	if err, ok := f.Errs[name]; ok {
		return err
	}
	return f.Err
}

// CallCount returns how often a method ran.
func (f *FakeChangeSource) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[name]
}

func (f *FakeChangeSource) CurrentBranch(context.Context) (string, error) {
	if err := f.record("CurrentBranch"); err != nil {
		return "", err
	}
	return f.Branch, nil
}

func (f *FakeChangeSource) Checkout(_ context.Context, ref string) error {
	if err := f.record("Checkout"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Checkouts = append(f.Checkouts, ref)
	f.Branch = ref
	return nil
}

func (f *FakeChangeSource) Head(context.Context) (string, error) {
	if err := f.record("Head"); err != nil {
		return "", err
	}
	if len(f.History) == 0 {
		return "", fmt.Errorf("empty history")
	}
	return f.History[0], nil
}

func (f *FakeChangeSource) Commits(context.Context) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := f.record("Commits"); err != nil {
			yield("", err)
			return
		}
		for _, rev := range f.History {
			if !yield(rev, nil) {
				return
			}
		}
	}
}

func (f *FakeChangeSource) ChangedFiles(_ context.Context, from, to string) ([]string, error) {
	if err := f.record("ChangedFiles"); err != nil {
		return nil, err
	}
	return f.Changes[from+".."+to], nil
}

func (f *FakeChangeSource) FileContent(_ context.Context, rev, path string) ([]byte, error) {
	if err := f.record("FileContent"); err != nil {
		return nil, err
	}
	content, ok := f.Contents[rev+":"+path]
	if !ok {
		return nil, nil
	}
	return []byte(content), nil
}

// StaticCondition is a ports.Conditional with a fixed result. It counts
// evaluations and can be made to fail.
type StaticCondition struct {
	Name  string
	Value bool
	Err   error
	Next  any

	mu    sync.Mutex
	evals int
}

func (s *StaticCondition) ID() string { return s.Name }

func (s *StaticCondition) Evaluate(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evals++
	return s.Value, s.Err
}

func (s *StaticCondition) Checkpoint() any { return s.Next }

// Evaluations returns how often Evaluate ran.
func (s *StaticCondition) Evaluations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evals
}
