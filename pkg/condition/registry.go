package condition

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

// TypeLocalDiff is the tag of the built-in change condition and the type
// assumed when a condition omits `type`.
const TypeLocalDiff = "localdiff"

// Deps carries the collaborators a condition may need.
type Deps struct {
	PipeID string
	Source ports.ChangeSource
	Logger *slog.Logger
	Hooks  domain.LifecycleHooks
}

// Spec is one decoded condition entry.
type Spec struct {
	Key        string         // Config path used in error reports
	ID         string         // Unique within the pipe
	Type       string         // Registry tag
	Raw        map[string]any // Full entry, type-specific fields included
	Checkpoint any            // Value recorded for ID on the last persisted run, nil if none
}

// Factory builds a condition of one type.
type Factory func(ctx context.Context, spec Spec, deps Deps) (ports.Conditional, error)

// Registry manages the available condition types.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// DefaultRegistry returns a registry holding the built-in types.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(TypeLocalDiff, NewLocalDiff)
	return r
}

// Register adds a condition type.
// If a type with the same tag exists, it is overwritten.
func (r *Registry) Register(tag string, fn Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[tag] = fn
}

// Types returns the registered tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// ParseSpec validates the common fields of a raw condition entry.
func ParseSpec(key string, raw any, checkpoint domain.PipeCheckpoint) (Spec, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Spec{}, domain.NewConfigError(key, "condition must be a mapping", raw)
	}

	id, ok := m["id"].(string)
	if !ok || id == "" {
		return Spec{}, domain.NewConfigError(key+".id", "condition id is required", m["id"])
	}

	tag := TypeLocalDiff
	if v, present := m["type"]; present && v != nil {
		s, ok := v.(string)
		if !ok {
			return Spec{}, domain.NewConfigError(key+".type", "must be a string", v)
		}
		if s != "" {
			tag = s
		}
	}

	return Spec{Key: key, ID: id, Type: tag, Raw: m, Checkpoint: checkpoint[id]}, nil
}

// Build constructs the condition described by spec.
func (r *Registry) Build(ctx context.Context, spec Spec, deps Deps) (ports.Conditional, error) {
	r.mu.RLock()
	fn, ok := r.factories[spec.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, domain.NewConfigError(spec.Key+".type",
			fmt.Sprintf("unknown condition type %q (known: %v)", spec.Type, r.Types()), nil)
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	return fn(ctx, spec, deps)
}
