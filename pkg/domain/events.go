package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepFinish       EventType = "step_finish"
	EventPipeFinish       EventType = "pipe_finish"
	EventRunFinish        EventType = "run_finish"
	EventCheckpointSave   EventType = "checkpoint_save"
	EventConditionResolve EventType = "condition_resolve"
)

// RunMode names the planner entry point that produced a run.
type RunMode string

const (
	ModeAnalyze RunMode = "analyze"
	ModeExecute RunMode = "execute"
	ModeInit    RunMode = "init"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
}

// StepEvent is emitted after every shell invocation, successful or not.
type StepEvent struct {
	EventBase
	Scope  string     `json:"scope"` // Config path of the executor, e.g. "global.prehook[0]"
	Result StepResult `json:"result"`
}

// ConditionEvent is emitted when a condition resolves its result.
type ConditionEvent struct {
	EventBase
	PipeID      string `json:"pipe_id"`
	ConditionID string `json:"condition_id"`
	Triggered   bool   `json:"triggered"`
}

// PipeEvent is emitted when a pipe leaves the planner loop.
type PipeEvent struct {
	EventBase
	PipeID   string        `json:"pipe_id"`
	Status   PipeStatus    `json:"status"`
	Duration time.Duration `json:"duration"`
}

// RunEvent is emitted once per planner entry point.
type RunEvent struct {
	EventBase
	Mode      RunMode       `json:"mode"`
	Outcome   Outcome       `json:"outcome"`
	Records   []PipeRecord  `json:"records,omitempty"`
	Persisted bool          `json:"persisted"`
	Duration  time.Duration `json:"duration"`
}

// CheckpointEvent is emitted after the checkpoint document was saved.
type CheckpointEvent struct {
	EventBase
	Store string   `json:"store"`
	Pipes []string `json:"pipes"`
	Info  string   `json:"info,omitempty"`
}

// LifecycleHooks defines callbacks for planner observability.
// Nil callbacks are skipped.
type LifecycleHooks struct {
	OnStepFinish       func(context.Context, *StepEvent)
	OnConditionResolve func(context.Context, *ConditionEvent)
	OnPipeFinish       func(context.Context, *PipeEvent)
	OnRunFinish        func(context.Context, *RunEvent)
	OnCheckpointSave   func(context.Context, *CheckpointEvent)
}

// StepFinished invokes OnStepFinish if set.
func (h LifecycleHooks) StepFinished(ctx context.Context, e *StepEvent) {
	if h.OnStepFinish != nil {
		e.Type = EventStepFinish
		h.OnStepFinish(ctx, e)
	}
}

// ConditionResolved invokes OnConditionResolve if set.
func (h LifecycleHooks) ConditionResolved(ctx context.Context, e *ConditionEvent) {
	if h.OnConditionResolve != nil {
		e.Type = EventConditionResolve
		h.OnConditionResolve(ctx, e)
	}
}

// PipeFinished invokes OnPipeFinish if set.
func (h LifecycleHooks) PipeFinished(ctx context.Context, e *PipeEvent) {
	if h.OnPipeFinish != nil {
		e.Type = EventPipeFinish
		h.OnPipeFinish(ctx, e)
	}
}

// RunFinished invokes OnRunFinish if set.
func (h LifecycleHooks) RunFinished(ctx context.Context, e *RunEvent) {
	if h.OnRunFinish != nil {
		e.Type = EventRunFinish
		h.OnRunFinish(ctx, e)
	}
}

// CheckpointSaved invokes OnCheckpointSave if set.
func (h LifecycleHooks) CheckpointSaved(ctx context.Context, e *CheckpointEvent) {
	if h.OnCheckpointSave != nil {
		e.Type = EventCheckpointSave
		h.OnCheckpointSave(ctx, e)
	}
}

// Merge combines two hook sets; both callbacks fire when both are set.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepFinish:       chain(h.OnStepFinish, other.OnStepFinish),
		OnConditionResolve: chain(h.OnConditionResolve, other.OnConditionResolve),
		OnPipeFinish:       chain(h.OnPipeFinish, other.OnPipeFinish),
		OnRunFinish:        chain(h.OnRunFinish, other.OnRunFinish),
		OnCheckpointSave:   chain(h.OnCheckpointSave, other.OnCheckpointSave),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
