package observability

import (
	"context"
	"log/slog"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// LogHooks returns lifecycle callbacks that log each event at debug level,
// failures at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepFinish: func(ctx context.Context, e *domain.StepEvent) {
			level := slog.LevelDebug
			if !e.Result.Succeeded() {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "step_finish",
				"scope", e.Scope,
				"exit_code", e.Result.ExitCode,
				"duration", e.Result.Duration,
			)
		},
		OnConditionResolve: func(ctx context.Context, e *domain.ConditionEvent) {
			logger.DebugContext(ctx, "condition_resolve",
				"pipe", e.PipeID,
				"condition", e.ConditionID,
				"triggered", e.Triggered,
			)
		},
		OnPipeFinish: func(ctx context.Context, e *domain.PipeEvent) {
			level := slog.LevelDebug
			if e.Status == domain.StatusFailed {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "pipe_finish", "pipe", e.PipeID, "status", e.Status, "duration", e.Duration)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.DebugContext(ctx, "run_finish",
				"mode", e.Mode,
				"outcome", e.Outcome,
				"persisted", e.Persisted,
				"duration", e.Duration,
			)
		},
		OnCheckpointSave: func(ctx context.Context, e *domain.CheckpointEvent) {
			logger.DebugContext(ctx, "checkpoint_save", "store", e.Store, "pipes", e.Pipes)
		},
	}
}
