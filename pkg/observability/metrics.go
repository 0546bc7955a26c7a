package observability

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// Job is the Pushgateway job name of every pushed run.
const Job = "plumber"

// Metrics holds the collectors fed by LifecycleHooks.
type Metrics struct {
	registry *prometheus.Registry

	steps        *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	pipes        *prometheus.CounterVec
	runs         *prometheus.CounterVec
	saves        prometheus.Counter
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plumber_steps_total",
				Help: "Total number of executed steps",
			},
			[]string{"scope", "result"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plumber_step_duration_seconds",
				Help:    "Duration of step executions",
				Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
			},
			[]string{"scope"},
		),
		pipes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plumber_pipes_total",
				Help: "Pipes leaving the planner, by final status",
			},
			[]string{"status"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plumber_runs_total",
				Help: "Planner runs by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		saves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "plumber_checkpoint_saves_total",
			Help: "Checkpoint documents persisted",
		}),
	}
	m.registry.MustRegister(m.steps, m.stepDuration, m.pipes, m.runs, m.saves)
	return m
}

// Registry exposes the registry, e.g. for promhttp or tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle callbacks that record every event.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepFinish: func(_ context.Context, e *domain.StepEvent) {
			m.steps.WithLabelValues(e.Scope, string(domain.OutcomeOf(stepErr(e.Result)))).Inc()
			m.stepDuration.WithLabelValues(e.Scope).Observe(e.Result.Duration.Seconds())
		},
		OnPipeFinish: func(_ context.Context, e *domain.PipeEvent) {
			m.pipes.WithLabelValues(string(e.Status)).Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Mode), string(e.Outcome)).Inc()
		},
		OnCheckpointSave: func(context.Context, *domain.CheckpointEvent) {
			m.saves.Inc()
		},
	}
}

func stepErr(r domain.StepResult) error {
	if r.Succeeded() {
		return nil
	}
	return fmt.Errorf("exit code %d", r.ExitCode)
}

// Push sends the current values to the Pushgateway at url, replacing the
// metrics previously pushed for the same run id.
func (m *Metrics) Push(ctx context.Context, url, runID string) error {
	pusher := push.New(url, Job).Gatherer(m.registry)
	if runID != "" {
		pusher = pusher.Grouping("run_id", runID)
	}
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}
