package cli

import (
	"context"

	"github.com/plumber-ci/plumber/internal/presentation/tui"
)

// Init seeds the checkpoint with the current state of every pipe.
func Init(ctx context.Context, opts RunOptions, force bool) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	if err := s.engine.InitCheckpoint(ctx, force); err != nil {
		s.logger.Error("checkpoint initialization failed", "err", err)
		return err
	}
	s.printer.Println(s.printer.Divided("Checkpoint initialized"))
	return nil
}

// Status prints which pipes would run, without running them.
func Status(ctx context.Context, opts RunOptions) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	report, err := s.engine.Analyze(ctx)
	if err != nil {
		s.logger.Error("analysis failed", "err", err)
		return err
	}
	s.printer.Report("Final Report", tui.AnalysisMarkdown(report))
	return nil
}

// Go runs every triggered pipe. The report is printed even when the run
// fails, as long as the planner got to start it.
func Go(ctx context.Context, opts RunOptions, persist bool) error {
	s, err := newSession(ctx, opts)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	records, err := s.engine.Execute(ctx, persist)
	if records != nil {
		s.printer.Report("Final Report", tui.ExecutionMarkdown(records))
	}
	if err != nil {
		s.logger.Error("execution failed", "err", err)
		return err
	}
	return nil
}
