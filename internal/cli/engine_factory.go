package cli

import (
	"context"
	"log/slog"

	"github.com/plumber-ci/plumber"
	"github.com/plumber-ci/plumber/pkg/domain"
)

// createEngine loads the configuration with the standard CLI conventions.
func createEngine(ctx context.Context, opts RunOptions, logger *slog.Logger, hooks domain.LifecycleHooks) (*plumber.Engine, error) {
	engineOpts := []plumber.Option{
		plumber.WithLogger(logger),
		plumber.WithLifecycleHooks(hooks),
	}
	if opts.WorkDir != "" {
		engineOpts = append(engineOpts, plumber.WithWorkDir(opts.WorkDir))
	}
	return plumber.New(ctx, opts.ConfigPath, engineOpts...)
}
