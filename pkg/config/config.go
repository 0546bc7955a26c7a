package config

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// Config is the decoded top level of a configuration file.
type Config struct {
	Global Global     `mapstructure:"global"`
	Pipes  []PipeSpec `mapstructure:"pipes"`
}

// Global holds run-wide settings.
type Global struct {
	Checkpointing Checkpointing `mapstructure:"checkpointing"`
	PreHook       any           `mapstructure:"prehook"`
	PostHook      any           `mapstructure:"posthook"`
}

// Checkpointing selects the checkpoint store and persistence granularity.
type Checkpointing struct {
	Unit   domain.CheckpointUnit `mapstructure:"unit"`
	Type   string                `mapstructure:"type"`
	Config map[string]any        `mapstructure:"config"`
}

// PipeSpec is one entry of `pipes`. Conditions, actions and hooks stay raw
// and are validated by the components that own them.
type PipeSpec struct {
	ID         string `mapstructure:"id"`
	Expression string `mapstructure:"expression"`
	Conditions []any  `mapstructure:"conditions"`
	Actions    any    `mapstructure:"actions"`
	PreHook    any    `mapstructure:"prehook"`
	PostHook   any    `mapstructure:"posthook"`
}

// Key returns the config path of the pipe at index i.
func Key(i int) string {
	return fmt.Sprintf("pipes[%d]", i)
}

// Decode converts a loaded mapping into a Config. Every shape error is
// collected; the result is a *domain.AggregateError when there is more than
// one.
func Decode(raw map[string]any) (*Config, error) {
	cfg := &Config{}
	var errs []error

	if g, present := raw["global"]; present && g != nil {
		gm, ok := g.(map[string]any)
		if !ok {
			errs = append(errs, domain.NewConfigError("global", "must be a mapping", g))
		} else if err := decodeInto("global", gm, &cfg.Global); err != nil {
			errs = append(errs, err)
		}
	}

	switch cfg.Global.Checkpointing.Unit {
	case "":
		cfg.Global.Checkpointing.Unit = domain.UnitSingle
	case domain.UnitSingle, domain.UnitPipe:
	default:
		errs = append(errs, domain.NewConfigError("global.checkpointing.unit",
			"must be single or pipe", string(cfg.Global.Checkpointing.Unit)))
	}

	if p, present := raw["pipes"]; present && p != nil {
		list, ok := p.([]any)
		if !ok {
			errs = append(errs, domain.NewConfigError("pipes", "must be a list of pipes", p))
		}
		for i, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				errs = append(errs, domain.NewConfigError(Key(i), "pipe must be a mapping", entry))
				cfg.Pipes = append(cfg.Pipes, PipeSpec{})
				continue
			}
			var spec PipeSpec
			if err := decodeInto(Key(i), m, &spec); err != nil {
				errs = append(errs, err)
			}
			cfg.Pipes = append(cfg.Pipes, spec)
		}
	}

	if err := domain.Collect(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(key string, input map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		var me *mapstructure.Error
		if errors.As(err, &me) && len(me.Errors) > 0 {
			errs := make([]error, 0, len(me.Errors))
			for _, msg := range me.Errors {
				errs = append(errs, domain.NewConfigError(key, msg, nil))
			}
			return domain.Collect(errs)
		}
		return domain.NewConfigError(key, err.Error(), nil)
	}
	return nil
}
