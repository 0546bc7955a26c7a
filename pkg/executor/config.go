package executor

import (
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"

	"github.com/plumber-ci/plumber/pkg/domain"
)

// Config is the declarative form of an executor.
type Config struct {
	Steps   []string          `mapstructure:"steps" json:"steps" yaml:"steps"`
	Batch   bool              `mapstructure:"batch" json:"batch,omitempty" yaml:"batch,omitempty"`
	Timeout *int              `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Env     map[string]string `mapstructure:"env" json:"env,omitempty" yaml:"env,omitempty"`
	Dir     string            `mapstructure:"dir" json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Validate checks the shape rules that decoding alone does not enforce.
// key prefixes the reported ConfigError keys.
func (c Config) Validate(key string) error {
	if len(c.Steps) == 0 {
		return domain.NewConfigError(key+".steps", "at least one step is required", nil)
	}
	for i, step := range c.Steps {
		if step == "" {
			return domain.NewConfigError(fmt.Sprintf("%s.steps[%d]", key, i), "step must not be empty", nil)
		}
	}
	if c.Timeout != nil && *c.Timeout < 0 {
		return domain.NewConfigError(key+".timeout", "must be a non-negative integer", *c.Timeout)
	}
	return nil
}

// ParseConfig decodes a raw mapping into a validated Config.
func ParseConfig(key string, raw any) (Config, error) {
	var cfg Config

	m, ok := raw.(map[string]any)
	if !ok {
		return cfg, domain.NewConfigError(key, "executor must be a mapping", raw)
	}
	if _, ok := m["steps"]; !ok {
		return cfg, domain.NewConfigError(key+".steps", "no steps specified to execute", nil)
	}
	if err := checkTimeout(key, m["timeout"]); err != nil {
		return cfg, err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: false,
		ErrorUnused:      true,
	})
	if err != nil {
		return cfg, err
	}
	if err := dec.Decode(m); err != nil {
		return cfg, domain.NewConfigError(key, err.Error(), raw)
	}
	return cfg, cfg.Validate(key)
}

// checkTimeout rejects fractional and non-numeric timeouts before
// mapstructure gets a chance to truncate them.
func checkTimeout(key string, v any) error {
	switch n := v.(type) {
	case nil, int, int64, uint64:
		return nil
	case float64:
		if n == math.Trunc(n) {
			return nil
		}
	}
	return domain.NewConfigError(key+".timeout", "must be a non-negative integer count of seconds", v)
}
