package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/plumber-ci/plumber/internal/logging"
)

// ErrNotFound is returned when the configuration file is missing or empty.
var ErrNotFound = errors.New("configuration not found")

var envPattern = regexp.MustCompile(`\$\{env\.([A-Za-z_][A-Za-z0-9_]*)\}`)

// Loader reads configuration files.
type Loader struct {
	lookup func(string) (string, bool)
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLookup replaces os.LookupEnv for ${env.NAME} substitution.
func WithLookup(fn func(string) (string, bool)) LoaderOption {
	return func(l *Loader) {
		l.lookup = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a Loader backed by the process environment.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{lookup: os.LookupEnv, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, decodes and substitutes the file at path.
func (l *Loader) Load(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	raw, err := l.Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNotFound, path)
	}
	return raw, nil
}

// Parse decodes data according to the file extension ext. Anything that is
// not .json or .jsonc is read as YAML.
func (l *Loader) Parse(ext string, data []byte) (map[string]any, error) {
	var raw map[string]any
	switch strings.ToLower(ext) {
	case ".json", ".jsonc":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
	}
	substituted, _ := l.substitute(raw).(map[string]any)
	return substituted, nil
}

// substitute walks decoded values and expands ${env.NAME} in strings.
func (l *Loader) substitute(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		for k, val := range typed {
			typed[k] = l.substitute(val)
		}
		return typed
	case []any:
		for i, val := range typed {
			typed[i] = l.substitute(val)
		}
		return typed
	case string:
		return l.expand(typed)
	}
	return v
}

func (l *Loader) expand(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if value, ok := l.lookup(name); ok {
			return value
		}
		l.logger.Debug("environment variable not set, keeping reference", "name", name)
		return match
	})
}

// Load reads path with a default Loader.
func Load(path string, logger *slog.Logger) (map[string]any, error) {
	return NewLoader(WithLogger(logger)).Load(path)
}

// LoadConfig reads and decodes path.
func LoadConfig(path string, logger *slog.Logger) (*Config, error) {
	raw, err := Load(path, logger)
	if err != nil {
		return nil, err
	}
	return Decode(raw)
}
