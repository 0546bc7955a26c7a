// Package checkpoint opens the checkpoint store selected by
// `global.checkpointing`.
package checkpoint

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/plumber-ci/plumber/internal/logging"
	"github.com/plumber-ci/plumber/pkg/adapters/file"
	"github.com/plumber-ci/plumber/pkg/adapters/gitfile"
	"github.com/plumber-ci/plumber/pkg/adapters/kube"
	"github.com/plumber-ci/plumber/pkg/adapters/memory"
	"github.com/plumber-ci/plumber/pkg/adapters/objectstore"
	"github.com/plumber-ci/plumber/pkg/adapters/postgres"
	"github.com/plumber-ci/plumber/pkg/adapters/redis"
	"github.com/plumber-ci/plumber/pkg/config"
	"github.com/plumber-ci/plumber/pkg/domain"
	"github.com/plumber-ci/plumber/pkg/ports"
)

const (
	keyType   = "global.checkpointing.type"
	keyConfig = "global.checkpointing.config"
)

// DefaultType is used when `type` is omitted.
const DefaultType = file.Type

type fileConfig struct {
	Path   string `mapstructure:"path"`
	Remote string `mapstructure:"remote"`
	Push   *bool  `mapstructure:"push"`
}

type redisConfig struct {
	URL      string `mapstructure:"url"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
	TTL      int    `mapstructure:"ttl"`
}

type opener func(ctx context.Context, raw map[string]any, logger *slog.Logger) (ports.CheckpointStore, error)

var openers = map[string]opener{
	file.Type: func(_ context.Context, raw map[string]any, logger *slog.Logger) (ports.CheckpointStore, error) {
		var cfg fileConfig
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		return file.New(cfg.Path, file.WithLogger(logger)), nil
	},
	gitfile.Type: func(_ context.Context, raw map[string]any, logger *slog.Logger) (ports.CheckpointStore, error) {
		var cfg fileConfig
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		opts := []gitfile.Option{gitfile.WithLogger(logger)}
		if cfg.Remote != "" {
			opts = append(opts, gitfile.WithRemote(cfg.Remote))
		}
		if cfg.Push != nil {
			opts = append(opts, gitfile.WithPush(*cfg.Push))
		}
		return gitfile.New(cfg.Path, opts...), nil
	},
	kube.Type: func(_ context.Context, raw map[string]any, _ *slog.Logger) (ports.CheckpointStore, error) {
		var cfg kube.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		return kube.Open(cfg)
	},
	redis.Type: func(_ context.Context, raw map[string]any, _ *slog.Logger) (ports.CheckpointStore, error) {
		var cfg redisConfig
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		opts := []redis.Option{redis.WithKey(cfg.Key), redis.WithTTL(time.Duration(cfg.TTL) * time.Second)}
		if cfg.URL != "" {
			store, err := redis.NewFromURL(cfg.URL, opts...)
			if err != nil {
				return nil, domain.NewConfigError(keyConfig+".url", err.Error(), nil)
			}
			return store, nil
		}
		if cfg.Address == "" {
			return nil, domain.NewConfigError(keyConfig, "url or address is required", nil)
		}
		return redis.New(cfg.Address, cfg.Password, cfg.DB, opts...), nil
	},
	objectstore.Type: func(_ context.Context, raw map[string]any, _ *slog.Logger) (ports.CheckpointStore, error) {
		var cfg objectstore.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		store, err := objectstore.Open(cfg)
		if err != nil {
			return nil, domain.NewConfigError(keyConfig, err.Error(), nil)
		}
		return store, nil
	},
	postgres.Type: func(ctx context.Context, raw map[string]any, _ *slog.Logger) (ports.CheckpointStore, error) {
		var cfg postgres.Config
		if err := decode(raw, &cfg); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, domain.NewConfigError(keyConfig, err.Error(), nil)
		}
		return postgres.Open(ctx, cfg)
	},
	memory.Type: func(context.Context, map[string]any, *slog.Logger) (ports.CheckpointStore, error) {
		return memory.NewStore(nil), nil
	},
}

// Types returns the supported type tags, sorted.
func Types() []string {
	tags := make([]string, 0, len(openers))
	for tag := range openers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Open builds the store described by spec. The returned name is the type
// tag actually used. Configuration problems are reported as
// *domain.ConfigError; connection failures as *domain.StoreError.
func Open(ctx context.Context, spec config.Checkpointing, logger *slog.Logger) (ports.CheckpointStore, string, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	tag := strings.ToLower(spec.Type)
	if tag == "" {
		logger.Debug("no checkpoint type configured, using default store", "type", DefaultType)
		tag = DefaultType
	}
	open, ok := openers[tag]
	if !ok {
		return nil, tag, domain.NewConfigError(keyType,
			fmt.Sprintf("unknown checkpoint type %q (known: %s)", spec.Type, strings.Join(Types(), ", ")), nil)
	}

	store, err := open(ctx, spec.Config, logger.With("store", tag))
	if err != nil {
		if len(domain.ConfigErrors(err)) > 0 {
			return nil, tag, err
		}
		return nil, tag, &domain.StoreError{Store: tag, Op: "open", Err: err}
	}
	return store, tag, nil
}

func decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return domain.NewConfigError(keyConfig, err.Error(), nil)
	}
	return nil
}

// Close releases store resources when the store holds any.
func Close(store ports.CheckpointStore) error {
	if c, ok := store.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
