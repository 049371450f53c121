// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/marionette-rig/marionette/internal/app"
	"github.com/marionette-rig/marionette/internal/logging"
	"github.com/marionette-rig/marionette/internal/scene"
	"github.com/marionette-rig/marionette/internal/xdg"
)

// Default values for run command settings.
const (
	defaultAssetsRoot  = "./assets"
	defaultWorkers     = 4
	defaultSelect      = "mutant"
	defaultTick        = 16 * time.Millisecond
	defaultMaxRepolls  = 120
	defaultTraversal   = "preorder"
	defaultLogFormat   = "json"
	defaultLogLevel    = "info"
	defaultMetricsAddr = "127.0.0.1:9100"
)

// envPrefix prefixes every environment override.
const envPrefix = "MARIONETTE_"

func defaultCatalog() map[string]string {
	return map[string]string{"mutant": "characters/mutant.json"}
}

type assetsConfig struct {
	Root    string `koanf:"root" env:"ROOT"`
	Workers int    `koanf:"workers" env:"WORKERS"`
}

type pipelineConfig struct {
	Tick       time.Duration `koanf:"tick" env:"TICK"`
	MaxRepolls int           `koanf:"max_repolls" env:"MAX_REPOLLS"`
}

type sceneConfig struct {
	Traversal string `koanf:"traversal" env:"TRAVERSAL"`
}

type logConfig struct {
	Format string `koanf:"format" env:"FORMAT"`
	Level  string `koanf:"level" env:"LEVEL"`
}

type metricsConfig struct {
	Addr string `koanf:"addr" env:"ADDR"`
}

// runConfig is the merged configuration of the run command.
type runConfig struct {
	Assets     assetsConfig      `koanf:"assets" envPrefix:"ASSETS_"`
	Characters map[string]string `koanf:"characters"`
	Select     string            `koanf:"select" env:"SELECT"`
	Pipeline   pipelineConfig    `koanf:"pipeline" envPrefix:"PIPELINE_"`
	Scene      sceneConfig       `koanf:"scene" envPrefix:"SCENE_"`
	Log        logConfig         `koanf:"log" envPrefix:"LOG_"`
	Metrics    metricsConfig     `koanf:"metrics" envPrefix:"METRICS_"`
}

// flagKeys maps run command flags to config keys.
var flagKeys = map[string]string{
	"assets-root":  "assets.root",
	"workers":      "assets.workers",
	"select":       "select",
	"tick":         "pipeline.tick",
	"max-repolls":  "pipeline.max_repolls",
	"traversal":    "scene.traversal",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"metrics-addr": "metrics.addr",
}

// registerRunFlags adds the run command flags. Their defaults are the
// configuration defaults.
func registerRunFlags(flags *pflag.FlagSet) {
	flags.String("assets-root", defaultAssetsRoot, "asset root directory")
	flags.Int("workers", defaultWorkers, "asset loader pool size (0 = load on the tick)")
	flags.String("select", defaultSelect, "character selected at startup (empty = none)")
	flags.Duration("tick", defaultTick, "pipeline tick interval")
	flags.Int("max-repolls", defaultMaxRepolls, "ticks a not-ready message is retried")
	flags.String("traversal", defaultTraversal, "animation player search order (preorder or breadthfirst)")
	flags.String("log-format", defaultLogFormat, "log format (json or text)")
	flags.String("log-level", defaultLogLevel, "log level (debug, info, warn or error)")
	flags.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
}

// loadConfig merges, lowest precedence first, flag defaults, the config file,
// flags set on the command line, and MARIONETTE_* environment variables.
// environ overrides the process environment when non-nil.
func loadConfig(path string, flags *pflag.FlagSet, environ map[string]string) (*runConfig, error) {
	k := koanf.New(".")

	if path == "" {
		if p, err := xdg.ConfigFile(); err == nil && fileExists(p) {
			path = p
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		slog.Debug("loaded config file", "path", path)
	}

	provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	})
	if err := k.Load(provider, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := &runConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if len(cfg.Characters) == 0 {
		cfg.Characters = defaultCatalog()
	}

	opts := env.Options{Prefix: envPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings the pipeline does not validate itself.
func (cfg *runConfig) Validate() error {
	if cfg.Assets.Root == "" {
		return errors.New("assets.root is required")
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("log.format must be 'json' or 'text', got %q", cfg.Log.Format)
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return err
	}
	if _, err := scene.ParseTraversalOrder(cfg.Scene.Traversal); err != nil {
		return err
	}
	return nil
}

// App converts the merged configuration into pipeline settings.
func (cfg *runConfig) App() (app.Config, error) {
	order, err := scene.ParseTraversalOrder(cfg.Scene.Traversal)
	if err != nil {
		return app.Config{}, err
	}
	return app.Config{
		Workers:    cfg.Assets.Workers,
		Catalog:    cfg.Characters,
		Select:     cfg.Select,
		Tick:       cfg.Pipeline.Tick,
		MaxRepolls: cfg.Pipeline.MaxRepolls,
		Traversal:  order,
	}, nil
}

// Logging returns the logger options.
func (cfg *runConfig) Logging() (logging.Options, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return logging.Options{}, err
	}
	return logging.Options{
		Service: "marionette",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
	}, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
