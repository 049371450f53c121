// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marionette-rig/marionette/internal/scene"
)

func newRunFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	// Keep a config file in the real home directory out of the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	registerRunFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig("", newRunFlags(t), map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, defaultAssetsRoot, cfg.Assets.Root)
	assert.Equal(t, defaultWorkers, cfg.Assets.Workers)
	assert.Equal(t, defaultSelect, cfg.Select)
	assert.Equal(t, defaultTick, cfg.Pipeline.Tick)
	assert.Equal(t, defaultMaxRepolls, cfg.Pipeline.MaxRepolls)
	assert.Equal(t, defaultTraversal, cfg.Scene.Traversal)
	assert.Equal(t, defaultLogFormat, cfg.Log.Format)
	assert.Equal(t, defaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, defaultCatalog(), cfg.Characters)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Precedence(t *testing.T) {
	path := writeConfig(t, `
assets:
  root: /srv/assets
  workers: 2
characters:
  mutant: characters/mutant.json
  robot: characters/robot.yaml
select: robot
pipeline:
  tick: 33ms
  max_repolls: 10
scene:
  traversal: breadthfirst
log:
  format: text
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, err := loadConfig(path, newRunFlags(t), map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, "/srv/assets", cfg.Assets.Root)
		assert.Equal(t, 2, cfg.Assets.Workers)
		assert.Equal(t, "robot", cfg.Select)
		assert.Equal(t, 33*time.Millisecond, cfg.Pipeline.Tick)
		assert.Equal(t, 10, cfg.Pipeline.MaxRepolls)
		assert.Equal(t, "text", cfg.Log.Format)
		assert.Equal(t, "characters/robot.yaml", cfg.Characters["robot"])
		assert.Equal(t, defaultMetricsAddr, cfg.Metrics.Addr, "unset keys keep their defaults")
	})

	t.Run("flags over file", func(t *testing.T) {
		cfg, err := loadConfig(path, newRunFlags(t, "--workers=0", "--tick=5ms"), map[string]string{})
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Assets.Workers)
		assert.Equal(t, 5*time.Millisecond, cfg.Pipeline.Tick)
		assert.Equal(t, "/srv/assets", cfg.Assets.Root)
	})

	t.Run("environment over flags", func(t *testing.T) {
		cfg, err := loadConfig(path, newRunFlags(t, "--workers=0"), map[string]string{
			"MARIONETTE_ASSETS_WORKERS":  "8",
			"MARIONETTE_SELECT":          "mutant",
			"MARIONETTE_PIPELINE_TICK":   "1s",
			"MARIONETTE_SCENE_TRAVERSAL": "preorder",
			"MARIONETTE_METRICS_ADDR":    "127.0.0.1:9999",
		})
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Assets.Workers)
		assert.Equal(t, "mutant", cfg.Select)
		assert.Equal(t, time.Second, cfg.Pipeline.Tick)
		assert.Equal(t, "preorder", cfg.Scene.Traversal)
		assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.Addr)
	})
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), newRunFlags(t), map[string]string{})
	require.Error(t, err)
}

func TestLoadConfig_BadEnvironment(t *testing.T) {
	_, err := loadConfig("", newRunFlags(t), map[string]string{"MARIONETTE_ASSETS_WORKERS": "many"})
	require.Error(t, err)
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*runConfig)
		wantErr bool
	}{
		{"valid", func(*runConfig) {}, false},
		{"empty root", func(c *runConfig) { c.Assets.Root = "" }, true},
		{"bad log format", func(c *runConfig) { c.Log.Format = "xml" }, true},
		{"bad log level", func(c *runConfig) { c.Log.Level = "loud" }, true},
		{"bad traversal", func(c *runConfig) { c.Scene.Traversal = "random" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := loadConfig("", newRunFlags(t), map[string]string{})
			require.NoError(t, err)
			tt.mutate(cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestRunConfig_Conversions(t *testing.T) {
	cfg, err := loadConfig("", newRunFlags(t, "--traversal=breadthfirst", "--log-level=debug", "--log-format=text"), map[string]string{})
	require.NoError(t, err)

	appCfg, err := cfg.App()
	require.NoError(t, err)
	assert.Equal(t, scene.BreadthFirst, appCfg.Traversal)
	assert.Equal(t, cfg.Characters, appCfg.Catalog)
	require.NoError(t, appCfg.Validate())

	logOpts, err := cfg.Logging()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, logOpts.Level)
	assert.Equal(t, "text", logOpts.Format)
	assert.Equal(t, "marionette", logOpts.Service)
}
