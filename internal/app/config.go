// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package app

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/marionette-rig/marionette/internal/scene"
)

// Config holds the pipeline settings. The CLI fills it from the config file,
// flags and environment.
type Config struct {
	// Workers is the asset loader pool size. Zero loads synchronously at the
	// start of every tick.
	Workers int
	// Catalog maps selectable character ids to definition paths under the
	// asset root. The id need not match the one inside the file; each path
	// may appear once.
	Catalog map[string]string
	// Select is the character selected at startup; empty selects nothing.
	Select string
	// Tick is the interval between pipeline ticks.
	Tick time.Duration
	// MaxRepolls bounds how many ticks a not-ready message is retried.
	MaxRepolls int
	// Traversal is the order used to find a scene's animation player.
	Traversal scene.TraversalOrder
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("assets.workers must not be negative, got %d", c.Workers)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("pipeline.tick must be positive, got %s", c.Tick)
	}
	if c.MaxRepolls < 0 {
		return fmt.Errorf("pipeline.max_repolls must not be negative, got %d", c.MaxRepolls)
	}
	if c.Select != "" {
		if _, ok := c.Catalog[c.Select]; !ok {
			return fmt.Errorf("selected character %q is not in the catalog", c.Select)
		}
	}
	owners := make(map[string]string, len(c.Catalog))
	for _, id := range slices.Sorted(maps.Keys(c.Catalog)) {
		path := c.Catalog[id]
		if id == "" || path == "" {
			return fmt.Errorf("catalog entries need an id and a path, got %q: %q", id, path)
		}
		// A definition file backs at most one record.
		if other, dup := owners[path]; dup {
			return fmt.Errorf("catalog entries %q and %q share the definition %q", other, id, path)
		}
		owners[path] = id
	}
	return nil
}
