// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package anim provides animation clips, single-purpose animation graphs and
// the per-entity animation player.
package anim

import (
	"time"

	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/model"
)

// Asset kinds owned by this package.
const (
	KindClip  asset.Kind = "animation_clip"
	KindGraph asset.Kind = "animation_graph"
)

// ClipLabelPrefix prefixes clip labels inside a model file ("Animation0").
const ClipLabelPrefix = "Animation"

// Clip is a decoded animation clip.
type Clip struct {
	Name     string
	Duration time.Duration
}

// DecodeClip is the asset decoder for KindClip.
func DecodeClip(data []byte, loc asset.Locator) (any, error) {
	m, err := model.ParseManifest(data)
	if err != nil {
		return nil, err
	}
	idx, err := loc.LabelIndex(ClipLabelPrefix)
	if err != nil {
		return nil, err
	}
	c, err := m.Clip(idx)
	if err != nil {
		return nil, err
	}
	return &Clip{Name: c.Name, Duration: c.Duration}, nil
}

// ClipLengths returns a length lookup for Player.Advance over graph g. A node
// reports a length only once its clip has resolved.
func ClipLengths(r asset.Resolver, g *Graph) func(NodeIndex) (time.Duration, bool) {
	return func(idx NodeIndex) (time.Duration, bool) {
		n, ok := g.Node(idx)
		if !ok || n.Kind != NodeClip || n.Clip == nil {
			return 0, false
		}
		c, ok := asset.Get[*Clip](r, n.Clip.ID())
		if !ok {
			return 0, false
		}
		return c.Duration, true
	}
}
