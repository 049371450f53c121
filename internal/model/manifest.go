// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package model parses model manifests: the YAML description of the scenes
// and animation clips a model file exposes. Binary model formats are decoded
// elsewhere; the pipeline only needs node structure and clip timing.
package model

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Manifest lists the labelled sub-assets of one model file.
type Manifest struct {
	Scenes     []Scene `yaml:"scenes"`
	Animations []Clip  `yaml:"animations,omitempty"`
}

// Scene is a node hierarchy addressed as "Scene<N>".
type Scene struct {
	Nodes []Node `yaml:"nodes"`
}

// Node is one node of a scene. Player marks nodes that carry an animation
// player once instantiated.
type Node struct {
	Name     string `yaml:"name"`
	Player   bool   `yaml:"player,omitempty"`
	Children []Node `yaml:"children,omitempty"`
}

// Clip is an animation addressed as "Animation<N>".
type Clip struct {
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
}

// ParseManifest parses and validates a model manifest.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if len(m.Scenes) == 0 && len(m.Animations) == 0 {
		return fmt.Errorf("manifest declares no scenes or animations")
	}
	for i, s := range m.Scenes {
		for _, n := range s.Nodes {
			if err := n.validate(); err != nil {
				return fmt.Errorf("scene %d: %w", i, err)
			}
		}
	}
	for i, c := range m.Animations {
		if c.Duration <= 0 {
			return fmt.Errorf("animation %d (%q): duration must be positive", i, c.Name)
		}
	}
	return nil
}

func (n Node) validate() error {
	if n.Name == "" {
		return fmt.Errorf("node name is required")
	}
	for _, c := range n.Children {
		if err := c.validate(); err != nil {
			return fmt.Errorf("%s: %w", n.Name, err)
		}
	}
	return nil
}

// Scene returns the scene at index i.
func (m *Manifest) Scene(i int) (Scene, error) {
	if i < 0 || i >= len(m.Scenes) {
		return Scene{}, fmt.Errorf("scene index %d out of range (have %d)", i, len(m.Scenes))
	}
	return m.Scenes[i], nil
}

// Clip returns the animation at index i.
func (m *Manifest) Clip(i int) (Clip, error) {
	if i < 0 || i >= len(m.Animations) {
		return Clip{}, fmt.Errorf("animation index %d out of range (have %d)", i, len(m.Animations))
	}
	return m.Animations[i], nil
}
