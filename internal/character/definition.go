// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package character turns character definition records into animated scene
// instances: the registry of per-character records, the orchestrator that
// issues dependent loads once a definition arrives, and the activator that
// starts the idle animation once the scene subtree exists.
package character

import (
	"encoding/json"
	"path"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/scene"
)

// KindDefinition is the asset kind of character definition records.
const KindDefinition asset.Kind = "character_definition"

// DefinitionPatterns are the locator patterns the definition loader serves.
var DefinitionPatterns = []string{"**.json", "**.yaml", "**.yml", "**.hcl"}

// IdleAnimation is started once the character's scene is ready.
const IdleAnimation = "idle"

// Definition is a character definition record. It is immutable once loaded.
type Definition struct {
	ID             string            `json:"id" yaml:"id" hcl:"id" jsonschema:"minLength=1,description=Unique character identifier"`
	ModelPath      string            `json:"model_path" yaml:"model_path" hcl:"model_path" jsonschema:"minLength=1,description=Model file path relative to the asset root"`
	AnimationPaths map[string]string `json:"animation_paths" yaml:"animation_paths" hcl:"animation_paths" jsonschema:"description=Animation name to clip file path"`
}

// ModelSceneLocator is the locator of the first scene in the model file.
func (d *Definition) ModelSceneLocator() string {
	return d.ModelPath + "#" + scene.SceneLabelPrefix + "0"
}

// AnimationLocator is the locator of the first clip in the named animation's
// file. It reports false for names the definition does not list.
func (d *Definition) AnimationLocator(name string) (string, bool) {
	p, ok := d.AnimationPaths[name]
	if !ok {
		return "", false
	}
	return p + "#" + anim.ClipLabelPrefix + "0", true
}

// Animations returns the animation names in sorted order.
func (d *Definition) Animations() []string {
	names := make([]string, 0, len(d.AnimationPaths))
	for name := range d.AnimationPaths {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks definition constraints.
func (d *Definition) Validate() error {
	if d.ID == "" {
		return oops.Code(CodeInvalidDefinition).Errorf("id is required")
	}
	if d.ModelPath == "" {
		return oops.Code(CodeInvalidDefinition).
			With("character_id", d.ID).
			Errorf("model_path is required")
	}
	for _, name := range d.Animations() {
		if name == "" || d.AnimationPaths[name] == "" {
			return oops.Code(CodeInvalidDefinition).
				With("character_id", d.ID).
				With("animation", name).
				Errorf("animation %q needs a name and a path", name)
		}
	}
	return nil
}

// ParseDefinition decodes a definition. The format follows the file
// extension of name: .json, .yaml/.yml or .hcl.
func ParseDefinition(data []byte, name string) (*Definition, error) {
	if len(data) == 0 {
		return nil, oops.Code(CodeInvalidDefinition).
			With("file", name).
			Errorf("definition data is empty")
	}

	var d Definition
	var err error
	switch ext := strings.ToLower(path.Ext(name)); ext {
	case ".json":
		err = json.Unmarshal(data, &d)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &d)
	case ".hcl":
		err = hclsimple.Decode(path.Base(name), data, nil, &d)
	default:
		return nil, oops.Code(CodeInvalidDefinition).
			With("file", name).
			Errorf("unsupported definition format %q", ext)
	}
	if err != nil {
		return nil, oops.Code(CodeInvalidDefinition).
			With("file", name).
			Wrapf(err, "decode definition")
	}

	if err := d.Validate(); err != nil {
		return nil, oops.With("file", name).Wrap(err)
	}
	return &d, nil
}

// DecodeDefinition is the asset decoder for KindDefinition.
func DecodeDefinition(data []byte, loc asset.Locator) (any, error) {
	return ParseDefinition(data, loc.Path)
}
