// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marionette-rig/marionette/pkg/errutil"
)

func TestDefinition_Locators(t *testing.T) {
	d := &Definition{
		ID:        "mutant",
		ModelPath: "models/mutant.glb",
		AnimationPaths: map[string]string{
			"idle": "anims/idle.glb",
			"run":  "anims/run.glb",
		},
	}

	assert.Equal(t, "models/mutant.glb#Scene0", d.ModelSceneLocator())

	loc, ok := d.AnimationLocator("idle")
	require.True(t, ok)
	assert.Equal(t, "anims/idle.glb#Animation0", loc)

	_, ok = d.AnimationLocator("jump")
	assert.False(t, ok)

	assert.Equal(t, []string{"idle", "run"}, d.Animations())
}

func TestParseDefinition_Formats(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{
			name: "json",
			file: "characters/mutant.json",
			data: `{"id":"mutant","model_path":"models/mutant.yaml","animation_paths":{"idle":"anims/idle.yaml"}}`,
		},
		{
			name: "yaml",
			file: "characters/mutant.yaml",
			data: `
id: mutant
model_path: models/mutant.yaml
animation_paths:
  idle: anims/idle.yaml
`,
		},
		{
			name: "hcl",
			file: "characters/mutant.hcl",
			data: `
id         = "mutant"
model_path = "models/mutant.yaml"
animation_paths = {
  idle = "anims/idle.yaml"
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDefinition([]byte(tt.data), tt.file)
			require.NoError(t, err)
			assert.Equal(t, "mutant", d.ID)
			assert.Equal(t, "models/mutant.yaml", d.ModelPath)
			assert.Equal(t, map[string]string{"idle": "anims/idle.yaml"}, d.AnimationPaths)
		})
	}
}

func TestParseDefinition_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"empty", "a.json", ""},
		{"unsupported extension", "a.toml", `id = "x"`},
		{"malformed json", "a.json", `{"id":`},
		{"missing id", "a.json", `{"model_path":"m.yaml","animation_paths":{}}`},
		{"missing model", "a.json", `{"id":"x","animation_paths":{}}`},
		{"empty animation path", "a.json", `{"id":"x","model_path":"m.yaml","animation_paths":{"idle":""}}`},
		{"hcl missing attribute", "a.hcl", `id = "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.data), tt.file)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, CodeInvalidDefinition)
		})
	}
}

func TestSchema_ValidatesDefinitions(t *testing.T) {
	raw, err := GenerateSchema()
	require.NoError(t, err)
	assert.Contains(t, string(raw), SchemaID)
	assert.Contains(t, string(raw), "animation_paths")

	require.NoError(t, ValidateSchema([]byte(mutantDefinition), "mutant.json"))
	require.NoError(t, ValidateSchema([]byte("id: a\nmodel_path: m.yaml\nanimation_paths: {}\n"), "a.yaml"))

	err = ValidateSchema([]byte(`{"id":"mutant","animation_paths":{}}`), "mutant.json")
	require.Error(t, err)
	assert.Contains(t, FormatSchemaError(err), "model_path")

	err = ValidateSchema([]byte(`{"id":"a","model_path":"m","animation_paths":{"idle":3}}`), "a.json")
	require.Error(t, err)

	err = ValidateSchema([]byte(`{"id":"a","model_path":"m","animation_paths":{},"extra":true}`), "a.json")
	require.Error(t, err, "unknown keys are rejected")

	assert.Empty(t, FormatSchemaError(nil))
}
