// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

var (
	schemaOnce     sync.Once
	schemaCompiled *jschema.Schema
	schemaErr      error
)

// SchemaID is the $id of the generated definition schema.
const SchemaID = "https://marionette.dev/schemas/character.schema.json"

// GenerateSchema generates a JSON Schema from the Definition struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Definition{})

	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "Marionette Character Definition"
	schema.Description = "Schema for character definition files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateSchema validates a definition file against the generated schema.
// JSON and YAML documents are validated as written; HCL documents are decoded
// first and validated in their JSON form.
func ValidateSchema(data []byte, name string) error {
	if len(data) == 0 {
		return fmt.Errorf("definition data is empty")
	}

	var doc any
	if strings.EqualFold(path.Ext(name), ".hcl") {
		d, err := ParseDefinition(data, name)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to re-encode definition: %w", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to re-decode definition: %w", err)
		}
	} else {
		// YAML is a superset of JSON, so one parser covers both.
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("invalid document: %w", err)
		}
	}

	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		raw, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			schemaErr = fmt.Errorf("failed to parse schema JSON: %w", err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource("character.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		schemaCompiled, schemaErr = c.Compile("character.schema.json")
	})
	return schemaCompiled, schemaErr
}

// FormatSchemaError strips the wrapping prefix from a validation error.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), "schema validation failed: ")
}
