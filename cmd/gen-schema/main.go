// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Command gen-schema generates the character definition JSON Schema file.
// The output path defaults to schemas/character.schema.json and may be given
// as the only argument.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/marionette-rig/marionette/internal/character"
)

func main() {
	schema, err := character.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating schema: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("schemas", "character.schema.json")
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, append(schema, '\n'), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", outPath)
}
