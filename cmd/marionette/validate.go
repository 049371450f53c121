// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marionette-rig/marionette/internal/character"
)

// NewValidateCmd creates the validate subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate character definition files without running the pipeline",
		Long: `Validates character definition files (JSON, YAML or HCL) against the
definition schema and the loader's own checks. Does NOT load models or
animation clips.
Exits with code 0 on success, non-zero on failure.

Useful in CI pipelines to catch definition errors early:
  marionette validate assets/characters/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}
}

func runValidate(cmd *cobra.Command, paths []string) error {
	var failed int
	for _, path := range paths {
		if err := validateDefinitionFile(path); err != nil {
			failed++
			cmd.PrintErrf("%s: %v\n", path, err)
			continue
		}
		cmd.Printf("%s: ok\n", path)
	}

	if failed > 0 {
		return fmt.Errorf("validation failed: %d of %d definitions invalid", failed, len(paths))
	}
	return nil
}

func validateDefinitionFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is an operator-supplied CLI argument
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	if err := character.ValidateSchema(data, name); err != nil {
		return errors.New(character.FormatSchemaError(err))
	}
	if _, err := character.ParseDefinition(data, name); err != nil {
		return err
	}
	return nil
}
