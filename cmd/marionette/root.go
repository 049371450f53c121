// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the marionette CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marionette",
		Short: "Marionette - a character animation pipeline",
		Long: `Marionette loads character definitions, instantiates their models
and starts each character's idle animation once every asset it needs has
arrived.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: XDG_CONFIG_HOME/marionette/config.yaml)")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewVersionCmd creates the version subcommand.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("marionette %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
