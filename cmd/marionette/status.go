// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/marionette-rig/marionette/internal/character"
)

// PipelineStatus holds the status of a running pipeline.
type PipelineStatus struct {
	Addr       string                   `json:"addr"`
	Running    bool                     `json:"running"`
	Ready      bool                     `json:"ready"`
	Characters []character.RecordStatus `json:"characters,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
	timeout    time.Duration
}

// NewStatusCmd creates the status subcommand.
func NewStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running pipeline",
		Long: `Show the readiness of a running pipeline and the state of every
registered character, read from its observability endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", defaultMetricsAddr, "observability address of the pipeline")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", 2*time.Second, "request timeout")

	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	client := &http.Client{Timeout: cfg.timeout}
	status := queryPipelineStatus(client, cfg.addr)

	var output string
	var err error
	if cfg.jsonOutput {
		output, err = formatStatusJSON(status)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(status)
	}

	cmd.Println(output)
	return nil
}

// queryPipelineStatus reads readiness and the character snapshot from addr.
func queryPipelineStatus(client *http.Client, addr string) PipelineStatus {
	status := PipelineStatus{Addr: addr}
	base := "http://" + strings.TrimPrefix(addr, "http://")

	readyResp, err := client.Get(base + "/healthz/readiness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	_ = readyResp.Body.Close()
	status.Running = true
	status.Ready = readyResp.StatusCode == http.StatusOK

	charResp, err := client.Get(base + "/characters")
	if err != nil {
		status.Error = fmt.Sprintf("failed to query characters: %v", err)
		return status
	}
	defer func() { _ = charResp.Body.Close() }()

	if charResp.StatusCode != http.StatusOK {
		status.Error = fmt.Sprintf("characters endpoint returned %s", charResp.Status)
		return status
	}
	if err := json.NewDecoder(charResp.Body).Decode(&status.Characters); err != nil {
		status.Error = fmt.Sprintf("failed to decode characters: %v", err)
	}
	return status
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(status PipelineStatus) string {
	var buf bytes.Buffer

	switch {
	case !status.Running:
		reason := "not running"
		if status.Error != "" {
			reason = status.Error
		}
		fmt.Fprintf(&buf, "pipeline at %s: stopped (%s)\n", status.Addr, reason)
		return buf.String()
	case status.Ready:
		fmt.Fprintf(&buf, "pipeline at %s: ready\n", status.Addr)
	default:
		fmt.Fprintf(&buf, "pipeline at %s: starting\n", status.Addr)
	}
	if status.Error != "" {
		fmt.Fprintf(&buf, "warning: %s\n", status.Error)
	}

	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CHARACTER\tSTATE\tANIMATIONS")
	_, _ = fmt.Fprintln(w, "---------\t-----\t----------")
	for _, c := range status.Characters {
		anims := "-"
		if len(c.Animations) > 0 {
			anims = strings.Join(c.Animations, ",")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.State, anims)
	}
	_ = w.Flush()

	return buf.String()
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(status PipelineStatus) (string, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}
