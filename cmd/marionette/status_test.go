// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marionette-rig/marionette/internal/character"
	"github.com/marionette-rig/marionette/internal/observability"
)

func startObservability(t *testing.T, ready bool, records []character.RecordStatus) string {
	t.Helper()
	server := observability.NewServer("127.0.0.1:0", prometheus.NewRegistry(),
		func() bool { return ready },
		func() any { return records })
	_, err := server.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	})
	return server.Addr()
}

func TestQueryPipelineStatus(t *testing.T) {
	records := []character.RecordStatus{
		{ID: "mutant", State: "scene_activated", DefinitionID: "01J", Animations: []string{"idle", "walk"}},
	}
	addr := startObservability(t, true, records)

	status := queryPipelineStatus(&http.Client{Timeout: time.Second}, addr)
	assert.True(t, status.Running)
	assert.True(t, status.Ready)
	assert.Empty(t, status.Error)
	assert.Equal(t, records, status.Characters)
}

func TestQueryPipelineStatus_NotRunning(t *testing.T) {
	status := queryPipelineStatus(&http.Client{Timeout: 200 * time.Millisecond}, "127.0.0.1:1")
	assert.False(t, status.Running)
	assert.Contains(t, status.Error, "failed to connect")
}

func TestFormatStatusTable(t *testing.T) {
	tests := []struct {
		name   string
		status PipelineStatus
		want   []string
	}{
		{
			name:   "stopped",
			status: PipelineStatus{Addr: "127.0.0.1:9100", Error: "failed to connect"},
			want:   []string{"stopped", "failed to connect"},
		},
		{
			name: "ready with characters",
			status: PipelineStatus{Addr: "127.0.0.1:9100", Running: true, Ready: true, Characters: []character.RecordStatus{
				{ID: "mutant", State: "scene_activated", Animations: []string{"idle", "walk"}},
				{ID: "robot", State: "registered"},
			}},
			want: []string{"ready", "CHARACTER", "mutant", "scene_activated", "idle,walk", "robot", "registered"},
		},
		{
			name:   "starting",
			status: PipelineStatus{Addr: "127.0.0.1:9100", Running: true},
			want:   []string{"starting"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := formatStatusTable(tt.status)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestStatusCommand_JSON(t *testing.T) {
	addr := startObservability(t, false, []character.RecordStatus{{ID: "mutant", State: "definition_loaded"}})

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"status", "--addr", addr, "--json"})
	require.NoError(t, cmd.Execute())

	var got PipelineStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.True(t, got.Running)
	assert.False(t, got.Ready)
	require.Len(t, got.Characters, 1)
	assert.Equal(t, "definition_loaded", got.Characters[0].State)
}
