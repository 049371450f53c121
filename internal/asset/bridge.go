// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

import (
	"log/slog"

	"github.com/marionette-rig/marionette/internal/bus"
)

// LoadComplete is the application message emitted once per
// loaded-with-dependencies transition of an asset.
type LoadComplete struct {
	AssetKind Kind
	ID        ID
}

// LoadCompleteKind returns the message kind used for LoadComplete of the
// given asset kind, so handlers subscribe per asset kind.
func LoadCompleteKind(k Kind) bus.Kind {
	return bus.Kind("asset.load_complete." + string(k))
}

// Kind implements bus.Message.
func (m LoadComplete) Kind() bus.Kind {
	return LoadCompleteKind(m.AssetKind)
}

// Key identifies the message for re-poll bookkeeping.
func (m LoadComplete) Key() string {
	return string(m.Kind()) + ":" + m.ID.String()
}

// Pusher accepts messages for dispatch.
type Pusher interface {
	Push(msg bus.Message)
}

// Bridge converts the lifecycle event stream of one asset kind into
// LoadComplete messages. It trusts the server not to repeat a transition;
// consumers must still be idempotent.
type Bridge struct {
	kind Kind
	out  Pusher
}

// NewBridge creates a bridge for kind that pushes into out.
func NewBridge(kind Kind, out Pusher) *Bridge {
	return &Bridge{kind: kind, out: out}
}

// Forward pushes one LoadComplete per matching event and returns how many
// were pushed. Call it once per tick with that tick's events.
func (b *Bridge) Forward(events []Event) int {
	n := 0
	for _, ev := range events {
		if ev.Kind != b.kind || ev.Type != EventLoadedWithDependencies {
			continue
		}
		slog.Debug("bridging asset load", "kind", b.kind, "asset_id", ev.ID.String())
		b.out.Push(LoadComplete{AssetKind: b.kind, ID: ev.ID})
		n++
	}
	return n
}
