// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

// EventType identifies an asset lifecycle transition.
type EventType uint8

const (
	EventCreated EventType = iota
	EventModified
	EventRemoved
	EventLoadedWithDependencies
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventModified:
		return "modified"
	case EventRemoved:
		return "removed"
	case EventLoadedWithDependencies:
		return "loaded_with_dependencies"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one lifecycle notification from the server.
type Event struct {
	Type EventType
	Kind Kind
	ID   ID
	Err  error // set for EventFailed
}

// LoadState is the resolution state of an asset.
type LoadState uint8

const (
	StateNotLoaded LoadState = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateNotLoaded:
		return "not_loaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
