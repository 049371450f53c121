// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

import "sync/atomic"

// Handle is a strong reference to a possibly-unresolved asset. While at least
// one handle to an asset is live the server keeps it; releasing the last
// handle evicts it.
//
// Every owner holds its own *Handle obtained from Load, Add or Clone and
// releases it exactly once. Release is idempotent per handle.
type Handle struct {
	id       ID
	kind     Kind
	srv      *Server
	released atomic.Bool
}

// ID returns the asset identity.
func (h *Handle) ID() ID {
	return h.id
}

// Kind returns the asset kind the handle was requested as.
func (h *Handle) Kind() Kind {
	return h.kind
}

// Clone returns a new strong owner of the same asset.
func (h *Handle) Clone() *Handle {
	h.srv.retain(h.id)
	return &Handle{id: h.id, kind: h.kind, srv: h.srv}
}

// Release drops this owner's reference.
func (h *Handle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.srv.release(h.id)
}

// Released reports whether Release was called on this handle.
func (h *Handle) Released() bool {
	return h.released.Load()
}
