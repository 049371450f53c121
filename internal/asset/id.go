// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package asset

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID identifies one asset for the lifetime of the server.
type ID = ulid.ULID

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewID generates a new monotonic ULID. It is shared with the scene world so
// entity and asset identities sort by creation time.
func NewID() ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}
