// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import "github.com/marionette-rig/marionette/internal/asset"

// Model marks a scene placeholder as a character's model. It holds its own
// strong handle to the definition, independent of the registry record.
type Model struct {
	Definition *asset.Handle
}

// Release drops the placeholder's definition handle.
func (m Model) Release() {
	m.Definition.Release()
}
