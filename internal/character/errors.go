// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"github.com/samber/oops"

	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/pkg/errutil"
)

// Error codes for pipeline failures.
const (
	CodeMissingAsset      = "MISSING_ASSET"
	CodeUnregistered      = "UNREGISTERED_CHARACTER"
	CodeAnimationNotFound = "ANIMATION_NOT_FOUND"
	CodeAnimationsPending = "ANIMATIONS_PENDING"
	CodeNoPlaybackNode    = "NO_PLAYBACK_NODE"
	CodeAlreadyRegistered = "CHARACTER_ALREADY_REGISTERED"
	CodeUnknownCharacter  = "UNKNOWN_CHARACTER"
	CodeInvalidDefinition = "INVALID_DEFINITION"
	CodeInvalidAnimation  = "INVALID_ANIMATION_NODE"
	CodeStateRegression   = "STATE_REGRESSION"
	CodeUnexpectedMessage = "UNEXPECTED_MESSAGE"
	CodeDefinitionInUse   = "DEFINITION_IN_USE"
)

// ErrMissingAsset is returned when a handle does not resolve to a loaded asset.
func ErrMissingAsset(id asset.ID, kind asset.Kind) error {
	return oops.Code(CodeMissingAsset).
		With("asset_id", id.String()).
		With("kind", kind).
		Errorf("%s asset %s is not loaded", kind, id)
}

// ErrUnregistered is returned when no record exists for a character id.
func ErrUnregistered(id string) error {
	return oops.Code(CodeUnregistered).
		With("character_id", id).
		Errorf("character %q is not registered", id)
}

// ErrUnregisteredDefinition is returned when no record owns a definition asset.
func ErrUnregisteredDefinition(def asset.ID) error {
	return oops.Code(CodeUnregistered).
		With("asset_id", def.String()).
		Errorf("no character is registered for definition %s", def)
}

// ErrAnimationNotFound is returned when a record has no entry for an animation name.
func ErrAnimationNotFound(id, name string) error {
	return oops.Code(CodeAnimationNotFound).
		With("character_id", id).
		With("animation", name).
		Errorf("character %q has no animation %q", id, name)
}

// ErrAnimationsPending is returned when an animation is looked up before the
// record's definition has been processed.
func ErrAnimationsPending(id, name string) error {
	return oops.Code(CodeAnimationsPending).
		With("character_id", id).
		With("animation", name).
		Errorf("animations of character %q are not recorded yet", id)
}

// ErrNoPlaybackNode is returned when an instantiated scene has no animation player.
func ErrNoPlaybackNode(id, entity string) error {
	return oops.Code(CodeNoPlaybackNode).
		With("character_id", id).
		With("entity", entity).
		Errorf("scene for character %q has no animation player", id)
}

// ErrAlreadyRegistered is returned by Register for an id that has a record.
func ErrAlreadyRegistered(id string) error {
	return oops.Code(CodeAlreadyRegistered).
		With("character_id", id).
		Errorf("character %q is already registered", id)
}

// ErrUnknownCharacter is returned when a selected id is not in the catalog.
func ErrUnknownCharacter(id string) error {
	return oops.Code(CodeUnknownCharacter).
		With("character_id", id).
		Errorf("character %q is not in the catalog", id)
}

// IsNotReady reports whether err means a dependency has not arrived yet and
// the triggering message may succeed on a later tick.
func IsNotReady(err error) bool {
	switch errutil.Code(err) {
	case CodeMissingAsset, CodeAnimationsPending:
		return true
	default:
		return false
	}
}
