// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package app

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/character"
	"github.com/marionette-rig/marionette/pkg/errutil"
)

// KindSelect is the message kind of SelectCharacter.
const KindSelect bus.Kind = "character.select"

// SelectCharacter asks for a catalog character to be loaded and registered.
type SelectCharacter struct {
	ID string
}

// Kind implements bus.Message.
func (m SelectCharacter) Kind() bus.Kind {
	return KindSelect
}

// Key identifies the selection for retry bookkeeping.
func (m SelectCharacter) Key() string {
	return string(KindSelect) + ":" + m.ID
}

// handleSelect starts the definition load and registers the record. The
// definition handle moves into the registry; selecting a character that is
// already registered is a no-op.
func (a *App) handleSelect(ctx context.Context, msg bus.Message) error {
	sel, ok := msg.(SelectCharacter)
	if !ok {
		return oops.Code(character.CodeUnexpectedMessage).
			With("kind", string(msg.Kind())).
			Errorf("picker cannot handle %s", msg.Kind())
	}

	path, ok := a.cfg.Catalog[sel.ID]
	if !ok {
		return character.ErrUnknownCharacter(sel.ID)
	}

	def := a.assets.Load(character.KindDefinition, path)
	if _, err := a.registry.Register(sel.ID, def); err != nil {
		def.Release()
		if errutil.HasCode(err, character.CodeAlreadyRegistered) {
			slog.InfoContext(ctx, "character already selected", "character_id", sel.ID)
			return nil
		}
		return err
	}

	slog.InfoContext(ctx, "character selected",
		"character_id", sel.ID,
		"path", path,
		"definition_id", def.ID().String())
	return nil
}
