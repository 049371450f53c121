// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/scene"
)

var tracer = otel.Tracer("github.com/marionette-rig/marionette/internal/character")

// Assets is the part of the asset server the pipeline drives.
type Assets interface {
	asset.Resolver
	Load(kind asset.Kind, locator string) *asset.Handle
	Add(kind asset.Kind, value any) *asset.Handle
}

// Orchestrator issues the model and clip loads for a character once its
// definition has loaded.
type Orchestrator struct {
	assets    Assets
	world     *scene.World
	registry  *Registry
	processed map[asset.ID]struct{}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(assets Assets, world *scene.World, registry *Registry) *Orchestrator {
	return &Orchestrator{
		assets:    assets,
		world:     world,
		registry:  registry,
		processed: make(map[asset.ID]struct{}),
	}
}

// Subscribe routes definition LoadComplete messages from q to the orchestrator.
func (o *Orchestrator) Subscribe(q *bus.Queue) {
	q.Handle(asset.LoadCompleteKind(KindDefinition), o.HandleLoadComplete)
}

// HandleLoadComplete processes one definition LoadComplete. The record is
// found by the definition asset, not the id inside the file. A definition
// asset is processed at most once: repeated deliveries after a success are
// no-ops.
//
// The scene placeholder is spawned and every clip load issued within this
// call. Nothing waits on the loads.
func (o *Orchestrator) HandleLoadComplete(ctx context.Context, msg bus.Message) (err error) {
	lc, ok := msg.(asset.LoadComplete)
	if !ok || lc.AssetKind != KindDefinition {
		return oops.Code(CodeUnexpectedMessage).
			With("kind", string(msg.Kind())).
			Errorf("orchestrator cannot handle %s", msg.Kind())
	}
	if _, done := o.processed[lc.ID]; done {
		slog.DebugContext(ctx, "definition already processed", "asset_id", lc.ID.String())
		return nil
	}

	ctx, span := tracer.Start(ctx, "character.orchestrate",
		trace.WithAttributes(attribute.String("asset_id", lc.ID.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	def, ok := asset.Get[*Definition](o.assets, lc.ID)
	if !ok {
		return ErrMissingAsset(lc.ID, KindDefinition)
	}
	rec, err := o.registry.ByDefinition(lc.ID)
	if err != nil {
		return err
	}
	id := rec.ID()
	span.SetAttributes(
		attribute.String("character_id", id),
		attribute.String("definition_id", def.ID))

	slog.InfoContext(ctx, "character definition loaded, loading assets",
		"character_id", id,
		"definition_id", def.ID,
		"animations", len(def.AnimationPaths))

	sceneLocator := def.ModelSceneLocator()
	slog.InfoContext(ctx, "loading character model",
		"character_id", id,
		"locator", sceneLocator)
	model := o.assets.Load(scene.KindScene, sceneLocator)
	placeholder := o.world.Spawn(
		scene.Name(id),
		scene.SceneRoot{Scene: model},
		Model{Definition: rec.Definition().Clone()},
	)

	for _, name := range def.Animations() {
		locator, _ := def.AnimationLocator(name)
		slog.InfoContext(ctx, "loading character animation",
			"character_id", id,
			"animation", name,
			"locator", locator)

		clip := o.assets.Load(anim.KindClip, locator)
		AnimationsRequested.Inc()
		graph, node := anim.FromClip(clip)
		gh := o.assets.Add(anim.KindGraph, graph)
		if err := o.registry.InsertAnimation(id, name, gh, node); err != nil {
			gh.Release()
			o.world.Despawn(placeholder)
			return oops.With("animation", name).Wrap(err)
		}
	}

	if err := o.registry.Advance(id, StateDefinitionLoaded); err != nil {
		o.world.Despawn(placeholder)
		return err
	}
	// Only a completed pass marks the definition.
	o.processed[lc.ID] = struct{}{}

	slog.DebugContext(ctx, "character placeholder spawned",
		"character_id", id,
		"entity", placeholder.String())
	return nil
}
