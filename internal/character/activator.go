// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/scene"
)

// Activator starts a character's idle animation once its scene instance is
// ready.
type Activator struct {
	assets   asset.Resolver
	world    *scene.World
	registry *Registry
	order    scene.TraversalOrder
	done     map[scene.Entity]struct{}
}

// ActivatorOption configures the Activator.
type ActivatorOption func(*Activator)

// WithTraversal sets the order in which the scene subtree is searched for an
// animation player. The default is scene.PreOrder.
func WithTraversal(order scene.TraversalOrder) ActivatorOption {
	return func(a *Activator) {
		a.order = order
	}
}

// NewActivator creates an activator.
func NewActivator(assets asset.Resolver, world *scene.World, registry *Registry, opts ...ActivatorOption) *Activator {
	a := &Activator{
		assets:   assets,
		world:    world,
		registry: registry,
		order:    scene.PreOrder,
		done:     make(map[scene.Entity]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Subscribe routes SceneInstanceReady messages from q to the activator.
func (a *Activator) Subscribe(q *bus.Queue) {
	q.Handle(scene.KindInstanceReady, a.HandleSceneReady)
}

// HandleSceneReady binds the idle animation to the first animation player
// below the ready placeholder and starts it looping. Placeholders that are
// not character models are ignored. Each placeholder is activated once.
func (a *Activator) HandleSceneReady(ctx context.Context, msg bus.Message) (err error) {
	ready, ok := msg.(scene.SceneInstanceReady)
	if !ok {
		return oops.Code(CodeUnexpectedMessage).
			With("kind", string(msg.Kind())).
			Errorf("activator cannot handle %s", msg.Kind())
	}
	if _, done := a.done[ready.Entity]; done {
		return nil
	}
	model, ok := scene.Get[Model](a.world, ready.Entity)
	if !ok {
		return nil
	}

	ctx, span := tracer.Start(ctx, "character.activate",
		trace.WithAttributes(attribute.String("entity", ready.Entity.String())))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, ok := asset.Get[*Definition](a.assets, model.Definition.ID()); !ok {
		return ErrMissingAsset(model.Definition.ID(), KindDefinition)
	}
	rec, err := a.registry.ByDefinition(model.Definition.ID())
	if err != nil {
		return err
	}
	id := rec.ID()
	span.SetAttributes(attribute.String("character_id", id))

	target, found := a.world.FindFirst(ready.Entity, a.order, func(e scene.Entity) bool {
		return scene.Has[*anim.Player](a.world, e)
	})
	if !found {
		a.done[ready.Entity] = struct{}{}
		return ErrNoPlaybackNode(id, scene.Describe(a.world, ready.Entity))
	}

	ref, ok := rec.Animation(IdleAnimation)
	if !ok {
		// Every animation is inserted before the record reaches
		// StateDefinitionLoaded, so from there on the miss is final.
		if rec.State() < StateDefinitionLoaded {
			return ErrAnimationsPending(id, IdleAnimation)
		}
		return ErrAnimationNotFound(id, IdleAnimation)
	}

	if err := a.world.Insert(target, anim.GraphHandle{Graph: ref.Graph.Clone()}); err != nil {
		return err
	}
	player, _ := scene.Get[*anim.Player](a.world, target)
	player.Play(ref.Node).Repeat()

	a.done[ready.Entity] = struct{}{}
	if err := a.registry.Advance(id, StateSceneActivated); err != nil {
		return err
	}
	ActivatedTotal.Inc()

	slog.InfoContext(ctx, "running idle animation for character",
		"character_id", id,
		"entity", scene.Describe(a.world, target),
		"order", a.order.String())
	return nil
}
