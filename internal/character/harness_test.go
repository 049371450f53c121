// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/scene"
)

const mutantDefinition = `{
  "id": "mutant",
  "model_path": "models/mutant.yaml",
  "animation_paths": {
    "idle": "anims/mutant_idle.yaml",
    "walk": "anims/mutant_walk.yaml"
  }
}`

// The player sits on "Armature" at depth 2; "Eyes" at depth 1 in the second
// branch also has one, so the two traversal orders disagree.
const mutantModel = `
scenes:
  - nodes:
      - name: mutant
        children:
          - name: Armature
            player: true
            children:
              - name: Hips
      - name: Eyes
        player: true
`

const idleClip = `
animations:
  - name: idle
    duration: 2s
`

const walkClip = `
animations:
  - name: walk
    duration: 1s
`

func mutantFS() fstest.MapFS {
	return fstest.MapFS{
		"characters/mutant.json": {Data: []byte(mutantDefinition)},
		"models/mutant.yaml":     {Data: []byte(mutantModel)},
		"anims/mutant_idle.yaml": {Data: []byte(idleClip)},
		"anims/mutant_walk.yaml": {Data: []byte(walkClip)},
	}
}

// harness wires the pipeline the way the app does, with a synchronous asset
// server so each tick is deterministic.
type harness struct {
	t        *testing.T
	assets   *asset.Server
	world    *scene.World
	registry *Registry
	queue    *bus.Queue
	bridge   *asset.Bridge
	spawner  *scene.Spawner
	orch     *Orchestrator
	act      *Activator
	errs     []error
}

func newHarness(t *testing.T, files fstest.MapFS, opts ...ActivatorOption) *harness {
	t.Helper()

	srv := asset.NewServer(files, asset.WithWorkers(0))
	require.NoError(t, srv.Register(KindDefinition, DefinitionPatterns, DecodeDefinition))
	require.NoError(t, srv.Register(scene.KindScene, []string{"models/**"}, scene.DecodeScene))
	require.NoError(t, srv.Register(anim.KindClip, []string{"anims/**"}, anim.DecodeClip))

	h := &harness{
		t:      t,
		assets: srv,
		world:  scene.NewWorld(),
		queue:  bus.NewQueue(),
	}
	h.registry = NewRegistry(srv)
	h.bridge = asset.NewBridge(KindDefinition, h.queue)
	h.spawner = scene.NewSpawner(h.world, srv, h.queue)
	h.orch = NewOrchestrator(srv, h.world, h.registry)
	h.act = NewActivator(srv, h.world, h.registry, opts...)
	h.orch.Subscribe(h.queue)
	h.act.Subscribe(h.queue)
	h.queue.OnError(func(_ context.Context, _ bus.Message, err error) {
		h.errs = append(h.errs, err)
	})
	return h
}

// register loads a definition and registers the record, the way the picker does.
func (h *harness) register(id, path string) *asset.Handle {
	h.t.Helper()
	def := h.assets.Load(KindDefinition, path)
	_, err := h.registry.Register(id, def)
	require.NoError(h.t, err)
	return def
}

func (h *harness) tick() {
	ctx := context.Background()
	h.assets.Flush(ctx)
	h.bridge.Forward(h.assets.Events())
	h.spawner.Update()
	h.queue.Drain(ctx)
}

func (h *harness) run(ticks int) {
	for range ticks {
		h.tick()
	}
}

func (h *harness) placeholders() []scene.Entity {
	return scene.Query[Model](h.world)
}
