// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package scene

import (
	"log/slog"
	"time"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/model"
)

// KindScene is the asset kind of instantiable scenes.
const KindScene asset.Kind = "scene"

// SceneLabelPrefix prefixes scene labels inside a model file ("Scene0").
const SceneLabelPrefix = "Scene"

// KindInstanceReady is the message kind of SceneInstanceReady.
const KindInstanceReady bus.Kind = "scene.instance_ready"

// DecodeScene is the asset decoder for KindScene.
func DecodeScene(data []byte, loc asset.Locator) (any, error) {
	m, err := model.ParseManifest(data)
	if err != nil {
		return nil, err
	}
	idx, err := loc.LabelIndex(SceneLabelPrefix)
	if err != nil {
		return nil, err
	}
	s, err := m.Scene(idx)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// SceneRoot marks an entity as the placeholder a scene is instantiated under.
type SceneRoot struct {
	Scene *asset.Handle
}

// Release drops the scene reference.
func (r SceneRoot) Release() {
	r.Scene.Release()
}

// SceneInstance is added to a placeholder once its scene was instantiated.
type SceneInstance struct {
	Nodes   int
	ReadyAt time.Time
}

// sceneFailed marks placeholders whose scene failed to load, so the failure
// is reported once.
type sceneFailed struct{}

// SceneInstanceReady is emitted once per placeholder after its subtree exists.
type SceneInstanceReady struct {
	Entity Entity
}

// Kind implements bus.Message.
func (SceneInstanceReady) Kind() bus.Kind {
	return KindInstanceReady
}

// Key identifies the message for re-poll bookkeeping.
func (m SceneInstanceReady) Key() string {
	return string(KindInstanceReady) + ":" + m.Entity.String()
}

// AssetState is what the spawner needs from the asset server.
type AssetState interface {
	asset.Resolver
	State(id asset.ID) asset.LoadState
}

// Spawner instantiates resolved scenes under their placeholders.
type Spawner struct {
	world  *World
	assets AssetState
	out    asset.Pusher

	spawnChild func(parent Entity, components ...any) (Entity, error)
}

// NewSpawner creates a spawner pushing SceneInstanceReady into out.
func NewSpawner(world *World, assets AssetState, out asset.Pusher) *Spawner {
	return &Spawner{world: world, assets: assets, out: out, spawnChild: world.SpawnChild}
}

// Update instantiates every placeholder whose scene has resolved since the
// last call and returns how many were instantiated.
func (s *Spawner) Update() int {
	n := 0
	for _, e := range Query[SceneRoot](s.world) {
		if Has[SceneInstance](s.world, e) || Has[sceneFailed](s.world, e) {
			continue
		}
		root, _ := Get[SceneRoot](s.world, e)
		id := root.Scene.ID()

		tmpl, ok := asset.Get[*model.Scene](s.assets, id)
		if !ok {
			if s.assets.State(id) == asset.StateFailed {
				slog.Warn("scene failed to load, placeholder stays empty",
					"entity", Describe(s.world, e),
					"asset_id", id.String())
				_ = s.world.Insert(e, sceneFailed{})
			}
			continue
		}

		count, err := s.instantiate(e, tmpl.Nodes)
		if err != nil {
			// instantiate removed what it built; the next Update starts over.
			slog.Error("scene instantiation failed",
				"entity", Describe(s.world, e),
				"error", err)
			continue
		}
		if err := s.world.Insert(e, SceneInstance{Nodes: count, ReadyAt: time.Now()}); err != nil {
			continue
		}

		slog.Debug("scene instantiated",
			"entity", Describe(s.world, e),
			"nodes", count)
		s.out.Push(SceneInstanceReady{Entity: e})
		n++
	}
	return n
}

// instantiate builds nodes under parent. On failure every child it spawned
// under parent is despawned with its subtree, so parent is left as it was.
func (s *Spawner) instantiate(parent Entity, nodes []model.Node) (int, error) {
	count := 0
	spawned := make([]Entity, 0, len(nodes))
	for _, nd := range nodes {
		components := []any{Name(nd.Name)}
		if nd.Player {
			components = append(components, anim.NewPlayer())
		}
		child, err := s.spawnChild(parent, components...)
		if err != nil {
			s.despawnAll(spawned)
			return 0, err
		}
		spawned = append(spawned, child)
		sub, err := s.instantiate(child, nd.Children)
		if err != nil {
			s.despawnAll(spawned)
			return 0, err
		}
		count += 1 + sub
	}
	return count, nil
}

func (s *Spawner) despawnAll(entities []Entity) {
	for _, e := range entities {
		s.world.Despawn(e)
	}
}

// Animate advances every player that has a graph attached.
func Animate(w *World, r asset.Resolver, dt time.Duration) {
	for _, e := range Query[*anim.Player](w) {
		gh, ok := Get[anim.GraphHandle](w, e)
		if !ok {
			continue
		}
		g, ok := asset.Get[*anim.Graph](r, gh.Graph.ID())
		if !ok {
			continue
		}
		p, _ := Get[*anim.Player](w, e)
		p.Advance(dt, anim.ClipLengths(r, g))
	}
}
