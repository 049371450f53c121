// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package app wires the asset server, scene world and character pipeline
// into one tick loop and supervises handler failures.
package app

import (
	"context"
	"io/fs"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
	"github.com/marionette-rig/marionette/internal/bus"
	"github.com/marionette-rig/marionette/internal/character"
	"github.com/marionette-rig/marionette/internal/observability"
	"github.com/marionette-rig/marionette/internal/scene"
	"github.com/marionette-rig/marionette/pkg/errutil"
)

// tpsSmoothing is the weight of the newest sample in the tick rate average.
const tpsSmoothing = 0.1

// App is one pipeline session.
type App struct {
	cfg Config

	assets   *asset.Server
	world    *scene.World
	registry *character.Registry
	queue    *bus.Queue
	bridge   *asset.Bridge
	spawner  *scene.Spawner
	orch     *character.Orchestrator
	act      *character.Activator
	metrics  *observability.Metrics

	repolls map[string]*repoll
	ticks   atomic.Uint64
	tps     float64

	ready   atomic.Bool
	running atomic.Bool
	closeMu sync.Mutex
	closed  bool
}

// New builds the pipeline over the asset root fsys and registers its metrics
// with reg.
func New(cfg Config, fsys fs.FS, reg prometheus.Registerer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, oops.With("operation", "new_app").Wrap(err)
	}

	assets := asset.NewServer(fsys, asset.WithWorkers(cfg.Workers))
	loaders := []struct {
		kind     asset.Kind
		patterns []string
		decode   asset.Decoder
	}{
		{character.KindDefinition, character.DefinitionPatterns, character.DecodeDefinition},
		{scene.KindScene, []string{"models/**"}, scene.DecodeScene},
		{anim.KindClip, []string{"anims/**"}, anim.DecodeClip},
	}
	for _, l := range loaders {
		if err := assets.Register(l.kind, l.patterns, l.decode); err != nil {
			return nil, err
		}
	}

	a := &App{
		cfg:     cfg,
		assets:  assets,
		world:   scene.NewWorld(),
		queue:   bus.NewQueue(),
		repolls: make(map[string]*repoll),
	}
	a.registry = character.NewRegistry(assets)
	a.bridge = asset.NewBridge(character.KindDefinition, a.queue)
	a.spawner = scene.NewSpawner(a.world, assets, a.queue)
	a.orch = character.NewOrchestrator(assets, a.world, a.registry)
	a.act = character.NewActivator(assets, a.world, a.registry, character.WithTraversal(cfg.Traversal))

	a.metrics = observability.NewMetrics(reg)
	asset.RegisterMetrics(reg)
	character.RegisterMetrics(reg)

	a.queue.Handle(KindSelect, a.supervised(a.handleSelect))
	a.queue.Handle(asset.LoadCompleteKind(character.KindDefinition), a.supervised(a.orch.HandleLoadComplete))
	a.queue.Handle(scene.KindInstanceReady, a.supervised(a.act.HandleSceneReady))
	a.queue.OnError(a.onError)

	return a, nil
}

// Select asks the pipeline to load and register a character from the
// catalog. It is processed on the next tick.
func (a *App) Select(id string) {
	a.queue.Push(SelectCharacter{ID: id})
}

// Tick runs one pipeline step: loads finished since the last tick are
// bridged, resolved scenes instantiated, queued messages dispatched, and
// animation players advanced by dt.
func (a *App) Tick(ctx context.Context, dt time.Duration) {
	start := time.Now()

	if a.assets.Workers() == 0 {
		a.assets.Flush(ctx)
	}
	events := a.assets.Events()
	a.countFailedLoads(events)
	a.bridge.Forward(events)
	a.spawner.Update()
	a.queue.Drain(ctx)
	scene.Animate(a.world, a.assets, dt)

	a.ticks.Add(1)
	if !a.ready.Load() && a.activated() {
		a.ready.Store(true)
		slog.InfoContext(ctx, "pipeline ready", "character_id", a.cfg.Select, "ticks", a.ticks.Load())
	}

	elapsed := time.Since(start)
	a.metrics.TickDuration.Observe(elapsed.Seconds())
	if dt > 0 {
		sample := float64(time.Second) / float64(dt)
		if a.tps == 0 {
			a.tps = sample
		} else {
			a.tps += tpsSmoothing * (sample - a.tps)
		}
		a.metrics.TicksPerSecond.Set(a.tps)
	}
}

// countFailedLoads records load failures; the asset server logs them.
func (a *App) countFailedLoads(events []asset.Event) {
	for _, ev := range events {
		if ev.Type == asset.EventFailed {
			a.metrics.FailuresTotal.WithLabelValues(StageLoad, errutil.Code(ev.Err)).Inc()
		}
	}
}

func (a *App) activated() bool {
	if a.cfg.Select == "" {
		return true
	}
	rec, err := a.registry.Get(a.cfg.Select)
	if err != nil {
		return false
	}
	return rec.State() == character.StateSceneActivated
}

// Run drives the pipeline until ctx is cancelled. The configured character is
// selected before the first tick.
func (a *App) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return oops.Errorf("pipeline already running")
	}
	defer a.running.Store(false)

	if a.assets.Workers() > 0 {
		if err := a.assets.Start(ctx); err != nil {
			return err
		}
	}
	defer a.Close()

	if a.cfg.Select != "" {
		a.Select(a.cfg.Select)
	}

	slog.InfoContext(ctx, "pipeline started",
		"tick", a.cfg.Tick.String(),
		"workers", a.assets.Workers(),
		"traversal", a.cfg.Traversal.String())

	ticker := time.NewTicker(a.cfg.Tick)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "pipeline stopping", "ticks", a.ticks.Load())
			return nil
		case now := <-ticker.C:
			a.Tick(ctx, now.Sub(last))
			last = now
		}
	}
}

// Close stops the loader pool and releases every handle the pipeline owns.
// It is safe to call more than once.
func (a *App) Close() {
	a.closeMu.Lock()
	defer a.closeMu.Unlock()
	if a.closed {
		return
	}
	a.closed = true

	if err := a.assets.Close(); err != nil {
		slog.Warn("asset server close failed", "error", err)
	}
	for _, e := range scene.Query[scene.SceneRoot](a.world) {
		a.world.Despawn(e)
	}
	a.registry.Close()
}

// Ready reports whether the selected character's idle animation is running.
func (a *App) Ready() bool {
	return a.ready.Load()
}

// Snapshot returns the committed state of every character record. Safe to
// call from any goroutine.
func (a *App) Snapshot() []character.RecordStatus {
	return a.registry.Snapshot()
}

// Ticks returns the number of completed ticks.
func (a *App) Ticks() uint64 {
	return a.ticks.Load()
}

// World exposes the scene world for inspection.
func (a *App) World() *scene.World {
	return a.world
}

// Metrics exposes the pipeline metrics.
func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// Assets exposes the asset server for inspection.
func (a *App) Assets() *asset.Server {
	return a.assets
}
