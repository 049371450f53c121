// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package app_test

import (
	"context"
	"os"
	"testing/fstest"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/app"
	"github.com/marionette-rig/marionette/internal/character"
	"github.com/marionette-rig/marionette/internal/scene"
)

const frame = 16 * time.Millisecond

func assetRoot() fstest.MapFS {
	return fstest.MapFS{
		"characters/mutant.json": {Data: []byte(`{
  "id": "mutant",
  "model_path": "models/mutant.yaml",
  "animation_paths": {
    "idle": "anims/mutant_idle.yaml",
    "walk": "anims/mutant_walk.yaml"
  }
}`)},
		"characters/walker.yaml": {Data: []byte(`
id: walker
model_path: models/mutant.yaml
animation_paths:
  walk: anims/mutant_walk.yaml
`)},
		"models/mutant.yaml": {Data: []byte(`
scenes:
  - nodes:
      - name: mutant
        children:
          - name: Armature
            player: true
            children:
              - name: Hips
`)},
		"anims/mutant_idle.yaml": {Data: []byte(`
animations:
  - name: idle
    duration: 2s
`)},
		"anims/mutant_walk.yaml": {Data: []byte(`
animations:
  - name: walk
    duration: 1s
`)},
	}
}

func newApp(selectID string) *app.App {
	a, err := app.New(app.Config{
		Workers: 0,
		Catalog: map[string]string{
			"mutant":  "characters/mutant.json",
			"walker":  "characters/walker.yaml",
			"missing": "characters/missing.json",
		},
		Select:     selectID,
		Tick:       frame,
		MaxRepolls: 3,
		Traversal:  scene.PreOrder,
	}, assetRoot(), prometheus.NewRegistry())
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(a.Close)
	return a
}

func tick(a *app.App, n int) {
	for range n {
		a.Tick(context.Background(), frame)
	}
}

func record(a *app.App, id string) (character.RecordStatus, bool) {
	for _, s := range a.Snapshot() {
		if s.ID == id {
			return s, true
		}
	}
	return character.RecordStatus{}, false
}

var _ = Describe("Character pipeline", func() {
	Describe("selecting the mutant", func() {
		var a *app.App

		BeforeEach(func() {
			a = newApp("mutant")
			a.Select("mutant")
		})

		It("becomes ready once the idle animation is playing", func() {
			Expect(a.Ready()).To(BeFalse())
			tick(a, 3)

			Expect(a.Ready()).To(BeTrue())
			rec, ok := record(a, "mutant")
			Expect(ok).To(BeTrue())
			Expect(rec.State).To(Equal("scene_activated"))
			Expect(rec.Animations).To(ConsistOf("idle", "walk"))
		})

		It("binds the idle graph to the animation player", func() {
			tick(a, 3)

			bound := scene.Query[anim.GraphHandle](a.World())
			Expect(bound).To(HaveLen(1))
			name, _ := scene.Get[scene.Name](a.World(), bound[0])
			Expect(name).To(Equal(scene.Name("Armature")))

			player, ok := scene.Get[*anim.Player](a.World(), bound[0])
			Expect(ok).To(BeTrue())
			Expect(player.Playing()).To(HaveLen(1))
		})

		It("treats a second selection as a no-op", func() {
			tick(a, 3)
			a.Select("mutant")
			tick(a, 2)

			Expect(a.Snapshot()).To(HaveLen(1))
			Expect(scene.Query[character.Model](a.World())).To(HaveLen(1))
			Expect(testutil.CollectAndCount(a.Metrics().FailuresTotal)).To(BeZero())
		})

		It("keeps ticking without further work", func() {
			tick(a, 10)
			Expect(a.Ticks()).To(Equal(uint64(10)))
			Expect(testutil.ToFloat64(a.Metrics().TicksPerSecond)).To(BeNumerically("~", 62.5, 0.01))
			Expect(testutil.CollectAndCount(a.Metrics().RepollsTotal)).To(BeZero())
		})
	})

	It("fails an unknown selection without registering anything", func() {
		a := newApp("")
		a.Select("ghost")
		tick(a, 2)

		Expect(a.Snapshot()).To(BeEmpty())
		Expect(testutil.ToFloat64(
			a.Metrics().FailuresTotal.WithLabelValues(app.StageSelect, character.CodeUnknownCharacter),
		)).To(Equal(1.0))
	})

	It("counts a definition that cannot be read", func() {
		a := newApp("")
		a.Select("missing")
		tick(a, 3)

		rec, ok := record(a, "missing")
		Expect(ok).To(BeTrue())
		Expect(rec.State).To(Equal("registered"))
		Expect(testutil.ToFloat64(
			a.Metrics().FailuresTotal.WithLabelValues(app.StageLoad, "ASSET_READ_FAILED"),
		)).To(Equal(1.0))
	})

	It("fails a missing idle animation without re-polling", func() {
		a := newApp("")
		a.Select("walker")
		tick(a, 10)

		rec, ok := record(a, "walker")
		Expect(ok).To(BeTrue())
		Expect(rec.State).To(Equal("definition_loaded"))
		Expect(testutil.CollectAndCount(a.Metrics().RepollsTotal)).To(BeZero())
		Expect(testutil.ToFloat64(
			a.Metrics().FailuresTotal.WithLabelValues(app.StageActivate, character.CodeAnimationNotFound),
		)).To(Equal(1.0))
		Expect(scene.Query[anim.GraphHandle](a.World())).To(BeEmpty())
	})

	It("activates a character whose catalog key differs from its definition id", func() {
		a, err := app.New(app.Config{
			Catalog:   map[string]string{"hero": "characters/mutant.json"},
			Select:    "hero",
			Tick:      frame,
			Traversal: scene.PreOrder,
		}, assetRoot(), prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		a.Select("hero")
		tick(a, 10)

		Expect(a.Ready()).To(BeTrue())
		Expect(a.Snapshot()).To(HaveLen(1))
		rec, ok := record(a, "hero")
		Expect(ok).To(BeTrue())
		Expect(rec.State).To(Equal("scene_activated"))
		Expect(rec.Animations).To(ConsistOf("idle", "walk"))
		Expect(testutil.CollectAndCount(a.Metrics().FailuresTotal)).To(BeZero())

		placeholders := scene.Query[character.Model](a.World())
		Expect(placeholders).To(HaveLen(1))
		name, _ := scene.Get[scene.Name](a.World(), placeholders[0])
		Expect(name).To(Equal(scene.Name("hero")))
	})

	It("activates every character in the shipped asset root", func() {
		a, err := app.New(app.Config{
			Catalog: map[string]string{
				"mutant":   "characters/mutant.json",
				"sentinel": "characters/sentinel.hcl",
			},
			Select:    "mutant",
			Tick:      frame,
			Traversal: scene.PreOrder,
		}, os.DirFS("../../assets"), prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		a.Select("mutant")
		a.Select("sentinel")
		tick(a, 3)

		Expect(a.Ready()).To(BeTrue())
		for _, id := range []string{"mutant", "sentinel"} {
			rec, ok := record(a, id)
			Expect(ok).To(BeTrue(), id)
			Expect(rec.State).To(Equal("scene_activated"), id)
		}
		Expect(scene.Query[anim.GraphHandle](a.World())).To(HaveLen(2))
	})

	It("is ready without a selection", func() {
		a := newApp("")
		tick(a, 1)
		Expect(a.Ready()).To(BeTrue())
	})
})
