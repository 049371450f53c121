// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package scene provides the entity hierarchy that scenes are instantiated
// into, its traversal primitives, and the spawner that turns loaded scene
// assets into live subtrees.
package scene

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/marionette-rig/marionette/internal/asset"
)

// CodeNoEntity is returned when an operation names a despawned or unknown entity.
const CodeNoEntity = "NO_ENTITY"

// Entity identifies one node of the world.
type Entity = ulid.ULID

type node struct {
	parent    Entity
	hasParent bool
	children  []Entity
	comps     map[reflect.Type]any
}

// World stores entities, their parent/child links and their components.
// Components are keyed by dynamic type: one value per type per entity.
type World struct {
	mu       sync.RWMutex
	entities map[Entity]*node
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{entities: make(map[Entity]*node)}
}

// Spawn creates a root entity with the given components.
func (w *World) Spawn(components ...any) Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.spawnLocked(components)
}

// SpawnChild creates an entity under parent. Children keep insertion order.
func (w *World) SpawnChild(parent Entity, components ...any) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.entities[parent]
	if !ok {
		return Entity{}, errNoEntity(parent)
	}
	e := w.spawnLocked(components)
	n := w.entities[e]
	n.parent, n.hasParent = parent, true
	p.children = append(p.children, e)
	return e, nil
}

func (w *World) spawnLocked(components []any) Entity {
	e := asset.NewID()
	n := &node{comps: make(map[reflect.Type]any, len(components))}
	for _, c := range components {
		n.comps[reflect.TypeOf(c)] = c
	}
	w.entities[e] = n
	return e
}

// Insert adds or replaces components on an entity. A replaced component that
// owns handles is released.
func (w *World) Insert(e Entity, components ...any) error {
	w.mu.Lock()
	n, ok := w.entities[e]
	if !ok {
		w.mu.Unlock()
		return errNoEntity(e)
	}
	var replaced []any
	for _, c := range components {
		t := reflect.TypeOf(c)
		if old, exists := n.comps[t]; exists {
			replaced = append(replaced, old)
		}
		n.comps[t] = c
	}
	w.mu.Unlock()

	releaseAll(replaced)
	return nil
}

// Exists reports whether e is alive.
func (w *World) Exists(e Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.entities[e]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entities)
}

// Parent returns the parent of e.
func (w *World) Parent(e Entity) (Entity, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n, ok := w.entities[e]
	if !ok || !n.hasParent {
		return Entity{}, false
	}
	return n.parent, true
}

// Children returns a copy of e's children in insertion order.
func (w *World) Children(e Entity) []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n, ok := w.entities[e]
	if !ok {
		return nil
	}
	return slices.Clone(n.children)
}

// Despawn removes e and its whole subtree. Components that own handles are
// released.
func (w *World) Despawn(e Entity) {
	w.mu.Lock()
	n, ok := w.entities[e]
	if !ok {
		w.mu.Unlock()
		return
	}
	if n.hasParent {
		if p, ok := w.entities[n.parent]; ok {
			p.children = slices.DeleteFunc(p.children, func(c Entity) bool { return c == e })
		}
	}

	var released []any
	stack := []Entity{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		cn := w.entities[cur]
		delete(w.entities, cur)
		for _, c := range cn.comps {
			released = append(released, c)
		}
		stack = append(stack, cn.children...)
	}
	w.mu.Unlock()

	releaseAll(released)
}

// Get returns the component of type C on e.
func Get[C any](w *World, e Entity) (C, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var zero C
	n, ok := w.entities[e]
	if !ok {
		return zero, false
	}
	c, ok := n.comps[reflect.TypeFor[C]()]
	if !ok {
		return zero, false
	}
	return c.(C), true
}

// Has reports whether e carries a component of type C.
func Has[C any](w *World, e Entity) bool {
	_, ok := Get[C](w, e)
	return ok
}

// Query returns every entity carrying a component of type C, oldest first.
func Query[C any](w *World) []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	t := reflect.TypeFor[C]()
	var out []Entity
	for e, n := range w.entities {
		if _, ok := n.comps[t]; ok {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b Entity) int { return a.Compare(b) })
	return out
}

func releaseAll(components []any) {
	for _, c := range components {
		if r, ok := c.(asset.Releaser); ok {
			r.Release()
		}
	}
}

func errNoEntity(e Entity) error {
	return oops.Code(CodeNoEntity).
		With("entity", e.String()).
		Errorf("entity %s does not exist", e)
}

// Name is the human-readable name component.
type Name string

func (n Name) String() string {
	return string(n)
}

// Describe renders an entity for logs as "name (id)".
func Describe(w *World, e Entity) string {
	if n, ok := Get[Name](w, e); ok {
		return fmt.Sprintf("%s (%s)", n, e)
	}
	return e.String()
}
