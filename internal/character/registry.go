// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package character

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/oops"

	"github.com/marionette-rig/marionette/internal/anim"
	"github.com/marionette-rig/marionette/internal/asset"
)

// State is the lifecycle stage of a character record.
type State uint8

// Record states, in the only order they are entered.
const (
	StateUnregistered State = iota
	StateRegistered
	StateDefinitionLoaded
	StateSceneActivated
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateDefinitionLoaded:
		return "definition_loaded"
	case StateSceneActivated:
		return "scene_activated"
	default:
		return "unknown"
	}
}

// AnimationRef names a playback graph and the node to play in it.
type AnimationRef struct {
	Graph *asset.Handle
	Node  anim.NodeIndex
}

// Record is the per-character state owned by the registry. It owns the
// definition handle and one graph handle per animation for the session.
type Record struct {
	reg        *Registry
	id         string
	definition *asset.Handle
	animations map[string]AnimationRef
	state      State
}

// ID returns the character id.
func (r *Record) ID() string {
	return r.id
}

// Definition returns the record's definition handle. The record keeps
// ownership; callers that store it must Clone.
func (r *Record) Definition() *asset.Handle {
	return r.definition
}

// State returns the record's lifecycle stage.
func (r *Record) State() State {
	r.reg.mu.RLock()
	defer r.reg.mu.RUnlock()
	return r.state
}

// Animation returns the entry for name.
func (r *Record) Animation(name string) (AnimationRef, bool) {
	r.reg.mu.RLock()
	defer r.reg.mu.RUnlock()
	ref, ok := r.animations[name]
	return ref, ok
}

// Animations returns the names of the inserted animations, sorted.
func (r *Record) Animations() []string {
	r.reg.mu.RLock()
	defer r.reg.mu.RUnlock()
	return r.animationNamesLocked()
}

func (r *Record) animationNamesLocked() []string {
	names := make([]string, 0, len(r.animations))
	for name := range r.animations {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Registry maps character ids to records for the lifetime of a session.
type Registry struct {
	mu      sync.RWMutex
	assets  asset.Resolver
	records map[string]*Record
}

// NewRegistry creates an empty registry. Graphs inserted into records are
// checked against assets.
func NewRegistry(assets asset.Resolver) *Registry {
	return &Registry{
		assets:  assets,
		records: make(map[string]*Record),
	}
}

// Register creates an empty record owning def. Registering an id twice fails
// with CHARACTER_ALREADY_REGISTERED, and a definition asset already owned by
// another record fails with DEFINITION_IN_USE. On failure def stays owned by
// the caller.
func (r *Registry) Register(id string, def *asset.Handle) (*Record, error) {
	if id == "" || def == nil {
		return nil, oops.Code(CodeInvalidDefinition).
			With("character_id", id).
			Errorf("registration needs an id and a definition handle")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return nil, ErrAlreadyRegistered(id)
	}
	if owner, ok := r.byDefinitionLocked(def.ID()); ok {
		return nil, oops.Code(CodeDefinitionInUse).
			With("character_id", id).
			With("owner", owner.id).
			With("asset_id", def.ID().String()).
			Errorf("definition %s already belongs to character %q", def.ID(), owner.id)
	}
	rec := &Record{
		reg:        r,
		id:         id,
		definition: def,
		animations: make(map[string]AnimationRef),
		state:      StateRegistered,
	}
	r.records[id] = rec

	slog.Info("character registered",
		"character_id", id,
		"asset_id", def.ID().String())
	return rec, nil
}

// Get returns the record for id.
func (r *Registry) Get(id string) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrUnregistered(id)
	}
	return rec, nil
}

// ByDefinition returns the record that owns the definition asset def. The
// record id is the catalog key it was selected under, which need not match
// the id inside the definition file.
func (r *Registry) ByDefinition(def asset.ID) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byDefinitionLocked(def)
	if !ok {
		return nil, ErrUnregisteredDefinition(def)
	}
	return rec, nil
}

func (r *Registry) byDefinitionLocked(def asset.ID) (*Record, bool) {
	for _, rec := range r.records {
		if rec.definition.ID() == def {
			return rec, true
		}
	}
	return nil, false
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// InsertAnimation takes ownership of graph and records it under name. The
// graph must be a loaded anim.Graph containing node. Entries are never
// replaced: inserting a name that exists releases graph and keeps the first.
func (r *Registry) InsertAnimation(id, name string, graph *asset.Handle, node anim.NodeIndex) error {
	if graph == nil {
		return oops.Code(CodeInvalidAnimation).
			With("character_id", id).
			With("animation", name).
			Errorf("animation %q has no graph", name)
	}
	g, ok := asset.Get[*anim.Graph](r.assets, graph.ID())
	if !ok {
		return ErrMissingAsset(graph.ID(), anim.KindGraph)
	}
	if _, ok := g.Node(node); !ok {
		return oops.Code(CodeInvalidAnimation).
			With("character_id", id).
			With("animation", name).
			With("node", int(node)).
			Errorf("graph has no node %d", node)
	}

	r.mu.Lock()
	rec, ok := r.records[id]
	if !ok {
		r.mu.Unlock()
		return ErrUnregistered(id)
	}
	if _, exists := rec.animations[name]; exists {
		r.mu.Unlock()
		graph.Release()
		slog.Debug("animation already recorded, keeping first",
			"character_id", id,
			"animation", name)
		return nil
	}
	rec.animations[name] = AnimationRef{Graph: graph, Node: node}
	r.mu.Unlock()

	slog.Debug("animation recorded",
		"character_id", id,
		"animation", name,
		"node", int(node))
	return nil
}

// Advance moves a record forward to state. Moving backwards fails; moving to
// the current state is a no-op.
func (r *Registry) Advance(id string, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return ErrUnregistered(id)
	}
	if state < rec.state {
		return oops.Code(CodeStateRegression).
			With("character_id", id).
			With("from", rec.state.String()).
			With("to", state.String()).
			Errorf("character %q cannot move from %s to %s", id, rec.state, state)
	}
	rec.state = state
	return nil
}

// RecordStatus is a point-in-time view of one record.
type RecordStatus struct {
	ID           string   `json:"id"`
	State        string   `json:"state"`
	DefinitionID string   `json:"definition_id"`
	Animations   []string `json:"animations"`
}

// Snapshot returns the status of every record, sorted by id.
func (r *Registry) Snapshot() []RecordStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RecordStatus, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, RecordStatus{
			ID:           rec.id,
			State:        rec.state.String(),
			DefinitionID: rec.definition.ID().String(),
			Animations:   rec.animationNamesLocked(),
		})
	}
	slices.SortFunc(out, func(a, b RecordStatus) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Close releases every handle the registry owns and empties it.
func (r *Registry) Close() {
	r.mu.Lock()
	records := r.records
	r.records = make(map[string]*Record)
	r.mu.Unlock()

	for _, rec := range records {
		for _, ref := range rec.animations {
			ref.Graph.Release()
		}
		rec.definition.Release()
	}
}
