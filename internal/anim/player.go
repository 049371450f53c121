// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package anim

import (
	"slices"
	"sync"
	"time"
)

// RepeatMode controls what happens when an animation reaches its end.
type RepeatMode uint8

const (
	RepeatNever RepeatMode = iota
	RepeatForever
)

// ActiveAnimation is the playback state of one graph node.
type ActiveAnimation struct {
	mode        RepeatMode
	elapsed     time.Duration
	completions int
	finished    bool
}

// Repeat makes the animation loop forever and returns it for chaining.
func (a *ActiveAnimation) Repeat() *ActiveAnimation {
	a.mode = RepeatForever
	a.finished = false
	return a
}

// Mode returns the repeat mode.
func (a *ActiveAnimation) Mode() RepeatMode { return a.mode }

// Elapsed returns the position inside the current loop.
func (a *ActiveAnimation) Elapsed() time.Duration { return a.elapsed }

// Completions returns how many times the clip reached its end.
func (a *ActiveAnimation) Completions() int { return a.completions }

// Finished reports whether a non-repeating animation reached its end.
func (a *ActiveAnimation) Finished() bool { return a.finished }

func (a *ActiveAnimation) advance(dt, length time.Duration) {
	if a.finished || length <= 0 || dt <= 0 {
		return
	}
	a.elapsed += dt
	if a.elapsed < length {
		return
	}
	if a.mode == RepeatForever {
		a.completions += int(a.elapsed / length)
		a.elapsed %= length
		return
	}
	a.completions++
	a.elapsed = length
	a.finished = true
}

// Player is the animation playback component. It plays nodes of the graph
// attached to the same entity through a GraphHandle.
type Player struct {
	mu     sync.Mutex
	active map[NodeIndex]*ActiveAnimation
}

// NewPlayer creates an idle player.
func NewPlayer() *Player {
	return &Player{active: make(map[NodeIndex]*ActiveAnimation)}
}

// Play starts node idx, or returns it unchanged if it is already playing.
func (p *Player) Play(idx NodeIndex) *ActiveAnimation {
	p.mu.Lock()
	defer p.mu.Unlock()

	if a, ok := p.active[idx]; ok {
		return a
	}
	a := &ActiveAnimation{}
	p.active[idx] = a
	return a
}

// Animation returns the playback state of node idx.
func (p *Player) Animation(idx NodeIndex) (*ActiveAnimation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	a, ok := p.active[idx]
	return a, ok
}

// IsPlaying reports whether node idx is active and not finished.
func (p *Player) IsPlaying(idx NodeIndex) bool {
	a, ok := p.Animation(idx)
	return ok && !a.finished
}

// Playing returns the active node indices in ascending order.
func (p *Player) Playing() []NodeIndex {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]NodeIndex, 0, len(p.active))
	for idx := range p.active {
		out = append(out, idx)
	}
	slices.Sort(out)
	return out
}

// Stop removes node idx from playback.
func (p *Player) Stop(idx NodeIndex) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, idx)
}

// Advance moves every active animation forward by dt. length reports the
// clip length of a node; nodes whose clip is not resolved yet report false
// and stay where they are.
func (p *Player) Advance(dt time.Duration, length func(NodeIndex) (time.Duration, bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for idx, a := range p.active {
		if l, ok := length(idx); ok {
			a.advance(dt, l)
		}
	}
}
