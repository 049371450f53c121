// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package asset provides the asynchronous asset server: reference-counted
// handles, loaders routed by locator pattern, a worker pool doing the I/O out
// of band, and the lifecycle event stream the pipeline drains once per tick.
package asset

import (
	"context"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/gobwas/glob"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"
)

// Kind names a family of assets that share a decoder.
type Kind string

// Decoder turns raw file bytes into an asset object.
type Decoder func(data []byte, loc Locator) (any, error)

// Releaser is implemented by asset objects that own handles of their own.
// Release is called once when the asset is evicted.
type Releaser interface {
	Release()
}

// Resolver looks up loaded asset objects.
type Resolver interface {
	Resolve(id ID) (any, bool)
}

// Get resolves an asset and asserts its type.
func Get[T any](r Resolver, id ID) (T, bool) {
	var zero T
	v, ok := r.Resolve(id)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

type loader struct {
	kind    Kind
	pattern string
	glob    glob.Glob
	decode  Decoder
}

type entry struct {
	kind    Kind
	locator string
	refs    int
	state   LoadState
	value   any
	err     error
}

type locKey struct {
	kind    Kind
	locator string
}

type request struct {
	id      ID
	kind    Kind
	locator Locator
}

// Server loads assets from a file system on a pool of workers.
//
// With zero workers nothing loads in the background; queued requests are
// executed by Flush on the caller's goroutine. The pipeline uses that mode to
// run deterministically in tests.
type Server struct {
	fsys    fs.FS
	workers int

	mu      sync.Mutex
	entries map[ID]*entry
	byLoc   map[locKey]ID
	loaders []loader
	queue   []request
	events  []Event

	notify chan struct{}
	cancel context.CancelFunc
	group  *errgroup.Group
}

// ServerOption configures the Server.
type ServerOption func(*Server)

// WithWorkers sets the size of the loader pool.
func WithWorkers(n int) ServerOption {
	return func(s *Server) {
		if n >= 0 {
			s.workers = n
		}
	}
}

// NewServer creates an asset server reading from fsys.
func NewServer(fsys fs.FS, opts ...ServerOption) *Server {
	s := &Server{
		fsys:    fsys,
		workers: 4,
		entries: make(map[ID]*entry),
		byLoc:   make(map[locKey]ID),
		notify:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workers returns the configured pool size.
func (s *Server) Workers() int {
	return s.workers
}

// Register adds a decoder for kind, used for paths matching any of patterns.
// Patterns use glob syntax with '/' as the separator, so "**.json" matches in
// any directory. The first registered loader that matches wins.
func (s *Server) Register(kind Kind, patterns []string, dec Decoder) error {
	compiled := make([]loader, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return oops.Code(CodeBadPattern).
				With("kind", kind).
				With("pattern", p).
				Wrap(err)
		}
		compiled = append(compiled, loader{kind: kind, pattern: p, glob: g, decode: dec})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders = append(s.loaders, compiled...)
	return nil
}

// Start launches the worker pool. Workers stop when ctx is cancelled or
// Close is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.group != nil {
		return oops.Code(CodeServerRunning).Errorf("asset server already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	for range s.workers {
		g.Go(func() error {
			s.work(gctx)
			return nil
		})
	}
	s.group = g
	s.cancel = cancel

	slog.Info("asset server started", "workers", s.workers)
	return nil
}

// Close stops the worker pool and waits for in-flight loads to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	g, cancel := s.group, s.cancel
	s.group, s.cancel = nil, nil
	s.mu.Unlock()

	if g == nil {
		return nil
	}
	cancel()
	if err := g.Wait(); err != nil {
		return oops.With("operation", "close_asset_server").Wrap(err)
	}
	return nil
}

// Load requests an asset and returns a strong handle to it immediately.
// Requesting a locator that is already known returns a new handle to the
// existing asset without reading the file again.
func (s *Server) Load(kind Kind, locator string) *Handle {
	loc := ParseLocator(locator)
	key := locKey{kind: kind, locator: loc.String()}

	s.mu.Lock()
	if id, ok := s.byLoc[key]; ok {
		s.entries[id].refs++
		s.mu.Unlock()
		recordLoad(kind, ResultDeduplicated)
		return &Handle{id: id, kind: kind, srv: s}
	}

	id := NewID()
	s.entries[id] = &entry{kind: kind, locator: key.locator, refs: 1, state: StateLoading}
	s.byLoc[key] = id
	s.queue = append(s.queue, request{id: id, kind: kind, locator: loc})
	s.mu.Unlock()

	s.signal()
	recordLoad(kind, ResultRequested)
	slog.Debug("asset load requested",
		"kind", kind,
		"locator", key.locator,
		"asset_id", id.String())

	return &Handle{id: id, kind: kind, srv: s}
}

// Add stores an in-memory asset and returns the first handle to it. The
// lifecycle events are emitted as if it had been loaded.
func (s *Server) Add(kind Kind, value any) *Handle {
	id := NewID()

	s.mu.Lock()
	s.entries[id] = &entry{kind: kind, refs: 1, state: StateLoaded, value: value}
	s.events = append(s.events,
		Event{Type: EventCreated, Kind: kind, ID: id},
		Event{Type: EventLoadedWithDependencies, Kind: kind, ID: id},
	)
	s.mu.Unlock()

	return &Handle{id: id, kind: kind, srv: s}
}

// Resolve returns the object for a loaded asset.
func (s *Server) Resolve(id ID) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.state != StateLoaded {
		return nil, false
	}
	return e.value, true
}

// State returns the load state of an asset. Evicted or unknown assets report
// StateNotLoaded.
func (s *Server) State(id ID) LoadState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		return e.state
	}
	return StateNotLoaded
}

// LoadError returns the failure recorded for an asset, if any.
func (s *Server) LoadError(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		return e.err
	}
	return nil
}

// Refs returns the number of live strong handles to an asset.
func (s *Server) Refs(id ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		return e.refs
	}
	return 0
}

// Events drains the lifecycle events emitted since the last call, in
// emission order.
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.events
	s.events = nil
	return events
}

// Pending returns the number of queued load requests.
func (s *Server) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Flush executes every queued load request on the caller's goroutine and
// returns how many were processed.
func (s *Server) Flush(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		req, ok := s.dequeue()
		if !ok {
			break
		}
		s.process(req)
		n++
	}
	return n
}

func (s *Server) work(ctx context.Context) {
	for {
		req, ok := s.dequeue()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				continue
			}
		}
		s.process(req)
	}
}

func (s *Server) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Server) dequeue() (request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return request{}, false
	}
	req := s.queue[0]
	s.queue = s.queue[1:]
	if len(s.queue) > 0 {
		s.signal()
	}
	return req, true
}

func (s *Server) process(req request) {
	value, err := s.decode(req)

	s.mu.Lock()
	e, ok := s.entries[req.id]
	if !ok {
		s.mu.Unlock()
		// Every handle was released while the load was in flight.
		if r, isReleaser := value.(Releaser); isReleaser {
			r.Release()
		}
		return
	}

	if err != nil {
		e.state = StateFailed
		e.err = err
		s.events = append(s.events, Event{Type: EventFailed, Kind: req.kind, ID: req.id, Err: err})
		s.mu.Unlock()

		recordLoad(req.kind, ResultFailed)
		slog.Warn("asset load failed",
			"kind", req.kind,
			"locator", req.locator.String(),
			"asset_id", req.id.String(),
			"error", err)
		return
	}

	e.state = StateLoaded
	e.value = value
	s.events = append(s.events,
		Event{Type: EventCreated, Kind: req.kind, ID: req.id},
		Event{Type: EventLoadedWithDependencies, Kind: req.kind, ID: req.id},
	)
	s.mu.Unlock()

	recordLoad(req.kind, ResultLoaded)
	slog.Debug("asset loaded",
		"kind", req.kind,
		"locator", req.locator.String(),
		"asset_id", req.id.String())
}

func (s *Server) decode(req request) (any, error) {
	dec, ok := s.findLoader(req.kind, req.locator.Path)
	if !ok {
		return nil, oops.Code(CodeNoLoader).
			With("kind", req.kind).
			With("locator", req.locator.String()).
			Errorf("no loader registered for %s asset %q", req.kind, req.locator.Path)
	}

	data, err := fs.ReadFile(s.fsys, path.Clean(req.locator.Path))
	if err != nil {
		return nil, oops.Code(CodeReadFailed).
			With("locator", req.locator.String()).
			Wrap(err)
	}

	value, err := dec(data, req.locator)
	if err != nil {
		return nil, oops.Code(CodeDecodeFailed).
			With("kind", req.kind).
			With("locator", req.locator.String()).
			Wrap(err)
	}
	return value, nil
}

func (s *Server) findLoader(kind Kind, p string) (Decoder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.loaders {
		if l.kind == kind && l.glob.Match(p) {
			return l.decode, true
		}
	}
	return nil, false
}

func (s *Server) retain(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok {
		e.refs++
	}
}

func (s *Server) release(id ID) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.refs--
	if e.refs > 0 {
		s.mu.Unlock()
		return
	}

	delete(s.entries, id)
	if e.locator != "" {
		delete(s.byLoc, locKey{kind: e.kind, locator: e.locator})
	}
	s.events = append(s.events, Event{Type: EventRemoved, Kind: e.kind, ID: id})
	s.mu.Unlock()

	if r, isReleaser := e.value.(Releaser); isReleaser {
		r.Release()
	}
	recordLoad(e.kind, ResultEvicted)
	slog.Debug("asset evicted",
		"kind", e.kind,
		"locator", e.locator,
		"asset_id", id.String())
}
