// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

// Package bus provides the tagged-message queue that drives the pipeline.
//
// Messages pushed during a tick are dispatched in emission order by the next
// call to Drain. Messages pushed by a handler while Drain is running are
// dispatched by the same Drain, after everything already queued. Deferred
// messages are held back until the following Drain.
package bus

import (
	"context"
	"log/slog"
	"sync"
)

// Kind identifies the type of a message for dispatch.
type Kind string

// Message is anything that can travel through the queue.
type Message interface {
	Kind() Kind
}

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) error

// ErrorFunc receives handler failures. Drain never stops on a failure.
type ErrorFunc func(ctx context.Context, msg Message, err error)

// maxDrain bounds how many messages a single Drain dispatches, so a handler
// that keeps re-pushing cannot wedge a tick.
const maxDrain = 10_000

// Queue is a FIFO of messages dispatched by kind to registered handlers.
type Queue struct {
	mu       sync.Mutex
	pending  []Message
	deferred []Message
	handlers map[Kind][]Handler
	onError  ErrorFunc
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		handlers: make(map[Kind][]Handler),
	}
}

// Handle registers a handler for a message kind. Handlers for the same kind
// run in registration order.
func (q *Queue) Handle(kind Kind, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[kind] = append(q.handlers[kind], h)
}

// OnError sets the failure callback used by Drain.
func (q *Queue) OnError(fn ErrorFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = fn
}

// Push enqueues a message for the current or next Drain.
func (q *Queue) Push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, msg)
}

// Defer enqueues a message for the Drain after the one currently running.
func (q *Queue) Defer(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deferred = append(q.deferred, msg)
}

// Len returns the number of messages waiting, deferred ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) + len(q.deferred)
}

// Drain dispatches every pending message and returns how many were handled.
// Deferred messages become pending once the drain finishes.
func (q *Queue) Drain(ctx context.Context) int {
	n := 0
	for n < maxDrain {
		msg, handlers, onError, ok := q.next()
		if !ok {
			break
		}
		n++

		if len(handlers) == 0 {
			slog.Debug("no handler for message", "kind", msg.Kind())
			continue
		}
		for _, h := range handlers {
			if err := h(ctx, msg); err != nil && onError != nil {
				onError(ctx, msg, err)
			}
		}
	}
	if n == maxDrain {
		slog.Warn("message drain limit reached, remaining messages carried over",
			"limit", maxDrain)
	}

	q.mu.Lock()
	q.pending = append(q.pending, q.deferred...)
	q.deferred = nil
	q.mu.Unlock()

	return n
}

func (q *Queue) next() (Message, []Handler, ErrorFunc, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, nil, nil, false
	}
	msg := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return msg, q.handlers[msg.Kind()], q.onError, true
}
