// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package bus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMsg struct {
	kind Kind
	n    int
}

func (m testMsg) Kind() Kind { return m.kind }

func TestQueue_DrainPreservesEmissionOrder(t *testing.T) {
	q := NewQueue()

	var seen []int
	record := func(_ context.Context, msg Message) error {
		seen = append(seen, msg.(testMsg).n)
		return nil
	}
	q.Handle("a", record)
	q.Handle("b", record)

	q.Push(testMsg{kind: "a", n: 1})
	q.Push(testMsg{kind: "b", n: 2})
	q.Push(testMsg{kind: "a", n: 3})

	n := q.Drain(context.Background())
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, seen)
	assert.Zero(t, q.Len())
}

func TestQueue_MessagesPushedDuringDrainRunSameTick(t *testing.T) {
	q := NewQueue()

	var seen []Kind
	q.Handle("first", func(_ context.Context, msg Message) error {
		seen = append(seen, msg.Kind())
		q.Push(testMsg{kind: "second"})
		return nil
	})
	q.Handle("second", func(_ context.Context, msg Message) error {
		seen = append(seen, msg.Kind())
		return nil
	})

	q.Push(testMsg{kind: "first"})
	q.Drain(context.Background())

	assert.Equal(t, []Kind{"first", "second"}, seen)
}

func TestQueue_DeferredMessagesWaitForNextDrain(t *testing.T) {
	q := NewQueue()

	calls := 0
	q.Handle("retry", func(_ context.Context, msg Message) error {
		calls++
		if calls == 1 {
			q.Defer(msg)
		}
		return nil
	})

	q.Push(testMsg{kind: "retry"})

	require.Equal(t, 1, q.Drain(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, q.Len())

	require.Equal(t, 1, q.Drain(context.Background()))
	assert.Equal(t, 2, calls)
	assert.Zero(t, q.Len())
}

func TestQueue_ErrorsGoToOnErrorAndDoNotStopDrain(t *testing.T) {
	q := NewQueue()
	boom := errors.New("boom")

	var failed []int
	q.OnError(func(_ context.Context, msg Message, err error) {
		assert.ErrorIs(t, err, boom)
		failed = append(failed, msg.(testMsg).n)
	})

	handled := 0
	q.Handle("x", func(_ context.Context, msg Message) error {
		handled++
		if msg.(testMsg).n == 1 {
			return boom
		}
		return nil
	})

	q.Push(testMsg{kind: "x", n: 1})
	q.Push(testMsg{kind: "x", n: 2})
	q.Drain(context.Background())

	assert.Equal(t, 2, handled)
	assert.Equal(t, []int{1}, failed)
}

func TestQueue_UnhandledKindIsConsumed(t *testing.T) {
	q := NewQueue()
	q.Push(testMsg{kind: "nobody"})

	assert.Equal(t, 1, q.Drain(context.Background()))
	assert.Zero(t, q.Len())
}
