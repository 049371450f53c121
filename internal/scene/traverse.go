// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package scene

import (
	"fmt"
	"strings"
)

// TraversalOrder selects how Descendants walks a subtree. Both orders visit
// children in insertion order and never include the root itself.
type TraversalOrder uint8

const (
	// PreOrder is depth-first: a node, then each child's whole subtree in turn.
	PreOrder TraversalOrder = iota
	// BreadthFirst visits all nodes at depth 1, then depth 2, and so on.
	BreadthFirst
)

func (o TraversalOrder) String() string {
	switch o {
	case PreOrder:
		return "preorder"
	case BreadthFirst:
		return "breadthfirst"
	default:
		return "unknown"
	}
}

// ParseTraversalOrder parses "preorder" or "breadthfirst".
func ParseTraversalOrder(s string) (TraversalOrder, error) {
	switch strings.ToLower(s) {
	case "", "preorder", "pre-order", "depthfirst":
		return PreOrder, nil
	case "breadthfirst", "breadth-first", "bfs":
		return BreadthFirst, nil
	default:
		return PreOrder, fmt.Errorf("traversal order must be 'preorder' or 'breadthfirst', got %q", s)
	}
}

// Descendants returns every entity below root in the given order.
func (w *World) Descendants(root Entity, order TraversalOrder) []Entity {
	w.mu.RLock()
	defer w.mu.RUnlock()

	n, ok := w.entities[root]
	if !ok {
		return nil
	}

	var out []Entity
	switch order {
	case BreadthFirst:
		queue := append([]Entity(nil), n.children...)
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			out = append(out, cur)
			queue = append(queue, w.entities[cur].children...)
		}
	default:
		var walk func(e Entity)
		walk = func(e Entity) {
			out = append(out, e)
			for _, c := range w.entities[e].children {
				walk(c)
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	return out
}

// FindFirst returns the first descendant of root, in the given order, that
// satisfies match.
func (w *World) FindFirst(root Entity, order TraversalOrder, match func(Entity) bool) (Entity, bool) {
	for _, e := range w.Descendants(root, order) {
		if match(e) {
			return e, true
		}
	}
	return Entity{}, false
}
