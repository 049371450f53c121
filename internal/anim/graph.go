// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Marionette Contributors

package anim

import (
	"sync"

	"github.com/marionette-rig/marionette/internal/asset"
)

// NodeIndex identifies a node within a Graph. Indices are stable for the
// lifetime of the graph.
type NodeIndex int

// NodeKind distinguishes blend nodes from clip nodes.
type NodeKind uint8

const (
	NodeBlend NodeKind = iota
	NodeClip
)

// GraphNode is one node of an animation graph.
type GraphNode struct {
	Kind     NodeKind
	Clip     *asset.Handle // nil for blend nodes
	Weight   float32
	Children []NodeIndex
}

// Graph is a small tree of blend and clip nodes. The graph owns a strong
// handle to every clip it references, so building a graph never waits for
// clip data.
type Graph struct {
	mu    sync.Mutex
	nodes []GraphNode
}

// NewGraph creates a graph holding only its root blend node.
func NewGraph() *Graph {
	return &Graph{
		nodes: []GraphNode{{Kind: NodeBlend, Weight: 1}},
	}
}

// FromClip builds a graph with a single clip under the root and returns the
// index of the clip node.
func FromClip(clip *asset.Handle) (*Graph, NodeIndex) {
	g := NewGraph()
	return g, g.AddClip(clip, 1, g.Root())
}

// Root returns the root node index.
func (g *Graph) Root() NodeIndex {
	return 0
}

// AddClip appends a clip node under parent and returns its index.
func (g *Graph) AddClip(clip *asset.Handle, weight float32, parent NodeIndex) NodeIndex {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := NodeIndex(len(g.nodes))
	g.nodes = append(g.nodes, GraphNode{Kind: NodeClip, Clip: clip, Weight: weight})
	if int(parent) >= 0 && int(parent) < len(g.nodes)-1 {
		g.nodes[parent].Children = append(g.nodes[parent].Children, idx)
	}
	return idx
}

// Node returns the node at idx.
func (g *Graph) Node(idx NodeIndex) (GraphNode, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if idx < 0 || int(idx) >= len(g.nodes) {
		return GraphNode{}, false
	}
	return g.nodes[idx], true
}

// Len returns the number of nodes, root included.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}

// Release drops the graph's clip handles. The asset server calls it when the
// graph is evicted.
func (g *Graph) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range g.nodes {
		n.Clip.Release()
	}
}

// GraphHandle is the component attaching a graph to an entity that has a
// Player.
type GraphHandle struct {
	Graph *asset.Handle
}

// Release drops the component's graph reference.
func (c GraphHandle) Release() {
	c.Graph.Release()
}
