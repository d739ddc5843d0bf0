// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// DefaultMaxNodes is the default node capacity of a graph.
const DefaultMaxNodes = 1_000_000

// GraphOptions configures Graph behavior and limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes the graph can hold.
	// Zero or negative means unlimited.
	// Default: 1,000,000
	MaxNodes int
}

// DefaultGraphOptions returns sensible defaults for graph configuration.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
	}
}

// GraphOption is a functional option for configuring Graph.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes the graph can hold.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// Graph is a directed multigraph of code elements.
//
// Invariants:
//
//   - Every edge's source and target are present in the graph.
//   - Every edge appears exactly once in its source's Outgoing list and
//     exactly once in its target's Incoming list.
//   - Node and edge iteration follow insertion order.
//
// Thread Safety:
//
//	Graph is NOT safe for concurrent use.
type Graph struct {
	// Metadata is graph-level data carried through serialization.
	Metadata Metadata

	nodes     map[string]*Node
	nodeOrder []*Node

	edges     []*Edge
	edgeIndex map[string]*Edge

	// revision increments on every successful mutation.
	revision uint64

	options GraphOptions
}

// NewGraph creates a new empty graph.
//
// Example:
//
//	g := NewGraph()
//	g := NewGraph(WithMaxNodes(10_000))
func NewGraph(opts ...GraphOption) *Graph {
	options := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&options)
	}

	return &Graph{
		nodes:     make(map[string]*Node),
		nodeOrder: make([]*Node, 0),
		edges:     make([]*Edge, 0),
		edgeIndex: make(map[string]*Edge),
		options:   options,
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// Revision returns a counter that changes whenever the graph is mutated.
// Two reads returning the same revision observed the same graph.
func (g *Graph) Revision() uint64 {
	return g.revision
}

// AddNode inserts a node into the graph.
//
// Description:
//
//	The node's adjacency lists are reset; edges are attached only through
//	AddEdge/CreateEdge.
//
// Errors:
//
//	ErrInvalidNode - node is nil, has an empty ID, or an unknown kind
//	ErrDuplicateNode - a node with the same ID already exists
//	ErrMaxNodesExceeded - the graph is at node capacity
func (g *Graph) AddNode(node *Node) error {
	if node == nil {
		return fmt.Errorf("%w: node is nil", ErrInvalidNode)
	}
	if node.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidNode)
	}
	if !node.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidNode, node.Kind, node.ID)
	}
	if _, exists := g.nodes[node.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateNode, node.ID)
	}
	if g.options.MaxNodes > 0 && len(g.nodes) >= g.options.MaxNodes {
		return ErrMaxNodesExceeded
	}

	node.Outgoing = make([]*Edge, 0)
	node.Incoming = make([]*Edge, 0)

	g.nodes[node.ID] = node
	g.nodeOrder = append(g.nodeOrder, node)
	g.revision++
	return nil
}

// CreateNode builds a node from opts and adds it to the graph.
//
// Description:
//
//	When opts.ID is empty a random UUID is generated.
//
// Outputs:
//
//	*Node - The inserted node.
//	error - Same conditions as AddNode.
func (g *Graph) CreateNode(opts NodeOptions) (*Node, error) {
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}

	node := &Node{
		ID:       id,
		Kind:     opts.Kind,
		Name:     opts.Name,
		File:     opts.File,
		Location: opts.Location,
		Code:     opts.Code,
		Metadata: opts.Metadata,
	}
	if err := g.AddNode(node); err != nil {
		return nil, err
	}
	return node, nil
}

// GetNode retrieves a node by its ID.
//
// Outputs:
//
//	*Node - The node if found, nil otherwise.
//	bool - True if the node was found.
func (g *Graph) GetNode(id string) (*Node, bool) {
	node, exists := g.nodes[id]
	return node, exists
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, exists := g.nodes[id]
	return exists
}

// RemoveNode deletes a node and every edge incident to it.
//
// Description:
//
//	Incident edges are detached from both endpoints and dropped from the
//	edge list before the node itself is removed, so no dangling edge is
//	ever observable.
//
// Outputs:
//
//	bool - False if no node with that ID exists; the graph is unchanged.
func (g *Graph) RemoveNode(id string) bool {
	node, exists := g.nodes[id]
	if !exists {
		return false
	}

	removed := make(map[string]bool, len(node.Outgoing)+len(node.Incoming))
	for _, e := range node.Outgoing {
		removed[e.ID] = true
	}
	for _, e := range node.Incoming {
		removed[e.ID] = true
	}

	for edgeID := range removed {
		edge := g.edgeIndex[edgeID]
		if edge == nil {
			continue
		}
		if src, ok := g.nodes[edge.SourceID]; ok && src != node {
			src.Outgoing = filterEdges(src.Outgoing, removed)
		}
		if tgt, ok := g.nodes[edge.TargetID]; ok && tgt != node {
			tgt.Incoming = filterEdges(tgt.Incoming, removed)
		}
		delete(g.edgeIndex, edgeID)
	}
	if len(removed) > 0 {
		g.edges = filterEdges(g.edges, removed)
	}

	node.Outgoing = nil
	node.Incoming = nil
	delete(g.nodes, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(n *Node) bool { return n == node })
	g.revision++
	return true
}

// AddEdge inserts an edge between two existing nodes.
//
// Description:
//
//	Multiple edges between the same pair of nodes are allowed as long as
//	their IDs differ. Self-loops are allowed.
//
// Errors:
//
//	ErrInvalidEdge - edge is nil, has an empty ID, or an unknown kind
//	ErrDuplicateEdge - an edge with the same ID already exists
//	ErrNodeNotFound - source or target node doesn't exist
func (g *Graph) AddEdge(edge *Edge) error {
	if edge == nil {
		return fmt.Errorf("%w: edge is nil", ErrInvalidEdge)
	}
	if edge.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidEdge)
	}
	if !edge.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q for %s", ErrInvalidEdge, edge.Kind, edge.ID)
	}
	if _, exists := g.edgeIndex[edge.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEdge, edge.ID)
	}

	fromNode, fromOK := g.nodes[edge.SourceID]
	if !fromOK {
		return fmt.Errorf("%w: source %s", ErrNodeNotFound, edge.SourceID)
	}

	toNode, toOK := g.nodes[edge.TargetID]
	if !toOK {
		return fmt.Errorf("%w: target %s", ErrNodeNotFound, edge.TargetID)
	}

	g.edges = append(g.edges, edge)
	g.edgeIndex[edge.ID] = edge
	fromNode.Outgoing = append(fromNode.Outgoing, edge)
	toNode.Incoming = append(toNode.Incoming, edge)
	g.revision++
	return nil
}

// CreateEdge builds an edge with a generated ID and adds it to the graph.
//
// Errors:
//
//	Same conditions as AddEdge.
func (g *Graph) CreateEdge(sourceID, targetID string, kind EdgeKind, metadata Metadata) (*Edge, error) {
	edge := &Edge{
		ID:       uuid.NewString(),
		Kind:     kind,
		SourceID: sourceID,
		TargetID: targetID,
		Metadata: metadata,
	}
	if err := g.AddEdge(edge); err != nil {
		return nil, err
	}
	return edge, nil
}

// GetEdge retrieves an edge by its ID.
func (g *Graph) GetEdge(id string) (*Edge, bool) {
	edge, exists := g.edgeIndex[id]
	return edge, exists
}

// RemoveEdge detaches an edge from both endpoints and deletes it.
//
// Outputs:
//
//	bool - False if no edge with that ID exists.
func (g *Graph) RemoveEdge(id string) bool {
	edge, exists := g.edgeIndex[id]
	if !exists {
		return false
	}

	removed := map[string]bool{id: true}
	if src, ok := g.nodes[edge.SourceID]; ok {
		src.Outgoing = filterEdges(src.Outgoing, removed)
	}
	if tgt, ok := g.nodes[edge.TargetID]; ok {
		tgt.Incoming = filterEdges(tgt.Incoming, removed)
	}
	g.edges = filterEdges(g.edges, removed)
	delete(g.edgeIndex, id)
	g.revision++
	return true
}

// filterEdges drops edges whose ID is in removed.
func filterEdges(edges []*Edge, removed map[string]bool) []*Edge {
	result := make([]*Edge, 0, len(edges))
	for _, e := range edges {
		if !removed[e.ID] {
			result = append(result, e)
		}
	}
	return result
}

// Nodes returns an iterator over all nodes in insertion order.
//
// Example:
//
//	for id, node := range g.Nodes() {
//	    fmt.Printf("Node: %s\n", id)
//	}
func (g *Graph) Nodes() func(yield func(string, *Node) bool) {
	return func(yield func(string, *Node) bool) {
		for _, node := range g.nodeOrder {
			if !yield(node.ID, node) {
				return
			}
		}
	}
}

// NodeList returns a snapshot of all nodes in insertion order.
func (g *Graph) NodeList() []*Node {
	return slices.Clone(g.nodeOrder)
}

// Edges returns all edges in insertion order.
//
// Description:
//
//	Returns the internal edge slice. Callers should NOT modify
//	the returned slice.
func (g *Graph) Edges() []*Edge {
	return g.edges
}

// NodesByKind returns the nodes of the given kind in insertion order.
func (g *Graph) NodesByKind(kind NodeKind) []*Node {
	result := make([]*Node, 0)
	for _, n := range g.nodeOrder {
		if n.Kind == kind {
			result = append(result, n)
		}
	}
	return result
}

// EdgesByKind returns the edges of the given kind in insertion order.
func (g *Graph) EdgesByKind(kind EdgeKind) []*Edge {
	result := make([]*Edge, 0)
	for _, e := range g.edges {
		if e.Kind == kind {
			result = append(result, e)
		}
	}
	return result
}

// NodesByFile returns the nodes declared in file, in insertion order.
func (g *Graph) NodesByFile(file string) []*Node {
	result := make([]*Node, 0)
	for _, n := range g.nodeOrder {
		if n.File == file {
			result = append(result, n)
		}
	}
	return result
}

// Files returns the distinct non-empty file paths in first-seen order.
func (g *Graph) Files() []string {
	seen := make(map[string]bool)
	files := make([]string, 0)
	for _, n := range g.nodeOrder {
		if n.File == "" || seen[n.File] {
			continue
		}
		seen[n.File] = true
		files = append(files, n.File)
	}
	return files
}

// Clone returns a deep copy of the graph.
//
// Description:
//
//	Nodes and edges are copied by value with the same IDs; metadata maps
//	are shallow-copied. The clone shares no pointers with g.
func (g *Graph) Clone() *Graph {
	clone := NewGraph(func(o *GraphOptions) { *o = g.options })
	clone.Metadata = g.Metadata.Clone()
	for _, n := range g.nodeOrder {
		// IDs are unique in g, so AddNode cannot fail.
		_ = clone.AddNode(n.clone())
	}
	for _, e := range g.edges {
		_ = clone.AddEdge(e.clone())
	}
	return clone
}

// Stats computes a summary of the graph.
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		NodeCount:   len(g.nodes),
		EdgeCount:   len(g.edges),
		FileCount:   len(g.Files()),
		NodesByKind: make(map[NodeKind]int),
		EdgesByKind: make(map[EdgeKind]int),
	}

	for _, n := range g.nodeOrder {
		stats.NodesByKind[n.Kind]++
		if out := len(n.Outgoing); out > stats.MaxFanOut {
			stats.MaxFanOut = out
			stats.MaxFanOutNode = n.ID
		}
		if in := len(n.Incoming); in > stats.MaxFanIn {
			stats.MaxFanIn = in
			stats.MaxFanInNode = n.ID
		}
		if len(n.Outgoing) == 0 && len(n.Incoming) == 0 {
			stats.IsolatedNodes++
		}
	}
	for _, e := range g.edges {
		stats.EdgesByKind[e.Kind]++
	}
	return stats
}
