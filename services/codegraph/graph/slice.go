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

import "fmt"

// SliceOptions configures ComputeSlice.
type SliceOptions struct {
	// EdgeKinds restricts the walk to edges of these kinds.
	// Empty means all kinds.
	EdgeKinds []EdgeKind
}

// SliceOption is a functional option for ComputeSlice.
type SliceOption func(*SliceOptions)

// WithSliceEdgeKinds restricts a slice to the given edge kinds.
func WithSliceEdgeKinds(kinds ...EdgeKind) SliceOption {
	return func(o *SliceOptions) {
		o.EdgeKinds = kinds
	}
}

// kindFilter returns a predicate accepting edges whose kind is in kinds,
// or every edge when kinds is empty.
func kindFilter(kinds []EdgeKind) func(*Edge) bool {
	if len(kinds) == 0 {
		return func(*Edge) bool { return true }
	}
	allowed := make(map[EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	return func(e *Edge) bool { return allowed[e.Kind] }
}

// sliceStep is one adjacency entry: the edge and the node it leads to.
type sliceStep struct {
	edge *Edge
	next string
}

// ComputeSlice extracts the subgraph reachable from startID.
//
// Description:
//
//	Performs a depth-first walk from startID. Forward follows outgoing
//	edges, Backward follows incoming edges and Bidirectional follows the
//	outgoing edges of each visited node, then its incoming edges. Each
//	visited node is copied into the result together with the edge used to
//	discover it. The walk uses an explicit stack but visits nodes in the
//	same order as the recursive formulation.
//
// Inputs:
//
//	startID - ID of the node to slice from.
//	dir - Which edges to follow.
//	opts - Optional edge-kind restriction.
//
// Outputs:
//
//	*Graph - A new graph holding copies of exactly the reachable nodes
//	         (including startID) with their original IDs.
//	error - Non-nil if startID is absent.
//
// Errors:
//
//	ErrNodeNotFound - startID is not in the graph
func (g *Graph) ComputeSlice(startID string, dir Direction, opts ...SliceOption) (*Graph, error) {
	options := SliceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	start, ok := g.nodes[startID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, startID)
	}

	follow := kindFilter(options.EdgeKinds)
	neighbors := func(n *Node) []sliceStep {
		steps := make([]sliceStep, 0, len(n.Outgoing)+len(n.Incoming))
		if dir == Forward || dir == Bidirectional {
			for _, e := range n.Outgoing {
				if follow(e) {
					steps = append(steps, sliceStep{edge: e, next: e.TargetID})
				}
			}
		}
		if dir == Backward || dir == Bidirectional {
			for _, e := range n.Incoming {
				if follow(e) {
					steps = append(steps, sliceStep{edge: e, next: e.SourceID})
				}
			}
		}
		return steps
	}

	result := NewGraph(func(o *GraphOptions) { *o = g.options })
	result.Metadata = g.Metadata.Clone()

	type frame struct {
		steps []sliceStep
		index int
	}

	visited := map[string]bool{start.ID: true}
	_ = result.AddNode(start.clone())
	stack := []frame{{steps: neighbors(start)}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.index >= len(top.steps) {
			stack = stack[:len(stack)-1]
			continue
		}

		step := top.steps[top.index]
		top.index++
		if visited[step.next] {
			continue
		}

		next := g.nodes[step.next]
		visited[next.ID] = true
		_ = result.AddNode(next.clone())
		_ = result.AddEdge(step.edge.clone())
		stack = append(stack, frame{steps: neighbors(next)})
	}

	return result, nil
}
