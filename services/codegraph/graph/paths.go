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
	"context"
	"fmt"
	"slices"
)

// contextCheckInterval is how often to check context during traversal.
const contextCheckInterval = 100

// PathOptions configures FindPaths.
type PathOptions struct {
	// MaxDepth is the maximum number of edges in a returned path.
	// Zero or negative means unbounded.
	MaxDepth int

	// MaxPaths stops enumeration once this many paths were found.
	// Zero or negative means unbounded.
	MaxPaths int
}

// PathOption is a functional option for FindPaths.
type PathOption func(*PathOptions)

// WithMaxDepth bounds the number of edges in a path. d <= 0 means unbounded.
func WithMaxDepth(d int) PathOption {
	return func(o *PathOptions) {
		if d < 0 {
			d = 0
		}
		o.MaxDepth = d
	}
}

// WithMaxPaths stops enumeration after n paths. n <= 0 means unbounded.
func WithMaxPaths(n int) PathOption {
	return func(o *PathOptions) {
		if n < 0 {
			n = 0
		}
		o.MaxPaths = n
	}
}

// FindPaths enumerates simple paths from startID to endID.
//
// Description:
//
//	Walks outgoing edges depth-first, never repeating a node within one
//	path. A path is recorded whenever the walk stands on endID after at
//	least one edge; the walk does not continue past endID. When startID
//	equals endID the recorded paths are the simple cycles through it,
//	listed without repeating the start node at the end.
//
//	Enumeration is exponential on dense graphs. Callers working on large
//	graphs should bound it with WithMaxDepth or WithMaxPaths.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked every contextCheckInterval steps.
//	startID - ID of the first node of every path.
//	endID - ID of the last node of every path.
//	opts - WithMaxDepth, WithMaxPaths.
//
// Outputs:
//
//	[][]string - Paths as node ID sequences, in DFS discovery order
//	             (first successor edge explored first).
//	error - Non-nil if an endpoint is absent or ctx is cancelled.
//
// Errors:
//
//	ErrNodeNotFound - startID or endID is not in the graph
func (g *Graph) FindPaths(ctx context.Context, startID, endID string, opts ...PathOption) ([][]string, error) {
	options := PathOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if _, ok := g.nodes[startID]; !ok {
		return nil, fmt.Errorf("%w: start %s", ErrNodeNotFound, startID)
	}
	if _, ok := g.nodes[endID]; !ok {
		return nil, fmt.Errorf("%w: end %s", ErrNodeNotFound, endID)
	}

	type frame struct {
		nodeID    string
		edgeIndex int
	}

	paths := make([][]string, 0)
	onPath := map[string]bool{startID: true}
	path := []string{startID}
	stack := []frame{{nodeID: startID}}
	steps := 0

	for len(stack) > 0 {
		steps++
		if steps%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return paths, fmt.Errorf("find paths: %w", err)
			}
		}

		top := &stack[len(stack)-1]
		depth := len(stack) - 1
		node := g.nodes[top.nodeID]

		if top.edgeIndex >= len(node.Outgoing) || (options.MaxDepth > 0 && depth >= options.MaxDepth) {
			stack = stack[:len(stack)-1]
			path = path[:len(path)-1]
			delete(onPath, top.nodeID)
			continue
		}

		edge := node.Outgoing[top.edgeIndex]
		top.edgeIndex++
		next := edge.TargetID

		if next == endID {
			found := slices.Clone(path)
			if next != startID {
				found = append(found, next)
			}
			paths = append(paths, found)
			if options.MaxPaths > 0 && len(paths) >= options.MaxPaths {
				return paths, nil
			}
			continue
		}
		if onPath[next] {
			continue
		}

		onPath[next] = true
		path = append(path, next)
		stack = append(stack, frame{nodeID: next})
	}

	return paths, nil
}
