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
	"strings"
)

// FindCycles lists closed walks that return to their starting node.
//
// Description:
//
//	For every node s, in insertion order, runs a backtracking depth-first
//	walk over outgoing edges. A node is excluded only while it is on the
//	current path, so every simple cycle through s is recorded, once per
//	edge sequence. The work is exponential in the worst case; cancel ctx
//	to bound it.
//
//	Every cycle is reported once per member it was found from, so
//	A->B->C->A yields [A B C], [B C A] and [C A B]. A self-loop on A
//	yields [A]. Use UniqueCycles to collapse rotations.
//
//	This is intentionally separate from FindStronglyConnectedComponents:
//	SCCs partition nodes by mutual reachability, this lists literal walks.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked every contextCheckInterval steps.
//
// Outputs:
//
//	[][]string - Cycles as node ID sequences without the repeated start.
//	error - Non-nil only if ctx is cancelled.
func (g *Graph) FindCycles(ctx context.Context) ([][]string, error) {
	cycles := make([][]string, 0)

	type frame struct {
		nodeID    string
		edgeIndex int
	}

	steps := 0
	for _, start := range g.nodeOrder {
		onPath := map[string]bool{start.ID: true}
		path := []string{start.ID}
		stack := []frame{{nodeID: start.ID}}

		for len(stack) > 0 {
			steps++
			if steps%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return cycles, fmt.Errorf("find cycles: %w", err)
				}
			}

			top := &stack[len(stack)-1]
			node := g.nodes[top.nodeID]
			if top.edgeIndex >= len(node.Outgoing) {
				delete(onPath, top.nodeID)
				stack = stack[:len(stack)-1]
				path = path[:len(path)-1]
				continue
			}

			edge := node.Outgoing[top.edgeIndex]
			top.edgeIndex++

			if edge.TargetID == start.ID {
				cycles = append(cycles, slices.Clone(path))
				continue
			}
			if onPath[edge.TargetID] {
				continue
			}

			onPath[edge.TargetID] = true
			path = append(path, edge.TargetID)
			stack = append(stack, frame{nodeID: edge.TargetID})
		}
	}

	return cycles, nil
}

// UniqueCycles removes rotations of the same cycle.
//
// Description:
//
//	Each cycle is rotated so that its lexicographically smallest node ID
//	comes first; the first occurrence of each rotated form is kept, in
//	input order. The input is not modified.
func UniqueCycles(cycles [][]string) [][]string {
	seen := make(map[string]bool, len(cycles))
	result := make([][]string, 0, len(cycles))
	for _, c := range cycles {
		canonical := canonicalRotation(c)
		key := strings.Join(canonical, "\x00")
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, canonical)
	}
	return result
}

func canonicalRotation(cycle []string) []string {
	if len(cycle) == 0 {
		return []string{}
	}
	minIdx := 0
	for i, id := range cycle {
		if id < cycle[minIdx] {
			minIdx = i
		}
	}
	rotated := make([]string, 0, len(cycle))
	rotated = append(rotated, cycle[minIdx:]...)
	rotated = append(rotated, cycle[:minIdx]...)
	return rotated
}
