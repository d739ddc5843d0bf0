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
	"math/bits"

	"github.com/google/uuid"
)

// MetadataTransitive is the metadata key set on edges added by
// ComputeTransitiveClosure.
const MetadataTransitive = "transitive"

// ClosureOptions configures ComputeTransitiveClosure.
type ClosureOptions struct {
	// EdgeKinds restricts the reachability relation to these kinds.
	// Empty means all kinds.
	EdgeKinds []EdgeKind
}

// ClosureOption is a functional option for ComputeTransitiveClosure.
type ClosureOption func(*ClosureOptions)

// WithClosureEdgeKinds restricts the closure relation to the given kinds.
func WithClosureEdgeKinds(kinds ...EdgeKind) ClosureOption {
	return func(o *ClosureOptions) {
		o.EdgeKinds = kinds
	}
}

// bitset is a fixed-size set of node positions.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << (uint(i) % 64)
}

func (b bitset) has(i int) bool {
	return b[i/64]&(1<<(uint(i)%64)) != 0
}

func (b bitset) or(other bitset) {
	for i := range b {
		b[i] |= other[i]
	}
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// ComputeTransitiveClosure returns a copy of the graph with an extra
// depends_on edge for every indirectly reachable pair.
//
// Description:
//
//	All nodes and edges are copied with their IDs. Reachability is then
//	computed Warshall-style (for each k, every row that reaches k absorbs
//	row k) over bitset rows. For every ordered pair (i, j), i != j, where j
//	is reachable from i and no direct edge i->j of any kind exists, a
//	depends_on edge with metadata {"transitive": true} is added. Pairs are
//	added in (i, j) node insertion order. A node reaching itself through a
//	cycle does not get a self-loop.
//
//	Time complexity: O(V^3 / 64); intended for analysis-sized graphs.
//
// Outputs:
//
//	*Graph - The closed graph. The receiver is not modified.
func (g *Graph) ComputeTransitiveClosure(opts ...ClosureOption) *Graph {
	options := ClosureOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	result := g.Clone()
	n := len(g.nodeOrder)
	if n == 0 {
		return result
	}

	position := make(map[string]int, n)
	for i, node := range g.nodeOrder {
		position[node.ID] = i
	}

	follow := kindFilter(options.EdgeKinds)
	reach := make([]bitset, n)
	direct := make([]bitset, n)
	for i := range reach {
		reach[i] = newBitset(n)
		direct[i] = newBitset(n)
	}
	for _, e := range g.edges {
		i, j := position[e.SourceID], position[e.TargetID]
		direct[i].set(j)
		if follow(e) {
			reach[i].set(j)
		}
	}

	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if reach[i].has(k) {
				reach[i].or(reach[k])
			}
		}
	}

	for i := 0; i < n; i++ {
		if reach[i].count() == 0 {
			continue
		}
		for j := 0; j < n; j++ {
			if i == j || !reach[i].has(j) || direct[i].has(j) {
				continue
			}
			src, tgt := g.nodeOrder[i].ID, g.nodeOrder[j].ID
			id := fmt.Sprintf("transitive:%s->%s", src, tgt)
			if _, taken := result.edgeIndex[id]; taken {
				id = uuid.NewString()
			}
			// Both endpoints exist in result and id is unused.
			_ = result.AddEdge(&Edge{
				ID:       id,
				Kind:     EdgeKindDependsOn,
				SourceID: src,
				TargetID: tgt,
				Metadata: Metadata{MetadataTransitive: true},
			})
		}
	}

	return result
}
