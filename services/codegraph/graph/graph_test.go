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
	"errors"
	"testing"
)

// mustNode adds a function node with the given ID and returns it.
func mustNode(t *testing.T, g *Graph, id string) *Node {
	t.Helper()
	n := &Node{ID: id, Kind: NodeKindFunction, Name: id}
	if err := g.AddNode(n); err != nil {
		t.Fatalf("AddNode(%s): %v", id, err)
	}
	return n
}

// mustEdge adds an edge with ID "src->tgt" and returns it.
func mustEdge(t *testing.T, g *Graph, src, tgt string, kind EdgeKind) *Edge {
	t.Helper()
	e := &Edge{ID: src + "->" + tgt, Kind: kind, SourceID: src, TargetID: tgt}
	if err := g.AddEdge(e); err != nil {
		t.Fatalf("AddEdge(%s): %v", e.ID, err)
	}
	return e
}

// buildGraph creates function nodes for ids and depends_on edges for each
// "a->b" pair.
func buildGraph(t *testing.T, ids []string, edges [][2]string) *Graph {
	t.Helper()
	g := NewGraph()
	for _, id := range ids {
		mustNode(t, g, id)
	}
	for _, e := range edges {
		mustEdge(t, g, e[0], e[1], EdgeKindDependsOn)
	}
	return g
}

func TestNodeKind_IsValid(t *testing.T) {
	tests := []struct {
		kind     NodeKind
		expected bool
	}{
		{NodeKindFunction, true},
		{NodeKindExpression, true},
		{NodeKind("module"), false},
		{NodeKind(""), false},
	}

	for _, tc := range tests {
		if got := tc.kind.IsValid(); got != tc.expected {
			t.Errorf("NodeKind(%q).IsValid() = %v, expected %v", tc.kind, got, tc.expected)
		}
	}
}

func TestParseEdgeKind(t *testing.T) {
	k, err := ParseEdgeKind("depends_on")
	if err != nil || k != EdgeKindDependsOn {
		t.Errorf("ParseEdgeKind(depends_on) = %q, %v", k, err)
	}

	if _, err := ParseEdgeKind("references"); !errors.Is(err, ErrInvalidEdge) {
		t.Errorf("expected ErrInvalidEdge, got %v", err)
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in       string
		expected Direction
		wantErr  bool
	}{
		{"forward", Forward, false},
		{"backward", Backward, false},
		{"both", Bidirectional, false},
		{"bidirectional", Bidirectional, false},
		{"sideways", Forward, true},
	}

	for _, tc := range tests {
		got, err := ParseDirection(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseDirection(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.expected {
			t.Errorf("ParseDirection(%q) = %v, expected %v", tc.in, got, tc.expected)
		}
	}
}

func TestGraph_AddNode(t *testing.T) {
	t.Run("adds node", func(t *testing.T) {
		g := NewGraph()
		n := mustNode(t, g, "A")

		got, ok := g.GetNode("A")
		if !ok || got != n {
			t.Fatalf("GetNode(A) = %v, %v", got, ok)
		}
		if g.NodeCount() != 1 {
			t.Errorf("NodeCount() = %d, expected 1", g.NodeCount())
		}
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		g := NewGraph()
		mustNode(t, g, "A")
		err := g.AddNode(&Node{ID: "A", Kind: NodeKindClass})
		if !errors.Is(err, ErrDuplicateNode) {
			t.Errorf("expected ErrDuplicateNode, got %v", err)
		}
	})

	t.Run("rejects invalid", func(t *testing.T) {
		g := NewGraph()
		for _, n := range []*Node{nil, {Kind: NodeKindFunction}, {ID: "x", Kind: "module"}} {
			if err := g.AddNode(n); !errors.Is(err, ErrInvalidNode) {
				t.Errorf("AddNode(%v): expected ErrInvalidNode, got %v", n, err)
			}
		}
	})

	t.Run("respects capacity", func(t *testing.T) {
		g := NewGraph(WithMaxNodes(1))
		mustNode(t, g, "A")
		if err := g.AddNode(&Node{ID: "B", Kind: NodeKindFunction}); !errors.Is(err, ErrMaxNodesExceeded) {
			t.Errorf("expected ErrMaxNodesExceeded, got %v", err)
		}
	})
}

func TestGraph_CreateNode_GeneratesID(t *testing.T) {
	g := NewGraph()
	n, err := g.CreateNode(NodeOptions{Kind: NodeKindVariable, Name: "count", File: "main.go"})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected generated ID")
	}
	if _, ok := g.GetNode(n.ID); !ok {
		t.Error("created node not retrievable")
	}

	n2, err := g.CreateNode(NodeOptions{ID: "fixed", Kind: NodeKindVariable})
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	if n2.ID != "fixed" {
		t.Errorf("ID = %q, expected fixed", n2.ID)
	}
}

func TestGraph_AddEdge(t *testing.T) {
	g := NewGraph()
	a := mustNode(t, g, "A")
	b := mustNode(t, g, "B")
	e := mustEdge(t, g, "A", "B", EdgeKindCalls)

	if len(a.Outgoing) != 1 || a.Outgoing[0] != e {
		t.Errorf("A.Outgoing = %v", a.Outgoing)
	}
	if len(b.Incoming) != 1 || b.Incoming[0] != e {
		t.Errorf("B.Incoming = %v", b.Incoming)
	}

	if err := g.AddEdge(&Edge{ID: "x", Kind: EdgeKindCalls, SourceID: "A", TargetID: "Z"}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound for missing target, got %v", err)
	}
	if err := g.AddEdge(&Edge{ID: "y", Kind: EdgeKindCalls, SourceID: "Z", TargetID: "A"}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound for missing source, got %v", err)
	}
	if err := g.AddEdge(&Edge{ID: "A->B", Kind: EdgeKindUses, SourceID: "B", TargetID: "A"}); !errors.Is(err, ErrDuplicateEdge) {
		t.Errorf("expected ErrDuplicateEdge, got %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount() = %d, expected 1", g.EdgeCount())
	}
}

func TestGraph_CreateEdge(t *testing.T) {
	g := NewGraph()
	mustNode(t, g, "A")
	mustNode(t, g, "B")

	e, err := g.CreateEdge("A", "B", EdgeKindUses, Metadata{"weight": 2})
	if err != nil {
		t.Fatalf("CreateEdge: %v", err)
	}
	if e.ID == "" || e.SourceID != "A" || e.TargetID != "B" || e.Kind != EdgeKindUses {
		t.Errorf("unexpected edge %+v", e)
	}
	if got, ok := g.GetEdge(e.ID); !ok || got != e {
		t.Error("created edge not retrievable")
	}

	if _, err := g.CreateEdge("A", "missing", EdgeKindUses, nil); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestGraph_RemoveNode_Cascades(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}, {"C", "B"}, {"B", "B"}})

	if !g.RemoveNode("B") {
		t.Fatal("RemoveNode(B) = false")
	}
	if g.RemoveNode("B") {
		t.Error("second RemoveNode(B) = true")
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, expected 0", g.EdgeCount())
	}
	for _, e := range g.Edges() {
		if e.SourceID == "B" || e.TargetID == "B" {
			t.Errorf("edge %s still references B", e.ID)
		}
	}

	a, _ := g.GetNode("A")
	c, _ := g.GetNode("C")
	if len(a.Outgoing) != 0 || len(c.Incoming) != 0 || len(c.Outgoing) != 0 {
		t.Errorf("adjacency not cleaned: A.out=%d C.in=%d C.out=%d", len(a.Outgoing), len(c.Incoming), len(c.Outgoing))
	}
	if _, ok := g.GetEdge("A->B"); ok {
		t.Error("edge A->B still indexed")
	}
}

func TestGraph_RemoveEdge(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}})

	if g.RemoveEdge("nope") {
		t.Error("RemoveEdge(nope) = true")
	}
	if !g.RemoveEdge("A->B") {
		t.Fatal("RemoveEdge(A->B) = false")
	}

	a, _ := g.GetNode("A")
	b, _ := g.GetNode("B")
	if len(a.Outgoing) != 0 || len(b.Incoming) != 0 || g.EdgeCount() != 0 {
		t.Error("edge not fully detached")
	}
}

func TestGraph_Revision(t *testing.T) {
	g := NewGraph()
	r0 := g.Revision()
	mustNode(t, g, "A")
	r1 := g.Revision()
	if r1 == r0 {
		t.Error("revision unchanged after AddNode")
	}
	g.RemoveNode("missing")
	if g.Revision() != r1 {
		t.Error("revision changed on no-op removal")
	}
}

func TestGraph_Queries(t *testing.T) {
	g := NewGraph()
	_, _ = g.CreateNode(NodeOptions{ID: "f1", Kind: NodeKindFunction, File: "a.js"})
	_, _ = g.CreateNode(NodeOptions{ID: "v1", Kind: NodeKindVariable, File: "b.js"})
	_, _ = g.CreateNode(NodeOptions{ID: "f2", Kind: NodeKindFunction, File: "a.js"})
	_, _ = g.CreateNode(NodeOptions{ID: "s1", Kind: NodeKindStatement})
	mustEdge(t, g, "f1", "f2", EdgeKindCalls)
	mustEdge(t, g, "f2", "v1", EdgeKindUses)

	if got := ids(g.NodesByKind(NodeKindFunction)); !equalStrings(got, []string{"f1", "f2"}) {
		t.Errorf("NodesByKind(function) = %v", got)
	}
	if got := g.EdgesByKind(EdgeKindUses); len(got) != 1 || got[0].ID != "f2->v1" {
		t.Errorf("EdgesByKind(uses) = %v", got)
	}
	if got := ids(g.NodesByFile("a.js")); !equalStrings(got, []string{"f1", "f2"}) {
		t.Errorf("NodesByFile(a.js) = %v", got)
	}
	if got := g.Files(); !equalStrings(got, []string{"a.js", "b.js"}) {
		t.Errorf("Files() = %v", got)
	}

	stats := g.Stats()
	if stats.NodeCount != 4 || stats.EdgeCount != 2 || stats.FileCount != 2 {
		t.Errorf("Stats() counts = %+v", stats)
	}
	if stats.NodesByKind[NodeKindFunction] != 2 || stats.IsolatedNodes != 1 {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestGraph_NodesIteratesInInsertionOrder(t *testing.T) {
	g := buildGraph(t, []string{"z", "a", "m"}, nil)
	var order []string
	for id := range g.Nodes() {
		order = append(order, id)
	}
	if !equalStrings(order, []string{"z", "a", "m"}) {
		t.Errorf("order = %v", order)
	}
}

func TestGraph_Clone(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}})
	g.Metadata = Metadata{"project": "demo"}

	clone := g.Clone()
	clone.RemoveNode("A")

	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Error("mutating clone changed the original")
	}
	if clone.Metadata["project"] != "demo" {
		t.Error("metadata not cloned")
	}
}

func ids(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
