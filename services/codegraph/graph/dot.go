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
	"strings"
)

// DefaultDOTGraphName is the name written in the digraph header.
const DefaultDOTGraphName = "CodeGraph"

var defaultNodeColors = map[NodeKind]string{
	NodeKindFunction: "blue",
	NodeKindVariable: "green",
	NodeKindClass:    "red",
	NodeKindMethod:   "purple",
	NodeKindProperty: "orange",
	NodeKindImport:   "brown",
	NodeKindExport:   "pink",
}

var defaultEdgeColors = map[EdgeKind]string{
	EdgeKindCalls:    "blue",
	EdgeKindDefines:  "green",
	EdgeKindUses:     "red",
	EdgeKindContains: "purple",
	EdgeKindImports:  "brown",
	EdgeKindExports:  "pink",
}

// DefaultNodeLabel labels a node with its name, or its ID when unnamed.
func DefaultNodeLabel(n *Node) string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}

// DefaultNodeColor maps node kinds to Graphviz colors; unmapped kinds are black.
func DefaultNodeColor(n *Node) string {
	if c, ok := defaultNodeColors[n.Kind]; ok {
		return c
	}
	return "black"
}

// DefaultEdgeLabel labels an edge with its kind.
func DefaultEdgeLabel(e *Edge) string {
	return e.Kind.String()
}

// DefaultEdgeColor maps edge kinds to Graphviz colors; unmapped kinds are black.
func DefaultEdgeColor(e *Edge) string {
	if c, ok := defaultEdgeColors[e.Kind]; ok {
		return c
	}
	return "black"
}

// DOTOptions configures ToDOT. Every function field must be non-nil after
// options are applied; nil options fall back to the defaults.
type DOTOptions struct {
	GraphName string
	NodeLabel func(*Node) string
	NodeColor func(*Node) string
	EdgeLabel func(*Edge) string
	EdgeColor func(*Edge) string
}

// DefaultDOTOptions returns the default labels and colors.
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		GraphName: DefaultDOTGraphName,
		NodeLabel: DefaultNodeLabel,
		NodeColor: DefaultNodeColor,
		EdgeLabel: DefaultEdgeLabel,
		EdgeColor: DefaultEdgeColor,
	}
}

// DOTOption is a functional option for ToDOT.
type DOTOption func(*DOTOptions)

// WithGraphName sets the digraph name.
func WithGraphName(name string) DOTOption {
	return func(o *DOTOptions) {
		if name != "" {
			o.GraphName = name
		}
	}
}

// WithNodeLabel overrides how nodes are labeled.
func WithNodeLabel(fn func(*Node) string) DOTOption {
	return func(o *DOTOptions) {
		if fn != nil {
			o.NodeLabel = fn
		}
	}
}

// WithNodeColor overrides how nodes are colored.
func WithNodeColor(fn func(*Node) string) DOTOption {
	return func(o *DOTOptions) {
		if fn != nil {
			o.NodeColor = fn
		}
	}
}

// WithEdgeLabel overrides how edges are labeled.
func WithEdgeLabel(fn func(*Edge) string) DOTOption {
	return func(o *DOTOptions) {
		if fn != nil {
			o.EdgeLabel = fn
		}
	}
}

// WithEdgeColor overrides how edges are colored.
func WithEdgeColor(fn func(*Edge) string) DOTOption {
	return func(o *DOTOptions) {
		if fn != nil {
			o.EdgeColor = fn
		}
	}
}

// ToDOT renders the graph as a Graphviz digraph.
//
// Description:
//
//	Emits a "digraph <name> {" header, one line per node
//	  "id" [label="...", color="..."];
//	one line per edge
//	  "source" -> "target" [label="...", color="..."];
//	and a closing "}". Nodes and edges appear in insertion order.
//	Quotes, backslashes and newlines in IDs and labels are escaped.
//
// Example:
//
//	dot := g.ToDOT(WithNodeColor(func(n *Node) string { return "gray" }))
func (g *Graph) ToDOT(opts ...DOTOption) string {
	options := DefaultDOTOptions()
	for _, opt := range opts {
		opt(&options)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "digraph %s {\n", dotID(options.GraphName))
	for _, n := range g.nodeOrder {
		fmt.Fprintf(&sb, "  \"%s\" [label=\"%s\", color=\"%s\"];\n",
			escapeDOT(n.ID), escapeDOT(options.NodeLabel(n)), escapeDOT(options.NodeColor(n)))
	}
	for _, e := range g.edges {
		fmt.Fprintf(&sb, "  \"%s\" -> \"%s\" [label=\"%s\", color=\"%s\"];\n",
			escapeDOT(e.SourceID), escapeDOT(e.TargetID),
			escapeDOT(options.EdgeLabel(e)), escapeDOT(options.EdgeColor(e)))
	}
	sb.WriteString("}\n")
	return sb.String()
}

var dotEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

func escapeDOT(s string) string {
	return dotEscaper.Replace(s)
}

// dotID leaves plain identifiers bare and quotes anything else.
func dotID(name string) string {
	for i, r := range name {
		isLetter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if !isLetter && !(isDigit && i > 0) {
			return `"` + escapeDOT(name) + `"`
		}
	}
	return name
}
