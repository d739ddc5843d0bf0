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
	"maps"
)

// NodeKind is the kind of code element a node represents.
//
// Kinds are strings so that they serialize unchanged into graph documents.
type NodeKind string

const (
	NodeKindFunction   NodeKind = "function"
	NodeKindVariable   NodeKind = "variable"
	NodeKindClass      NodeKind = "class"
	NodeKindMethod     NodeKind = "method"
	NodeKindProperty   NodeKind = "property"
	NodeKindImport     NodeKind = "import"
	NodeKindExport     NodeKind = "export"
	NodeKindStatement  NodeKind = "statement"
	NodeKindExpression NodeKind = "expression"
)

var validNodeKinds = map[NodeKind]bool{
	NodeKindFunction:   true,
	NodeKindVariable:   true,
	NodeKindClass:      true,
	NodeKindMethod:     true,
	NodeKindProperty:   true,
	NodeKindImport:     true,
	NodeKindExport:     true,
	NodeKindStatement:  true,
	NodeKindExpression: true,
}

// IsValid reports whether k is one of the known node kinds.
func (k NodeKind) IsValid() bool {
	return validNodeKinds[k]
}

// String returns the kind name.
func (k NodeKind) String() string {
	return string(k)
}

// ParseNodeKind converts a string into a NodeKind.
//
// Errors:
//
//	ErrInvalidNode - s is not a known node kind.
func ParseNodeKind(s string) (NodeKind, error) {
	k := NodeKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown node kind %q", ErrInvalidNode, s)
	}
	return k, nil
}

// EdgeKind is the relationship an edge expresses between two nodes.
type EdgeKind string

const (
	EdgeKindCalls      EdgeKind = "calls"
	EdgeKindDefines    EdgeKind = "defines"
	EdgeKindUses       EdgeKind = "uses"
	EdgeKindContains   EdgeKind = "contains"
	EdgeKindImports    EdgeKind = "imports"
	EdgeKindExports    EdgeKind = "exports"
	EdgeKindExtends    EdgeKind = "extends"
	EdgeKindImplements EdgeKind = "implements"
	EdgeKindDependsOn  EdgeKind = "depends_on"
)

var validEdgeKinds = map[EdgeKind]bool{
	EdgeKindCalls:      true,
	EdgeKindDefines:    true,
	EdgeKindUses:       true,
	EdgeKindContains:   true,
	EdgeKindImports:    true,
	EdgeKindExports:    true,
	EdgeKindExtends:    true,
	EdgeKindImplements: true,
	EdgeKindDependsOn:  true,
}

// IsValid reports whether k is one of the known edge kinds.
func (k EdgeKind) IsValid() bool {
	return validEdgeKinds[k]
}

// String returns the kind name.
func (k EdgeKind) String() string {
	return string(k)
}

// ParseEdgeKind converts a string into an EdgeKind.
//
// Errors:
//
//	ErrInvalidEdge - s is not a known edge kind.
func ParseEdgeKind(s string) (EdgeKind, error) {
	k := EdgeKind(s)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown edge kind %q", ErrInvalidEdge, s)
	}
	return k, nil
}

// ParseEdgeKinds parses each non-empty element of ss.
func ParseEdgeKinds(ss []string) ([]EdgeKind, error) {
	kinds := make([]EdgeKind, 0, len(ss))
	for _, s := range ss {
		if s == "" {
			continue
		}
		k, err := ParseEdgeKind(s)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Metadata is an open key/value map attached to nodes, edges, and graphs.
type Metadata map[string]any

// Clone returns a shallow copy of m. A nil map clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Location is a position in a source file. Lines and columns are 1-based;
// zero means unknown.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// String formats the location as "line:column".
func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Line, l.Column)
}

// Node is a code element in the graph.
//
// Outgoing and Incoming are maintained by the Graph and reflect exactly the
// edges whose source (respectively target) is this node.
type Node struct {
	// ID uniquely identifies the node within its graph.
	ID string

	// Kind is the element kind.
	Kind NodeKind

	// Name is the element's name, e.g. the function name.
	Name string

	// File is the source file path, may be empty.
	File string

	// Location is the position of the element within File.
	Location Location

	// Code is the element's source text, may be empty.
	Code string

	// Metadata carries arbitrary caller data.
	Metadata Metadata

	// Outgoing are the edges whose source is this node.
	Outgoing []*Edge

	// Incoming are the edges whose target is this node.
	Incoming []*Edge
}

// clone copies the node's value fields without its adjacency.
func (n *Node) clone() *Node {
	return &Node{
		ID:       n.ID,
		Kind:     n.Kind,
		Name:     n.Name,
		File:     n.File,
		Location: n.Location,
		Code:     n.Code,
		Metadata: n.Metadata.Clone(),
	}
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	// ID uniquely identifies the edge within its graph.
	ID string

	// Kind is the relationship type.
	Kind EdgeKind

	// SourceID is the ID of the node the edge leaves.
	SourceID string

	// TargetID is the ID of the node the edge enters.
	TargetID string

	// Metadata carries arbitrary caller data.
	Metadata Metadata
}

func (e *Edge) clone() *Edge {
	return &Edge{
		ID:       e.ID,
		Kind:     e.Kind,
		SourceID: e.SourceID,
		TargetID: e.TargetID,
		Metadata: e.Metadata.Clone(),
	}
}

// NodeOptions describes a node to be created with Graph.CreateNode.
type NodeOptions struct {
	// ID is optional; a UUID is generated when empty.
	ID       string
	Kind     NodeKind
	Name     string
	File     string
	Location Location
	Code     string
	Metadata Metadata
}

// Direction selects which edges a slice follows.
type Direction int

const (
	// Forward follows outgoing edges (what the start node affects).
	Forward Direction = iota

	// Backward follows incoming edges (what the start node depends on).
	Backward

	// Bidirectional follows outgoing then incoming edges.
	Bidirectional
)

var directionNames = map[Direction]string{
	Forward:       "forward",
	Backward:      "backward",
	Bidirectional: "bidirectional",
}

// String returns the direction name.
func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// ParseDirection accepts "forward", "backward", "bidirectional" and the
// shorthand "both".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "forward", "":
		return Forward, nil
	case "backward":
		return Backward, nil
	case "bidirectional", "both":
		return Bidirectional, nil
	}
	return Forward, fmt.Errorf("unknown direction %q", s)
}

// GraphStats summarises the shape of a graph.
type GraphStats struct {
	NodeCount     int              `json:"node_count"`
	EdgeCount     int              `json:"edge_count"`
	FileCount     int              `json:"file_count"`
	NodesByKind   map[NodeKind]int `json:"nodes_by_kind"`
	EdgesByKind   map[EdgeKind]int `json:"edges_by_kind"`
	MaxFanOut     int              `json:"max_fan_out"`
	MaxFanOutNode string           `json:"max_fan_out_node,omitempty"`
	MaxFanIn      int              `json:"max_fan_in"`
	MaxFanInNode  string           `json:"max_fan_in_node,omitempty"`
	IsolatedNodes int              `json:"isolated_nodes"`
}
