// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph provides an in-memory dependency graph of source code elements.
//
// Nodes are code elements (functions, classes, variables, statements, ...) and
// edges are typed relationships between them (calls, defines, uses, ...).
// On top of the container the package offers slicing, path enumeration,
// strongly connected components, cycle detection, transitive closure, and
// DOT/JSON serialization.
//
// # Ownership Model
//
// The graph owns its nodes and edges. Each node keeps Outgoing and Incoming
// back-references to the edges incident to it; those lists are maintained by
// the graph and MUST NOT be modified by callers.
//
// # Thread Safety
//
// Graph is NOT safe for concurrent use. Callers that share a graph between
// goroutines must serialise access themselves (see services/codegraph.Service).
package graph

import "errors"

// Sentinel errors for graph operations.
var (
	// ErrNodeNotFound is returned when an operation references a node ID
	// that is not present in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrDuplicateNode is returned when adding a node with an ID that
	// already exists in the graph.
	ErrDuplicateNode = errors.New("duplicate node ID")

	// ErrDuplicateEdge is returned when adding an edge with an ID that
	// already exists in the graph.
	ErrDuplicateEdge = errors.New("duplicate edge ID")

	// ErrMaxNodesExceeded is returned when the graph has reached its
	// configured maximum node capacity.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrInvalidNode is returned for a nil node or a node with an empty ID
	// or unknown kind.
	ErrInvalidNode = errors.New("invalid node")

	// ErrInvalidEdge is returned for a nil edge or an edge with an empty ID
	// or unknown kind.
	ErrInvalidEdge = errors.New("invalid edge")

	// ErrMalformedDocument is returned when a serialized graph document is
	// missing required fields or cannot be decoded.
	ErrMalformedDocument = errors.New("malformed graph document")

	// ErrDanglingEdge is returned in strict mode when a document edge
	// references a node the document does not define.
	ErrDanglingEdge = errors.New("edge references unknown node")
)
