// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package codegraph

import (
	"time"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

// GraphSummary describes one named graph.
type GraphSummary struct {
	// Name is the graph name.
	Name string `json:"name"`

	// Nodes is the node count.
	Nodes int `json:"nodes"`

	// Edges is the edge count.
	Edges int `json:"edges"`

	// Revision changes on every mutation. Zero when not loaded.
	Revision uint64 `json:"revision,omitempty"`

	// Loaded reports whether the graph is held in memory.
	Loaded bool `json:"loaded"`

	// Persisted reports whether a snapshot exists in the store.
	Persisted bool `json:"persisted"`

	// SavedAt is when the snapshot was written, if persisted.
	SavedAt *time.Time `json:"saved_at,omitempty"`
}

// CreateGraphRequest is the request body for POST /v1/codegraph/graphs.
type CreateGraphRequest struct {
	// Name is the new graph's name (required).
	Name string `json:"name" binding:"required"`
}

// ListGraphsResponse is the response for GET /v1/codegraph/graphs.
type ListGraphsResponse struct {
	Graphs []GraphSummary `json:"graphs"`
}

// AddNodeRequest is the request body for POST /graphs/:name/nodes.
type AddNodeRequest struct {
	// ID is optional; one is generated when empty.
	ID string `json:"id"`

	// Type is the node kind (required).
	Type string `json:"type" binding:"required"`

	Name     string         `json:"name"`
	File     string         `json:"file"`
	Location graph.Location `json:"location"`
	Code     string         `json:"code"`
	Metadata graph.Metadata `json:"metadata,omitempty"`
}

// AddEdgeRequest is the request body for POST /graphs/:name/edges.
type AddEdgeRequest struct {
	// ID is optional; one is generated when empty.
	ID string `json:"id"`

	// Source is the source node ID (required).
	Source string `json:"source" binding:"required"`

	// Target is the target node ID (required).
	Target string `json:"target" binding:"required"`

	// Type is the edge kind (required).
	Type string `json:"type" binding:"required"`

	Metadata graph.Metadata `json:"metadata,omitempty"`
}

// SliceRequest is the request body for POST /graphs/:name/slice.
type SliceRequest struct {
	// Start is the node the slice grows from (required).
	Start string `json:"start" binding:"required"`

	// Direction is "forward", "backward" or "both". Default: forward.
	Direction string `json:"direction"`

	// EdgeKinds restricts the edges followed. Empty follows all kinds.
	EdgeKinds []string `json:"edge_kinds,omitempty"`
}

// PathsRequest is the request body for POST /graphs/:name/paths.
type PathsRequest struct {
	// From is the start node (required).
	From string `json:"from" binding:"required"`

	// To is the end node (required).
	To string `json:"to" binding:"required"`

	// MaxDepth bounds path length in edges. Zero uses the service default.
	MaxDepth int `json:"max_depth"`

	// MaxPaths caps the number of returned paths. Zero uses the service limit.
	MaxPaths int `json:"max_paths"`
}

// PathsResponse is the response for POST /graphs/:name/paths.
type PathsResponse struct {
	Paths [][]string `json:"paths"`
	Count int        `json:"count"`
}

// ComponentsResponse is the response for GET /graphs/:name/components.
type ComponentsResponse struct {
	Components [][]string `json:"components"`
	Count      int        `json:"count"`
}

// CyclesResponse is the response for GET /graphs/:name/cycles.
type CyclesResponse struct {
	Cycles [][]string `json:"cycles"`
	Count  int        `json:"count"`
}

// PersistResponse is the response for POST /graphs/:name/persist.
type PersistResponse struct {
	Name      string `json:"name"`
	Persisted bool   `json:"persisted"`
}

// HealthResponse is the response for GET /v1/codegraph/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/codegraph/ready.
type ReadyResponse struct {
	Ready      bool `json:"ready"`
	GraphCount int  `json:"graph_count"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
