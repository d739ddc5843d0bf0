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

import "errors"

// Sentinel errors for the codegraph service.
var (
	// ErrGraphNotFound indicates no graph is stored under the name.
	ErrGraphNotFound = errors.New("graph not found")

	// ErrGraphExists indicates a create-only operation hit an existing graph.
	ErrGraphExists = errors.New("graph already exists")

	// ErrInvalidGraphName indicates the name is empty, too long, or uses
	// characters outside [A-Za-z0-9._-].
	ErrInvalidGraphName = errors.New("invalid graph name")

	// ErrGraphTooLarge indicates the graph exceeds a configured limit.
	ErrGraphTooLarge = errors.New("graph exceeds size limits")

	// ErrEdgeNotFound indicates no edge has the given ID.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrTooManyGraphs indicates the service already holds MaxGraphs graphs.
	ErrTooManyGraphs = errors.New("too many graphs")

	// ErrNoStore indicates persistence was requested without a store.
	ErrNoStore = errors.New("no graph store configured")

	// ErrNoExporter indicates a Neo4j export was requested without an exporter.
	ErrNoExporter = errors.New("no graph exporter configured")
)
