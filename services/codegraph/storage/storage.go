// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage defines the types shared by the graph persistence
// backends (badger for snapshots, neo4j for export).
package storage

import (
	"errors"
	"time"
)

var (
	// ErrGraphNotFound is returned when no graph is stored under a name.
	ErrGraphNotFound = errors.New("stored graph not found")

	// ErrInvalidName is returned for an empty or malformed graph name.
	ErrInvalidName = errors.New("invalid graph name")
)

// Summary describes a stored graph without loading it.
type Summary struct {
	Name      string    `json:"name"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
	SizeBytes int       `json:"size_bytes"`
	SavedAt   time.Time `json:"saved_at"`
}
