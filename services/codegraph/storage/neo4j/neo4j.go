// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package neo4j mirrors code graphs into a Neo4j database for ad-hoc
// Cypher exploration.
//
// Every node becomes a (:CodeNode {graph, id}) vertex and every edge a
// relationship whose type is the upper-cased edge kind (CALLS, DEPENDS_ON,
// ...). An export replaces whatever was previously exported under the same
// graph name.
package neo4j

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

// DefaultBatchSize is the number of nodes or edges sent per UNWIND.
const DefaultBatchSize = 500

// Config holds Neo4j connection settings.
type Config struct {
	URI       string `yaml:"uri"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	BatchSize int    `yaml:"batch_size"`
}

// Enabled reports whether a URI is configured.
func (c Config) Enabled() bool {
	return c.URI != ""
}

// ExportResult reports what an export wrote.
type ExportResult struct {
	Graph         string `json:"graph"`
	Nodes         int    `json:"nodes"`
	Relationships int    `json:"relationships"`
	Statements    int    `json:"statements"`
}

// Exporter writes graphs to Neo4j.
//
// Thread Safety: Safe for concurrent use.
type Exporter struct {
	driver    neo4j.DriverWithContext
	database  string
	batchSize int
	logger    *slog.Logger
}

// NewExporter connects to Neo4j and verifies connectivity.
//
// Errors:
//
//	Returns an error if cfg.URI is empty, the driver cannot be created, or
//	the server is unreachable.
func NewExporter(ctx context.Context, cfg Config, logger *slog.Logger) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("neo4j uri is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &Exporter{
		driver:    driver,
		database:  cfg.Database,
		batchSize: batch,
		logger:    logger.With(slog.String("component", "neo4j_exporter")),
	}, nil
}

// Export replaces the graph stored under name with g.
//
// Description:
//
//	Runs in a single write transaction: existing CodeNode vertices for the
//	name are detached and deleted, then nodes and relationships are merged
//	in batches.
func (e *Exporter) Export(ctx context.Context, name string, g *graph.Graph) (*ExportResult, error) {
	stmts, err := buildStatements(name, g, e.batchSize)
	if err != nil {
		return nil, err
	}

	session := e.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: e.database,
	})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			if _, err := tx.Run(ctx, st.cypher, st.params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("export graph %s: %w", name, err)
	}

	result := &ExportResult{
		Graph:         name,
		Nodes:         g.NodeCount(),
		Relationships: g.EdgeCount(),
		Statements:    len(stmts),
	}
	e.logger.Info("graph exported to neo4j",
		slog.String("graph", name),
		slog.Int("nodes", result.Nodes),
		slog.Int("relationships", result.Relationships))
	return result, nil
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	return e.driver.Close(ctx)
}

type statement struct {
	cypher string
	params map[string]any
}

const (
	deleteCypher = "MATCH (n:CodeNode {graph: $graph}) DETACH DELETE n"

	nodeCypher = "UNWIND $nodes AS n " +
		"MERGE (c:CodeNode {graph: $graph, id: n.id}) " +
		"SET c.kind = n.kind, c.name = n.name, c.file = n.file, " +
		"c.line = n.line, c.column = n.column, c.code = n.code, c.metadata = n.metadata"

	// %s is the relationship type, taken from the closed EdgeKind set.
	edgeCypherFormat = "UNWIND $edges AS e " +
		"MATCH (a:CodeNode {graph: $graph, id: e.source}) " +
		"MATCH (b:CodeNode {graph: $graph, id: e.target}) " +
		"MERGE (a)-[r:%s {id: e.id}]->(b) " +
		"SET r.metadata = e.metadata"
)

// relationshipType converts an edge kind into a Cypher relationship type.
func relationshipType(kind graph.EdgeKind) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: %q", graph.ErrInvalidEdge, kind)
	}
	return strings.ToUpper(string(kind)), nil
}

func encodeMetadata(md graph.Metadata) (string, error) {
	if len(md) == 0 {
		return "", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// buildStatements turns g into the ordered Cypher statements of an export.
func buildStatements(name string, g *graph.Graph, batchSize int) ([]statement, error) {
	if name == "" {
		return nil, errors.New("graph name is required")
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	stmts := []statement{{cypher: deleteCypher, params: map[string]any{"graph": name}}}

	nodes := make([]any, 0, batchSize)
	flushNodes := func() {
		if len(nodes) == 0 {
			return
		}
		stmts = append(stmts, statement{cypher: nodeCypher, params: map[string]any{"graph": name, "nodes": nodes}})
		nodes = make([]any, 0, batchSize)
	}
	for _, n := range g.NodeList() {
		md, err := encodeMetadata(n.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata of node %s: %w", n.ID, err)
		}
		nodes = append(nodes, map[string]any{
			"id":       n.ID,
			"kind":     string(n.Kind),
			"name":     n.Name,
			"file":     n.File,
			"line":     int64(n.Location.Line),
			"column":   int64(n.Location.Column),
			"code":     n.Code,
			"metadata": md,
		})
		if len(nodes) >= batchSize {
			flushNodes()
		}
	}
	flushNodes()

	// Relationship types cannot be parameters, so edges are grouped by kind
	// in first-seen order.
	byKind := make(map[graph.EdgeKind][]any)
	kinds := make([]graph.EdgeKind, 0)
	for _, e := range g.Edges() {
		if _, seen := byKind[e.Kind]; !seen {
			kinds = append(kinds, e.Kind)
		}
		md, err := encodeMetadata(e.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode metadata of edge %s: %w", e.ID, err)
		}
		byKind[e.Kind] = append(byKind[e.Kind], map[string]any{
			"id":       e.ID,
			"source":   e.SourceID,
			"target":   e.TargetID,
			"metadata": md,
		})
	}

	for _, kind := range kinds {
		relType, err := relationshipType(kind)
		if err != nil {
			return nil, err
		}
		cypher := fmt.Sprintf(edgeCypherFormat, relType)
		edges := byKind[kind]
		for start := 0; start < len(edges); start += batchSize {
			end := min(start+batchSize, len(edges))
			stmts = append(stmts, statement{
				cypher: cypher,
				params: map[string]any{"graph": name, "edges": edges[start:end]},
			})
		}
	}

	return stmts, nil
}
