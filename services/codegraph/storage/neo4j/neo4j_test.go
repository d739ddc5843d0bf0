// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package neo4j

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

func buildTestGraph(t *testing.T, nodes int) *graph.Graph {
	t.Helper()
	g := graph.NewGraph()
	for i := 0; i < nodes; i++ {
		_, err := g.CreateNode(graph.NodeOptions{ID: fmt.Sprintf("n%d", i), Kind: graph.NodeKindFunction})
		require.NoError(t, err)
	}
	for i := 1; i < nodes; i++ {
		kind := graph.EdgeKindCalls
		if i%2 == 0 {
			kind = graph.EdgeKindDependsOn
		}
		_, err := g.CreateEdge(fmt.Sprintf("n%d", i-1), fmt.Sprintf("n%d", i), kind, graph.Metadata{"i": i})
		require.NoError(t, err)
	}
	return g
}

func TestBuildStatements(t *testing.T) {
	g := buildTestGraph(t, 5)

	stmts, err := buildStatements("demo", g, 3)
	require.NoError(t, err)

	// delete + 2 node batches + CALLS batch + DEPENDS_ON batch
	require.Len(t, stmts, 5)
	assert.Equal(t, deleteCypher, stmts[0].cypher)
	assert.Equal(t, "demo", stmts[0].params["graph"])

	assert.Len(t, stmts[1].params["nodes"], 3)
	assert.Len(t, stmts[2].params["nodes"], 2)

	assert.Contains(t, stmts[3].cypher, "[r:CALLS {id: e.id}]")
	assert.Len(t, stmts[3].params["edges"], 2)
	assert.Contains(t, stmts[4].cypher, "[r:DEPENDS_ON {id: e.id}]")

	first := stmts[3].params["edges"].([]any)[0].(map[string]any)
	assert.Equal(t, "n0", first["source"])
	assert.Equal(t, `{"i":1}`, first["metadata"])
}

func TestBuildStatements_EmptyGraph(t *testing.T) {
	stmts, err := buildStatements("empty", graph.NewGraph(), 0)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.True(t, strings.HasPrefix(stmts[0].cypher, "MATCH"))
}

func TestBuildStatements_RequiresName(t *testing.T) {
	_, err := buildStatements("", graph.NewGraph(), 10)
	assert.Error(t, err)
}

func TestRelationshipType(t *testing.T) {
	rt, err := relationshipType(graph.EdgeKindImplements)
	require.NoError(t, err)
	assert.Equal(t, "IMPLEMENTS", rt)

	_, err = relationshipType(graph.EdgeKind("x) DETACH DELETE (y"))
	assert.ErrorIs(t, err, graph.ErrInvalidEdge)
}

func TestNewExporter_RequiresURI(t *testing.T) {
	_, err := NewExporter(context.Background(), Config{}, nil)
	assert.Error(t, err)
	assert.False(t, Config{}.Enabled())
}
