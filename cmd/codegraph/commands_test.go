// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

const chainDocument = `{
  "nodes": [
    {"id": "A", "type": "function", "name": "alpha", "file": "a.go"},
    {"id": "B", "type": "function", "name": "beta", "file": "b.go"},
    {"id": "C", "type": "class", "name": "gamma", "file": "c.go"}
  ],
  "edges": [
    {"id": "A->B", "source": "A", "target": "B", "type": "depends_on"},
    {"id": "B->C", "source": "B", "target": "C", "type": "depends_on"},
    {"id": "B->Z", "source": "B", "target": "Z", "type": "calls"}
  ]
}`

func writeDocument(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// runCLI executes the root command and returns stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCLI_RequiresFile(t *testing.T) {
	_, err := runCLI(t, "stats")
	assert.ErrorIs(t, err, errNoFile)
}

func TestCLI_Stats(t *testing.T) {
	file := writeDocument(t, chainDocument)

	out, err := runCLI(t, "stats", "-f", file, "--json")
	require.NoError(t, err)
	var stats graph.GraphStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.NodeCount)
	assert.Equal(t, 2, stats.EdgeCount, "dangling edge dropped")

	out, err = runCLI(t, "stats", "-f", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Graph statistics")
	assert.Contains(t, out, "nodes: 3")
}

func TestCLI_StrictRejectsDanglingEdges(t *testing.T) {
	file := writeDocument(t, chainDocument)
	_, err := runCLI(t, "stats", "-f", file, "--strict")
	assert.ErrorIs(t, err, graph.ErrDanglingEdge)
}

func TestCLI_Slice(t *testing.T) {
	file := writeDocument(t, chainDocument)

	out, err := runCLI(t, "slice", "C", "-f", file, "--direction", "backward", "--json")
	require.NoError(t, err)
	g, err := graph.UnmarshalDocument([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, 3, g.NodeCount())

	_, err = runCLI(t, "slice", "C", "-f", file, "--direction", "up")
	assert.Error(t, err)

	_, err = runCLI(t, "slice", "Q", "-f", file)
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestCLI_Paths(t *testing.T) {
	file := writeDocument(t, chainDocument)

	out, err := runCLI(t, "paths", "A", "C", "-f", file, "--json")
	require.NoError(t, err)
	var paths [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &paths))
	assert.Equal(t, [][]string{{"A", "B", "C"}}, paths)

	out, err = runCLI(t, "paths", "A", "C", "-f", file, "--max-depth", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "(0)")
}

func TestCLI_CyclesAndSCC(t *testing.T) {
	doc := strings.Replace(chainDocument,
		`{"id": "B->Z", "source": "B", "target": "Z", "type": "calls"}`,
		`{"id": "C->A", "source": "C", "target": "A", "type": "calls"}`, 1)
	file := writeDocument(t, doc)

	out, err := runCLI(t, "cycles", "-f", file, "--unique", "--json")
	require.NoError(t, err)
	var cycles [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &cycles))
	assert.Equal(t, [][]string{{"A", "B", "C"}}, cycles)

	out, err = runCLI(t, "scc", "-f", file, "--json")
	require.NoError(t, err)
	var comps [][]string
	require.NoError(t, json.Unmarshal([]byte(out), &comps))
	require.Len(t, comps, 1)
	assert.ElementsMatch(t, []string{"A", "B", "C"}, comps[0])
}

func TestCLI_ClosureToFile(t *testing.T) {
	file := writeDocument(t, chainDocument)
	outFile := filepath.Join(t.TempDir(), "closure.json")

	_, err := runCLI(t, "closure", "-f", file, "-o", outFile)
	require.NoError(t, err)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	g, err := graph.UnmarshalDocument(data)
	require.NoError(t, err)
	e, ok := g.GetEdge("transitive:A->C")
	require.True(t, ok)
	assert.Equal(t, graph.EdgeKindDependsOn, e.Kind)
}

func TestCLI_DOT(t *testing.T) {
	file := writeDocument(t, chainDocument)

	out, err := runCLI(t, "dot", "-f", file, "--name", "deps")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "digraph deps {\n"))
	assert.Contains(t, out, `"A" [label="alpha", color="blue"];`)
	assert.Contains(t, out, `"A" -> "B" [label="depends_on", color="black"];`)
}

func TestCLI_ReadsStdin(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(chainDocument))
	root.SetArgs([]string{"stats", "-f", "-", "--json"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), `"node_count": 3`)
}
