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

// FindStronglyConnectedComponents partitions the graph into SCCs.
//
// Description:
//
//	Uses Tarjan's strongly connected components algorithm over outgoing
//	edges. Roots are tried in node insertion order. A node on no cycle
//	forms a singleton component, so a DAG yields NodeCount() singletons.
//
//	Time complexity: O(V + E)
//	Space complexity: O(V)
//
//	Implementation uses an explicit call stack to avoid stack overflow on
//	deep graphs.
//
// Outputs:
//
//	[][]string - Components in completion order. Each component lists its
//	             node IDs in stack-pop order. Every node appears in exactly
//	             one component.
func (g *Graph) FindStronglyConnectedComponents() [][]string {
	index := 0
	nodeIndex := make(map[string]int, len(g.nodes))
	nodeLowLink := make(map[string]int, len(g.nodes))
	onStack := make(map[string]bool)
	sccStack := make([]string, 0)
	sccs := make([][]string, 0)

	// callFrame replaces one level of the recursive strongconnect call.
	type callFrame struct {
		nodeID    string
		edgeIndex int    // next index into Outgoing
		phase     int    // 0=init, 1=process edges, 2=post-child, 3=finalize
		childID   string // child we just returned from (phase 2)
	}

	strongConnect := func(startNodeID string) {
		callStack := []callFrame{{nodeID: startNodeID}}

		for len(callStack) > 0 {
			frame := &callStack[len(callStack)-1]

			switch frame.phase {
			case 0:
				nodeIndex[frame.nodeID] = index
				nodeLowLink[frame.nodeID] = index
				index++
				sccStack = append(sccStack, frame.nodeID)
				onStack[frame.nodeID] = true
				frame.phase = 1

			case 1:
				node := g.nodes[frame.nodeID]
				pushed := false
				for frame.edgeIndex < len(node.Outgoing) {
					edge := node.Outgoing[frame.edgeIndex]
					frame.edgeIndex++

					if _, visited := nodeIndex[edge.TargetID]; !visited {
						frame.phase = 2
						frame.childID = edge.TargetID
						callStack = append(callStack, callFrame{nodeID: edge.TargetID})
						pushed = true
						break
					} else if onStack[edge.TargetID] {
						if nodeIndex[edge.TargetID] < nodeLowLink[frame.nodeID] {
							nodeLowLink[frame.nodeID] = nodeIndex[edge.TargetID]
						}
					}
				}
				if !pushed {
					frame.phase = 3
				}

			case 2:
				if nodeLowLink[frame.childID] < nodeLowLink[frame.nodeID] {
					nodeLowLink[frame.nodeID] = nodeLowLink[frame.childID]
				}
				frame.phase = 1

			case 3:
				if nodeLowLink[frame.nodeID] == nodeIndex[frame.nodeID] {
					scc := make([]string, 0)
					for {
						w := sccStack[len(sccStack)-1]
						sccStack = sccStack[:len(sccStack)-1]
						onStack[w] = false
						scc = append(scc, w)
						if w == frame.nodeID {
							break
						}
					}
					sccs = append(sccs, scc)
				}
				callStack = callStack[:len(callStack)-1]
			}
		}
	}

	for _, node := range g.nodeOrder {
		if _, visited := nodeIndex[node.ID]; !visited {
			strongConnect(node.ID)
		}
	}

	return sccs
}

// CyclicComponents returns only the SCCs that contain a cycle: components
// with more than one node, or a single node with a self-loop.
func (g *Graph) CyclicComponents() [][]string {
	result := make([][]string, 0)
	for _, scc := range g.FindStronglyConnectedComponents() {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			result = append(result, scc)
		}
	}
	return result
}

func (g *Graph) hasSelfLoop(id string) bool {
	node, ok := g.nodes[id]
	if !ok {
		return false
	}
	for _, e := range node.Outgoing {
		if e.TargetID == id {
			return true
		}
	}
	return false
}
