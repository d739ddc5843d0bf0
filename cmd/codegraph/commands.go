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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// rootOptions are the flags shared by every command.
type rootOptions struct {
	file     string
	strict   bool
	jsonOut  bool
	noColor  bool
	logLevel string
}

var errNoFile = errors.New("--file is required (use - for stdin)")

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "codegraph",
		Short: "Analyze code dependency graphs",
		Long: `Slice, trace and render code dependency graphs stored as JSON documents.

Offline commands read a graph document with --file and print the result.
The serve command runs the HTTP API.

Examples:
  codegraph stats -f graph.json
  codegraph slice main.go:main -f graph.json --direction backward
  codegraph paths handler store -f graph.json --max-depth 6
  codegraph cycles -f graph.json --unique
  codegraph dot -f graph.json -o graph.dot
  codegraph serve --config codegraph.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(telemetry.NewLogger(cmd.ErrOrStderr(), telemetry.LogConfig{
				Level:  opts.logLevel,
				Format: "auto",
			}))
		},
	}

	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "",
		"Graph document to read (- for stdin)")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false,
		"Reject edges whose endpoints are missing instead of dropping them")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false,
		"Output as JSON for scripting")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false,
		"Disable styled output")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn",
		"Log level: debug, info, warn, error")

	root.AddCommand(
		newSliceCmd(opts),
		newPathsCmd(opts),
		newSCCCmd(opts),
		newCyclesCmd(opts),
		newClosureCmd(opts),
		newDOTCmd(opts),
		newStatsCmd(opts),
		newServeCmd(),
	)
	return root
}

func newSliceCmd(opts *rootOptions) *cobra.Command {
	var direction string
	var edgeKinds []string
	var output string

	cmd := &cobra.Command{
		Use:   "slice NODE",
		Short: "Extract the subgraph reachable from a node",
		Long: `Extract every node reachable from NODE together with the edges used to
reach them.

Directions:
  forward   - follow outgoing edges (what NODE depends on)
  backward  - follow incoming edges (what depends on NODE)
  both      - follow both`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := graph.ParseDirection(direction)
			if err != nil {
				return err
			}
			kinds, err := graph.ParseEdgeKinds(edgeKinds)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			slice, err := g.ComputeSlice(args[0], dir, graph.WithSliceEdgeKinds(kinds...))
			if err != nil {
				return err
			}
			return writeGraph(cmd, opts, output, fmt.Sprintf("Slice of %s (%s)", args[0], dir), slice)
		},
	}
	cmd.Flags().StringVarP(&direction, "direction", "d", "forward",
		"Slice direction: forward, backward, both")
	cmd.Flags().StringSliceVar(&edgeKinds, "edge-kinds", nil,
		"Only follow these edge kinds (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the slice document to this file")
	return cmd
}

func newPathsCmd(opts *rootOptions) *cobra.Command {
	var maxDepth, maxPaths int

	cmd := &cobra.Command{
		Use:   "paths FROM TO",
		Short: "List simple paths between two nodes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			paths, err := g.FindPaths(commandContext(cmd), args[0], args[1],
				graph.WithMaxDepth(maxDepth), graph.WithMaxPaths(maxPaths))
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout(), opts.noColor)
			if opts.jsonOut {
				return p.json(paths)
			}
			p.sequences(fmt.Sprintf("Paths %s → %s", args[0], args[1]), paths, " → ")
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0,
		"Maximum edges per path (0 = unbounded)")
	cmd.Flags().IntVar(&maxPaths, "max-paths", 0,
		"Stop after this many paths (0 = all)")
	return cmd
}

func newSCCCmd(opts *rootOptions) *cobra.Command {
	var cyclicOnly bool

	cmd := &cobra.Command{
		Use:   "scc",
		Short: "List strongly connected components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			comps := g.FindStronglyConnectedComponents()
			if cyclicOnly {
				comps = g.CyclicComponents()
			}

			p := newPrinter(cmd.OutOrStdout(), opts.noColor)
			if opts.jsonOut {
				return p.json(comps)
			}
			p.sequences("Strongly connected components", comps, ", ")
			return nil
		},
	}
	cmd.Flags().BoolVar(&cyclicOnly, "cyclic", false,
		"Only list components that contain a cycle")
	return cmd
}

func newCyclesCmd(opts *rootOptions) *cobra.Command {
	var unique bool

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List dependency cycles",
		Long: `List every cycle found by a depth-first search from each node.

Without --unique, a cycle is reported once per node on it, each time
starting from that node.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			cycles, err := g.FindCycles(commandContext(cmd))
			if err != nil {
				return err
			}
			if unique {
				cycles = graph.UniqueCycles(cycles)
			}

			p := newPrinter(cmd.OutOrStdout(), opts.noColor)
			if opts.jsonOut {
				return p.json(cycles)
			}
			p.sequences("Cycles", cycles, " → ")
			return nil
		},
	}
	cmd.Flags().BoolVar(&unique, "unique", false,
		"Report each cycle once regardless of starting node")
	return cmd
}

func newClosureCmd(opts *rootOptions) *cobra.Command {
	var edgeKinds []string
	var output string

	cmd := &cobra.Command{
		Use:   "closure",
		Short: "Add transitive depends_on edges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kinds, err := graph.ParseEdgeKinds(edgeKinds)
			if err != nil {
				return err
			}
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			closure := g.ComputeTransitiveClosure(graph.WithClosureEdgeKinds(kinds...))
			return writeGraph(cmd, opts, output,
				fmt.Sprintf("Closure (+%d transitive edges)", closure.EdgeCount()-g.EdgeCount()), closure)
		},
	}
	cmd.Flags().StringSliceVar(&edgeKinds, "edge-kinds", nil,
		"Edge kinds forming the relation (default all)")
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write the closure document to this file")
	return cmd
}

func newDOTCmd(opts *rootOptions) *cobra.Command {
	var output, name string

	cmd := &cobra.Command{
		Use:   "dot",
		Short: "Render the graph in Graphviz DOT format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			dot := g.ToDOT(graph.WithGraphName(name))
			if output == "" {
				_, err := io.WriteString(cmd.OutOrStdout(), dot)
				return err
			}
			return writeFile(output, []byte(dot))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "",
		"Write DOT to this file instead of stdout")
	cmd.Flags().StringVar(&name, "name", graph.DefaultDOTGraphName,
		"Graph name in the digraph header")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize graph structure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			g, err := loadGraph(cmd, opts)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout(), opts.noColor)
			if opts.jsonOut {
				return p.json(g.Stats())
			}
			p.stats(g.Stats())
			return nil
		},
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadGraph reads the document named by --file.
func loadGraph(cmd *cobra.Command, opts *rootOptions) (*graph.Graph, error) {
	if opts.file == "" {
		return nil, errNoFile
	}

	jsonOpts := []graph.JSONOption{graph.WithJSONLogger(slog.Default())}
	if opts.strict {
		jsonOpts = append(jsonOpts, graph.WithStrictEdges())
	}

	if opts.file == "-" {
		return graph.ReadDocument(cmd.InOrStdin(), jsonOpts...)
	}
	f, err := os.Open(opts.file)
	if err != nil {
		return nil, fmt.Errorf("open graph document: %w", err)
	}
	defer f.Close()

	g, err := graph.ReadDocument(f, jsonOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", opts.file, err)
	}
	return g, nil
}

// writeGraph writes g as a document to output, or to stdout with --json,
// or prints a node listing.
func writeGraph(cmd *cobra.Command, opts *rootOptions, output, heading string, g *graph.Graph) error {
	if output != "" {
		data, err := graph.MarshalDocument(g)
		if err != nil {
			return err
		}
		return writeFile(output, data)
	}
	if opts.jsonOut {
		return graph.WriteDocument(cmd.OutOrStdout(), g)
	}
	newPrinter(cmd.OutOrStdout(), opts.noColor).graphSummary(heading, g)
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
