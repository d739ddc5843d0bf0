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
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorError  = lipgloss.Color("#E74C3C")
)

var styles = struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style
}{
	Title: lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
	Label: lipgloss.NewStyle().Bold(true),
	Muted: lipgloss.NewStyle().Foreground(colorMuted),
	Error: lipgloss.NewStyle().Bold(true).Foreground(colorError),
}

// printer writes command results. Styling is applied only when the
// destination is a terminal.
type printer struct {
	w      io.Writer
	styled bool
}

func newPrinter(w io.Writer, noColor bool) *printer {
	return &printer{w: w, styled: !noColor && telemetry.IsTerminal(w)}
}

func (p *printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *printer) title(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(styles.Title, fmt.Sprintf(format, args...)))
}

func (p *printer) field(label string, value any) {
	fmt.Fprintf(p.w, "  %s %v\n", p.render(styles.Label, label+":"), value)
}

func (p *printer) muted(text string) {
	fmt.Fprintln(p.w, p.render(styles.Muted, text))
}

func (p *printer) json(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// sequences prints one node-ID sequence per line, joined by sep.
func (p *printer) sequences(heading string, seqs [][]string, sep string) {
	p.title("%s (%d)", heading, len(seqs))
	if len(seqs) == 0 {
		p.muted("  none")
		return
	}
	for i, seq := range seqs {
		fmt.Fprintf(p.w, "  %s %s\n", p.render(styles.Muted, fmt.Sprintf("%3d.", i+1)), strings.Join(seq, sep))
	}
}

func (p *printer) stats(s graph.GraphStats) {
	p.title("Graph statistics")
	p.field("nodes", s.NodeCount)
	p.field("edges", s.EdgeCount)
	p.field("files", s.FileCount)
	p.field("isolated nodes", s.IsolatedNodes)
	if s.MaxFanOutNode != "" {
		p.field("max fan-out", fmt.Sprintf("%d (%s)", s.MaxFanOut, s.MaxFanOutNode))
	}
	if s.MaxFanInNode != "" {
		p.field("max fan-in", fmt.Sprintf("%d (%s)", s.MaxFanIn, s.MaxFanInNode))
	}

	nodeKinds := make([]string, 0, len(s.NodesByKind))
	for k, n := range s.NodesByKind {
		nodeKinds = append(nodeKinds, fmt.Sprintf("%s=%d", k, n))
	}
	slices.Sort(nodeKinds)
	edgeKinds := make([]string, 0, len(s.EdgesByKind))
	for k, n := range s.EdgesByKind {
		edgeKinds = append(edgeKinds, fmt.Sprintf("%s=%d", k, n))
	}
	slices.Sort(edgeKinds)
	p.field("node kinds", strings.Join(nodeKinds, " "))
	p.field("edge kinds", strings.Join(edgeKinds, " "))
}

func (p *printer) graphSummary(heading string, g *graph.Graph) {
	p.title("%s: %d nodes, %d edges", heading, g.NodeCount(), g.EdgeCount())
	for _, n := range g.NodeList() {
		label := n.ID
		if n.Name != "" && n.Name != n.ID {
			label = fmt.Sprintf("%s (%s)", n.ID, n.Name)
		}
		fmt.Fprintf(p.w, "  %s %s\n", p.render(styles.Muted, string(n.Kind)), label)
	}
}

func (p *printer) failure(err error) {
	fmt.Fprintf(p.w, "%s %v\n", p.render(styles.Error, "error:"), err)
}
