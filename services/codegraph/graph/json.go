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

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Document is the JSON form of a graph.
//
//	{"nodes": [...], "edges": [...], "metadata": {...}}
type Document struct {
	Nodes    []NodeDocument `json:"nodes" validate:"dive"`
	Edges    []EdgeDocument `json:"edges" validate:"dive"`
	Metadata Metadata       `json:"metadata"`
}

// NodeDocument is the JSON form of a node.
type NodeDocument struct {
	ID       string   `json:"id" validate:"required"`
	Type     NodeKind `json:"type" validate:"required,oneof=function variable class method property import export statement expression"`
	Name     string   `json:"name"`
	File     string   `json:"file"`
	Location Location `json:"location"`
	Code     string   `json:"code"`
	Metadata Metadata `json:"metadata"`
}

// EdgeDocument is the JSON form of an edge. Endpoints are node IDs.
type EdgeDocument struct {
	ID       string   `json:"id" validate:"required"`
	Source   string   `json:"source" validate:"required"`
	Target   string   `json:"target" validate:"required"`
	Type     EdgeKind `json:"type" validate:"required,oneof=calls defines uses contains imports exports extends implements depends_on"`
	Metadata Metadata `json:"metadata"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func documentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// JSONOptions configures FromJSON.
type JSONOptions struct {
	// StrictEdges rejects the document when an edge references a node the
	// document does not define. By default such edges are dropped.
	StrictEdges bool

	// Logger receives a debug record per dropped edge. Nil uses slog.Default().
	Logger *slog.Logger

	// GraphOptions are applied to the reconstructed graph.
	GraphOptions []GraphOption
}

// JSONOption is a functional option for FromJSON.
type JSONOption func(*JSONOptions)

// WithStrictEdges makes FromJSON fail with ErrDanglingEdge instead of
// dropping edges with unknown endpoints.
func WithStrictEdges() JSONOption {
	return func(o *JSONOptions) {
		o.StrictEdges = true
	}
}

// WithJSONLogger sets the logger used while decoding.
func WithJSONLogger(logger *slog.Logger) JSONOption {
	return func(o *JSONOptions) {
		o.Logger = logger
	}
}

// WithJSONGraphOptions passes options to the reconstructed graph.
func WithJSONGraphOptions(opts ...GraphOption) JSONOption {
	return func(o *JSONOptions) {
		o.GraphOptions = append(o.GraphOptions, opts...)
	}
}

// ToJSON converts the graph into its document form.
//
// Description:
//
//	Nodes and edges are listed in insertion order. Metadata maps are
//	shallow-copied so the document does not alias the graph.
func (g *Graph) ToJSON() *Document {
	doc := &Document{
		Nodes:    make([]NodeDocument, 0, len(g.nodeOrder)),
		Edges:    make([]EdgeDocument, 0, len(g.edges)),
		Metadata: g.Metadata.Clone(),
	}
	for _, n := range g.nodeOrder {
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:       n.ID,
			Type:     n.Kind,
			Name:     n.Name,
			File:     n.File,
			Location: n.Location,
			Code:     n.Code,
			Metadata: n.Metadata.Clone(),
		})
	}
	for _, e := range g.edges {
		doc.Edges = append(doc.Edges, EdgeDocument{
			ID:       e.ID,
			Source:   e.SourceID,
			Target:   e.TargetID,
			Type:     e.Kind,
			Metadata: e.Metadata.Clone(),
		})
	}
	return doc
}

// FromJSON reconstructs a graph from its document form.
//
// Description:
//
//	Validates required fields, then adds every node followed by every
//	edge. An edge whose source or target is not among the document's
//	nodes is dropped (logged at debug level) unless WithStrictEdges is
//	given.
//
// Inputs:
//
//	doc - The document. Must not be nil.
//	opts - WithStrictEdges, WithJSONLogger, WithJSONGraphOptions.
//
// Outputs:
//
//	*Graph - The reconstructed graph.
//	error - Non-nil if the document is malformed.
//
// Errors:
//
//	ErrMalformedDocument - nil document, missing required field, unknown
//	                       kind, or duplicate node/edge ID
//	ErrDanglingEdge - strict mode and an edge references an unknown node
//	ErrMaxNodesExceeded - the document exceeds the configured capacity
func FromJSON(doc *Document, opts ...JSONOption) (*Graph, error) {
	options := JSONOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformedDocument)
	}
	if err := documentValidator().Struct(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedDocument, describeValidation(err))
	}

	g := NewGraph(options.GraphOptions...)
	g.Metadata = doc.Metadata.Clone()

	for i, nd := range doc.Nodes {
		err := g.AddNode(&Node{
			ID:       nd.ID,
			Kind:     nd.Type,
			Name:     nd.Name,
			File:     nd.File,
			Location: nd.Location,
			Code:     nd.Code,
			Metadata: nd.Metadata.Clone(),
		})
		switch {
		case err == nil:
		case errors.Is(err, ErrDuplicateNode):
			return nil, fmt.Errorf("%w: nodes[%d]: duplicate id %q", ErrMalformedDocument, i, nd.ID)
		default:
			return nil, err
		}
	}

	dropped := 0
	for i, ed := range doc.Edges {
		if !g.HasNode(ed.Source) || !g.HasNode(ed.Target) {
			if options.StrictEdges {
				return nil, fmt.Errorf("%w: edges[%d] %s (%s -> %s)", ErrDanglingEdge, i, ed.ID, ed.Source, ed.Target)
			}
			dropped++
			logger.Debug("dropping dangling edge",
				slog.String("edge_id", ed.ID),
				slog.String("source", ed.Source),
				slog.String("target", ed.Target))
			continue
		}

		err := g.AddEdge(&Edge{
			ID:       ed.ID,
			Kind:     ed.Type,
			SourceID: ed.Source,
			TargetID: ed.Target,
			Metadata: ed.Metadata.Clone(),
		})
		if errors.Is(err, ErrDuplicateEdge) {
			return nil, fmt.Errorf("%w: edges[%d]: duplicate id %q", ErrMalformedDocument, i, ed.ID)
		}
		if err != nil {
			return nil, err
		}
	}

	if dropped > 0 {
		logger.Debug("graph document decoded with dropped edges",
			slog.Int("nodes", g.NodeCount()),
			slog.Int("edges", g.EdgeCount()),
			slog.Int("dropped_edges", dropped))
	}
	return g, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// MarshalDocument encodes the graph as JSON.
func MarshalDocument(g *Graph) ([]byte, error) {
	return json.Marshal(g.ToJSON())
}

// UnmarshalDocument decodes JSON bytes and reconstructs a graph.
//
// Errors:
//
//	ErrMalformedDocument - data is not a valid document
//	Any error returned by FromJSON
func UnmarshalDocument(data []byte, opts ...JSONOption) (*Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return FromJSON(&doc, opts...)
}

// ReadDocument decodes a document from r and reconstructs a graph.
func ReadDocument(r io.Reader, opts ...JSONOption) (*Graph, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return FromJSON(&doc, opts...)
}

// WriteDocument encodes the graph as indented JSON to w.
func WriteDocument(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(g.ToJSON())
}
