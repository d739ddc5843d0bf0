// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codegraph serves named code dependency graphs and runs analyses
// over them.
//
// A Service owns a set of named graphs. Each graph is guarded by its own
// RWMutex: analyses share a read lock and mutations take the write lock.
// Analysis results are optionally cached under a key that includes the
// graph's revision, so a mutation makes earlier results unreachable
// without an explicit purge.
package codegraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/codegraph/services/codegraph/cache"
	"github.com/AleutianAI/codegraph/services/codegraph/graph"
	"github.com/AleutianAI/codegraph/services/codegraph/storage"
	neo4jstore "github.com/AleutianAI/codegraph/services/codegraph/storage/neo4j"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

// ServiceVersion is the codegraph service version.
const ServiceVersion = "0.1.0"

const maxGraphNameLen = 128

// graphNameRule is applied to every graph name. Names end up in URL paths,
// badger keys and cache key prefixes, so they are limited to [A-Za-z0-9._-].
var graphNameRule = fmt.Sprintf("required,max=%d,graphname", maxGraphNameLen)

// nameValidate is the validator instance for graph names.
var nameValidate *validator.Validate

func init() {
	nameValidate = validator.New()
	_ = nameValidate.RegisterValidation("graphname", validateGraphNameChars)
}

func validateGraphNameChars(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// ServiceConfig configures the service limits.
type ServiceConfig struct {
	// MaxGraphs is the maximum number of graphs held in memory.
	// Zero means unlimited.
	// Default: 64
	MaxGraphs int `yaml:"max_graphs"`

	// MaxNodesPerGraph caps the node count of any stored graph.
	// Default: 1,000,000
	MaxNodesPerGraph int `yaml:"max_nodes_per_graph"`

	// DefaultMaxDepth bounds path enumeration when a request gives none.
	// Default: 12
	DefaultMaxDepth int `yaml:"default_max_depth"`

	// MaxPaths caps the number of paths one request may return.
	// Default: 1000
	MaxPaths int `yaml:"max_paths"`

	// MaxClosureNodes is the largest graph a closure is computed for.
	// Default: 20000
	MaxClosureNodes int `yaml:"max_closure_nodes"`

	// AnalysisTimeout bounds path and cycle enumeration.
	// Default: 30s
	AnalysisTimeout time.Duration `yaml:"analysis_timeout"`

	// StrictEdges rejects imported documents that contain dangling edges.
	// Default: false
	StrictEdges bool `yaml:"strict_edges"`

	// AutoPersist saves a graph to the store after every change.
	// Default: false
	AutoPersist bool `yaml:"auto_persist"`
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxGraphs:        64,
		MaxNodesPerGraph: graph.DefaultMaxNodes,
		DefaultMaxDepth:  12,
		MaxPaths:         1000,
		MaxClosureNodes:  20000,
		AnalysisTimeout:  30 * time.Second,
	}
}

// Store persists graph snapshots. *badger.GraphStore implements it.
type Store interface {
	Save(ctx context.Context, name string, g *graph.Graph) error
	Load(ctx context.Context, name string, opts ...graph.JSONOption) (*graph.Graph, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]storage.Summary, error)
}

// Exporter copies a graph into an external graph database.
// *neo4j.Exporter implements it.
type Exporter interface {
	Export(ctx context.Context, name string, g *graph.Graph) (*neo4jstore.ExportResult, error)
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithStore enables persistence and lazy loading.
func WithStore(store Store) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithCache enables analysis result caching.
func WithCache(c cache.Cache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

// WithExporter enables ExportToNeo4j.
func WithExporter(e Exporter) ServiceOption {
	return func(s *Service) {
		s.exporter = e
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type graphEntry struct {
	mu       sync.RWMutex
	g        *graph.Graph
	revision uint64
}

// Service manages named graphs and runs analyses on them.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	config   ServiceConfig
	logger   *slog.Logger
	store    Store
	cache    cache.Cache
	exporter Exporter

	mu     sync.RWMutex
	graphs map[string]*graphEntry

	loads  singleflight.Group
	revSeq atomic.Uint64
}

// NewService creates a new codegraph service.
//
// Description:
//
//	Creates a service with no graphs. Store, cache and exporter are
//	optional and supplied through options.
//
// Inputs:
//
//	config - Service limits. Use DefaultServiceConfig() for defaults.
//	opts - WithStore, WithCache, WithExporter, WithLogger.
//
// Outputs:
//
//	*Service - The new service.
func NewService(config ServiceConfig, opts ...ServiceOption) *Service {
	s := &Service{
		config: config,
		logger: slog.Default(),
		graphs: make(map[string]*graphEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "codegraph_service"))
	return s
}

// Config returns the service configuration.
func (s *Service) Config() ServiceConfig {
	return s.config
}

// GraphCount returns the number of graphs held in memory.
func (s *Service) GraphCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.graphs)
}

// CacheStats returns the analysis cache counters. ok is false when no
// cache is configured.
func (s *Service) CacheStats() (stats cache.Stats, ok bool) {
	if s.cache == nil {
		return cache.Stats{}, false
	}
	return s.cache.Stats(), true
}

func validateGraphName(name string) error {
	if err := nameValidate.Var(name, graphNameRule); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidGraphName, name)
	}
	return nil
}

func (s *Service) jsonOptions(strict bool) []graph.JSONOption {
	opts := []graph.JSONOption{
		graph.WithJSONLogger(s.logger),
		graph.WithJSONGraphOptions(graph.WithMaxNodes(s.config.MaxNodesPerGraph)),
	}
	if strict || s.config.StrictEdges {
		opts = append(opts, graph.WithStrictEdges())
	}
	return opts
}

func (s *Service) newEntry(g *graph.Graph) *graphEntry {
	return &graphEntry{g: g, revision: s.revSeq.Add(1)}
}

// insertLocked stores e under name. Caller must hold s.mu for writing.
func (s *Service) insertLocked(name string, e *graphEntry) error {
	if _, exists := s.graphs[name]; !exists && s.config.MaxGraphs > 0 && len(s.graphs) >= s.config.MaxGraphs {
		return fmt.Errorf("%w: limit is %d", ErrTooManyGraphs, s.config.MaxGraphs)
	}
	s.graphs[name] = e
	return nil
}

// entry returns the in-memory entry for name, loading it from the store
// when needed. Concurrent loads of one name share a single store read.
func (s *Service) entry(ctx context.Context, name string) (*graphEntry, error) {
	if err := validateGraphName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	e, ok := s.graphs[name]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, name)
	}

	v, err, _ := s.loads.Do(name, func() (any, error) {
		s.mu.RLock()
		e, ok := s.graphs[name]
		s.mu.RUnlock()
		if ok {
			return e, nil
		}

		g, err := s.store.Load(ctx, name, s.jsonOptions(false)...)
		if errors.Is(err, storage.ErrGraphNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, name)
		}
		if err != nil {
			return nil, fmt.Errorf("load graph %s: %w", name, err)
		}
		recordStoreLoad(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.graphs[name]; ok {
			return existing, nil
		}
		e = s.newEntry(g)
		if err := s.insertLocked(name, e); err != nil {
			return nil, err
		}
		s.logger.Info("graph loaded from store",
			slog.String("graph", name),
			slog.Int("nodes", g.NodeCount()),
			slog.Int("edges", g.EdgeCount()))
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graphEntry), nil
}

// read runs fn under the graph's read lock.
func (s *Service) read(ctx context.Context, name string, fn func(g *graph.Graph, revision uint64) error) error {
	e, err := s.entry(ctx, name)
	if err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fn(e.g, e.revision)
}

// mutate runs fn under the graph's write lock and bumps the revision when
// fn succeeds.
func (s *Service) mutate(ctx context.Context, name, op string, fn func(g *graph.Graph) error) error {
	e, err := s.entry(ctx, name)
	if err != nil {
		return err
	}

	e.mu.Lock()
	err = fn(e.g)
	if err == nil {
		e.revision = s.revSeq.Add(1)
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}

	recordMutation(ctx, op)
	if s.config.AutoPersist && s.store != nil {
		return s.Persist(ctx, name)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, name string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteGraph(ctx, name); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("graph", name), slog.String("error", err.Error()))
	}
}

// CreateGraph stores a new empty graph under name.
//
// Errors:
//
//	ErrInvalidGraphName - name fails validation
//	ErrGraphExists - a graph is already held under name, in memory or in the store
//	ErrTooManyGraphs - MaxGraphs reached
func (s *Service) CreateGraph(ctx context.Context, name string) (GraphSummary, error) {
	if err := validateGraphName(name); err != nil {
		return GraphSummary{}, err
	}
	if s.store != nil {
		_, err := s.entry(ctx, name)
		if err == nil {
			return GraphSummary{}, fmt.Errorf("%w: %s", ErrGraphExists, name)
		}
		if !errors.Is(err, ErrGraphNotFound) {
			return GraphSummary{}, err
		}
	}

	e := s.newEntry(graph.NewGraph(graph.WithMaxNodes(s.config.MaxNodesPerGraph)))
	summary := GraphSummary{Name: name, Revision: e.revision, Loaded: true}

	s.mu.Lock()
	if _, exists := s.graphs[name]; exists {
		s.mu.Unlock()
		return GraphSummary{}, fmt.Errorf("%w: %s", ErrGraphExists, name)
	}
	err := s.insertLocked(name, e)
	s.mu.Unlock()
	if err != nil {
		return GraphSummary{}, err
	}

	if s.config.AutoPersist && s.store != nil {
		if err := s.Persist(ctx, name); err != nil {
			return GraphSummary{}, err
		}
		summary.Persisted = true
	}
	return summary, nil
}

// PutGraph stores g under name, replacing any existing graph.
//
// Description:
//
//	The service takes ownership of g; the caller must not use it
//	afterwards. Cached results for a replaced graph are purged.
//
// Errors:
//
//	ErrInvalidGraphName - name fails validation
//	ErrGraphTooLarge - g has more than MaxNodesPerGraph nodes
//	ErrTooManyGraphs - MaxGraphs reached and name is new
func (s *Service) PutGraph(ctx context.Context, name string, g *graph.Graph) (GraphSummary, error) {
	if err := validateGraphName(name); err != nil {
		return GraphSummary{}, err
	}
	if g == nil {
		g = graph.NewGraph(graph.WithMaxNodes(s.config.MaxNodesPerGraph))
	}
	if limit := s.config.MaxNodesPerGraph; limit > 0 && g.NodeCount() > limit {
		return GraphSummary{}, fmt.Errorf("%w: %d nodes, limit is %d", ErrGraphTooLarge, g.NodeCount(), limit)
	}

	e := s.newEntry(g)
	summary := GraphSummary{
		Name:     name,
		Nodes:    g.NodeCount(),
		Edges:    g.EdgeCount(),
		Revision: e.revision,
		Loaded:   true,
	}

	s.mu.Lock()
	_, replaced := s.graphs[name]
	err := s.insertLocked(name, e)
	s.mu.Unlock()
	if err != nil {
		return GraphSummary{}, err
	}
	if replaced {
		s.invalidate(ctx, name)
	}

	telemetry.LoggerWithGraph(ctx, s.logger, name).Info("graph stored",
		slog.Int("nodes", summary.Nodes),
		slog.Int("edges", summary.Edges),
		slog.Bool("replaced", replaced))

	if s.config.AutoPersist && s.store != nil {
		if err := s.Persist(ctx, name); err != nil {
			return GraphSummary{}, err
		}
		summary.Persisted = true
	}
	return summary, nil
}

// ImportDocument decodes doc and stores it under name.
//
// Errors:
//
//	graph.ErrMalformedDocument - doc fails validation
//	graph.ErrDanglingEdge - strict and an edge has a missing endpoint
//	graph.ErrMaxNodesExceeded - doc exceeds MaxNodesPerGraph
//	Plus every error of PutGraph.
func (s *Service) ImportDocument(ctx context.Context, name string, doc *graph.Document, strict bool) (GraphSummary, error) {
	if err := validateGraphName(name); err != nil {
		return GraphSummary{}, err
	}
	g, err := graph.FromJSON(doc, s.jsonOptions(strict)...)
	if err != nil {
		return GraphSummary{}, err
	}
	return s.PutGraph(ctx, name, g)
}

// ExportDocument returns the JSON document form of the named graph.
func (s *Service) ExportDocument(ctx context.Context, name string) (*graph.Document, error) {
	var doc *graph.Document
	err := s.read(ctx, name, func(g *graph.Graph, _ uint64) error {
		doc = g.ToJSON()
		return nil
	})
	return doc, err
}

// DeleteGraph removes the named graph from memory and from the store.
//
// Errors:
//
//	ErrGraphNotFound - neither memory nor the store holds the graph
func (s *Service) DeleteGraph(ctx context.Context, name string) error {
	if err := validateGraphName(name); err != nil {
		return err
	}

	s.mu.Lock()
	_, inMemory := s.graphs[name]
	delete(s.graphs, name)
	s.mu.Unlock()

	inStore := false
	if s.store != nil {
		err := s.store.Delete(ctx, name)
		switch {
		case err == nil:
			inStore = true
		case errors.Is(err, storage.ErrGraphNotFound):
		default:
			return fmt.Errorf("delete graph %s: %w", name, err)
		}
	}
	if !inMemory && !inStore {
		return fmt.Errorf("%w: %s", ErrGraphNotFound, name)
	}

	s.invalidate(ctx, name)
	s.logger.Info("graph deleted", slog.String("graph", name))
	return nil
}

// GraphInfo returns a summary of the named graph, loading it if needed.
func (s *Service) GraphInfo(ctx context.Context, name string) (GraphSummary, error) {
	summary := GraphSummary{Name: name, Loaded: true}
	err := s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		summary.Nodes = g.NodeCount()
		summary.Edges = g.EdgeCount()
		summary.Revision = revision
		return nil
	})
	if err != nil {
		return GraphSummary{}, err
	}
	return summary, nil
}

// ListGraphs returns every graph held in memory or in the store, sorted
// by name.
func (s *Service) ListGraphs(ctx context.Context) ([]GraphSummary, error) {
	byName := make(map[string]*GraphSummary)

	s.mu.RLock()
	entries := make(map[string]*graphEntry, len(s.graphs))
	for name, e := range s.graphs {
		entries[name] = e
	}
	s.mu.RUnlock()

	for name, e := range entries {
		e.mu.RLock()
		byName[name] = &GraphSummary{
			Name:     name,
			Nodes:    e.g.NodeCount(),
			Edges:    e.g.EdgeCount(),
			Revision: e.revision,
			Loaded:   true,
		}
		e.mu.RUnlock()
	}

	if s.store != nil {
		stored, err := s.store.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("list stored graphs: %w", err)
		}
		for _, st := range stored {
			savedAt := st.SavedAt
			if sum, ok := byName[st.Name]; ok {
				sum.Persisted = true
				sum.SavedAt = &savedAt
				continue
			}
			byName[st.Name] = &GraphSummary{
				Name:      st.Name,
				Nodes:     st.NodeCount,
				Edges:     st.EdgeCount,
				Persisted: true,
				SavedAt:   &savedAt,
			}
		}
	}

	out := make([]GraphSummary, 0, len(byName))
	for _, sum := range byName {
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b GraphSummary) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

// AddNode creates a node in the named graph.
//
// Errors:
//
//	graph.ErrInvalidNode - unknown kind
//	graph.ErrDuplicateNode - opts.ID already exists
//	graph.ErrMaxNodesExceeded - graph is full
func (s *Service) AddNode(ctx context.Context, name string, opts graph.NodeOptions) (graph.NodeDocument, error) {
	var doc graph.NodeDocument
	err := s.mutate(ctx, name, "add_node", func(g *graph.Graph) error {
		n, err := g.CreateNode(opts)
		if err != nil {
			return err
		}
		doc = nodeDocument(n)
		return nil
	})
	return doc, err
}

// AddEdge creates an edge in the named graph. An empty ID is generated.
//
// Errors:
//
//	graph.ErrInvalidEdge - unknown kind
//	graph.ErrNodeNotFound - source or target is absent
//	graph.ErrDuplicateEdge - the ID already exists
func (s *Service) AddEdge(ctx context.Context, name string, ed graph.EdgeDocument) (graph.EdgeDocument, error) {
	var doc graph.EdgeDocument
	err := s.mutate(ctx, name, "add_edge", func(g *graph.Graph) error {
		if ed.ID == "" {
			e, err := g.CreateEdge(ed.Source, ed.Target, ed.Type, ed.Metadata.Clone())
			if err != nil {
				return err
			}
			doc = edgeDocument(e)
			return nil
		}
		e := &graph.Edge{
			ID:       ed.ID,
			Kind:     ed.Type,
			SourceID: ed.Source,
			TargetID: ed.Target,
			Metadata: ed.Metadata.Clone(),
		}
		if err := g.AddEdge(e); err != nil {
			return err
		}
		doc = edgeDocument(e)
		return nil
	})
	return doc, err
}

// RemoveNode removes a node and every edge incident to it.
func (s *Service) RemoveNode(ctx context.Context, name, id string) error {
	return s.mutate(ctx, name, "remove_node", func(g *graph.Graph) error {
		if !g.RemoveNode(id) {
			return fmt.Errorf("%w: %s", graph.ErrNodeNotFound, id)
		}
		return nil
	})
}

// RemoveEdge removes one edge.
func (s *Service) RemoveEdge(ctx context.Context, name, id string) error {
	return s.mutate(ctx, name, "remove_edge", func(g *graph.Graph) error {
		if !g.RemoveEdge(id) {
			return fmt.Errorf("%w: %s", ErrEdgeNotFound, id)
		}
		return nil
	})
}

// cached returns the cached value under key or computes and stores it.
// Cache failures are logged and never fail the analysis.
func cached[T any](ctx context.Context, s *Service, analysis, key string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}

	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("cache get failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if hit {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			recordCacheLookup(ctx, analysis, true)
			return v, nil
		}
		s.logger.Warn("discarding undecodable cache entry", slog.String("key", key))
	}
	recordCacheLookup(ctx, analysis, false)

	v, err := compute()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			s.logger.Warn("cache set failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return v, nil
}

func kindsParam(kinds []graph.EdgeKind) string {
	if len(kinds) == 0 {
		return "*"
	}
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	slices.Sort(parts)
	return strings.Join(parts, ",")
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.AnalysisTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.AnalysisTimeout)
}

// Slice returns the subgraph reachable from start in direction dir.
//
// Errors:
//
//	graph.ErrNodeNotFound - start is absent
func (s *Service) Slice(ctx context.Context, name, start string, dir graph.Direction, kinds []graph.EdgeKind) (doc *graph.Document, err error) {
	ctx, span := startAnalysisSpan(ctx, "Slice", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "slice", begin, err) }(time.Now())

	err = s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		key := cache.Key(name, revision, "slice", start, dir.String(), kindsParam(kinds))
		doc, err = cached(ctx, s, "slice", key, func() (*graph.Document, error) {
			sub, err := g.ComputeSlice(start, dir, graph.WithSliceEdgeKinds(kinds...))
			if err != nil {
				return nil, err
			}
			return sub.ToJSON(), nil
		})
		return err
	})
	return doc, err
}

// Paths enumerates simple paths from one node to another.
//
// Description:
//
//	maxDepth <= 0 uses DefaultMaxDepth. maxPaths <= 0, or above MaxPaths,
//	uses MaxPaths. Enumeration is bounded by AnalysisTimeout.
//
// Errors:
//
//	graph.ErrNodeNotFound - from or to is absent
//	context.DeadlineExceeded - enumeration ran past AnalysisTimeout
func (s *Service) Paths(ctx context.Context, name, from, to string, maxDepth, maxPaths int) (paths [][]string, err error) {
	ctx, span := startAnalysisSpan(ctx, "Paths", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "paths", begin, err) }(time.Now())

	if maxDepth <= 0 {
		maxDepth = s.config.DefaultMaxDepth
	}
	if limit := s.config.MaxPaths; limit > 0 && (maxPaths <= 0 || maxPaths > limit) {
		maxPaths = limit
	}

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.read(ctx, name, func(g *graph.Graph, _ uint64) error {
		paths, err = g.FindPaths(runCtx, from, to, graph.WithMaxDepth(maxDepth), graph.WithMaxPaths(maxPaths))
		return err
	})
	return paths, err
}

// Components returns the strongly connected components of the named
// graph. With cyclicOnly, singletons without a self-loop are omitted.
func (s *Service) Components(ctx context.Context, name string, cyclicOnly bool) (comps [][]string, err error) {
	ctx, span := startAnalysisSpan(ctx, "Components", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "components", begin, err) }(time.Now())

	err = s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		key := cache.Key(name, revision, "components", fmt.Sprint(cyclicOnly))
		comps, err = cached(ctx, s, "components", key, func() ([][]string, error) {
			if cyclicOnly {
				return g.CyclicComponents(), nil
			}
			return g.FindStronglyConnectedComponents(), nil
		})
		return err
	})
	return comps, err
}

// Cycles returns the cycles of the named graph. With unique, rotations of
// one cycle are reported once.
func (s *Service) Cycles(ctx context.Context, name string, unique bool) (cycles [][]string, err error) {
	ctx, span := startAnalysisSpan(ctx, "Cycles", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "cycles", begin, err) }(time.Now())

	runCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	err = s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		key := cache.Key(name, revision, "cycles", fmt.Sprint(unique))
		cycles, err = cached(ctx, s, "cycles", key, func() ([][]string, error) {
			found, err := g.FindCycles(runCtx)
			if err != nil {
				return nil, err
			}
			if unique {
				found = graph.UniqueCycles(found)
			}
			return found, nil
		})
		return err
	})
	return cycles, err
}

// Closure returns the transitive closure of the named graph as a
// document.
//
// Errors:
//
//	ErrGraphTooLarge - the graph has more than MaxClosureNodes nodes
func (s *Service) Closure(ctx context.Context, name string, kinds []graph.EdgeKind) (doc *graph.Document, err error) {
	ctx, span := startAnalysisSpan(ctx, "Closure", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "closure", begin, err) }(time.Now())

	err = s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		if limit := s.config.MaxClosureNodes; limit > 0 && g.NodeCount() > limit {
			return fmt.Errorf("%w: closure of %d nodes, limit is %d", ErrGraphTooLarge, g.NodeCount(), limit)
		}
		key := cache.Key(name, revision, "closure", kindsParam(kinds))
		doc, err = cached(ctx, s, "closure", key, func() (*graph.Document, error) {
			return g.ComputeTransitiveClosure(graph.WithClosureEdgeKinds(kinds...)).ToJSON(), nil
		})
		return err
	})
	return doc, err
}

// DOT renders the named graph in Graphviz DOT format with the default
// labels and colors.
func (s *Service) DOT(ctx context.Context, name string) (dot string, err error) {
	ctx, span := startAnalysisSpan(ctx, "DOT", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "dot", begin, err) }(time.Now())

	err = s.read(ctx, name, func(g *graph.Graph, revision uint64) error {
		dot, err = cached(ctx, s, "dot", cache.Key(name, revision, "dot"), func() (string, error) {
			return g.ToDOT(), nil
		})
		return err
	})
	return dot, err
}

// Stats returns structural statistics of the named graph.
func (s *Service) Stats(ctx context.Context, name string) (stats graph.GraphStats, err error) {
	err = s.read(ctx, name, func(g *graph.Graph, _ uint64) error {
		stats = g.Stats()
		return nil
	})
	return stats, err
}

// Persist saves the named graph to the store.
//
// Errors:
//
//	ErrNoStore - the service has no store
func (s *Service) Persist(ctx context.Context, name string) error {
	if s.store == nil {
		return ErrNoStore
	}
	return s.read(ctx, name, func(g *graph.Graph, _ uint64) error {
		if err := s.store.Save(ctx, name, g); err != nil {
			return fmt.Errorf("persist graph %s: %w", name, err)
		}
		return nil
	})
}

// ExportToNeo4j copies the named graph into the configured graph database.
//
// Description:
//
//	The graph is cloned under its read lock and exported without holding
//	the lock, so mutations are not blocked by a slow export.
//
// Errors:
//
//	ErrNoExporter - the service has no exporter
func (s *Service) ExportToNeo4j(ctx context.Context, name string) (result *neo4jstore.ExportResult, err error) {
	if s.exporter == nil {
		return nil, ErrNoExporter
	}
	ctx, span := startAnalysisSpan(ctx, "ExportToNeo4j", name)
	defer func(begin time.Time) { finishAnalysis(ctx, span, "neo4j_export", begin, err) }(time.Now())

	var snapshot *graph.Graph
	if err = s.read(ctx, name, func(g *graph.Graph, _ uint64) error {
		snapshot = g.Clone()
		return nil
	}); err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, name, snapshot)
}

func nodeDocument(n *graph.Node) graph.NodeDocument {
	return graph.NodeDocument{
		ID:       n.ID,
		Type:     n.Kind,
		Name:     n.Name,
		File:     n.File,
		Location: n.Location,
		Code:     n.Code,
		Metadata: n.Metadata.Clone(),
	}
}

func edgeDocument(e *graph.Edge) graph.EdgeDocument {
	return graph.EdgeDocument{
		ID:       e.ID,
		Source:   e.SourceID,
		Target:   e.TargetID,
		Type:     e.Kind,
		Metadata: e.Metadata.Clone(),
	}
}
