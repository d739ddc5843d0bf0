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

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

// Handlers contains the HTTP handlers for the codegraph API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates handlers for the given service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one if
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}

func handlerLogger(c *gin.Context, handler string) *slog.Logger {
	return slog.With("request_id", getOrCreateRequestID(c), "handler", handler)
}

// statusClientClosedRequest is the non-standard 499 used when the caller
// went away before the analysis finished.
const statusClientClosedRequest = 499

// errorStatus maps a service error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrInvalidGraphName):
		return http.StatusBadRequest, "INVALID_GRAPH_NAME"
	case errors.Is(err, ErrGraphNotFound):
		return http.StatusNotFound, "GRAPH_NOT_FOUND"
	case errors.Is(err, graph.ErrNodeNotFound):
		return http.StatusNotFound, "NODE_NOT_FOUND"
	case errors.Is(err, ErrEdgeNotFound):
		return http.StatusNotFound, "EDGE_NOT_FOUND"
	case errors.Is(err, ErrGraphExists):
		return http.StatusConflict, "GRAPH_EXISTS"
	case errors.Is(err, graph.ErrDuplicateNode):
		return http.StatusConflict, "DUPLICATE_NODE"
	case errors.Is(err, graph.ErrDuplicateEdge):
		return http.StatusConflict, "DUPLICATE_EDGE"
	case errors.Is(err, graph.ErrInvalidNode):
		return http.StatusBadRequest, "INVALID_NODE"
	case errors.Is(err, graph.ErrInvalidEdge):
		return http.StatusBadRequest, "INVALID_EDGE"
	case errors.Is(err, graph.ErrMalformedDocument):
		return http.StatusBadRequest, "MALFORMED_DOCUMENT"
	case errors.Is(err, graph.ErrDanglingEdge):
		return http.StatusUnprocessableEntity, "DANGLING_EDGE"
	case errors.Is(err, ErrGraphTooLarge), errors.Is(err, graph.ErrMaxNodesExceeded):
		return http.StatusRequestEntityTooLarge, "GRAPH_TOO_LARGE"
	case errors.Is(err, ErrTooManyGraphs):
		return http.StatusInsufficientStorage, "TOO_MANY_GRAPHS"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "ANALYSIS_TIMEOUT"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "REQUEST_CANCELLED"
	case errors.Is(err, ErrNoStore), errors.Is(err, ErrNoExporter):
		return http.StatusNotImplemented, "NOT_CONFIGURED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, "error", err)
	} else {
		logger.Warn(msg, "error", err, "code", code)
	}
	c.JSON(status, ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}

func badRequest(c *gin.Context, logger *slog.Logger, msg, code string, err error) {
	logger.Warn(msg, "error", err)
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

func queryBool(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}

// HandleHealth handles GET /v1/codegraph/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: ServiceVersion,
	})
}

// HandleReady handles GET /v1/codegraph/ready.
func (h *Handlers) HandleReady(c *gin.Context) {
	c.JSON(http.StatusOK, ReadyResponse{
		Ready:      true,
		GraphCount: h.svc.GraphCount(),
	})
}

// HandleListGraphs handles GET /v1/codegraph/graphs.
func (h *Handlers) HandleListGraphs(c *gin.Context) {
	logger := handlerLogger(c, "HandleListGraphs")

	graphs, err := h.svc.ListGraphs(c.Request.Context())
	if err != nil {
		respondError(c, logger, "List graphs failed", err)
		return
	}
	c.JSON(http.StatusOK, ListGraphsResponse{Graphs: graphs})
}

// HandleCreateGraph handles POST /v1/codegraph/graphs.
//
// Response:
//
//	201 Created: GraphSummary
//	400 Bad Request: Missing or invalid name
//	409 Conflict: Graph already exists
func (h *Handlers) HandleCreateGraph(c *gin.Context) {
	logger := handlerLogger(c, "HandleCreateGraph")

	var req CreateGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}

	summary, err := h.svc.CreateGraph(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, logger, "Create graph failed", err)
		return
	}
	logger.Info("Graph created", "graph", req.Name)
	c.JSON(http.StatusCreated, summary)
}

// HandlePutGraph handles PUT /v1/codegraph/graphs/:name.
//
// Description:
//
//	Stores the JSON document in the body under :name, replacing any
//	existing graph. With ?strict=true, dangling edges are rejected
//	instead of dropped.
//
// Response:
//
//	200 OK: GraphSummary
//	400 Bad Request: Malformed document
//	413 Request Entity Too Large: Node limit exceeded
//	422 Unprocessable Entity: Dangling edge in strict mode
func (h *Handlers) HandlePutGraph(c *gin.Context) {
	logger := handlerLogger(c, "HandlePutGraph")
	name := c.Param("name")

	strict, err := queryBool(c, "strict")
	if err != nil {
		badRequest(c, logger, "Invalid strict parameter", "INVALID_REQUEST", err)
		return
	}

	var doc graph.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}

	summary, err := h.svc.ImportDocument(c.Request.Context(), name, &doc, strict)
	if err != nil {
		respondError(c, logger, "Import graph failed", err)
		return
	}
	logger.Info("Graph imported", "graph", name, "nodes", summary.Nodes, "edges", summary.Edges)
	c.JSON(http.StatusOK, summary)
}

// HandleGetGraph handles GET /v1/codegraph/graphs/:name.
func (h *Handlers) HandleGetGraph(c *gin.Context) {
	logger := handlerLogger(c, "HandleGetGraph")

	doc, err := h.svc.ExportDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, logger, "Export graph failed", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// HandleDeleteGraph handles DELETE /v1/codegraph/graphs/:name.
func (h *Handlers) HandleDeleteGraph(c *gin.Context) {
	logger := handlerLogger(c, "HandleDeleteGraph")

	if err := h.svc.DeleteGraph(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, logger, "Delete graph failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleGraphStats handles GET /v1/codegraph/graphs/:name/stats.
func (h *Handlers) HandleGraphStats(c *gin.Context) {
	logger := handlerLogger(c, "HandleGraphStats")

	stats, err := h.svc.Stats(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, logger, "Stats failed", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandlePersist handles POST /v1/codegraph/graphs/:name/persist.
func (h *Handlers) HandlePersist(c *gin.Context) {
	logger := handlerLogger(c, "HandlePersist")
	name := c.Param("name")

	if err := h.svc.Persist(c.Request.Context(), name); err != nil {
		respondError(c, logger, "Persist failed", err)
		return
	}
	c.JSON(http.StatusOK, PersistResponse{Name: name, Persisted: true})
}

// HandleExportNeo4j handles POST /v1/codegraph/graphs/:name/export/neo4j.
func (h *Handlers) HandleExportNeo4j(c *gin.Context) {
	logger := handlerLogger(c, "HandleExportNeo4j")

	result, err := h.svc.ExportToNeo4j(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, logger, "Neo4j export failed", err)
		return
	}
	logger.Info("Graph exported to Neo4j",
		"graph", result.Graph,
		"nodes", result.Nodes,
		"relationships", result.Relationships)
	c.JSON(http.StatusOK, result)
}

// HandleAddNode handles POST /v1/codegraph/graphs/:name/nodes.
//
// Response:
//
//	201 Created: graph.NodeDocument
//	400 Bad Request: Missing type or unknown kind
//	409 Conflict: Duplicate node ID
func (h *Handlers) HandleAddNode(c *gin.Context) {
	logger := handlerLogger(c, "HandleAddNode")

	var req AddNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}

	node, err := h.svc.AddNode(c.Request.Context(), c.Param("name"), graph.NodeOptions{
		ID:       req.ID,
		Kind:     graph.NodeKind(req.Type),
		Name:     req.Name,
		File:     req.File,
		Location: req.Location,
		Code:     req.Code,
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, logger, "Add node failed", err)
		return
	}
	c.JSON(http.StatusCreated, node)
}

// HandleRemoveNode handles DELETE /v1/codegraph/graphs/:name/nodes/:id.
func (h *Handlers) HandleRemoveNode(c *gin.Context) {
	logger := handlerLogger(c, "HandleRemoveNode")

	if err := h.svc.RemoveNode(c.Request.Context(), c.Param("name"), c.Param("id")); err != nil {
		respondError(c, logger, "Remove node failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddEdge handles POST /v1/codegraph/graphs/:name/edges.
//
// Response:
//
//	201 Created: graph.EdgeDocument
//	400 Bad Request: Missing field or unknown kind
//	404 Not Found: Source or target node absent
//	409 Conflict: Duplicate edge ID
func (h *Handlers) HandleAddEdge(c *gin.Context) {
	logger := handlerLogger(c, "HandleAddEdge")

	var req AddEdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}

	edge, err := h.svc.AddEdge(c.Request.Context(), c.Param("name"), graph.EdgeDocument{
		ID:       req.ID,
		Source:   req.Source,
		Target:   req.Target,
		Type:     graph.EdgeKind(req.Type),
		Metadata: req.Metadata,
	})
	if err != nil {
		respondError(c, logger, "Add edge failed", err)
		return
	}
	c.JSON(http.StatusCreated, edge)
}

// HandleRemoveEdge handles DELETE /v1/codegraph/graphs/:name/edges/:id.
func (h *Handlers) HandleRemoveEdge(c *gin.Context) {
	logger := handlerLogger(c, "HandleRemoveEdge")

	if err := h.svc.RemoveEdge(c.Request.Context(), c.Param("name"), c.Param("id")); err != nil {
		respondError(c, logger, "Remove edge failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleSlice handles POST /v1/codegraph/graphs/:name/slice.
//
// Response:
//
//	200 OK: graph.Document holding the slice
//	400 Bad Request: Invalid direction or edge kind
//	404 Not Found: Graph or start node absent
func (h *Handlers) HandleSlice(c *gin.Context) {
	logger := handlerLogger(c, "HandleSlice")

	var req SliceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}
	dir, err := graph.ParseDirection(req.Direction)
	if err != nil {
		badRequest(c, logger, "Invalid direction", "INVALID_DIRECTION", err)
		return
	}
	kinds, err := graph.ParseEdgeKinds(req.EdgeKinds)
	if err != nil {
		respondError(c, logger, "Invalid edge kinds", err)
		return
	}

	doc, err := h.svc.Slice(c.Request.Context(), c.Param("name"), req.Start, dir, kinds)
	if err != nil {
		respondError(c, logger, "Slice failed", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// HandlePaths handles POST /v1/codegraph/graphs/:name/paths.
func (h *Handlers) HandlePaths(c *gin.Context) {
	logger := handlerLogger(c, "HandlePaths")

	var req PathsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, logger, "Invalid request body", "INVALID_REQUEST", err)
		return
	}

	paths, err := h.svc.Paths(c.Request.Context(), c.Param("name"), req.From, req.To, req.MaxDepth, req.MaxPaths)
	if err != nil {
		respondError(c, logger, "Path enumeration failed", err)
		return
	}
	if paths == nil {
		paths = [][]string{}
	}
	c.JSON(http.StatusOK, PathsResponse{Paths: paths, Count: len(paths)})
}

// HandleComponents handles GET /v1/codegraph/graphs/:name/components.
//
// Query Parameters:
//
//	cyclic - "true" to return only components that contain a cycle
func (h *Handlers) HandleComponents(c *gin.Context) {
	logger := handlerLogger(c, "HandleComponents")

	cyclic, err := queryBool(c, "cyclic")
	if err != nil {
		badRequest(c, logger, "Invalid cyclic parameter", "INVALID_REQUEST", err)
		return
	}

	comps, err := h.svc.Components(c.Request.Context(), c.Param("name"), cyclic)
	if err != nil {
		respondError(c, logger, "Components failed", err)
		return
	}
	if comps == nil {
		comps = [][]string{}
	}
	c.JSON(http.StatusOK, ComponentsResponse{Components: comps, Count: len(comps)})
}

// HandleCycles handles GET /v1/codegraph/graphs/:name/cycles.
//
// Query Parameters:
//
//	unique - "true" to report each cycle once regardless of rotation
func (h *Handlers) HandleCycles(c *gin.Context) {
	logger := handlerLogger(c, "HandleCycles")

	unique, err := queryBool(c, "unique")
	if err != nil {
		badRequest(c, logger, "Invalid unique parameter", "INVALID_REQUEST", err)
		return
	}

	cycles, err := h.svc.Cycles(c.Request.Context(), c.Param("name"), unique)
	if err != nil {
		respondError(c, logger, "Cycle detection failed", err)
		return
	}
	if cycles == nil {
		cycles = [][]string{}
	}
	c.JSON(http.StatusOK, CyclesResponse{Cycles: cycles, Count: len(cycles)})
}

// HandleClosure handles GET /v1/codegraph/graphs/:name/closure.
//
// Query Parameters:
//
//	edge_kinds - Comma-separated edge kinds forming the relation. Default: all.
func (h *Handlers) HandleClosure(c *gin.Context) {
	logger := handlerLogger(c, "HandleClosure")

	var kinds []graph.EdgeKind
	if raw := c.Query("edge_kinds"); raw != "" {
		parsed, err := graph.ParseEdgeKinds(strings.Split(raw, ","))
		if err != nil {
			respondError(c, logger, "Invalid edge kinds", err)
			return
		}
		kinds = parsed
	}

	doc, err := h.svc.Closure(c.Request.Context(), c.Param("name"), kinds)
	if err != nil {
		respondError(c, logger, "Closure failed", err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// HandleDOT handles GET /v1/codegraph/graphs/:name/dot.
func (h *Handlers) HandleDOT(c *gin.Context) {
	logger := handlerLogger(c, "HandleDOT")

	dot, err := h.svc.DOT(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, logger, "DOT export failed", err)
		return
	}
	c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", []byte(dot))
}
