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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/codegraph/services/codegraph/graph"
)

func init() {
	// Set Gin to test mode to reduce noise
	gin.SetMode(gin.TestMode)
}

func setupTestRouter(svc *Service, analysisMiddleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	handlers := NewHandlers(svc)
	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers, analysisMiddleware...)
	return router
}

func doRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response: %v (body %s)", err, w.Body.String())
	}
	return v
}

func putCycleGraph(t *testing.T, router *gin.Engine, name string) {
	t.Helper()
	w := doRequest(t, router, "PUT", "/v1/codegraph/graphs/"+name, cycleDocument())
	if w.Code != http.StatusOK {
		t.Fatalf("PUT graph: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))

	w := doRequest(t, router, "GET", "/v1/codegraph/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode[HealthResponse](t, w)
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
	if resp.Version != ServiceVersion {
		t.Errorf("expected version %q, got %q", ServiceVersion, resp.Version)
	}
}

func TestHandlers_HandleReady(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))
	putCycleGraph(t, router, "cycle")

	w := doRequest(t, router, "GET", "/v1/codegraph/ready", nil)
	resp := decode[ReadyResponse](t, w)
	if !resp.Ready {
		t.Error("expected Ready=true")
	}
	if resp.GraphCount != 1 {
		t.Errorf("expected 1 graph, got %d", resp.GraphCount)
	}
}

func TestHandlers_RequestID(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))

	req, _ := http.NewRequest("GET", "/v1/codegraph/graphs", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}

	w = doRequest(t, router, "GET", "/v1/codegraph/graphs", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected generated request id")
	}
}

func TestHandlers_GraphLifecycle(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))

	w := doRequest(t, router, "POST", "/v1/codegraph/graphs", CreateGraphRequest{Name: "demo"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}

	w = doRequest(t, router, "POST", "/v1/codegraph/graphs", CreateGraphRequest{Name: "demo"})
	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}

	w = doRequest(t, router, "POST", "/v1/codegraph/graphs/demo/nodes", AddNodeRequest{ID: "a", Type: "function", Name: "a"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add node: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	w = doRequest(t, router, "POST", "/v1/codegraph/graphs/demo/nodes", AddNodeRequest{ID: "b", Type: "class"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add node: expected status %d, got %d", http.StatusCreated, w.Code)
	}

	w = doRequest(t, router, "POST", "/v1/codegraph/graphs/demo/edges", AddEdgeRequest{ID: "e1", Source: "a", Target: "b", Type: "uses"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add edge: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	edge := decode[graph.EdgeDocument](t, w)
	if edge.ID != "e1" || edge.Type != graph.EdgeKindUses {
		t.Errorf("unexpected edge %+v", edge)
	}

	w = doRequest(t, router, "GET", "/v1/codegraph/graphs/demo/stats", nil)
	stats := decode[graph.GraphStats](t, w)
	if stats.NodeCount != 2 || stats.EdgeCount != 1 {
		t.Errorf("expected 2 nodes 1 edge, got %d/%d", stats.NodeCount, stats.EdgeCount)
	}

	w = doRequest(t, router, "DELETE", "/v1/codegraph/graphs/demo/edges/e1", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("remove edge: expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	w = doRequest(t, router, "DELETE", "/v1/codegraph/graphs/demo/nodes/a", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("remove node: expected status %d, got %d", http.StatusNoContent, w.Code)
	}

	w = doRequest(t, router, "GET", "/v1/codegraph/graphs", nil)
	list := decode[ListGraphsResponse](t, w)
	if len(list.Graphs) != 1 || list.Graphs[0].Nodes != 1 {
		t.Errorf("unexpected graph list %+v", list.Graphs)
	}

	w = doRequest(t, router, "DELETE", "/v1/codegraph/graphs/demo", nil)
	if w.Code != http.StatusNoContent {
		t.Errorf("delete graph: expected status %d, got %d", http.StatusNoContent, w.Code)
	}
	w = doRequest(t, router, "GET", "/v1/codegraph/graphs/demo", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestHandlers_Errors(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))
	putCycleGraph(t, router, "cycle")

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "empty create body",
			method:     "POST",
			path:       "/v1/codegraph/graphs",
			body:       "{}",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name:       "invalid graph name",
			method:     "POST",
			path:       "/v1/codegraph/graphs",
			body:       CreateGraphRequest{Name: "bad name"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_GRAPH_NAME",
		},
		{
			name:       "unknown graph",
			method:     "GET",
			path:       "/v1/codegraph/graphs/missing/components",
			wantStatus: http.StatusNotFound,
			wantCode:   "GRAPH_NOT_FOUND",
		},
		{
			name:       "unknown node kind",
			method:     "POST",
			path:       "/v1/codegraph/graphs/cycle/nodes",
			body:       AddNodeRequest{Type: "module"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_NODE",
		},
		{
			name:       "duplicate node",
			method:     "POST",
			path:       "/v1/codegraph/graphs/cycle/nodes",
			body:       AddNodeRequest{ID: "A", Type: "function"},
			wantStatus: http.StatusConflict,
			wantCode:   "DUPLICATE_NODE",
		},
		{
			name:       "edge to missing node",
			method:     "POST",
			path:       "/v1/codegraph/graphs/cycle/edges",
			body:       AddEdgeRequest{Source: "A", Target: "Z", Type: "calls"},
			wantStatus: http.StatusNotFound,
			wantCode:   "NODE_NOT_FOUND",
		},
		{
			name:       "remove missing edge",
			method:     "DELETE",
			path:       "/v1/codegraph/graphs/cycle/edges/nope",
			wantStatus: http.StatusNotFound,
			wantCode:   "EDGE_NOT_FOUND",
		},
		{
			name:       "malformed document",
			method:     "PUT",
			path:       "/v1/codegraph/graphs/bad",
			body:       `{"nodes":[{"id":"A"}]}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "MALFORMED_DOCUMENT",
		},
		{
			name:   "strict dangling edge",
			method: "PUT",
			path:   "/v1/codegraph/graphs/bad?strict=true",
			body: `{"nodes":[{"id":"A","type":"function"}],
				"edges":[{"id":"e","source":"A","target":"Z","type":"calls"}]}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "DANGLING_EDGE",
		},
		{
			name:       "invalid direction",
			method:     "POST",
			path:       "/v1/codegraph/graphs/cycle/slice",
			body:       SliceRequest{Start: "A", Direction: "sideways"},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_DIRECTION",
		},
		{
			name:       "invalid closure kind",
			method:     "GET",
			path:       "/v1/codegraph/graphs/cycle/closure?edge_kinds=calls,owns",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_EDGE",
		},
		{
			name:       "persist without store",
			method:     "POST",
			path:       "/v1/codegraph/graphs/cycle/persist",
			wantStatus: http.StatusNotImplemented,
			wantCode:   "NOT_CONFIGURED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			resp := decode[ErrorResponse](t, w)
			if resp.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Code)
			}
		})
	}
}

func TestErrorStatus_ContextErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("find paths: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantCode:   "ANALYSIS_TIMEOUT",
		},
		{
			name:       "caller cancelled",
			err:        fmt.Errorf("find cycles: %w", context.Canceled),
			wantStatus: 499,
			wantCode:   "REQUEST_CANCELLED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			if status != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, status)
			}
			if code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, code)
			}
		})
	}
}

func TestHandlers_Analyses(t *testing.T) {
	router := setupTestRouter(NewService(DefaultServiceConfig()))
	putCycleGraph(t, router, "cycle")

	t.Run("slice", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/v1/codegraph/graphs/cycle/slice", SliceRequest{Start: "B", Direction: "backward"})
		if w.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
		}
		doc := decode[graph.Document](t, w)
		if len(doc.Nodes) != 3 {
			t.Errorf("expected 3 nodes, got %d", len(doc.Nodes))
		}
	})

	t.Run("paths", func(t *testing.T) {
		w := doRequest(t, router, "POST", "/v1/codegraph/graphs/cycle/paths", PathsRequest{From: "A", To: "C"})
		resp := decode[PathsResponse](t, w)
		if resp.Count != 1 || strings.Join(resp.Paths[0], ",") != "A,B,C" {
			t.Errorf("unexpected paths %+v", resp)
		}
	})

	t.Run("components", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/components?cyclic=true", nil)
		resp := decode[ComponentsResponse](t, w)
		if resp.Count != 1 || len(resp.Components[0]) != 3 {
			t.Errorf("unexpected components %+v", resp)
		}
	})

	t.Run("cycles", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/cycles?unique=true", nil)
		resp := decode[CyclesResponse](t, w)
		if resp.Count != 1 {
			t.Errorf("expected 1 unique cycle, got %d", resp.Count)
		}

		w = doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/cycles?unique=maybe", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("closure", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/closure", nil)
		doc := decode[graph.Document](t, w)
		if len(doc.Edges) != 6 {
			t.Errorf("expected 6 edges, got %d", len(doc.Edges))
		}
	})

	t.Run("dot", func(t *testing.T) {
		w := doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/dot", nil)
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/vnd.graphviz") {
			t.Errorf("unexpected content type %q", ct)
		}
		if !strings.HasPrefix(w.Body.String(), "digraph CodeGraph {") {
			t.Errorf("unexpected body %q", w.Body.String())
		}
	})
}

func TestHandlers_RateLimit(t *testing.T) {
	limiter := rate.NewLimiter(rate.Every(1e18), 1)
	router := setupTestRouter(NewService(DefaultServiceConfig()), RateLimit(limiter))
	putCycleGraph(t, router, "cycle")

	w := doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/dot", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/dot", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
	resp := decode[ErrorResponse](t, w)
	if resp.Code != "RATE_LIMITED" {
		t.Errorf("expected code RATE_LIMITED, got %q", resp.Code)
	}

	w = doRequest(t, router, "GET", "/v1/codegraph/graphs/cycle/stats", nil)
	if w.Code != http.StatusOK {
		t.Errorf("non-analysis routes are not limited, got %d", w.Code)
	}
}
