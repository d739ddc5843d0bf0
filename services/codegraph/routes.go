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
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit rejects requests with 429 once limiter has no tokens left.
// A nil limiter allows everything.
func RateLimit(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "analysis rate limit exceeded",
				Code:  "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

// RegisterRoutes registers all codegraph routes with the router.
//
// Description:
//
//	Registers all /v1/codegraph/* endpoints with the given Gin router
//	group. analysisMiddleware is applied to the analysis endpoints only;
//	pass RateLimit to throttle them.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//	analysisMiddleware - Optional middleware for analysis endpoints
//
// Graph Endpoints:
//
//	GET    /v1/codegraph/graphs - List graphs
//	POST   /v1/codegraph/graphs - Create an empty graph
//	PUT    /v1/codegraph/graphs/:name - Import a JSON document
//	GET    /v1/codegraph/graphs/:name - Export the JSON document
//	DELETE /v1/codegraph/graphs/:name - Delete a graph
//	GET    /v1/codegraph/graphs/:name/stats - Graph statistics
//	POST   /v1/codegraph/graphs/:name/persist - Save to the store
//	POST   /v1/codegraph/graphs/:name/export/neo4j - Copy into Neo4j
//
// Mutation Endpoints:
//
//	POST   /v1/codegraph/graphs/:name/nodes - Add a node
//	DELETE /v1/codegraph/graphs/:name/nodes/:id - Remove a node and its edges
//	POST   /v1/codegraph/graphs/:name/edges - Add an edge
//	DELETE /v1/codegraph/graphs/:name/edges/:id - Remove an edge
//
// Analysis Endpoints:
//
//	POST /v1/codegraph/graphs/:name/slice - Forward/backward/both slice
//	POST /v1/codegraph/graphs/:name/paths - Simple paths between two nodes
//	GET  /v1/codegraph/graphs/:name/components - Strongly connected components
//	GET  /v1/codegraph/graphs/:name/cycles - Cycles
//	GET  /v1/codegraph/graphs/:name/closure - Transitive closure
//	GET  /v1/codegraph/graphs/:name/dot - Graphviz DOT rendering
//
// Health Endpoints:
//
//	GET  /v1/codegraph/health - Health check
//	GET  /v1/codegraph/ready - Readiness check
//
// Example:
//
//	service := codegraph.NewService(codegraph.DefaultServiceConfig())
//	handlers := codegraph.NewHandlers(service)
//
//	v1 := router.Group("/v1")
//	codegraph.RegisterRoutes(v1, handlers, codegraph.RateLimit(rate.NewLimiter(20, 40)))
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers, analysisMiddleware ...gin.HandlerFunc) {
	cg := rg.Group("/codegraph")
	{
		// Health checks
		cg.GET("/health", handlers.HandleHealth)
		cg.GET("/ready", handlers.HandleReady)

		// Graph lifecycle
		cg.GET("/graphs", handlers.HandleListGraphs)
		cg.POST("/graphs", handlers.HandleCreateGraph)
		cg.PUT("/graphs/:name", handlers.HandlePutGraph)
		cg.GET("/graphs/:name", handlers.HandleGetGraph)
		cg.DELETE("/graphs/:name", handlers.HandleDeleteGraph)
		cg.GET("/graphs/:name/stats", handlers.HandleGraphStats)
		cg.POST("/graphs/:name/persist", handlers.HandlePersist)
		cg.POST("/graphs/:name/export/neo4j", handlers.HandleExportNeo4j)

		// Mutations
		cg.POST("/graphs/:name/nodes", handlers.HandleAddNode)
		cg.DELETE("/graphs/:name/nodes/:id", handlers.HandleRemoveNode)
		cg.POST("/graphs/:name/edges", handlers.HandleAddEdge)
		cg.DELETE("/graphs/:name/edges/:id", handlers.HandleRemoveEdge)

		// =================================================================
		// ANALYSIS ENDPOINTS
		// =================================================================

		analysis := cg.Group("/graphs/:name", analysisMiddleware...)
		{
			analysis.POST("/slice", handlers.HandleSlice)
			analysis.POST("/paths", handlers.HandlePaths)
			analysis.GET("/components", handlers.HandleComponents)
			analysis.GET("/cycles", handlers.HandleCycles)
			analysis.GET("/closure", handlers.HandleClosure)
			analysis.GET("/dot", handlers.HandleDOT)
		}
	}
}
