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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

// Package-level tracer and meter for service operations.
var (
	tracer = otel.Tracer("codegraph.service")
	meter  = otel.Meter("codegraph.service")
)

// Metrics for service operations.
var (
	analysisTotal   metric.Int64Counter
	analysisErrors  metric.Int64Counter
	analysisLatency metric.Float64Histogram
	cacheLookups    metric.Int64Counter
	mutationsTotal  metric.Int64Counter
	storeLoads      metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		analysisTotal, err = meter.Int64Counter(
			"codegraph_analysis_total",
			metric.WithDescription("Total number of graph analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisErrors, err = meter.Int64Counter(
			"codegraph_analysis_errors_total",
			metric.WithDescription("Total number of failed graph analyses"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		analysisLatency, err = meter.Float64Histogram(
			"codegraph_analysis_duration_seconds",
			metric.WithDescription("Duration of graph analyses"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheLookups, err = meter.Int64Counter(
			"codegraph_cache_lookups_total",
			metric.WithDescription("Analysis cache lookups by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mutationsTotal, err = meter.Int64Counter(
			"codegraph_mutations_total",
			metric.WithDescription("Total number of graph mutations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		storeLoads, err = meter.Int64Counter(
			"codegraph_graph_loads_total",
			metric.WithDescription("Graphs loaded from the persistent store"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startAnalysisSpan creates a span for one analysis of one graph.
func startAnalysisSpan(ctx context.Context, analysis, graphName string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Service."+analysis,
		trace.WithAttributes(
			attribute.String("codegraph.analysis", analysis),
			attribute.String("codegraph.graph", graphName),
		),
	)
}

// finishAnalysis records metrics and closes the span opened by
// startAnalysisSpan.
func finishAnalysis(ctx context.Context, span trace.Span, analysis string, start time.Time, err error) {
	defer span.End()

	if err != nil {
		telemetry.RecordError(span, err)
	} else {
		telemetry.SetSpanOK(span)
	}

	if initMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("analysis", analysis))
	analysisTotal.Add(ctx, 1, attrs)
	analysisLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		analysisErrors.Add(ctx, 1, attrs)
	}
}

// recordCacheLookup records whether an analysis was served from cache.
func recordCacheLookup(ctx context.Context, analysis string, hit bool) {
	if initMetrics() != nil {
		return
	}
	cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("analysis", analysis),
		attribute.Bool("hit", hit),
	))
}

// recordMutation records a graph mutation.
func recordMutation(ctx context.Context, op string) {
	if initMetrics() != nil {
		return
	}
	mutationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
}

// recordStoreLoad records a graph loaded from the store.
func recordStoreLoad(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	storeLoads.Add(ctx, 1)
}
