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
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/codegraph/cmd/codegraph/config"
	"github.com/AleutianAI/codegraph/services/codegraph"
	"github.com/AleutianAI/codegraph/services/codegraph/cache"
	cgbadger "github.com/AleutianAI/codegraph/services/codegraph/storage/badger"
	neo4jstore "github.com/AleutianAI/codegraph/services/codegraph/storage/neo4j"
	"github.com/AleutianAI/codegraph/services/codegraph/telemetry"
)

func newServeCmd() *cobra.Command {
	var configPath, addr string
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the codegraph HTTP API",
		Long: `Run the HTTP API under /v1/codegraph.

Configuration is read from --config, then $CODEGRAPH_CONFIG, then
./codegraph.yaml. A missing default file falls back to built-in defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, explicit := config.ResolvePath(configPath)
			cfg, err := config.Load(path, explicit)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServer(commandContext(cmd), cfg, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"Path to the YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "",
		"Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&debug, "debug", false,
		"Enable gin debug mode and request logging")
	return cmd
}

// components holds what runServer opened and must close.
type components struct {
	service *codegraph.Service
	closers []func() error
}

func (c *components) close(logger *slog.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logger.Warn("Shutdown step failed", slog.String("error", err.Error()))
		}
	}
}

// buildService opens the configured store, cache and exporter and wires
// them into a Service.
func buildService(ctx context.Context, cfg config.Config, logger *slog.Logger) (*components, error) {
	comp := &components{}
	opts := []codegraph.ServiceOption{codegraph.WithLogger(logger)}

	if cfg.Storage.Enabled {
		bcfg := cfg.Storage.Config
		bcfg.Logger = logger
		db, err := cgbadger.OpenDB(bcfg)
		if err != nil {
			comp.close(logger)
			return nil, fmt.Errorf("open graph store: %w", err)
		}
		comp.closers = append(comp.closers, db.Close)
		opts = append(opts, codegraph.WithStore(cgbadger.NewGraphStore(db, logger)))
		logger.Info("Graph store opened", slog.String("path", db.Path()), slog.Bool("in_memory", db.InMemory()))
	}

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		comp.close(logger)
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if c != nil {
		comp.closers = append(comp.closers, c.Close)
		opts = append(opts, codegraph.WithCache(c))
		logger.Info("Analysis cache enabled", slog.String("backend", cfg.Cache.Backend))
	}

	if cfg.Neo4j.Enabled() {
		exp, err := neo4jstore.NewExporter(ctx, cfg.Neo4j, logger)
		if err != nil {
			comp.close(logger)
			return nil, fmt.Errorf("connect neo4j: %w", err)
		}
		comp.closers = append(comp.closers, func() error { return exp.Close(context.Background()) })
		opts = append(opts, codegraph.WithExporter(exp))
		logger.Info("Neo4j export enabled", slog.String("uri", cfg.Neo4j.URI))
	}

	comp.service = codegraph.NewService(cfg.Analysis, opts...)
	return comp, nil
}

// newRouter builds the gin engine serving svc.
func newRouter(svc *codegraph.Service, cfg config.Config, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))

	if cfg.Telemetry.MetricExporter == "prometheus" {
		router.GET("/metrics", gin.WrapH(telemetry.MetricsHandler()))
	}

	var analysisMiddleware []gin.HandlerFunc
	if cfg.Server.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
		analysisMiddleware = append(analysisMiddleware, codegraph.RateLimit(limiter))
	}

	v1 := router.Group("/v1")
	codegraph.RegisterRoutes(v1, codegraph.NewHandlers(svc), analysisMiddleware...)
	return router
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg config.Config, debug bool) error {
	logger := telemetry.NewLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	comp, err := buildService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comp.close(logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(comp.service, cfg, debug),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting codegraph server",
			slog.String("address", cfg.Server.Addr),
			slog.String("version", codegraph.ServiceVersion))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down codegraph server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
