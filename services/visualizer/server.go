// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package visualizer assembles the HTTP service: session storage, the model
// client, metrics, tracing middleware and routes.
package visualizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/AleutianAI/compilerlens/pkg/extensions"
	"github.com/AleutianAI/compilerlens/services/artifacts"
	"github.com/AleutianAI/compilerlens/services/llm"
	"github.com/AleutianAI/compilerlens/services/outlier"
	"github.com/AleutianAI/compilerlens/services/sessions"
	kv "github.com/AleutianAI/compilerlens/services/storage/badger"
	"github.com/AleutianAI/compilerlens/services/visualizer/config"
	"github.com/AleutianAI/compilerlens/services/visualizer/handlers"
	"github.com/AleutianAI/compilerlens/services/visualizer/observability"
	"github.com/AleutianAI/compilerlens/services/visualizer/routes"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const shutdownTimeout = 10 * time.Second

// Server is a configured, not yet listening, visualizer service.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *kv.DB
	registry *prometheus.Registry
	engine   *gin.Engine
}

// New builds the service described by cfg.
//
// # Description
//
// Opens the session store, reloads any stored outlier model, creates the
// model client when an API key is configured, registers metrics in a
// private registry and wires routes.
// Without an API key the model-only artifact routes answer 503, parse trees
// come from the local grammars and everything else works.
//
// # Outputs
//
//   - *Server: Call Run to serve and Close to release the store.
//   - error: Store open failure.
func New(cfg config.Config, logger *slog.Logger, version string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	storeCfg := kv.DefaultConfig()
	storeCfg.Path = cfg.Storage.Path
	storeCfg.InMemory = cfg.Storage.InMemory
	storeCfg.GCInterval = cfg.Storage.GCInterval
	storeCfg.Logger = logger
	db, err := kv.Open(storeCfg)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	gen, configured := newGenerator(cfg.LLM, metrics, logger)

	h := handlers.NewHandlers(logger, version).
		WithSessions(sessions.NewStore(db, logger), db).
		WithGenerator(gen, configured).
		WithOutlier(outlier.NewDetector(context.Background(), db, logger)).
		WithMetrics(metrics)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(observability.ServiceName))

	opts := routes.Options{Gatherer: registry}
	if cfg.Auth.Mode == config.AuthModeHeader {
		opts.AuthProvider = &extensions.HeaderAuthProvider{}
		opts.AuthHeader = cfg.Auth.Header
	}
	routes.SetupRoutes(engine, h, opts)

	logger.Info("visualizer configured",
		"storage", storageLabel(cfg.Storage),
		"llm_configured", configured,
		"auth_mode", cfg.Auth.Mode)

	return &Server{cfg: cfg, logger: logger, db: db, registry: registry, engine: engine}, nil
}

// newGenerator returns a generator backed by the fallback client. The
// fallback client has no inner client when no key is set, so every model
// call fails with llm.ErrNotConfigured.
func newGenerator(cfg config.LLMConfig, metrics *observability.Metrics, logger *slog.Logger) (*artifacts.Generator, bool) {
	var inner llm.LLMClient
	if cfg.Enabled() {
		client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})
		if err != nil {
			logger.Warn("model client disabled", "error", err)
		} else {
			inner = client
		}
	}

	fallback := llm.NewFallbackClient(inner, llm.FallbackConfig{
		DefaultModel:      cfg.Model,
		ExtraModels:       cfg.Models,
		RetryAttempts:     cfg.RetryAttempts,
		RetryDelay:        cfg.RetryDelay,
		AttemptTimeout:    cfg.Timeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		OnAttempt:         metrics.RecordLLMAttempt,
		Logger:            logger,
	})
	return artifacts.NewGenerator(fallback, logger), fallback.Configured()
}

func storageLabel(cfg config.StorageConfig) string {
	if cfg.InMemory {
		return "memory"
	}
	return cfg.Path
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Registry is the private metrics registry.
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting the visualizer server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down the visualizer server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// Close releases the session store.
func (s *Server) Close() error {
	return s.db.Close()
}
