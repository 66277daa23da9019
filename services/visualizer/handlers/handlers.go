// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers of the visualizer service.
//
// # Routes
//
//	POST   /api/compilerAnomalyAnalysis   run the detection passes
//	GET    /api/compilerAnomalyAnalysis   describe the endpoint
//	POST   /api/artifacts/{artifact}      generate one artifact with the model
//	POST   /api/artifacts/analyze         generate artifacts, then analyse
//	*      /api/save, /api/saveInterpreter, /api/get*, /api/delete*   sessions
//	POST   /api/anomaly/train             fit the series outlier model
//	POST   /api/anomaly/predict{,-batch}  score series against it
//	GET    /api/anomaly/info              describe the model
//	GET    /api/me                        caller e-mail
//	GET    /health                        liveness and dependency state
//
// The analysis and session routes keep their historical wire shapes; newer
// routes answer errors with datatypes.ErrorResponse.
package handlers

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/compilerlens/services/artifacts"
	"github.com/AleutianAI/compilerlens/services/outlier"
	"github.com/AleutianAI/compilerlens/services/sessions"
	"github.com/AleutianAI/compilerlens/services/visualizer/middleware"
	"github.com/AleutianAI/compilerlens/services/visualizer/observability"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionStore is the persistence the session routes need.
type SessionStore interface {
	Create(ctx context.Context, kind sessions.Kind, sess sessions.Session) error
	Get(ctx context.Context, kind sessions.Kind, id string) (*sessions.Session, error)
	UpdateCode(ctx context.Context, kind sessions.Kind, id, code string) error
	ListByEmail(ctx context.Context, kind sessions.Kind, email string) ([]sessions.Session, error)
	Delete(ctx context.Context, kind sessions.Kind, id string) (bool, error)
}

// Pinger reports whether a backing store is usable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the dependencies shared by all routes.
//
// # Thread Safety
//
// Safe for concurrent use once built; the With* methods are for setup only.
type Handlers struct {
	sessions      SessionStore
	storage       Pinger
	generator     *artifacts.Generator
	llmConfigured bool
	detector      *outlier.Detector
	metrics       *observability.Metrics
	logger        *slog.Logger
	version       string
}

// NewHandlers creates handlers with no optional dependencies. Routes whose
// dependency is missing answer 503.
func NewHandlers(logger *slog.Logger, version string) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{logger: logger, version: version}
}

// WithSessions enables the session routes. storage, if non-nil, is pinged by
// the health check.
func (h *Handlers) WithSessions(store SessionStore, storage Pinger) *Handlers {
	h.sessions = store
	h.storage = storage
	return h
}

// WithGenerator enables the artifact routes. configured is reported by the
// health check. Without a model client the model-only artifacts answer 503.
func (h *Handlers) WithGenerator(gen *artifacts.Generator, configured bool) *Handlers {
	h.generator = gen
	h.llmConfigured = configured
	return h
}

// WithOutlier enables the /api/anomaly routes.
func (h *Handlers) WithOutlier(d *outlier.Detector) *Handlers {
	h.detector = d
	return h
}

// WithMetrics enables metric recording.
func (h *Handlers) WithMetrics(m *observability.Metrics) *Handlers {
	h.metrics = m
	return h
}

// getOrCreateRequestID returns the id set by middleware.RequestID, or
// assigns one when the middleware is not installed.
func getOrCreateRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	requestID := c.GetHeader(middleware.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(middleware.RequestIDHeader, requestID)
	return requestID
}

func (h *Handlers) requestLogger(c *gin.Context, handler string) *slog.Logger {
	return h.logger.With("request_id", getOrCreateRequestID(c), "handler", handler)
}
