// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"

	"github.com/AleutianAI/compilerlens/pkg/extensions"
	"github.com/AleutianAI/compilerlens/services/sessions"
	"github.com/AleutianAI/compilerlens/services/visualizer/handlers"
	"github.com/AleutianAI/compilerlens/services/visualizer/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures SetupRoutes.
type Options struct {
	// AuthProvider validates callers of /api. nil means NopAuthProvider.
	AuthProvider extensions.AuthProvider

	// AuthHeader is the trusted identity header; "" uses bearer tokens.
	AuthHeader string

	// Gatherer backs /metrics. nil omits the route.
	Gatherer prometheus.Gatherer
}

// SetupRoutes registers every route on router.
func SetupRoutes(router *gin.Engine, h *handlers.Handlers, opts Options) {
	provider := opts.AuthProvider
	if provider == nil {
		provider = &extensions.NopAuthProvider{}
	}

	router.Use(middleware.RequestID())

	router.GET("/health", h.HandleHealth)
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(provider, opts.AuthHeader))
	{
		api.POST("/compilerAnomalyAnalysis", h.HandleAnalyze)
		api.GET("/compilerAnomalyAnalysis", h.HandleDescribeAnalysis)
		api.GET("/me", h.HandleMe)

		artifacts := api.Group("/artifacts")
		{
			for _, name := range handlers.ArtifactNames {
				artifacts.POST("/"+name, h.HandleArtifact(name))
			}
			artifacts.POST("/analyze", h.HandleGenerateAndAnalyze)
		}

		// Series outlier detection
		series := api.Group("/anomaly")
		{
			series.POST("/train", h.HandleTrainOutlier)
			series.POST("/predict", h.HandlePredictOutlier)
			series.POST("/predict-batch", h.HandlePredictOutlierBatch)
			series.GET("/info", h.HandleOutlierInfo)
		}

		// Compiler sessions
		api.POST("/save", h.HandleCreateSession(sessions.KindCompiler))
		api.PUT("/save", h.HandleUpdateSession(sessions.KindCompiler))
		api.GET("/save", h.HandleGetSession(sessions.KindCompiler))
		api.GET("/getComp", h.HandleListSessions(sessions.KindCompiler))
		api.DELETE("/deleteComp", h.HandleDeleteSession(sessions.KindCompiler))

		// Interpreter sessions
		api.POST("/saveInterpreter", h.HandleCreateSession(sessions.KindInterpreter))
		api.PUT("/saveInterpreter", h.HandleUpdateSession(sessions.KindInterpreter))
		api.GET("/saveInterpreter", h.HandleGetSession(sessions.KindInterpreter))
		api.GET("/getInt", h.HandleListSessions(sessions.KindInterpreter))
		api.DELETE("/deleteInt", h.HandleDeleteSession(sessions.KindInterpreter))
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}
