// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"time"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
)

// AnalysisPath is the route of the anomaly endpoint.
const AnalysisPath = "/api/compilerAnomalyAnalysis"

const analysisFailedMessage = "Failed to analyze compiler output"

// HandleAnalyze handles POST /api/compilerAnomalyAnalysis.
//
// # Description
//
// Runs the four detection passes over the submitted artifacts. tokens, ast
// and bytecode must be present (empty arrays are fine); code defaults to "".
//
// # Responses
//
//   - 200: {success: true, analysis, timestamp}
//   - 400: {error: "Missing required fields: tokens, ast, bytecode"} for
//     absent fields or a malformed body; a body that does not decode also
//     gets {detail}, e.g. "field bytecode: expected string, got number"
//   - 413: {error} when code exceeds datatypes.MaxCodeBytes
//   - 500: {success: false, error: "Failed to analyze compiler output", message}
func (h *Handlers) HandleAnalyze(c *gin.Context) {
	logger := h.requestLogger(c, "HandleAnalyze")

	var req datatypes.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail := datatypes.BindErrorDetail(err)
		logger.Warn("Invalid request body", "error", err, "detail", detail)
		c.JSON(http.StatusBadRequest, datatypes.MissingFields{
			Error:  datatypes.MissingFieldsMessage,
			Detail: detail,
		})
		return
	}
	if err := req.Validate(); err != nil {
		if datatypes.IsOversize(err) {
			c.JSON(http.StatusRequestEntityTooLarge, datatypes.MissingFields{Error: "code exceeds maximum size"})
			return
		}
		logger.Warn("Missing analysis artifacts", "error", err)
		c.JSON(http.StatusBadRequest, datatypes.MissingFields{Error: datatypes.MissingFieldsMessage})
		return
	}

	start := time.Now()
	report, err := anomaly.Analyze(c.Request.Context(), req.Submission())
	h.metrics.RecordAnalysis("submitted", report, time.Since(start), err)
	if err != nil {
		logger.Error("Anomaly analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.AnalysisFailure{
			Success: false,
			Error:   analysisFailedMessage,
			Message: err.Error(),
		})
		return
	}

	logger.Info("Analysis complete",
		"total_anomalies", report.TotalAnomalies,
		"critical_issues", report.CriticalIssues,
		"duration_ms", time.Since(start).Milliseconds())

	c.JSON(http.StatusOK, datatypes.AnalysisResponse{
		Success:   true,
		Analysis:  report,
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	})
}

// HandleDescribeAnalysis handles GET /api/compilerAnomalyAnalysis.
func (h *Handlers) HandleDescribeAnalysis(c *gin.Context) {
	c.JSON(http.StatusOK, datatypes.EndpointInfo{
		Endpoint:     AnalysisPath,
		Method:       http.MethodPost,
		Description:  "Analyze compiler output for anomalies",
		AnomalyTypes: anomaly.AllAnomalyTypes(),
	})
}
