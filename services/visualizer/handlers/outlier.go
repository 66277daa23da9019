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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AleutianAI/compilerlens/services/outlier"
	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
)

// Outlier operation labels.
const (
	outlierOpTrain        = "train"
	outlierOpPredict      = "predict"
	outlierOpPredictBatch = "predict_batch"
)

// outlierErrorStatus maps a detector failure to a status and error body.
func outlierErrorStatus(err error) (int, datatypes.ErrorResponse) {
	switch {
	case errors.Is(err, outlier.ErrNotTrained):
		return http.StatusBadRequest, datatypes.ErrorResponse{
			Error: datatypes.ModelNotTrainedMessage,
			Code:  "MODEL_NOT_TRAINED",
		}
	case errors.Is(err, outlier.ErrEmptyData),
		errors.Is(err, outlier.ErrInvalidValue),
		errors.Is(err, outlier.ErrInvalidContamination),
		errors.Is(err, outlier.ErrInvalidThreshold):
		return http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error(), Code: "VALIDATION_FAILED"}
	default:
		return http.StatusInternalServerError, datatypes.ErrorResponse{Error: err.Error(), Code: "OUTLIER_ERROR"}
	}
}

// bindOutlierRequest binds and validates a body with a Validate method,
// writing the 400 itself. ok is false when the handler should return.
func bindOutlierRequest(c *gin.Context, req interface{ Validate() error }) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
		return false
	}
	return true
}

func (h *Handlers) requireDetector(c *gin.Context) bool {
	if h.detector == nil {
		c.JSON(http.StatusServiceUnavailable, datatypes.ErrorResponse{
			Error: "outlier detection unavailable",
			Code:  "SERVICE_UNAVAILABLE",
		})
		return false
	}
	return true
}

// HandleTrainOutlier handles POST /api/anomaly/train.
//
// # Description
//
// Fits a new isolation forest to the series and makes it current. The model
// is stored and survives restarts when the session store is on disk.
//
// # Responses
//
//   - 200: TrainResponse
//   - 400: invalid body, too few points, contamination outside (0, 0.5]
//   - 503: detector not wired
func (h *Handlers) HandleTrainOutlier(c *gin.Context) {
	if !h.requireDetector(c) {
		return
	}
	logger := h.requestLogger(c, "HandleTrainOutlier")

	var req datatypes.TrainRequest
	if !bindOutlierRequest(c, &req) {
		return
	}
	contamination := outlier.DefaultContamination
	if req.Contamination != nil {
		contamination = *req.Contamination
	}

	res, err := h.detector.Train(c.Request.Context(), req.Data, contamination)
	h.metrics.RecordOutlier(outlierOpTrain, 0, err)
	if err != nil {
		logger.Error("Outlier training failed", "error", err)
		c.JSON(outlierErrorStatus(err))
		return
	}

	logger.Info("Outlier model trained", "samples", res.SamplesTrained)
	c.JSON(http.StatusOK, datatypes.TrainResponse{
		Status:         "success",
		Message:        "Model trained successfully",
		SamplesTrained: res.SamplesTrained,
		MeanScore:      res.MeanScore,
		MaxScore:       res.MaxScore,
		MinScore:       res.MinScore,
		Threshold:      res.Threshold,
		Timestamp:      strfmt.DateTime(time.Now().UTC()),
	})
}

// HandlePredictOutlier handles POST /api/anomaly/predict.
//
// # Responses
//
//   - 200: PredictResponse
//   - 400: invalid body, or MODEL_NOT_TRAINED
//   - 503: detector not wired
func (h *Handlers) HandlePredictOutlier(c *gin.Context) {
	if !h.requireDetector(c) {
		return
	}
	logger := h.requestLogger(c, "HandlePredictOutlier")

	var req datatypes.PredictRequest
	if !bindOutlierRequest(c, &req) {
		return
	}

	p, err := h.detector.Predict(req.Data, req.Threshold)
	h.metrics.RecordOutlier(outlierOpPredict, p.AnomalyCount, err)
	if err != nil {
		logger.Warn("Outlier prediction failed", "error", err)
		c.JSON(outlierErrorStatus(err))
		return
	}

	logger.Info("Outlier prediction completed", "points", len(req.Data), "anomalies", p.AnomalyCount)
	c.JSON(http.StatusOK, datatypes.PredictResponse{
		Status:       "success",
		Data:         req.Data,
		Scores:       p.Scores,
		Labels:       p.Labels,
		AnomalyCount: p.AnomalyCount,
		IsAnomalous:  p.IsAnomalous,
		MeanScore:    p.MeanScore,
		MaxScore:     p.MaxScore,
		MinScore:     p.MinScore,
		Threshold:    p.Threshold,
		Timestamp:    strfmt.DateTime(time.Now().UTC()),
	})
}

// HandlePredictOutlierBatch handles POST /api/anomaly/predict-batch.
// Predictions are keyed sequence_0, sequence_1, ... in request order.
func (h *Handlers) HandlePredictOutlierBatch(c *gin.Context) {
	if !h.requireDetector(c) {
		return
	}
	logger := h.requestLogger(c, "HandlePredictOutlierBatch")

	var req datatypes.BatchPredictRequest
	if !bindOutlierRequest(c, &req) {
		return
	}

	preds, err := h.detector.PredictBatch(req.Sequences)
	flagged := 0
	for _, p := range preds {
		flagged += p.AnomalyCount
	}
	h.metrics.RecordOutlier(outlierOpPredictBatch, flagged, err)
	if err != nil {
		logger.Warn("Outlier batch prediction failed", "error", err)
		c.JSON(outlierErrorStatus(err))
		return
	}

	out := make(map[string]datatypes.SequencePrediction, len(preds))
	for i, p := range preds {
		out[fmt.Sprintf("sequence_%d", i)] = datatypes.SequencePrediction{
			Scores:      p.Scores,
			Labels:      p.Labels,
			IsAnomalous: p.IsAnomalous,
		}
	}
	logger.Info("Outlier batch prediction completed", "sequences", len(preds), "anomalies", flagged)
	c.JSON(http.StatusOK, datatypes.BatchPredictResponse{
		Status:      "success",
		Predictions: out,
		Timestamp:   strfmt.DateTime(time.Now().UTC()),
	})
}

// HandleOutlierInfo handles GET /api/anomaly/info.
func (h *Handlers) HandleOutlierInfo(c *gin.Context) {
	if !h.requireDetector(c) {
		return
	}
	info := h.detector.Info()
	resp := datatypes.ModelInfoResponse{
		IsTrained:      info.IsTrained,
		ModelType:      info.ModelType,
		Threshold:      info.Threshold,
		Contamination:  info.Contamination,
		SamplesTrained: info.SamplesTrained,
		Persistent:     info.Persistent,
		Timestamp:      strfmt.DateTime(time.Now().UTC()),
	}
	if info.IsTrained {
		trained := strfmt.DateTime(info.TrainedAt)
		resp.TrainedAt = &trained
	}
	c.JSON(http.StatusOK, resp)
}
