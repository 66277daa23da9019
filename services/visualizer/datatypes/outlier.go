// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import "github.com/go-openapi/strfmt"

// =============================================================================
// Series Outlier Detection
// =============================================================================

// MaxSeriesPoints bounds every series accepted by the /api/anomaly routes.
const MaxSeriesPoints = 100000

// ModelNotTrainedMessage is the 400 error text before the first training.
const ModelNotTrainedMessage = "Model not trained. Please train the model first."

// TrainRequest is the body of POST /api/anomaly/train.
//
// # Validation
//
//   - Data: at least two points
//   - Contamination: optional, in (0, 0.5], default 0.1
type TrainRequest struct {
	Data          []float64 `json:"data" validate:"required,min=2,max=100000"`
	Contamination *float64  `json:"contamination" validate:"omitempty,gt=0,lte=0.5"`
}

// Validate checks the request after binding.
func (r *TrainRequest) Validate() error {
	return validate.Struct(r)
}

// PredictRequest is the body of POST /api/anomaly/predict. Threshold, when
// set, replaces the trained cut-off for this request.
type PredictRequest struct {
	Data      []float64 `json:"data" validate:"required,min=1,max=100000"`
	Threshold *float64  `json:"threshold" validate:"omitempty,gte=0,lte=1"`
}

// Validate checks the request after binding.
func (r *PredictRequest) Validate() error {
	return validate.Struct(r)
}

// BatchPredictRequest is the body of POST /api/anomaly/predict-batch.
type BatchPredictRequest struct {
	Sequences [][]float64 `json:"sequences" validate:"required,min=1,max=1000,dive,required,min=1,max=100000"`
}

// Validate checks the request after binding.
func (r *BatchPredictRequest) Validate() error {
	return validate.Struct(r)
}

// TrainResponse reports the score statistics of the training data.
type TrainResponse struct {
	Status         string          `json:"status"`
	Message        string          `json:"message"`
	SamplesTrained int             `json:"samples_trained"`
	MeanScore      float64         `json:"mean_score"`
	MaxScore       float64         `json:"max_score"`
	MinScore       float64         `json:"min_score"`
	Threshold      float64         `json:"threshold"`
	Timestamp      strfmt.DateTime `json:"timestamp"`
}

// PredictResponse carries per-point scores and labels (1 anomalous).
type PredictResponse struct {
	Status       string          `json:"status"`
	Data         []float64       `json:"data"`
	Scores       []float64       `json:"scores"`
	Labels       []int           `json:"labels"`
	AnomalyCount int             `json:"anomaly_count"`
	IsAnomalous  bool            `json:"is_anomalous"`
	MeanScore    float64         `json:"mean_score"`
	MaxScore     float64         `json:"max_score"`
	MinScore     float64         `json:"min_score"`
	Threshold    float64         `json:"threshold"`
	Timestamp    strfmt.DateTime `json:"timestamp"`
}

// SequencePrediction is one entry of BatchPredictResponse.Predictions.
type SequencePrediction struct {
	Scores      []float64 `json:"scores"`
	Labels      []int     `json:"labels"`
	IsAnomalous bool      `json:"is_anomalous"`
}

// BatchPredictResponse keys predictions by "sequence_<index>".
type BatchPredictResponse struct {
	Status      string                        `json:"status"`
	Predictions map[string]SequencePrediction `json:"predictions"`
	Timestamp   strfmt.DateTime               `json:"timestamp"`
}

// ModelInfoResponse is the body of GET /api/anomaly/info.
type ModelInfoResponse struct {
	IsTrained      bool             `json:"is_trained"`
	ModelType      string           `json:"model_type"`
	Threshold      float64          `json:"threshold"`
	Contamination  float64          `json:"contamination"`
	SamplesTrained int              `json:"samples_trained"`
	TrainedAt      *strfmt.DateTime `json:"trained_at,omitempty"`
	Persistent     bool             `json:"persistent"`
	Timestamp      strfmt.DateTime  `json:"timestamp"`
}
