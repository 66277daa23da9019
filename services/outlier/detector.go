// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package outlier scores numeric series for outliers with an isolation
// forest trained on caller-supplied data.
//
// # Description
//
// Values are standardised with the training mean and population standard
// deviation, then scored by a Forest. A point is labelled anomalous when
// its score exceeds the (1 - contamination) quantile of the training
// scores, or a caller-supplied threshold. The trained model is kept in
// badger and reloaded at startup.
//
// # Thread Safety
//
// Detector is safe for concurrent use. Training replaces the model
// atomically; predictions in flight keep using the model they started with.
package outlier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	kv "github.com/AleutianAI/compilerlens/services/storage/badger"
)

// DefaultContamination is the expected outlier share when none is given.
const DefaultContamination = 0.1

// ModelType names the scoring algorithm in Info.
const ModelType = "IsolationForest"

var modelKey = []byte("outlier/model")

var (
	// ErrNotTrained means Predict was called before any Train.
	ErrNotTrained = errors.New("model not trained")

	// ErrEmptyData means a series had too few points.
	ErrEmptyData = errors.New("not enough data points")

	// ErrInvalidValue means a series contained NaN or an infinity.
	ErrInvalidValue = errors.New("data points must be finite numbers")

	// ErrInvalidContamination means contamination was outside (0, 0.5].
	ErrInvalidContamination = errors.New("contamination must be in (0, 0.5]")

	// ErrInvalidThreshold means a threshold was outside [0, 1].
	ErrInvalidThreshold = errors.New("threshold must be between 0 and 1")
)

// Model is a trained scaler, forest and cut-off.
type Model struct {
	Mean           float64   `json:"mean"`
	Std            float64   `json:"std"`
	Forest         Forest    `json:"forest"`
	Threshold      float64   `json:"threshold"`
	Contamination  float64   `json:"contamination"`
	SamplesTrained int       `json:"samples_trained"`
	TrainedAt      time.Time `json:"trained_at"`
}

func (m *Model) score(x float64) float64 {
	return m.Forest.Score((x - m.Mean) / m.Std)
}

// TrainResult summarises a training run. Scores are those of the training
// data under the new model.
type TrainResult struct {
	SamplesTrained int
	MeanScore      float64
	MaxScore       float64
	MinScore       float64
	Threshold      float64
}

// Prediction is the scoring of one series.
type Prediction struct {
	Scores       []float64
	Labels       []int
	AnomalyCount int
	IsAnomalous  bool
	MeanScore    float64
	MaxScore     float64
	MinScore     float64
	Threshold    float64
}

// Info describes the current model.
type Info struct {
	IsTrained      bool
	ModelType      string
	Threshold      float64
	Contamination  float64
	SamplesTrained int
	TrainedAt      time.Time
	Persistent     bool
}

// Detector owns the current model.
type Detector struct {
	db     *kv.DB
	logger *slog.Logger

	mu    sync.RWMutex
	model *Model
}

// NewDetector creates a detector and loads a previously trained model from
// db. db may be nil, in which case models live only in memory. A stored
// model that cannot be read is logged and ignored.
func NewDetector(ctx context.Context, db *kv.DB, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{db: db, logger: logger.With("component", "outlier")}
	if db == nil {
		return d
	}

	var m Model
	err := db.ViewCtx(ctx, func(txn *badger.Txn) error {
		return kv.GetJSON(txn, modelKey, &m)
	})
	switch {
	case errors.Is(err, kv.ErrNotFound):
		d.logger.Info("No trained outlier model found")
	case err != nil:
		d.logger.Warn("Stored outlier model ignored", "error", err)
	default:
		d.model = &m
		d.logger.Info("Outlier model loaded", "samples_trained", m.SamplesTrained)
	}
	return d
}

// Trained reports whether a model is available.
func (d *Detector) Trained() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.model != nil
}

func checkFinite(data []float64) error {
	for _, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ErrInvalidValue
		}
	}
	return nil
}

// Train fits a new model to data and makes it current.
//
// # Inputs
//
//   - data: At least two finite values.
//   - contamination: Expected outlier share in (0, 0.5]; 0 selects
//     DefaultContamination.
//
// # Outputs
//
//   - TrainResult: Score statistics of the training data.
//   - error: ErrEmptyData, ErrInvalidValue, ErrInvalidContamination, or a
//     storage failure. On a storage failure the previous model stays.
func (d *Detector) Train(ctx context.Context, data []float64, contamination float64) (TrainResult, error) {
	if contamination == 0 {
		contamination = DefaultContamination
	}
	if contamination < 0 || contamination > 0.5 || math.IsNaN(contamination) {
		return TrainResult{}, ErrInvalidContamination
	}
	if len(data) < 2 {
		return TrainResult{}, ErrEmptyData
	}
	if err := checkFinite(data); err != nil {
		return TrainResult{}, err
	}

	start := time.Now()
	mean, std := stat.PopMeanStdDev(data, nil)
	if std == 0 {
		std = 1
	}
	scaled := make([]float64, len(data))
	for i, x := range data {
		scaled[i] = (x - mean) / std
	}

	m := &Model{
		Mean:           mean,
		Std:            std,
		Forest:         GrowForest(scaled, DefaultTrees, DefaultSeed),
		Contamination:  contamination,
		SamplesTrained: len(data),
		TrainedAt:      time.Now().UTC(),
	}

	scores := make([]float64, len(scaled))
	for i, x := range scaled {
		scores[i] = m.Forest.Score(x)
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	m.Threshold = stat.Quantile(1-contamination, stat.Empirical, sorted, nil)

	if d.db != nil {
		err := d.db.UpdateCtx(ctx, func(txn *badger.Txn) error {
			return kv.SetJSON(txn, modelKey, m)
		})
		if err != nil {
			d.logger.Error("Persisting outlier model failed", "error", err)
			return TrainResult{}, fmt.Errorf("store outlier model: %w", err)
		}
	}

	d.mu.Lock()
	d.model = m
	d.mu.Unlock()

	d.logger.Info("Outlier model trained",
		"samples", len(data),
		"contamination", contamination,
		"threshold", m.Threshold,
		"duration_ms", time.Since(start).Milliseconds())

	return TrainResult{
		SamplesTrained: len(data),
		MeanScore:      stat.Mean(scores, nil),
		MaxScore:       floats.Max(scores),
		MinScore:       floats.Min(scores),
		Threshold:      m.Threshold,
	}, nil
}

// Predict scores every point of data.
//
// # Inputs
//
//   - data: At least one finite value.
//   - threshold: Optional cut-off in [0, 1]; nil uses the trained one.
//
// # Outputs
//
//   - Prediction: Per-point scores and labels (1 anomalous, 0 normal).
//   - error: ErrNotTrained, ErrEmptyData, ErrInvalidValue or
//     ErrInvalidThreshold.
func (d *Detector) Predict(data []float64, threshold *float64) (Prediction, error) {
	d.mu.RLock()
	m := d.model
	d.mu.RUnlock()
	if m == nil {
		return Prediction{}, ErrNotTrained
	}
	return predict(m, data, threshold)
}

func predict(m *Model, data []float64, threshold *float64) (Prediction, error) {
	if len(data) == 0 {
		return Prediction{}, ErrEmptyData
	}
	if err := checkFinite(data); err != nil {
		return Prediction{}, err
	}
	cut := m.Threshold
	if threshold != nil {
		if *threshold < 0 || *threshold > 1 || math.IsNaN(*threshold) {
			return Prediction{}, ErrInvalidThreshold
		}
		cut = *threshold
	}

	p := Prediction{
		Scores:    make([]float64, len(data)),
		Labels:    make([]int, len(data)),
		Threshold: cut,
	}
	for i, x := range data {
		s := m.score(x)
		p.Scores[i] = s
		if s > cut {
			p.Labels[i] = 1
			p.AnomalyCount++
		}
	}
	p.IsAnomalous = p.AnomalyCount > 0
	p.MeanScore = stat.Mean(p.Scores, nil)
	p.MaxScore = floats.Max(p.Scores)
	p.MinScore = floats.Min(p.Scores)
	return p, nil
}

// PredictBatch scores each sequence with the trained threshold. All
// sequences use the same model even if a training run lands midway. The
// first invalid sequence fails the whole batch; its index is in the error.
func (d *Detector) PredictBatch(sequences [][]float64) ([]Prediction, error) {
	d.mu.RLock()
	m := d.model
	d.mu.RUnlock()
	if m == nil {
		return nil, ErrNotTrained
	}
	if len(sequences) == 0 {
		return nil, ErrEmptyData
	}

	out := make([]Prediction, len(sequences))
	for i, seq := range sequences {
		p, err := predict(m, seq, nil)
		if err != nil {
			return nil, fmt.Errorf("sequence_%d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Info describes the current model.
func (d *Detector) Info() Info {
	d.mu.RLock()
	m := d.model
	d.mu.RUnlock()

	info := Info{ModelType: ModelType, Persistent: d.db != nil && !d.db.InMemory()}
	if m == nil {
		return info
	}
	info.IsTrained = true
	info.Threshold = m.Threshold
	info.Contamination = m.Contamination
	info.SamplesTrained = m.SamplesTrained
	info.TrainedAt = m.TrainedAt
	return info
}
