// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package outlier

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kv "github.com/AleutianAI/compilerlens/services/storage/badger"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openDB(t *testing.T) *kv.DB {
	t.Helper()
	db, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func trainedDetector(t *testing.T, db *kv.DB) *Detector {
	t.Helper()
	d := NewDetector(context.Background(), db, quietLogger())
	_, err := d.Train(context.Background(), gaussian(200, 50, 10), 0.1)
	require.NoError(t, err)
	return d
}

func TestDetector_PredictBeforeTrain(t *testing.T) {
	d := NewDetector(context.Background(), nil, quietLogger())
	assert.False(t, d.Trained())
	assert.False(t, d.Info().IsTrained)

	_, err := d.Predict([]float64{1, 2}, nil)
	assert.ErrorIs(t, err, ErrNotTrained)
	_, err = d.PredictBatch([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotTrained)
}

func TestDetector_Train(t *testing.T) {
	d := NewDetector(context.Background(), nil, quietLogger())
	res, err := d.Train(context.Background(), gaussian(200, 50, 10), 0)
	require.NoError(t, err)

	assert.Equal(t, 200, res.SamplesTrained)
	assert.LessOrEqual(t, res.MinScore, res.MeanScore)
	assert.LessOrEqual(t, res.MeanScore, res.MaxScore)
	assert.Greater(t, res.Threshold, res.MinScore)

	info := d.Info()
	assert.True(t, info.IsTrained)
	assert.Equal(t, ModelType, info.ModelType)
	assert.Equal(t, DefaultContamination, info.Contamination)
	assert.Equal(t, res.Threshold, info.Threshold)
	assert.False(t, info.Persistent)
}

func TestDetector_TrainValidation(t *testing.T) {
	d := NewDetector(context.Background(), nil, quietLogger())
	ctx := context.Background()
	tests := []struct {
		name          string
		data          []float64
		contamination float64
		want          error
	}{
		{"one point", []float64{1}, 0.1, ErrEmptyData},
		{"no points", nil, 0.1, ErrEmptyData},
		{"negative contamination", []float64{1, 2}, -0.1, ErrInvalidContamination},
		{"contamination above half", []float64{1, 2}, 0.6, ErrInvalidContamination},
		{"nan", []float64{1, math.NaN()}, 0.1, ErrInvalidValue},
		{"inf", []float64{math.Inf(1), 2}, 0.1, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Train(ctx, tt.data, tt.contamination)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.False(t, d.Trained())
}

func TestDetector_PredictFlagsOutliers(t *testing.T) {
	d := trainedDetector(t, nil)

	data := []float64{45, 50, 55, 5, 48, 52, 100, 51}
	p, err := d.Predict(data, nil)
	require.NoError(t, err)
	require.Len(t, p.Scores, len(data))
	require.Len(t, p.Labels, len(data))

	assert.Equal(t, 1, p.Labels[3], "5 should be anomalous")
	assert.Equal(t, 1, p.Labels[6], "100 should be anomalous")
	assert.Equal(t, 0, p.Labels[1], "50 should be normal")
	assert.Greater(t, p.Scores[6], p.Scores[1])
	assert.Greater(t, p.Scores[3], p.Scores[1])
	assert.True(t, p.IsAnomalous)
	assert.GreaterOrEqual(t, p.AnomalyCount, 2)
}

func TestDetector_PredictThreshold(t *testing.T) {
	d := trainedDetector(t, nil)
	data := []float64{50, 100}

	p, err := d.Predict(data, ptr(1.0))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 0}, p.Labels)
	assert.Equal(t, 1.0, p.Threshold)

	p, err = d.Predict(data, ptr(0.0))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, p.Labels)

	_, err = d.Predict(data, ptr(1.5))
	assert.ErrorIs(t, err, ErrInvalidThreshold)
	_, err = d.Predict(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}

func ptr(f float64) *float64 { return &f }

func TestDetector_PredictBatch(t *testing.T) {
	d := trainedDetector(t, nil)

	out, err := d.PredictBatch([][]float64{{48, 52, 49, 51}, {45, 100, 50, 48}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.False(t, out[0].IsAnomalous)
	assert.True(t, out[1].IsAnomalous)
	assert.Equal(t, 1, out[1].Labels[1])

	_, err = d.PredictBatch([][]float64{{50}, {}})
	assert.ErrorIs(t, err, ErrEmptyData)
	assert.Contains(t, err.Error(), "sequence_1")
}

func TestDetector_ReloadsStoredModel(t *testing.T) {
	db := openDB(t)
	first := trainedDetector(t, db)
	want, err := first.Predict([]float64{5, 50, 100}, nil)
	require.NoError(t, err)

	second := NewDetector(context.Background(), db, quietLogger())
	require.True(t, second.Trained())
	got, err := second.Predict([]float64{5, 50, 100}, nil)
	require.NoError(t, err)
	assert.Equal(t, want.Scores, got.Scores)
	assert.Equal(t, want.Labels, got.Labels)
	assert.Equal(t, first.Info().Threshold, second.Info().Threshold)
}

func TestDetector_StorageFailureKeepsModel(t *testing.T) {
	d := NewDetector(context.Background(), openDB(t), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := d.Train(ctx, gaussian(50, 0, 1), 0.1)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, d.Trained())
}
