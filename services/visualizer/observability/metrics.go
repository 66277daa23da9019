// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and tracing for the visualizer.
//
// # Description
//
// Prometheus metrics cover:
//   - Analyses by outcome and their duration
//   - Findings by anomaly type and severity
//   - Model calls by model and outcome
//   - Session store operations by kind, operation and status
//   - Series outlier operations and flagged points
//
// Metrics are exposed on /metrics. Tracing installs an OpenTelemetry SDK
// provider; see InitTracer.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
// Every Record method is a no-op on a nil *Metrics.
package observability

import (
	"time"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/llm"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "compilerlens"

// Outcome labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	// AnalysesTotal counts analysis requests.
	// Labels: source (submitted, generated), status (success, error)
	AnalysesTotal *prometheus.CounterVec

	// AnalysisDurationSeconds measures engine time per analysis.
	AnalysisDurationSeconds prometheus.Histogram

	// AnomaliesTotal counts emitted findings.
	// Labels: type, severity
	AnomaliesTotal *prometheus.CounterVec

	// LLMRequestsTotal counts model attempts.
	// Labels: model, outcome (success, quota, overloaded, error)
	LLMRequestsTotal *prometheus.CounterVec

	// SessionOpsTotal counts session store operations.
	// Labels: kind (compiler, interpreter), op, status
	SessionOpsTotal *prometheus.CounterVec

	// OutlierOpsTotal counts series outlier operations.
	// Labels: op (train, predict, predict_batch), status
	OutlierOpsTotal *prometheus.CounterVec

	// OutlierPointsFlagged counts points labelled anomalous.
	OutlierPointsFlagged prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
//
// # Inputs
//
//   - reg: Registry to use. Tests pass prometheus.NewRegistry(); the server
//     passes prometheus.DefaultRegisterer.
//
// # Limitations
//
//   - Panics on duplicate registration in the same registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "analysis",
				Name:      "requests_total",
				Help:      "Total analyses by artifact source and status",
			},
			[]string{"source", "status"},
		),

		AnalysisDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "analysis",
				Name:      "duration_seconds",
				Help:      "Time spent in the detection passes",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
		),

		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "analysis",
				Name:      "anomalies_total",
				Help:      "Total findings by anomaly type and severity",
			},
			[]string{"type", "severity"},
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "llm",
				Name:      "requests_total",
				Help:      "Total model attempts by model and outcome",
			},
			[]string{"model", "outcome"},
		),

		SessionOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sessions",
				Name:      "operations_total",
				Help:      "Total session store operations by kind, operation and status",
			},
			[]string{"kind", "op", "status"},
		),

		OutlierOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "outlier",
				Name:      "operations_total",
				Help:      "Total series outlier operations by operation and status",
			},
			[]string{"op", "status"},
		),

		OutlierPointsFlagged: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "outlier",
				Name:      "points_flagged_total",
				Help:      "Total series points labelled anomalous",
			},
		),
	}
}

// =============================================================================
// Recording Helpers
// =============================================================================

func status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// RecordAnalysis records one engine run. report may be nil on failure.
func (m *Metrics) RecordAnalysis(source string, report *anomaly.CompilerAnomalyAnalysis, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(source, status(err)).Inc()
	m.AnalysisDurationSeconds.Observe(elapsed.Seconds())
	if report == nil {
		return
	}
	for _, a := range report.Anomalies {
		m.AnomaliesTotal.WithLabelValues(string(a.AnomalyType), string(a.Severity)).Inc()
	}
}

// RecordLLMAttempt matches llm.FallbackConfig.OnAttempt.
func (m *Metrics) RecordLLMAttempt(model string, err error) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(model, llmOutcome(err)).Inc()
}

func llmOutcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case llm.IsQuota(err):
		return "quota"
	case llm.IsRetryable(err):
		return "overloaded"
	default:
		return StatusError
	}
}

// RecordSessionOp records one store call.
func (m *Metrics) RecordSessionOp(kind, op string, err error) {
	if m == nil {
		return
	}
	m.SessionOpsTotal.WithLabelValues(kind, op, status(err)).Inc()
}

// RecordOutlier records one outlier operation and the points it flagged.
func (m *Metrics) RecordOutlier(op string, flagged int, err error) {
	if m == nil {
		return
	}
	m.OutlierOpsTotal.WithLabelValues(op, status(err)).Inc()
	if flagged > 0 {
		m.OutlierPointsFlagged.Add(float64(flagged))
	}
}
