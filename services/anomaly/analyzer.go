// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anomaly

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// AnalysisStage is the stage tag carried by every merged report.
const AnalysisStage = "bytecode"

// Pass names, in merge order.
const (
	PassLexical  = "lexical"
	PassSyntax   = "syntax"
	PassSemantic = "semantic"
	PassBytecode = "bytecode"
)

var tracer = otel.Tracer("compilerlens.anomaly")

// =============================================================================
// Summary
// =============================================================================

// CountBySeverity tallies findings per severity.
func CountBySeverity(anomalies []AnomalyResult) map[Severity]int {
	counts := make(map[Severity]int, 4)
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return counts
}

// Summarize renders "Found N anomalies", followed by " - C CRITICAL" and
// " - H HIGH" when those counts are non-zero.
func Summarize(anomalies []AnomalyResult) string {
	counts := CountBySeverity(anomalies)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d anomalies", len(anomalies))
	if c := counts[SeverityCritical]; c > 0 {
		fmt.Fprintf(&b, " - %d CRITICAL", c)
	}
	if h := counts[SeverityHigh]; h > 0 {
		fmt.Fprintf(&b, " - %d HIGH", h)
	}
	return b.String()
}

// NewAnalysis builds a report whose counters and summary are derived from
// the findings, keeping the report invariants true by construction.
func NewAnalysis(anomalies []AnomalyResult) *CompilerAnomalyAnalysis {
	if anomalies == nil {
		anomalies = make([]AnomalyResult, 0)
	}
	return &CompilerAnomalyAnalysis{
		Stage:          AnalysisStage,
		Anomalies:      anomalies,
		TotalAnomalies: len(anomalies),
		CriticalIssues: CountBySeverity(anomalies)[SeverityCritical],
		Summary:        Summarize(anomalies),
	}
}

// =============================================================================
// Aggregation
// =============================================================================

// runPass executes one pass and converts a panic into a PassError.
func runPass(name string, fn func() []AnomalyResult) (out []AnomalyResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PassError{Pass: name, Err: fmt.Errorf("%v", r)}
		}
	}()
	return fn(), nil
}

// Analyze runs all four passes over one submission and merges the findings.
//
// # Description
//
// The passes share no state and run concurrently. Their findings are
// concatenated in the fixed order lexical, syntax, semantic, bytecode,
// keeping each pass's own emission order. No sorting by severity is done.
//
// The report contains no timestamps or other varying data: identical
// submissions produce identical reports.
//
// # Inputs
//
//   - ctx: Used for tracing only; passes are not cancellable mid-flight.
//   - sub: The four artifacts. sub.AST must be non-nil.
//
// # Outputs
//
//   - *CompilerAnomalyAnalysis: The merged report.
//   - error: ErrMissingArtifacts for an incomplete submission, or a
//     *PassError if a pass aborted. No partial report is returned.
//
// # Thread Safety
//
// Safe for concurrent use.
func Analyze(ctx context.Context, sub Submission) (*CompilerAnomalyAnalysis, error) {
	ctx, span := tracer.Start(ctx, "anomaly.Analyze")
	defer span.End()

	if err := sub.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	passes := []struct {
		name string
		fn   func() []AnomalyResult
	}{
		{PassLexical, func() []AnomalyResult { return DetectLexicalAnomalies(sub.Tokens) }},
		{PassSyntax, func() []AnomalyResult { return DetectSyntaxAnomalies(sub.AST) }},
		{PassSemantic, func() []AnomalyResult { return DetectSemanticAnomalies(sub.Code, nil) }},
		{PassBytecode, func() []AnomalyResult { return DetectBytecodeAnomalies(sub.Bytecode) }},
	}

	results := make([][]AnomalyResult, len(passes))
	g, _ := errgroup.WithContext(ctx)
	for i, p := range passes {
		g.Go(func() error {
			out, err := runPass(p.name, p.fn)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	merged := make([]AnomalyResult, 0)
	for _, r := range results {
		merged = append(merged, r...)
	}

	analysis := NewAnalysis(merged)
	span.SetAttributes(
		attribute.Int("anomaly.total", analysis.TotalAnomalies),
		attribute.Int("anomaly.critical", analysis.CriticalIssues),
		attribute.Int("anomaly.tokens", len(sub.Tokens)),
		attribute.Int("anomaly.instructions", len(sub.Bytecode)),
	)
	return analysis, nil
}
