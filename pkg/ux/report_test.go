// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AleutianAI/compilerlens/services/anomaly"
)

// =============================================================================
// ReportRenderer Tests
// =============================================================================

func TestReportRenderer_Findings(t *testing.T) {
	report := anomaly.NewAnalysis([]anomaly.AnomalyResult{
		{
			IsAnomalous:  true,
			AnomalyScore: 0.8,
			AnomalyType:  "potential_infinite_loop",
			Message:      "Backward jump at instruction 1",
			Severity:     anomaly.SeverityHigh,
			Suggestions:  []string{"Check the loop exit condition"},
		},
	})

	var buf bytes.Buffer
	if err := NewReportRenderer(&buf).Render(report); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "\x1b[") {
		t.Errorf("expected plain output for a buffer, got %q", out)
	}
	for _, want := range []string{
		"Stage: bytecode",
		"✗ Found 1 anomalies - 1 HIGH",
		"[high] potential_infinite_loop (0.80) Backward jump at instruction 1",
		"→ Check the loop exit condition",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReportRenderer_Clean(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReportRenderer(&buf).Render(anomaly.NewAnalysis(nil)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[1] != "✓ Found 0 anomalies" {
		t.Errorf("unexpected summary line %q", lines[1])
	}
}

func TestReportRenderer_MostSevereFirst(t *testing.T) {
	finding := func(typ anomaly.AnomalyType, sev anomaly.Severity) anomaly.AnomalyResult {
		return anomaly.AnomalyResult{IsAnomalous: true, AnomalyType: typ, Message: string(typ), Severity: sev}
	}
	report := anomaly.NewAnalysis([]anomaly.AnomalyResult{
		finding("single_node_anomaly", anomaly.SeverityLow),
		finding("consecutive_operators", anomaly.SeverityMedium),
		finding("potential_infinite_loop", anomaly.SeverityHigh),
		finding("naming_inconsistency", anomaly.SeverityLow),
		finding("unreachable_code", anomaly.SeverityMedium),
	})

	var buf bytes.Buffer
	if err := NewReportRenderer(&buf).Render(report); err != nil {
		t.Fatalf("Render: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")[2:]
	want := []string{
		"potential_infinite_loop",
		"consecutive_operators",
		"unreachable_code",
		"single_node_anomaly",
		"naming_inconsistency",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d finding lines, got %q", len(want), lines)
	}
	for i, typ := range want {
		if !strings.Contains(lines[i], typ) {
			t.Errorf("line %d: want %s, got %q", i, typ, lines[i])
		}
	}
	if report.Anomalies[0].AnomalyType != "single_node_anomaly" {
		t.Errorf("report order was modified")
	}
}

func TestReportRenderer_UnknownSeverity(t *testing.T) {
	r := NewReportRenderer(&bytes.Buffer{})
	if got := r.severityStyle("bogus").Render("x"); got != "x" {
		t.Errorf("expected plain render, got %q", got)
	}
}
