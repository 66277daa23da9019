// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux renders anomaly reports for the terminal.
package ux

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/charmbracelet/lipgloss"
)

// Palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7")
	ColorTealPrimary = lipgloss.Color("#20B9B4")
	ColorSlate       = lipgloss.Color("#2C4A54")

	ColorCritical = lipgloss.Color("#E74C3C")
	ColorHigh     = lipgloss.Color("#E67E22")
	ColorMedium   = lipgloss.Color("#F4D03F")
	ColorLow      = lipgloss.Color("#1D9EA3")
)

// Icon is a status glyph.
type Icon string

const (
	IconClean Icon = "✓"
	IconIssue Icon = "✗"
	IconArrow Icon = "→"
)

// ReportRenderer writes CompilerAnomalyAnalysis values as styled text.
//
// Styles are bound to the destination writer, so colors are emitted only
// when it is a color-capable terminal. Buffers and pipes get plain text.
type ReportRenderer struct {
	w io.Writer

	title    lipgloss.Style
	summary  lipgloss.Style
	muted    lipgloss.Style
	clean    lipgloss.Style
	severity map[anomaly.Severity]lipgloss.Style
}

// NewReportRenderer returns a renderer writing to w.
func NewReportRenderer(w io.Writer) *ReportRenderer {
	r := lipgloss.NewRenderer(w)
	sev := func(c lipgloss.Color) lipgloss.Style {
		return r.NewStyle().Foreground(c).Bold(true)
	}
	return &ReportRenderer{
		w:       w,
		title:   r.NewStyle().Bold(true).Foreground(ColorTealBright),
		summary: r.NewStyle().Foreground(ColorTealPrimary),
		muted:   r.NewStyle().Foreground(ColorSlate),
		clean:   r.NewStyle().Foreground(ColorTealBright),
		severity: map[anomaly.Severity]lipgloss.Style{
			anomaly.SeverityCritical: sev(ColorCritical),
			anomaly.SeverityHigh:     sev(ColorHigh),
			anomaly.SeverityMedium:   sev(ColorMedium),
			anomaly.SeverityLow:      sev(ColorLow),
		},
	}
}

// Render writes the report: a stage title, the summary line, then one line
// per finding with its suggestions indented below. Findings are listed most
// severe first; equal severities keep report order. report is not modified.
func (r *ReportRenderer) Render(report *anomaly.CompilerAnomalyAnalysis) error {
	var b strings.Builder

	b.WriteString(r.title.Render("Stage: " + report.Stage))
	b.WriteByte('\n')

	icon := IconIssue
	if report.TotalAnomalies == 0 {
		icon = IconClean
	}
	fmt.Fprintf(&b, "%s %s\n", r.clean.Render(string(icon)), r.summary.Render(report.Summary))

	for _, a := range bySeverity(report.Anomalies) {
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			r.severityStyle(a.Severity).Render("["+string(a.Severity)+"]"),
			a.AnomalyType,
			r.muted.Render(fmt.Sprintf("(%.2f)", a.AnomalyScore)),
			a.Message)
		for _, s := range a.Suggestions {
			fmt.Fprintf(&b, "      %s %s\n", r.muted.Render(string(IconArrow)), s)
		}
	}

	_, err := io.WriteString(r.w, b.String())
	return err
}

func bySeverity(results []anomaly.AnomalyResult) []anomaly.AnomalyResult {
	sorted := slices.Clone(results)
	slices.SortStableFunc(sorted, func(a, b anomaly.AnomalyResult) int {
		return b.Severity.Rank() - a.Severity.Rank()
	})
	return sorted
}

func (r *ReportRenderer) severityStyle(s anomaly.Severity) lipgloss.Style {
	if st, ok := r.severity[s]; ok {
		return st
	}
	return r.muted
}
