// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package anomaly provides heuristic anomaly detection over compiler artifacts.
//
// # Description
//
// Four independent passes inspect the lexical, syntactic, semantic and
// bytecode representations of a program and emit AnomalyResult findings.
// The artifacts are usually produced by a generative model, so every pass
// treats its input as untrusted: empty, malformed or cyclic structures must
// degrade to fewer findings, never to a crash.
//
// The passes are pattern heuristics, not a compiler. Regex-driven name
// extraction and adjacency checks are the observable contract.
//
// # Thread Safety
//
// All passes are pure functions over their inputs. Analyze is safe for
// concurrent use.
package anomaly

// =============================================================================
// Input Artifacts
// =============================================================================

// Token is a lexical unit in source order.
type Token struct {
	// Type is the token class, e.g. IDENTIFIER, OPERATOR, Keyword.
	Type string `json:"type"`

	// Value is the literal text of the token.
	Value string `json:"value"`

	// Line is the 1-based source line, 0 when unknown.
	Line int `json:"line"`

	// Column is the 1-based source column, 0 when unknown.
	Column int `json:"column"`
}

// ASTNode is one node of a syntax tree.
//
// Children are pointers: a tree decoded from JSON is always acyclic, but a
// tree assembled in code may share or loop nodes and the syntax pass must
// survive that.
type ASTNode struct {
	Type     string     `json:"type"`
	Value    string     `json:"value,omitempty"`
	Children []*ASTNode `json:"children,omitempty"`
	LineNo   int        `json:"lineNo,omitempty"`
}

// Submission bundles the four artifacts of one analysis request.
type Submission struct {
	Code     string   `json:"code"`
	Tokens   []Token  `json:"tokens"`
	AST      *ASTNode `json:"ast"`
	Bytecode []string `json:"bytecode"`
}

// Validate checks that the submission carries a syntax tree.
//
// Tokens and bytecode may legitimately be empty; whether they were supplied
// at all is decided at the transport boundary.
func (s Submission) Validate() error {
	if s.AST == nil {
		return ErrMissingArtifacts
	}
	return nil
}

// =============================================================================
// Findings
// =============================================================================

// Severity is the ordinal urgency of a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities ascending: low=1 … critical=4, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// AnomalyType tags the kind of finding. The values are part of the wire
// contract and must not change.
type AnomalyType string

const (
	// TypeNamingInconsistency is an ALL_CAPS identifier right after a
	// lower or mixed case one.
	TypeNamingInconsistency AnomalyType = "naming_inconsistency"

	// TypeConsecutiveOperators is two adjacent operator tokens.
	TypeConsecutiveOperators AnomalyType = "consecutive_operators"

	// TypeHighTokenDiversity is more than MaxTokenTypes distinct token types.
	TypeHighTokenDiversity AnomalyType = "high_token_diversity"

	// TypeExcessiveNesting is a tree deeper than MaxNestingDepth.
	TypeExcessiveNesting AnomalyType = "excessive_nesting"

	// TypeSingleNode is a node type that occurs exactly once in the tree.
	TypeSingleNode AnomalyType = "single_node_anomaly"

	// TypeUnusedVariable is a declared name that is never used.
	TypeUnusedVariable AnomalyType = "unused_variable"

	// TypeUndefinedVariable is a used name that is never declared.
	TypeUndefinedVariable AnomalyType = "undefined_variable"

	// TypeUnreachableCode is an instruction after the last return that no
	// jump targets.
	TypeUnreachableCode AnomalyType = "unreachable_code"

	// TypePotentialInfiniteLoop is a jump to its own or an earlier index.
	TypePotentialInfiniteLoop AnomalyType = "potential_infinite_loop"
)

// AllAnomalyTypes lists the vocabulary in pass order.
func AllAnomalyTypes() []AnomalyType {
	return []AnomalyType{
		TypeNamingInconsistency,
		TypeConsecutiveOperators,
		TypeHighTokenDiversity,
		TypeExcessiveNesting,
		TypeSingleNode,
		TypeUnusedVariable,
		TypeUndefinedVariable,
		TypeUnreachableCode,
		TypePotentialInfiniteLoop,
	}
}

// AnomalyResult is a single finding. Values are created once by a pass and
// never mutated afterwards.
type AnomalyResult struct {
	// IsAnomalous is always true for emitted findings.
	IsAnomalous bool `json:"isAnomalous"`

	// AnomalyScore is the confidence in [0,1].
	AnomalyScore float64 `json:"anomalyScore"`

	AnomalyType AnomalyType `json:"anomalyType"`
	Message     string      `json:"message"`
	Severity    Severity    `json:"severity"`

	// Suggestions are optional remediation hints.
	Suggestions []string `json:"suggestions,omitempty"`
}

func newResult(typ AnomalyType, sev Severity, score float64, msg string, suggestions ...string) AnomalyResult {
	return AnomalyResult{
		IsAnomalous:  true,
		AnomalyScore: score,
		AnomalyType:  typ,
		Message:      msg,
		Severity:     sev,
		Suggestions:  suggestions,
	}
}

// CompilerAnomalyAnalysis is the merged report of all passes.
//
// TotalAnomalies always equals len(Anomalies) and CriticalIssues always
// equals the number of critical findings; build it with NewAnalysis to keep
// that true.
type CompilerAnomalyAnalysis struct {
	Stage          string          `json:"stage"`
	Anomalies      []AnomalyResult `json:"anomalies"`
	TotalAnomalies int             `json:"totalAnomalies"`
	CriticalIssues int             `json:"criticalIssues"`
	Summary        string          `json:"summary"`
}
