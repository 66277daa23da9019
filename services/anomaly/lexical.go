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
	"fmt"
	"regexp"
)

const (
	// TokenTypeIdentifier is the token type the naming checks apply to.
	TokenTypeIdentifier = "IDENTIFIER"

	// TokenTypeOperator is the token type the adjacency check applies to.
	TokenTypeOperator = "OPERATOR"

	// MaxTokenTypes is the largest number of distinct token types that is
	// not reported as high diversity.
	MaxTokenTypes = 15
)

var upperSnakePattern = regexp.MustCompile(`^[A-Z_]+$`)

// lexicalStats holds counters that are tracked but not reported.
type lexicalStats struct {
	singleCharIdentifiers int
}

// DetectLexicalAnomalies scans tokens for naming and operator irregularities.
//
// # Description
//
// One left-to-right pass. An ALL_CAPS identifier directly after an
// identifier that is not ALL_CAPS is a naming inconsistency; the reverse
// transition is not. Every adjacent pair of operators is reported, so a run
// of k operators yields k-1 findings. More than MaxTokenTypes distinct
// token types adds one diversity finding at the end.
//
// Single-character identifiers are counted but never reported.
//
// # Inputs
//
//   - tokens: Tokens in source order. May be empty.
//
// # Outputs
//
//   - []AnomalyResult: Findings in scan order. Never nil.
func DetectLexicalAnomalies(tokens []Token) []AnomalyResult {
	anomalies := make([]AnomalyResult, 0)
	types := make(map[string]struct{})
	var stats lexicalStats

	for i, tok := range tokens {
		types[tok.Type] = struct{}{}

		if tok.Type == TokenTypeIdentifier {
			if len(tok.Value) == 1 {
				stats.singleCharIdentifiers++
			}
			if i > 0 && upperSnakePattern.MatchString(tok.Value) {
				prev := tokens[i-1]
				if prev.Type == TokenTypeIdentifier && !upperSnakePattern.MatchString(prev.Value) {
					anomalies = append(anomalies, newResult(
						TypeNamingInconsistency, SeverityMedium, 0.6,
						"Naming convention anomaly: Mixed case styles in identifiers",
						"Use consistent naming convention (camelCase or snake_case)",
					))
				}
			}
		}

		if tok.Type == TokenTypeOperator && i+1 < len(tokens) {
			next := tokens[i+1]
			if next.Type == TokenTypeOperator {
				anomalies = append(anomalies, newResult(
					TypeConsecutiveOperators, SeverityHigh, 0.7,
					fmt.Sprintf("Suspicious consecutive operators: %s %s", tok.Value, next.Value),
					"Check operator precedence",
					"Verify logical expression",
				))
			}
		}
	}

	if len(types) > MaxTokenTypes {
		anomalies = append(anomalies, newResult(
			TypeHighTokenDiversity, SeverityMedium, 0.5,
			fmt.Sprintf("Unusual diversity in token types: %d different types", len(types)),
			"Code complexity is high",
			"Consider refactoring",
		))
	}

	return anomalies
}
