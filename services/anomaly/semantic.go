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

var (
	declarationPattern = regexp.MustCompile(`(?:let|const|var|int|string|float|double)\s+(\w+)`)
	usagePattern       = regexp.MustCompile(`(\w+)\s*[=+\-*/(]`)
)

var builtinNames = map[string]struct{}{
	"print": {}, "len": {}, "range": {}, "int": {}, "str": {},
	"float": {}, "list": {}, "dict": {}, "set": {}, "tuple": {},
}

// IsBuiltin reports whether name is on the builtin allow-list that is never
// reported as undefined.
func IsBuiltin(name string) bool {
	_, ok := builtinNames[name]
	return ok
}

// orderedSet keeps first-insertion order so output is deterministic.
type orderedSet struct {
	order []string
	index map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *orderedSet) has(v string) bool {
	_, ok := s.index[v]
	return ok
}

// DetectSemanticAnomalies looks for declared-but-unused and
// used-but-undeclared names in raw source text.
//
// # Description
//
// Names are pulled out with two regular expressions, not a parser:
//
//	declared: (let|const|var|int|string|float|double) <ws> name
//	used:     name <ws>* followed by one of = + - * / (
//
// The identifier of a declaration is not also counted as a use, so
// "let x = 1;" declares x without using it. Each distinct name produces at
// most one finding per category. False positives and negatives are
// expected; this is a heuristic.
//
// # Inputs
//
//   - code: Raw source text.
//   - symbols: Optional symbol table. Accepted for interface stability and
//     currently ignored.
//
// # Outputs
//
//   - []AnomalyResult: unused findings first, then undefined, each in first
//     occurrence order. Never nil.
func DetectSemanticAnomalies(code string, symbols map[string]any) []AnomalyResult {
	_ = symbols
	anomalies := make([]AnomalyResult, 0)

	declared := newOrderedSet()
	declSites := make(map[int]struct{})
	for _, m := range declarationPattern.FindAllStringSubmatchIndex(code, -1) {
		declared.add(code[m[2]:m[3]])
		declSites[m[2]] = struct{}{}
	}

	used := newOrderedSet()
	for _, m := range usagePattern.FindAllStringSubmatchIndex(code, -1) {
		if _, isDecl := declSites[m[2]]; isDecl {
			continue
		}
		used.add(code[m[2]:m[3]])
	}

	for _, name := range declared.order {
		if !used.has(name) {
			anomalies = append(anomalies, newResult(
				TypeUnusedVariable, SeverityMedium, 0.5,
				fmt.Sprintf("Variable '%s' declared but never used", name),
				"Remove unused variable",
				"Or use it in the code",
			))
		}
	}

	for _, name := range used.order {
		if !declared.has(name) && !IsBuiltin(name) {
			anomalies = append(anomalies, newResult(
				TypeUndefinedVariable, SeverityHigh, 0.8,
				fmt.Sprintf("Potentially undefined variable: '%s'", name),
				"Declare variable before use",
				"Check variable name for typos",
			))
		}
	}

	return anomalies
}
