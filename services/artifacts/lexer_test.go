// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package artifacts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/compilerlens/services/anomaly"
)

func TestTokenize_Java(t *testing.T) {
	got := Tokenize(`int count = 0x1F;`+"\n"+`String s = "hi there";`, LangJava)

	want := []anomaly.Token{
		{Type: TokenKeyword, Value: "int", Line: 1, Column: 1},
		{Type: TokenIdentifier, Value: "count", Line: 1, Column: 5},
		{Type: TokenOperator, Value: "=", Line: 1, Column: 11},
		{Type: TokenNumber, Value: "0x1F", Line: 1, Column: 13},
		{Type: TokenDelimiter, Value: ";", Line: 1, Column: 17},
		{Type: TokenKeyword, Value: "String", Line: 2, Column: 1},
		{Type: TokenIdentifier, Value: "s", Line: 2, Column: 8},
		{Type: TokenOperator, Value: "=", Line: 2, Column: 10},
		{Type: TokenString, Value: `"hi there"`, Line: 2, Column: 12},
		{Type: TokenDelimiter, Value: ";", Line: 2, Column: 22},
	}
	assert.Equal(t, want, got)
}

func TestTokenize_OperatorRunsAndKeywordTables(t *testing.T) {
	got := Tokenize("def f(x): return x+-1", LangPython)
	require.NotEmpty(t, got)
	assert.Equal(t, TokenKeyword, got[0].Type)

	var ops []string
	for _, tok := range got {
		if tok.Type == TokenOperator {
			ops = append(ops, tok.Value)
		}
	}
	assert.Equal(t, []string{"+-"}, ops)

	// "def" is not a Java keyword.
	assert.Equal(t, TokenIdentifier, Tokenize("def", LangJava)[0].Type)
	assert.Equal(t, TokenKeyword, Tokenize("nullptr", LangCPP)[0].Type)
}

func TestTokenize_Empty(t *testing.T) {
	got := Tokenize("   \n\t", LangJava)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTokenize_FeedsLexicalPass(t *testing.T) {
	tokens := Tokenize("a = = b", LangJava)
	results := anomaly.DetectLexicalAnomalies(tokens)
	require.Len(t, results, 1)
	assert.Equal(t, anomaly.TypeConsecutiveOperators, results[0].AnomalyType)
}

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LangCPP, ParseLanguage("C++"))
	assert.Equal(t, LangPython, ParseLanguage(" py "))
	assert.Equal(t, LangJava, ParseLanguage(""))
	assert.Equal(t, LangJava, ParseLanguage("cobol"))
	assert.Equal(t, "C++", LangCPP.Label())
}
