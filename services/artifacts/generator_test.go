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
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/llm"
)

// promptRouter answers with the first reply whose key occurs in the prompt.
type promptRouter struct {
	mu      sync.Mutex
	replies map[string]string
	err     error
	models  []string
}

func (p *promptRouter) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	p.mu.Lock()
	p.models = append(p.models, params.Model)
	p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	for key, reply := range p.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("no reply for prompt")
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantKey string
		wantErr error
	}{
		{"plain", `{"a":1}`, "a", nil},
		{"fenced", "```json\n{\"b\": 2}\n```", "b", nil},
		{"prose around", "Sure! Here it is: {\"c\": {\"d\": 1}} Hope this helps.", "c", nil},
		{"no object", "I cannot help with that.", "", ErrNoJSON},
		{"broken", "{\"a\": }", "", ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ExtractJSON(tt.text)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, obj, tt.wantKey)
		})
	}
}

func TestConvertTree(t *testing.T) {
	obj, err := ExtractJSON(`{"ast": {"name": "Root", "children": [
		{"type": "Assign", "value": "x", "children": [{"name": "Num", "value": 1}]},
		"junk",
		{"children": []}
	]}}`)
	require.NoError(t, err)

	root, err := ConvertTree(obj)
	require.NoError(t, err)
	assert.Equal(t, "Root", root.Type)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "Assign", root.Children[0].Type)
	assert.Equal(t, "x", root.Children[0].Value)
	assert.Equal(t, "1", root.Children[0].Children[0].Value)
	assert.Equal(t, UnknownNodeType, root.Children[1].Type)
}

func TestConvertTree_Limits(t *testing.T) {
	_, err := ConvertTree(map[string]any{})
	assert.ErrorIs(t, err, ErrUnexpectedShape)

	deep := map[string]any{"name": "leaf"}
	for i := 0; i < anomaly.MaxTraversalDepth+5; i++ {
		deep = map[string]any{"name": "n", "children": []any{deep}}
	}
	_, err = ConvertTree(deep)
	assert.ErrorIs(t, err, ErrUnexpectedShape)
}

func TestGenerator_Artifacts(t *testing.T) {
	client := &promptRouter{replies: map[string]string{
		"parse tree": "```json\n{\"name\": \"Program\", \"children\": [{\"name\": \"Stmt\"}, {\"name\": \"Stmt\"}]}\n```",
		"bytecode representation": `{"bytecode": "LOAD x\nJMP 0\n\nRET"}`,
	}}
	g := NewGenerator(client, nil)

	sub, err := g.Artifacts(context.Background(), "x = x + 1", LangPython)
	require.NoError(t, err)
	assert.Equal(t, "x = x + 1", sub.Code)
	assert.NotEmpty(t, sub.Tokens)
	require.NotNil(t, sub.AST)
	assert.Equal(t, "Program", sub.AST.Type)
	assert.Equal(t, []string{"LOAD x", "JMP 0", "RET"}, sub.Bytecode)

	report, err := anomaly.Analyze(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, report.TotalAnomalies, len(report.Anomalies))
}

func TestGenerator_TextArtifacts(t *testing.T) {
	client := &promptRouter{replies: map[string]string{
		"intermediate code": `{"code": "t1 = a + b"}`,
		"three-pass":        `{"listing": ["MOV A, 1"]}`,
	}}
	g := NewGenerator(client, nil)

	ic, err := g.IntermediateCode(context.Background(), "a+b", LangJava)
	require.NoError(t, err)
	assert.Equal(t, "t1 = a + b", ic)

	asm, err := g.Assembly(context.Background(), "a+b", LangCPP)
	require.NoError(t, err)
	assert.Contains(t, asm, `"listing"`)
}

func TestGenerator_OptimizedBytecode(t *testing.T) {
	client := &promptRouter{replies: map[string]string{
		"Optimize": `{"optimized_bytecode": ["LOAD x", "RET"]}`,
	}}
	out, err := NewGenerator(client, nil).WithModel("gemini-1.5-flash").
		OptimizedBytecode(context.Background(), "x", []string{"LOAD x", "STORE x", "LOAD x", "RET"})
	require.NoError(t, err)
	assert.Equal(t, []string{"LOAD x", "RET"}, out)
	assert.Equal(t, []string{"gemini-1.5-flash"}, client.models)
}

func TestGenerator_Errors(t *testing.T) {
	t.Run("model error propagates", func(t *testing.T) {
		g := NewGenerator(&promptRouter{err: llm.ErrQuotaExceeded}, nil)
		_, err := g.Bytecode(context.Background(), "x", LangJava)
		assert.ErrorIs(t, err, llm.ErrQuotaExceeded)
	})

	t.Run("no json", func(t *testing.T) {
		g := NewGenerator(&promptRouter{replies: map[string]string{"": "nope"}}, nil)
		_, err := g.ParseTree(context.Background(), "x", LangJava)
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("missing field", func(t *testing.T) {
		g := NewGenerator(&promptRouter{replies: map[string]string{"": `{"other": 1}`}}, nil)
		_, err := g.Bytecode(context.Background(), "x", LangJava)
		assert.ErrorIs(t, err, ErrUnexpectedShape)
	})

	t.Run("artifacts fails as a whole", func(t *testing.T) {
		g := NewGenerator(&promptRouter{err: errors.New("boom")}, nil)
		_, err := g.Artifacts(context.Background(), "x", LangJava)
		assert.Error(t, err)
	})
}
