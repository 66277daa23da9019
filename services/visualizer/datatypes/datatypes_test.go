// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAnalysis(t *testing.T, body string) *AnalysisRequest {
	t.Helper()
	var req AnalysisRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func TestAnalysisRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"complete", `{"code":"x","tokens":[],"ast":{"type":"Program"},"bytecode":[]}`, false},
		{"code optional", `{"tokens":[],"ast":{"type":"Program"},"bytecode":[]}`, false},
		{"tokens missing", `{"ast":{"type":"Program"},"bytecode":[]}`, true},
		{"tokens null", `{"tokens":null,"ast":{"type":"Program"},"bytecode":[]}`, true},
		{"ast missing", `{"tokens":[],"bytecode":[]}`, true},
		{"bytecode missing", `{"tokens":[],"ast":{"type":"Program"}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeAnalysis(t, tt.body).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAnalysisRequest_CodeTooLarge(t *testing.T) {
	req := decodeAnalysis(t, `{"tokens":[],"ast":{"type":"P"},"bytecode":[]}`)
	req.Code = strings.Repeat("a", MaxCodeBytes+1)
	assert.Error(t, req.Validate())
}

func TestAnalysisRequest_Submission(t *testing.T) {
	req := decodeAnalysis(t, `{"code":"c","tokens":[{"type":"IDENTIFIER","value":"x"}],"ast":{"type":"P"},"bytecode":["RETURN"]}`)
	sub := req.Submission()
	assert.Equal(t, "c", sub.Code)
	require.Len(t, sub.Tokens, 1)
	assert.Equal(t, "x", sub.Tokens[0].Value)
	assert.Equal(t, "P", sub.AST.Type)
	assert.Equal(t, []string{"RETURN"}, sub.Bytecode)
}

func TestSaveSessionRequest(t *testing.T) {
	req := &SaveSessionRequest{Code: "int x;"}
	require.NoError(t, req.Validate())
	req.EnsureDefaults("me@example.com")
	assert.Len(t, req.ID, 36)
	assert.Equal(t, "me@example.com", req.Email)

	kept := &SaveSessionRequest{ID: "fixed", Email: "other@example.com"}
	kept.EnsureDefaults("me@example.com")
	assert.Equal(t, "fixed", kept.ID)
	assert.Equal(t, "other@example.com", kept.Session().Email)

	bad := &SaveSessionRequest{Email: "nope"}
	assert.Error(t, bad.Validate())
}

func TestUpdateSessionRequest_RequiresID(t *testing.T) {
	assert.Error(t, (&UpdateSessionRequest{Code: "x"}).Validate())
	assert.NoError(t, (&UpdateSessionRequest{ID: "a", Code: "x"}).Validate())
}

func TestArtifactRequest_Validate(t *testing.T) {
	assert.NoError(t, (&ArtifactRequest{Code: "x"}).Validate())
	assert.NoError(t, (&ArtifactRequest{Code: "x", Language: "python"}).Validate())
	assert.Error(t, (&ArtifactRequest{Code: "x", Language: "rust"}).Validate())
	assert.Error(t, (&ArtifactRequest{}).Validate())
}

func TestMeResponse_NullEmail(t *testing.T) {
	data, err := json.Marshal(MeResponse{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":null}`, string(data))
}

func TestIsOversize(t *testing.T) {
	big := &ArtifactRequest{Code: strings.Repeat("x", MaxCodeBytes+1)}
	assert.True(t, IsOversize(big.Validate()))
	assert.False(t, IsOversize((&ArtifactRequest{}).Validate()))
	assert.False(t, IsOversize(nil))
}

func TestBindErrorDetail(t *testing.T) {
	var req AnalysisRequest
	err := json.Unmarshal([]byte(`{"bytecode": [1, 2]}`), &req)
	assert.Equal(t, "field bytecode: expected string, got number", BindErrorDetail(err))

	err = json.Unmarshal([]byte(`{"ast": "Program"}`), &req)
	assert.Equal(t, "field ast: expected object, got string", BindErrorDetail(err))

	err = json.Unmarshal([]byte(`{"tokens": }`), &req)
	assert.Contains(t, BindErrorDetail(err), "malformed JSON at offset")

	err = json.NewDecoder(strings.NewReader(`{"tokens": [`)).Decode(&req)
	assert.Equal(t, "incomplete JSON body", BindErrorDetail(err))

	assert.Empty(t, BindErrorDetail(req.Validate()))
}
