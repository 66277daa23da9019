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
	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/go-openapi/strfmt"
)

// ArtifactRequest is the body of every POST /api/artifacts/* route.
//
// # Validation
//
//   - Code: required, at most MaxCodeBytes
//   - Language: optional, one of java, cpp, python (default java)
//   - Bytecode: only read by the optimized route
type ArtifactRequest struct {
	Code     string   `json:"code" validate:"required,maxbytes"`
	Language string   `json:"language" validate:"omitempty,oneof=java cpp python"`
	Model    string   `json:"model" validate:"omitempty,max=128"`
	Bytecode []string `json:"bytecode" validate:"omitempty,max=10000"`
}

// Validate checks the request after binding.
func (r *ArtifactRequest) Validate() error {
	return validate.Struct(r)
}

type TokensResponse struct {
	Tokens []anomaly.Token `json:"tokens"`
}

type TreeResponse struct {
	AST *anomaly.ASTNode `json:"ast"`
}

type BytecodeResponse struct {
	Bytecode []string `json:"bytecode"`
}

// TextResponse carries intermediate code or assembly.
type TextResponse struct {
	Output string `json:"output"`
}

// ArtifactAnalysisResponse is returned by /api/artifacts/analyze: the
// generated artifacts and the report computed from them.
type ArtifactAnalysisResponse struct {
	Success   bool                             `json:"success"`
	Tokens    []anomaly.Token                  `json:"tokens"`
	AST       *anomaly.ASTNode                 `json:"ast"`
	Bytecode  []string                         `json:"bytecode"`
	Analysis  *anomaly.CompilerAnomalyAnalysis `json:"analysis"`
	Timestamp strfmt.DateTime                  `json:"timestamp"`
}

// ErrorResponse is the error body of routes that do not preserve a legacy
// wire shape.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string          `json:"status"`
	Version       string          `json:"version"`
	Timestamp     strfmt.DateTime `json:"timestamp"`
	LLMConfigured bool            `json:"llm_configured"`
	ModelLoaded   bool            `json:"model_loaded"`
	Storage       string          `json:"storage"`
}
