// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/artifacts"
	"github.com/AleutianAI/compilerlens/services/llm"
	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/gin-gonic/gin"
	"github.com/go-openapi/strfmt"
)

// Artifact names accepted under /api/artifacts/.
const (
	ArtifactTokens       = "tokens"
	ArtifactAST          = "ast"
	ArtifactBytecode     = "bytecode"
	ArtifactOptimized    = "optimized"
	ArtifactIntermediate = "intermediate"
	ArtifactAssembly     = "assembly"
)

// ArtifactNames lists the single-artifact routes in registration order.
var ArtifactNames = []string{
	ArtifactTokens,
	ArtifactAST,
	ArtifactBytecode,
	ArtifactOptimized,
	ArtifactIntermediate,
	ArtifactAssembly,
}

// llmErrorStatus maps a generation failure to a status and error code.
func llmErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, "LLM_UNAVAILABLE"
	case llm.IsQuota(err):
		return http.StatusTooManyRequests, "API_QUOTA_EXCEEDED"
	case llm.IsRetryable(err):
		return http.StatusServiceUnavailable, "MODEL_OVERLOADED"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "LLM_TIMEOUT"
	default:
		return http.StatusBadGateway, "LLM_ERROR"
	}
}

// bindArtifactRequest binds and validates the body, writing the error
// response itself. ok is false when the handler should return.
func bindArtifactRequest(c *gin.Context) (req datatypes.ArtifactRequest, ok bool) {
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return req, false
	}
	if err := req.Validate(); err != nil {
		if datatypes.IsOversize(err) {
			c.JSON(http.StatusRequestEntityTooLarge, datatypes.ErrorResponse{
				Error: "code exceeds maximum size",
				Code:  "CODE_TOO_LARGE",
			})
			return req, false
		}
		c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_FAILED",
		})
		return req, false
	}
	return req, true
}

// generatorFor returns the configured generator, or one without a model
// client whose parse trees come from the local grammars.
func (h *Handlers) generatorFor(req datatypes.ArtifactRequest) *artifacts.Generator {
	if h.generator == nil {
		return artifacts.NewGenerator(nil, h.logger)
	}
	if req.Model == "" {
		return h.generator
	}
	return h.generator.WithModel(req.Model)
}

// HandleArtifact returns the handler for POST /api/artifacts/<name>.
//
// # Description
//
// tokens is computed locally and never needs the model. ast uses the model
// when one is configured and the local tree-sitter grammar otherwise. The
// other artifacts are requested from the model through the fallback client.
//
// # Responses
//
//   - 200: TokensResponse, TreeResponse, BytecodeResponse or TextResponse
//   - 400/413: invalid body
//   - 429 API_QUOTA_EXCEEDED, 503 MODEL_OVERLOADED, 503 LLM_UNAVAILABLE,
//     504 LLM_TIMEOUT, 502 LLM_ERROR
func (h *Handlers) HandleArtifact(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleArtifact").With("artifact", name)

		req, ok := bindArtifactRequest(c)
		if !ok {
			return
		}
		lang := artifacts.ParseLanguage(req.Language)

		if name == ArtifactTokens {
			c.JSON(http.StatusOK, datatypes.TokensResponse{Tokens: artifacts.Tokenize(req.Code, lang)})
			return
		}

		gen := h.generatorFor(req)
		ctx := c.Request.Context()
		start := time.Now()
		var (
			body any
			err  error
		)
		switch name {
		case ArtifactAST:
			var tree *anomaly.ASTNode
			tree, err = gen.ParseTree(ctx, req.Code, lang)
			body = datatypes.TreeResponse{AST: tree}
		case ArtifactBytecode:
			var bc []string
			bc, err = gen.Bytecode(ctx, req.Code, lang)
			body = datatypes.BytecodeResponse{Bytecode: bc}
		case ArtifactOptimized:
			bytecode := req.Bytecode
			if len(bytecode) == 0 {
				bytecode, err = gen.Bytecode(ctx, req.Code, lang)
				if err != nil {
					break
				}
			}
			var bc []string
			bc, err = gen.OptimizedBytecode(ctx, req.Code, bytecode)
			body = datatypes.BytecodeResponse{Bytecode: bc}
		case ArtifactIntermediate:
			var out string
			out, err = gen.IntermediateCode(ctx, req.Code, lang)
			body = datatypes.TextResponse{Output: out}
		case ArtifactAssembly:
			var out string
			out, err = gen.Assembly(ctx, req.Code, lang)
			body = datatypes.TextResponse{Output: out}
		default:
			c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "unknown artifact", Code: "NOT_FOUND"})
			return
		}

		if err != nil {
			logger.Warn("Artifact generation failed", "error", err)
			h.writeLLMError(c, err)
			return
		}

		logger.Info("Artifact generated", "language", lang, "duration_ms", time.Since(start).Milliseconds())
		c.JSON(http.StatusOK, body)
	}
}

// HandleGenerateAndAnalyze handles POST /api/artifacts/analyze: local
// tokens plus model-generated tree and bytecode, then the detection passes.
// Without a model the tree is local and the bytecode empty.
func (h *Handlers) HandleGenerateAndAnalyze(c *gin.Context) {
	logger := h.requestLogger(c, "HandleGenerateAndAnalyze")

	req, ok := bindArtifactRequest(c)
	if !ok {
		return
	}
	gen := h.generatorFor(req)
	lang := artifacts.ParseLanguage(req.Language)
	sub, err := gen.Artifacts(c.Request.Context(), req.Code, lang)
	if err != nil {
		logger.Warn("Artifact generation failed", "error", err)
		h.writeLLMError(c, err)
		return
	}

	start := time.Now()
	report, err := anomaly.Analyze(c.Request.Context(), sub)
	h.metrics.RecordAnalysis("generated", report, time.Since(start), err)
	if err != nil {
		logger.Error("Anomaly analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.AnalysisFailure{
			Success: false,
			Error:   analysisFailedMessage,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, datatypes.ArtifactAnalysisResponse{
		Success:   true,
		Tokens:    sub.Tokens,
		AST:       sub.AST,
		Bytecode:  sub.Bytecode,
		Analysis:  report,
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	})
}

func (h *Handlers) writeLLMError(c *gin.Context, err error) {
	status, code := llmErrorStatus(err)
	c.JSON(status, datatypes.ErrorResponse{Error: err.Error(), Code: code})
}
