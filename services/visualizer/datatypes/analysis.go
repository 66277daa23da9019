// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the request and response bodies of the
// visualizer HTTP API.
package datatypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/go-openapi/strfmt"
	"github.com/go-playground/validator/v10"
)

// MaxCodeBytes bounds the source text accepted by any endpoint.
const MaxCodeBytes = 512 * 1024

// =============================================================================
// Shared Validator Instance
// =============================================================================

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes checks byte length, not rune count.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxCodeBytes
}

// IsOversize reports whether err is a validation failure of a maxbytes
// field.
func IsOversize(err error) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == "maxbytes" {
			return true
		}
	}
	return false
}

// =============================================================================
// Anomaly Analysis
// =============================================================================

// MissingFieldsMessage is the error text for an incomplete analysis request.
const MissingFieldsMessage = "Missing required fields: tokens, ast, bytecode"

// AnalysisRequest is the body of POST /api/compilerAnomalyAnalysis.
//
// # Description
//
// Tokens, AST and Bytecode are pointers so that an absent or null field can
// be told apart from an empty one: an empty token list is a valid
// submission, a missing one is not.
//
// # Validation
//
//   - Tokens, AST, Bytecode: required (non-null)
//   - Code: optional, at most MaxCodeBytes
type AnalysisRequest struct {
	Code     string           `json:"code" validate:"maxbytes"`
	Tokens   *[]anomaly.Token `json:"tokens" validate:"required"`
	AST      *anomaly.ASTNode `json:"ast" validate:"required"`
	Bytecode *[]string        `json:"bytecode" validate:"required"`
}

// Validate checks the request after binding.
func (r *AnalysisRequest) Validate() error {
	return validate.Struct(r)
}

// Submission converts the validated request for the engine.
func (r *AnalysisRequest) Submission() anomaly.Submission {
	sub := anomaly.Submission{Code: r.Code, AST: r.AST}
	if r.Tokens != nil {
		sub.Tokens = *r.Tokens
	}
	if r.Bytecode != nil {
		sub.Bytecode = *r.Bytecode
	}
	return sub
}

// AnalysisResponse is the success body.
type AnalysisResponse struct {
	Success   bool                             `json:"success"`
	Analysis  *anomaly.CompilerAnomalyAnalysis `json:"analysis"`
	Timestamp strfmt.DateTime                  `json:"timestamp"`
}

// AnalysisFailure is the body returned when the engine fails.
type AnalysisFailure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MissingFields is the 400 body for incomplete or malformed requests.
// Detail names the offending field when the body did not decode.
type MissingFields struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// BindErrorDetail describes a JSON decode failure, e.g.
// "field bytecode: expected string, got number". It returns "" for errors
// that did not come from decoding.
func BindErrorDetail(err error) string {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return fmt.Sprintf("field %s: expected %s, got %s", field, jsonKind(typeErr.Type), typeErr.Value)
	case errors.As(err, &syntaxErr):
		return fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return "incomplete JSON body"
	default:
		return ""
	}
}

// jsonKind names t the way JSON does.
func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	default:
		return t.String()
	}
}

// EndpointInfo is the body of GET /api/compilerAnomalyAnalysis.
type EndpointInfo struct {
	Endpoint     string                `json:"endpoint"`
	Method       string                `json:"method"`
	Description  string                `json:"description"`
	AnomalyTypes []anomaly.AnomalyType `json:"anomalyTypes"`
}
