// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrQuotaExceeded means the provider rejected the call for quota or
	// rate reasons (HTTP 429). Not retried on the same model.
	ErrQuotaExceeded = errors.New("API_QUOTA_EXCEEDED")

	// ErrModelOverloaded means the model is temporarily unavailable
	// (HTTP 503). Retried once, then the next model is tried.
	ErrModelOverloaded = errors.New("MODEL_OVERLOADED")

	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNotConfigured means no API key was supplied.
	ErrNotConfigured = errors.New("model client is not configured: set GEMINI_API_KEY")

	// ErrNoCandidates means the candidate model list was empty.
	ErrNoCandidates = errors.New("no model candidates available")
)

// statusOf extracts an HTTP status from go-openai errors, 0 if unknown.
func statusOf(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// Classify maps a provider error onto ErrQuotaExceeded or
// ErrModelOverloaded when it is one of those conditions. Other errors are
// returned unchanged. The original message is kept after the sentinel.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrQuotaExceeded) || errors.Is(err, ErrModelOverloaded) {
		return err
	}

	msg := strings.ToLower(err.Error())
	status := statusOf(err)

	switch {
	case status == http.StatusTooManyRequests || strings.Contains(msg, "quota") || strings.Contains(msg, "429"):
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	case status == http.StatusServiceUnavailable ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "503"):
		return fmt.Errorf("%w: %v", ErrModelOverloaded, err)
	default:
		return err
	}
}

// IsRetryable reports whether err warrants another attempt on the same
// model.
func IsRetryable(err error) bool {
	return errors.Is(Classify(err), ErrModelOverloaded)
}

// IsQuota reports whether err is a quota or rate rejection.
func IsQuota(err error) bool {
	return errors.Is(Classify(err), ErrQuotaExceeded)
}
