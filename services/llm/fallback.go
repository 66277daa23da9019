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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/fortify/timeout"
	"golang.org/x/time/rate"
)

// FallbackModels are tried after the configured models, in this order.
var FallbackModels = []string{
	"gemini-2.5-flash-lite",
	"gemini-1.5-flash",
	"gemini-1.5-flash-lite",
}

// FallbackConfig configures a FallbackClient.
type FallbackConfig struct {
	// DefaultModel is tried first when the call does not request a model.
	DefaultModel string

	// ExtraModels are tried next. Entries may be comma-separated lists.
	ExtraModels []string

	// RetryAttempts is the number of extra attempts per model for
	// overloaded errors. 0 means the default of 1; negative disables.
	RetryAttempts int

	// RetryDelay is the pause before a retry. Default 600ms.
	RetryDelay time.Duration

	// AttemptTimeout bounds a single call. 0 means only ctx applies.
	AttemptTimeout time.Duration

	// RequestsPerSecond and Burst throttle outgoing calls across all
	// models. RequestsPerSecond <= 0 disables throttling.
	RequestsPerSecond float64
	Burst             int

	// OnAttempt, if set, observes every attempt. err is nil on success.
	OnAttempt func(model string, err error)

	Logger *slog.Logger
}

// FallbackClient wraps an LLMClient and walks a list of candidate models,
// retrying overloaded models once before moving on.
//
// # Thread Safety
//
// Safe for concurrent use when the wrapped client is.
type FallbackClient struct {
	inner   LLMClient
	cfg     FallbackConfig
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewFallbackClient wraps inner. A nil inner yields a client whose calls
// fail with ErrNotConfigured.
func NewFallbackClient(inner LLMClient, cfg FallbackConfig) *FallbackClient {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	} else if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 600 * time.Millisecond
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &FallbackClient{
		inner:   inner,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.With("component", "llm_fallback"),
	}
}

// Configured reports whether a backing client is present.
func (f *FallbackClient) Configured() bool {
	return f != nil && f.inner != nil
}

// Candidates returns the ordered, de-duplicated list of models to try.
//
// A requested model replaces the default; extra and fallback models always
// follow. Blank entries are dropped.
func Candidates(requested, defaultModel string, extra []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(list string) {
		for _, m := range strings.Split(list, ",") {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			out = append(out, m)
		}
	}

	if strings.TrimSpace(requested) != "" {
		add(requested)
	} else {
		add(defaultModel)
	}
	for _, e := range extra {
		add(e)
	}
	add(strings.Join(FallbackModels, ","))
	return out
}

// Generate implements LLMClient.
//
// # Description
//
// For each candidate model the call is attempted up to RetryAttempts+1
// times; only overloaded errors are retried. Any other failure moves on to
// the next model. The error of the last attempt is returned when every
// model fails. Cancellation of ctx stops immediately.
func (f *FallbackClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if !f.Configured() {
		return "", ErrNotConfigured
	}

	candidates := Candidates(params.Model, f.cfg.DefaultModel, f.cfg.ExtraModels)
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	var lastErr error
	for _, model := range candidates {
		text, err := f.tryModel(ctx, model, prompt, params)
		if err == nil {
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		lastErr = err
		f.logger.Warn("model failed, trying next candidate", "model", model, "error", err)
	}
	return "", fmt.Errorf("all %d model candidates failed: %w", len(candidates), lastErr)
}

func (f *FallbackClient) tryModel(ctx context.Context, model, prompt string, params GenerationParams) (string, error) {
	params.Model = model

	r := retry.New[string](retry.Config{
		MaxAttempts:   f.cfg.RetryAttempts + 1,
		InitialDelay:  f.cfg.RetryDelay,
		BackoffPolicy: retry.BackoffExponential,
	})

	var (
		text      string
		succeeded bool
		terminal  error
		lastErr   error
	)
	_, retryErr := r.Do(ctx, func(ctx context.Context) (string, error) {
		if err := f.limiter.Wait(ctx); err != nil {
			terminal = err
			return "", nil
		}

		out, err := f.attempt(ctx, prompt, params)
		if f.cfg.OnAttempt != nil {
			f.cfg.OnAttempt(model, err)
		}
		if err == nil {
			text, succeeded = out, true
			return out, nil
		}

		lastErr = err
		if IsRetryable(err) {
			return "", err
		}
		// Stop retrying this model; the caller moves on.
		terminal = err
		return "", nil
	})

	switch {
	case succeeded:
		return text, nil
	case terminal != nil:
		return "", terminal
	case lastErr != nil:
		return "", lastErr
	case retryErr != nil:
		return "", retryErr
	default:
		return "", errors.New("model attempt produced no result")
	}
}

func (f *FallbackClient) attempt(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if f.cfg.AttemptTimeout <= 0 {
		return f.inner.Generate(ctx, prompt, params)
	}
	t := timeout.New[string](timeout.Config{DefaultTimeout: f.cfg.AttemptTimeout})
	return t.Execute(ctx, f.cfg.AttemptTimeout, func(ctx context.Context) (string, error) {
		return f.inner.Generate(ctx, prompt, params)
	})
}
