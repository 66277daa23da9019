// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package artifacts produces the compiler artifacts that the anomaly engine
// inspects.
//
// # Description
//
// Tokens come from a local regex scanner. Parse trees, bytecode, optimized
// bytecode, intermediate code and assembly are requested from a generative
// model and parsed out of its JSON reply. Without a model, parse trees come
// from the local tree-sitter grammars instead. Model replies are untrusted:
// fences and surrounding prose are stripped, and oversized trees are
// rejected before they reach the anomaly passes.
//
// # Thread Safety
//
// Generator is safe for concurrent use when its LLMClient is.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/llm"
)

var tracer = otel.Tracer("compilerlens.artifacts")

// Generator requests artifacts from a model.
type Generator struct {
	client llm.LLMClient
	params llm.GenerationParams
	logger *slog.Logger
}

// NewGenerator wraps client. client may be nil, in which case every model
// artifact fails with llm.ErrNotConfigured. logger may be nil.
func NewGenerator(client llm.LLMClient, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	temperature := float32(0.2)
	return &Generator{
		client: client,
		params: llm.GenerationParams{Temperature: &temperature},
		logger: logger.With("component", "artifacts"),
	}
}

// WithModel returns a copy that requests model first.
func (g *Generator) WithModel(model string) *Generator {
	cp := *g
	cp.params.Model = model
	return &cp
}

// ask sends prompt and decodes the reply's JSON object.
func (g *Generator) ask(ctx context.Context, artifact, prompt string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "artifacts."+artifact)
	defer span.End()

	if g.client == nil {
		return nil, fmt.Errorf("generate %s: %w", artifact, llm.ErrNotConfigured)
	}

	start := time.Now()
	reply, err := g.client.Generate(ctx, prompt, g.params)
	if err != nil {
		g.logger.Warn("model call failed", "artifact", artifact, "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("generate %s: %w", artifact, err)
	}
	span.SetAttributes(attribute.Int("reply.bytes", len(reply)))

	obj, err := ExtractJSON(reply)
	if err != nil {
		g.logger.Warn("unparseable model reply", "artifact", artifact, "reply_bytes", len(reply), "error", err)
		span.RecordError(err)
		return nil, fmt.Errorf("parse %s: %w", artifact, err)
	}

	g.logger.Debug("artifact generated", "artifact", artifact, "duration_ms", time.Since(start).Milliseconds())
	return obj, nil
}

// Tokens runs the local scanner. It never calls the model.
func (g *Generator) Tokens(code string, lang Language) []anomaly.Token {
	return Tokenize(code, lang)
}

// ParseTree requests a parse tree for code. When no model is configured
// the tree comes from LocalParseTree.
func (g *Generator) ParseTree(ctx context.Context, code string, lang Language) (*anomaly.ASTNode, error) {
	obj, err := g.ask(ctx, "parse_tree", parseTreePrompt(code, lang))
	if errors.Is(err, llm.ErrNotConfigured) {
		g.logger.Debug("using local parse tree", "language", lang)
		return LocalParseTree(ctx, code, lang)
	}
	if err != nil {
		return nil, err
	}
	return ConvertTree(obj)
}

// Bytecode requests a bytecode listing for code.
func (g *Generator) Bytecode(ctx context.Context, code string, lang Language) ([]string, error) {
	obj, err := g.ask(ctx, "bytecode", bytecodePrompt(code, lang))
	if err != nil {
		return nil, err
	}
	return instructionList(obj, "bytecode")
}

// OptimizedBytecode asks the model to optimize an existing listing.
func (g *Generator) OptimizedBytecode(ctx context.Context, code string, bytecode []string) ([]string, error) {
	obj, err := g.ask(ctx, "optimized_bytecode", optimizedBytecodePrompt(code, bytecode))
	if err != nil {
		return nil, err
	}
	return instructionList(obj, "optimized_bytecode", "bytecode")
}

// IntermediateCode requests single-pass intermediate code.
func (g *Generator) IntermediateCode(ctx context.Context, code string, lang Language) (string, error) {
	obj, err := g.ask(ctx, "intermediate_code", intermediateCodePrompt(code, lang))
	if err != nil {
		return "", err
	}
	return textArtifact(obj, "assembly", "code", "output"), nil
}

// Assembly requests three-pass assembly.
func (g *Generator) Assembly(ctx context.Context, code string, lang Language) (string, error) {
	obj, err := g.ask(ctx, "assembly", assemblyPrompt(code, lang))
	if err != nil {
		return "", err
	}
	return textArtifact(obj, "assembly", "code", "output"), nil
}

// Artifacts assembles a complete anomaly.Submission for code: local tokens
// plus a model-generated tree and bytecode, requested concurrently. Without
// a model the tree is local and the bytecode is empty.
func (g *Generator) Artifacts(ctx context.Context, code string, lang Language) (anomaly.Submission, error) {
	sub := anomaly.Submission{Code: code, Tokens: Tokenize(code, lang)}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		tree, err := g.ParseTree(egCtx, code, lang)
		if err != nil {
			return err
		}
		sub.AST = tree
		return nil
	})
	eg.Go(func() error {
		bc, err := g.Bytecode(egCtx, code, lang)
		if errors.Is(err, llm.ErrNotConfigured) {
			sub.Bytecode = []string{}
			return nil
		}
		if err != nil {
			return err
		}
		sub.Bytecode = bc
		return nil
	})
	if err := eg.Wait(); err != nil {
		return anomaly.Submission{}, err
	}
	return sub, nil
}
