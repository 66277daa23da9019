// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AleutianAI/compilerlens/pkg/ux"
	"github.com/AleutianAI/compilerlens/services/anomaly"
	"github.com/AleutianAI/compilerlens/services/artifacts"
	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/spf13/cobra"
)

const (
	formatJSON = "json"
	formatText = "text"
)

var errUnknownFormat = errors.New("format must be json or text")

func newAnalyzeCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "analyze [payload.json]",
		Short: "Run the anomaly engine over a JSON payload",
		Long: `Reads {"code", "tokens", "ast", "bytecode"} from the given file, or from
stdin when the argument is "-" or absent, and prints the analysis.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()
			return runAnalyze(cmd.Context(), in, cmd.OutOrStdout(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatJSON, "output format: json or text")
	return cmd
}

func newTokenizeCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "tokenize [source]",
		Short: "Tokenize a source file with the built-in lexer",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, args)
			if err != nil {
				return err
			}
			defer closeIn()
			code, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("read source: %w", err)
			}
			tokens := artifacts.Tokenize(string(code), artifacts.ParseLanguage(lang))
			return writeJSON(cmd.OutOrStdout(), tokens)
		},
	}
	cmd.Flags().StringVarP(&lang, "lang", "l", string(artifacts.LangJava), "source language: java, cpp or python")
	return cmd
}

// openInput returns the named file, or the command's stdin for "-" or no
// argument.
func openInput(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", args[0], err)
	}
	return f, func() { _ = f.Close() }, nil
}

func runAnalyze(ctx context.Context, in io.Reader, out io.Writer, format string) error {
	if format != formatJSON && format != formatText {
		return errUnknownFormat
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var req datatypes.AnalysisRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := req.Validate(); err != nil {
		if datatypes.IsOversize(err) {
			return fmt.Errorf("code exceeds %d bytes", datatypes.MaxCodeBytes)
		}
		return errors.New(datatypes.MissingFieldsMessage)
	}

	report, err := anomaly.Analyze(ctx, req.Submission())
	if err != nil {
		return err
	}

	if format == formatText {
		return ux.NewReportRenderer(out).Render(report)
	}
	return writeJSON(out, report)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
