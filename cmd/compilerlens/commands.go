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
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "compilerlens",
		Short: "Heuristic anomaly detection for compiler pipeline artifacts",
		Long: `compilerlens inspects the tokens, syntax tree and bytecode produced
for a program and reports lexical, syntactic, semantic and control-flow
anomalies. It also serves the HTTP backend used by the visualizer.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// --- Server ---
	root.AddCommand(newServeCmd())

	// --- Offline tools ---
	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newTokenizeCmd())

	return root
}
