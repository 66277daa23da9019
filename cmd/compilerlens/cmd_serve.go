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
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AleutianAI/compilerlens/pkg/logging"
	"github.com/AleutianAI/compilerlens/services/visualizer"
	"github.com/AleutianAI/compilerlens/services/visualizer/config"
	"github.com/AleutianAI/compilerlens/services/visualizer/observability"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	configPath string
	port       int
	inMemory   bool
}

func newServeCmd() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the visualizer HTTP backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "listen port (overrides config)")
	cmd.Flags().BoolVar(&opts.inMemory, "in-memory", false, "keep sessions in memory only")
	return cmd
}

// loadServeConfig applies command-line overrides on top of config.Load.
func loadServeConfig(opts *serveOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if opts.inMemory {
		cfg.Storage.InMemory = true
	}
	return cfg, cfg.Validate()
}

// newLogger writes JSON when stderr is not a terminal, so container log
// collectors get structured records.
func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Dir,
		Service: "compilerlens",
		JSON:    cfg.JSON || !isatty.IsTerminal(os.Stderr.Fd()),
	}), nil
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := loadServeConfig(opts)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	if cfg.Tracing.Enabled {
		shutdown, err := observability.InitTracer(os.Stdout, version)
		if err != nil {
			return fmt.Errorf("init tracer: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracer shutdown failed", "error", err)
			}
		}()
	}

	srv, err := visualizer.New(cfg, logger.Slog(), version)
	if err != nil {
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("session store close failed", "error", err)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
