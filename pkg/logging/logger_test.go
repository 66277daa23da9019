// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{" warning ", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestLogger_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "visualizer", Output: &buf})
	defer logger.Close()

	logger.Info("analysis complete", "total", 3)

	out := buf.String()
	for _, want := range []string{"analysis complete", "total=3", "service=visualizer"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("debug-msg")
	logger.Info("info-msg")
	logger.Warn("warn-msg")
	logger.Error("error-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") || strings.Contains(out, "info-msg") {
		t.Errorf("filtered levels leaked: %q", out)
	}
	if !strings.Contains(out, "warn-msg") || !strings.Contains(out, "error-msg") {
		t.Errorf("expected warn and error in %q", out)
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Output: &buf})
	logger.Info("hello", "key", "value")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["key"] != "value" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestLogger_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Quiet: true, Output: &buf})
	logger.Error("nothing")
	if buf.Len() != 0 {
		t.Errorf("quiet logger wrote %q", buf.String())
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	child := logger.With("request_id", "abc")
	child.Info("child")
	logger.Info("parent")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "request_id=abc") {
		t.Errorf("child line missing attr: %q", lines[0])
	}
	if strings.Contains(lines[1], "request_id") {
		t.Errorf("parent line got child attr: %q", lines[1])
	}
}

func TestLogger_Slog(t *testing.T) {
	logger := New(Config{Quiet: true})
	if logger.Slog() == nil {
		t.Fatal("Slog() returned nil")
	}
}

func TestLogger_FileLogging(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger := New(Config{LogDir: dir, Service: "cli", Output: &buf})
	logger.Info("to file", "n", 1)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	path := filepath.Join(dir, LogFileName("cli", time.Now()))
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"to file"`) {
		t.Errorf("file missing JSON record: %q", data)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Errorf("console missing record: %q", buf.String())
	}

	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestLogger_FileLogging_DefaultServiceName(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{LogDir: dir, Quiet: true})
	logger.Info("x")
	_ = logger.Close()

	if _, err := os.Stat(filepath.Join(dir, LogFileName("compilerlens", time.Now()))); err != nil {
		t.Errorf("expected default-named log file: %v", err)
	}
}

func TestLogger_InvalidLogDirFallsBack(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := New(Config{LogDir: filepath.Join(blocker, "sub"), Output: &buf})
	logger.Info("still works")
	if !strings.Contains(buf.String(), "still works") {
		t.Errorf("console logging lost: %q", buf.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir()})
	defer logger.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.With("worker", n).Info("tick")
		}(i)
	}
	wg.Wait()
}

// =============================================================================
// Multi-Handler Tests
// =============================================================================

func TestMultiHandler_FanOut(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected Debug enabled by first handler")
	}

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("k", "v")}))
	logger.Info("info")
	logger.Error("error")

	if !strings.Contains(a.String(), "info") || !strings.Contains(a.String(), "error") {
		t.Errorf("first handler missing records: %q", a.String())
	}
	if strings.Contains(b.String(), "msg=info") {
		t.Errorf("second handler should filter info: %q", b.String())
	}
	if !strings.Contains(b.String(), "k=v") {
		t.Errorf("attrs not propagated: %q", b.String())
	}
}

func TestMultiHandler_WithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{slog.NewTextHandler(&buf, nil)}}
	slog.New(h.WithGroup("req")).Info("m", "id", 1)
	if !strings.Contains(buf.String(), "req.id=1") {
		t.Errorf("group not applied: %q", buf.String())
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/logs"); got != filepath.Join(home, "logs") {
		t.Errorf("expandPath(~/logs) = %q", got)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath(/var/log) = %q", got)
	}
}
