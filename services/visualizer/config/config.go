// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads visualizer server configuration.
//
// Priority is env > file > defaults. The file is YAML; a missing file is not
// an error.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth modes.
const (
	AuthModeNone   = "none"
	AuthModeHeader = "header"
)

// Config is the full server configuration.
//
// Thread Safety: Safe to read concurrently. Not safe to modify after creation.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	LLM     LLMConfig     `yaml:"llm"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port int `yaml:"port"`

	// Mode is the gin mode: debug, release or test.
	Mode string `yaml:"mode"`
}

// StorageConfig controls the session store.
type StorageConfig struct {
	Path       string        `yaml:"path"`
	InMemory   bool          `yaml:"in_memory"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// LLMConfig controls the artifact model client.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Models            []string      `yaml:"models"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	Timeout           time.Duration `yaml:"timeout"`
}

// Enabled reports whether an API key is present.
func (c LLMConfig) Enabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// AuthConfig selects the identity provider.
type AuthConfig struct {
	Mode string `yaml:"mode"`

	// Header carries the caller's e-mail address in header mode.
	Header string `yaml:"header"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port: 8080,
			Mode: "release",
		},
		Storage: StorageConfig{
			Path:       "~/.compilerlens/data",
			GCInterval: 10 * time.Minute,
		},
		LLM: LLMConfig{
			RetryAttempts:     1,
			RetryDelay:        600 * time.Millisecond,
			RequestsPerSecond: 2,
			Burst:             4,
			Timeout:           60 * time.Second,
		},
		Auth: AuthConfig{
			Mode:   AuthModeNone,
			Header: "X-User-Email",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration with priority: env > file > defaults.
//
// # Inputs
//
//   - path: YAML file. Empty or missing means defaults only.
//
// # Outputs
//
//   - Config: Merged configuration. Storage.Path is home-expanded.
//   - error: Unreadable or unparseable file, or failed validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg)
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GEMINI_MODELS"); v != "" {
		cfg.LLM.Models = append(cfg.LLM.Models, v)
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("COMPILERLENS_PORT"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = i
		}
	}
	if v := os.Getenv("COMPILERLENS_DATA_DIR"); v != "" {
		cfg.Storage.Path = v
	}
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	if c.Storage.GCInterval < 0 {
		return errors.New("storage.gc_interval must not be negative")
	}
	if c.LLM.RetryDelay < 0 || c.LLM.Timeout < 0 {
		return errors.New("llm durations must not be negative")
	}
	if c.LLM.RequestsPerSecond < 0 {
		return errors.New("llm.requests_per_second must not be negative")
	}
	switch c.Auth.Mode {
	case AuthModeNone:
	case AuthModeHeader:
		if strings.TrimSpace(c.Auth.Header) == "" {
			return errors.New("auth.header is required in header mode")
		}
	default:
		return fmt.Errorf("auth.mode must be %q or %q, got %q", AuthModeNone, AuthModeHeader, c.Auth.Mode)
	}
	return nil
}

// Addr is the listen address for the server.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Server.Port)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home + path[1:]
	}
	return path
}
