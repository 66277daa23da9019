// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger opens and manages the embedded BadgerDB store that backs
// saved editor sessions.
//
// # Description
//
// The package wraps badger.DB with:
//   - A Config with production and in-memory presets
//   - A background value-log GC loop stopped by Close
//   - Context-checked transaction helpers
//   - JSON value helpers and prefix iteration used by the session store
//
// # Thread Safety
//
// DB is safe for concurrent use; badger serializes conflicting writes and
// reports them as badger.ErrConflict.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned by GetJSON when the key does not exist.
var ErrNotFound = errors.New("key not found")

// =============================================================================
// Configuration
// =============================================================================

// Config controls how the store is opened.
type Config struct {
	// Path is the data directory. Required unless InMemory is set.
	Path string

	// InMemory keeps everything in RAM. Used by tests and ephemeral runs.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives badger's internal messages. nil silences them.
	Logger *slog.Logger

	// GCInterval is the value-log GC period. 0 disables GC.
	GCInterval time.Duration

	// GCDiscardRatio is the discardable fraction that triggers a rewrite.
	GCDiscardRatio float64
}

// DefaultConfig returns the on-disk preset. Path must still be set.
func DefaultConfig() Config {
	return Config{
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns the test preset.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Validate checks the config before opening.
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return errors.New("path is required for persistent database")
	}
	if c.GCInterval < 0 {
		return errors.New("gc interval must not be negative")
	}
	if c.GCInterval > 0 && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return errors.New("gc discard ratio must be in (0, 1)")
	}
	return nil
}

// slogAdapter satisfies badger.Logger.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Errorf(format string, args ...interface{}) {
	a.logger.Error(fmt.Sprintf(format, args...), "component", "badger")
}

func (a *slogAdapter) Warningf(format string, args ...interface{}) {
	a.logger.Warn(fmt.Sprintf(format, args...), "component", "badger")
}

func (a *slogAdapter) Infof(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

func (a *slogAdapter) Debugf(format string, args ...interface{}) {
	a.logger.Debug(fmt.Sprintf(format, args...), "component", "badger")
}

// =============================================================================
// DB
// =============================================================================

// DB is an opened store.
type DB struct {
	*badger.DB

	cfg       Config
	stopGC    context.CancelFunc
	gcDone    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Open opens the store described by cfg and starts GC when configured.
//
// # Inputs
//
//   - cfg: Store configuration. See Validate for the rules.
//
// # Outputs
//
//   - *DB: The opened store. Close it to stop GC and release files.
//   - error: Invalid config, directory creation or badger open failure.
func Open(cfg Config) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&slogAdapter{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	db := &DB{DB: bdb, cfg: cfg}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		db.stopGC = cancel
		db.gcDone = make(chan struct{})
		go db.gcLoop(ctx)
	}
	return db, nil
}

// OpenInMemory opens a fresh in-memory store.
func OpenInMemory() (*DB, error) {
	return Open(InMemoryConfig())
}

func (d *DB) gcLoop(ctx context.Context) {
	defer close(d.gcDone)

	ticker := time.NewTicker(d.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.collectGarbage()
		}
	}
}

func (d *DB) collectGarbage() {
	err := d.RunValueLogGC(d.cfg.GCDiscardRatio)
	if err == nil || errors.Is(err, badger.ErrNoRewrite) {
		return
	}
	if d.cfg.Logger != nil {
		d.cfg.Logger.Warn("badger value log GC failed", slog.String("error", err.Error()))
	}
}

// InMemory reports whether the store has no disk backing.
func (d *DB) InMemory() bool {
	return d.cfg.InMemory
}

// Path returns the data directory, empty for in-memory stores.
func (d *DB) Path() string {
	return d.cfg.Path
}

// Close stops GC and closes the database. Later calls return the first
// result.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		if d.stopGC != nil {
			d.stopGC()
			<-d.gcDone
		}
		d.closeErr = d.DB.Close()
	})
	return d.closeErr
}

// =============================================================================
// Transactions
// =============================================================================

// UpdateCtx runs fn in a read-write transaction and commits it.
//
// ctx is checked before the transaction starts; badger transactions are
// not interruptible once running.
func (d *DB) UpdateCtx(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return d.DB.Update(fn)
}

// ViewCtx runs fn in a read-only transaction.
func (d *DB) ViewCtx(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return d.DB.View(fn)
}

// Ping performs a read to confirm the store is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.ViewCtx(ctx, func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("\x00ping"))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
}

// =============================================================================
// JSON Helpers
// =============================================================================

// GetJSON loads key into v. Returns ErrNotFound for a missing key.
func GetJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %q: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		return nil
	})
}

// SetJSON stores v under key.
func SetJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	return txn.Set(key, data)
}

// Exists reports whether key is present.
func Exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// KeysWithPrefix returns every key starting with prefix, in key order.
// Values are not fetched.
func KeysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}
