// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"in memory", InMemoryConfig(), ""},
		{"default needs path", DefaultConfig(), "path is required"},
		{"negative gc", Config{InMemory: true, GCInterval: -time.Second}, "must not be negative"},
		{"bad ratio", Config{Path: "/tmp/x", GCInterval: time.Minute, GCDiscardRatio: 1}, "discard ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOpenInMemory_JSONRoundTrip(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	assert.True(t, db.InMemory())
	require.NoError(t, db.Ping(ctx))

	err = db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		return SetJSON(txn, []byte("r/1"), record{Name: "a", Count: 2})
	})
	require.NoError(t, err)

	var got record
	err = db.ViewCtx(ctx, func(txn *badger.Txn) error {
		return GetJSON(txn, []byte("r/1"), &got)
	})
	require.NoError(t, err)
	assert.Equal(t, record{Name: "a", Count: 2}, got)
}

func TestGetJSON_NotFound(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.ViewCtx(context.Background(), func(txn *badger.Txn) error {
		var r record
		return GetJSON(txn, []byte("missing"), &r)
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestKeysWithPrefix_Ordered(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		for _, k := range []string{"idx/b", "idx/a", "other/z", "idx/c"} {
			if err := txn.Set([]byte(k), nil); err != nil {
				return err
			}
		}
		return nil
	}))

	var keys []string
	require.NoError(t, db.ViewCtx(ctx, func(txn *badger.Txn) error {
		for _, k := range KeysWithPrefix(txn, []byte("idx/")) {
			keys = append(keys, string(k))
		}
		ok, err := Exists(txn, []byte("other/z"))
		assert.True(t, ok)
		return err
	}))
	assert.Equal(t, []string{"idx/a", "idx/b", "idx/c"}, keys)
}

func TestTxn_CancelledContext(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = 50 * time.Millisecond
	ctx := context.Background()

	db, err := Open(cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, db.Path())
	require.NoError(t, db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		return SetJSON(txn, []byte("k"), record{Name: "persisted"})
	}))
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	db2, err := Open(cfg)
	require.NoError(t, err)
	defer db2.Close()

	var got record
	require.NoError(t, db2.ViewCtx(ctx, func(txn *badger.Txn) error {
		return GetJSON(txn, []byte("k"), &got)
	}))
	assert.Equal(t, "persisted", got.Name)
}
