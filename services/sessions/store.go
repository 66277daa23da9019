// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	kv "github.com/AleutianAI/compilerlens/services/storage/badger"
)

// Key layout:
//
//	s/<kind>/<id>                 -> Session JSON
//	e/<kind>/<email>\x00<id>      -> empty (email index)
//
// The NUL separator keeps "a@x.io" from prefix-matching "a@x.io.uk".
func sessionKey(kind Kind, id string) []byte {
	return []byte("s/" + string(kind) + "/" + id)
}

func emailPrefix(kind Kind, email string) []byte {
	return []byte("e/" + string(kind) + "/" + email + "\x00")
}

func emailKey(kind Kind, email, id string) []byte {
	return append(emailPrefix(kind, email), id...)
}

// Store is the badger-backed session repository.
//
// # Thread Safety
//
// Safe for concurrent use. Each operation is a single badger transaction.
type Store struct {
	db     *kv.DB
	logger *slog.Logger
}

// NewStore wraps an opened database. logger may be nil.
func NewStore(db *kv.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With("component", "sessions")}
}

// Create stores a new session.
//
// # Outputs
//
//   - error: ErrSessionExists if the id is taken (including a concurrent
//     create of the same id), ErrInvalidSession for an empty id.
func (s *Store) Create(ctx context.Context, kind Kind, sess Session) error {
	if err := validate(kind, sess.ID); err != nil {
		return err
	}

	err := s.db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		exists, err := kv.Exists(txn, sessionKey(kind, sess.ID))
		if err != nil {
			return err
		}
		if exists {
			return ErrSessionExists
		}
		if err := kv.SetJSON(txn, sessionKey(kind, sess.ID), sess); err != nil {
			return err
		}
		return txn.Set(emailKey(kind, sess.Email, sess.ID), nil)
	})
	if errors.Is(err, badger.ErrConflict) {
		return ErrSessionExists
	}
	if err != nil && !errors.Is(err, ErrSessionExists) {
		s.logger.Error("create session failed", "kind", kind, "error", err)
		return fmt.Errorf("create %s session: %w", kind, err)
	}
	return err
}

// Get loads one session by id.
func (s *Store) Get(ctx context.Context, kind Kind, id string) (*Session, error) {
	if err := validate(kind, id); err != nil {
		return nil, err
	}

	var sess Session
	err := s.db.ViewCtx(ctx, func(txn *badger.Txn) error {
		return kv.GetJSON(txn, sessionKey(kind, id), &sess)
	})
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s session: %w", kind, err)
	}
	return &sess, nil
}

// UpdateCode replaces the code of an existing session. The owner e-mail is
// never changed.
func (s *Store) UpdateCode(ctx context.Context, kind Kind, id, code string) error {
	if err := validate(kind, id); err != nil {
		return err
	}

	err := s.db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		var sess Session
		if err := kv.GetJSON(txn, sessionKey(kind, id), &sess); err != nil {
			return err
		}
		sess.Code = code
		return kv.SetJSON(txn, sessionKey(kind, id), sess)
	})
	if errors.Is(err, kv.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s session: %w", kind, err)
	}
	return nil
}

// ListByEmail returns every session owned by email, ordered by id. An
// unknown e-mail yields an empty, non-nil slice.
func (s *Store) ListByEmail(ctx context.Context, kind Kind, email string) ([]Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidSession)
	}

	out := make([]Session, 0)
	err := s.db.ViewCtx(ctx, func(txn *badger.Txn) error {
		prefix := emailPrefix(kind, email)
		for _, key := range kv.KeysWithPrefix(txn, prefix) {
			id := string(key[len(prefix):])
			var sess Session
			err := kv.GetJSON(txn, sessionKey(kind, id), &sess)
			if errors.Is(err, kv.ErrNotFound) {
				s.logger.Warn("dangling email index entry", "kind", kind, "id", id)
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, sess)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s sessions: %w", kind, err)
	}
	return out, nil
}

// Delete removes a session and its index entry. It reports whether a
// session was removed.
func (s *Store) Delete(ctx context.Context, kind Kind, id string) (bool, error) {
	if err := validate(kind, id); err != nil {
		return false, err
	}

	deleted := false
	err := s.db.UpdateCtx(ctx, func(txn *badger.Txn) error {
		var sess Session
		err := kv.GetJSON(txn, sessionKey(kind, id), &sess)
		if errors.Is(err, kv.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := txn.Delete(sessionKey(kind, id)); err != nil {
			return err
		}
		if err := txn.Delete(emailKey(kind, sess.Email, id)); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete %s session: %w", kind, err)
	}
	return deleted, nil
}
