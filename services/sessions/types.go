// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sessions persists editor sessions: the source a user is working
// on in the compiler view or the interpreter view.
package sessions

import (
	"errors"
	"fmt"
)

// Kind separates compiler sessions from interpreter sessions. The two kinds
// share an id space per kind only; the same id may exist in both.
type Kind string

const (
	KindCompiler    Kind = "compiler"
	KindInterpreter Kind = "interpreter"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCompiler || k == KindInterpreter
}

// Session is one saved editor buffer.
type Session struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Email string `json:"email"`
}

var (
	// ErrSessionNotFound is returned when no session has the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned by Create for a duplicate id.
	ErrSessionExists = errors.New("session already exists")

	// ErrInvalidSession is returned for an empty id or unknown kind.
	ErrInvalidSession = errors.New("invalid session")
)

func validate(kind Kind, id string) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q: %w", kind, ErrInvalidSession)
	}
	if id == "" {
		return fmt.Errorf("empty id: %w", ErrInvalidSession)
	}
	return nil
}
