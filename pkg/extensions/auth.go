// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package extensions defines the identity extension point.
//
// The visualizer works without any login: NopAuthProvider treats every
// caller as an anonymous local user. Deployments behind an authenticating
// reverse proxy use HeaderAuthProvider, which trusts the e-mail address the
// proxy forwards. Other identity systems plug in by implementing
// AuthProvider.
//
// # Thread Safety
//
// All implementations must be safe for concurrent use.
package extensions

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrUnauthorized is returned when a credential is rejected.
//
//	return nil, fmt.Errorf("malformed address: %w", extensions.ErrUnauthorized)
var ErrUnauthorized = errors.New("unauthorized")

// LocalUserID identifies the caller when no identity system is configured.
const LocalUserID = "local-user"

// AuthInfo is the identity attached to a request.
type AuthInfo struct {
	// UserID is never empty.
	UserID string

	// Email is the caller's address, empty when unknown.
	Email string
}

// HasEmail reports whether an address is known for the caller.
func (a *AuthInfo) HasEmail() bool {
	return a != nil && a.Email != ""
}

// AuthProvider turns a request credential into an identity.
//
// # Description
//
// The credential is whatever the transport extracted: a bearer token, or
// the value of a trusted header. An empty credential is not an error by
// itself; providers decide whether anonymous callers are allowed.
//
// # Outputs
//
//   - *AuthInfo: Identity on success. Never nil when error is nil.
//   - error: ErrUnauthorized (possibly wrapped) for rejected credentials,
//     other errors for provider failures.
type AuthProvider interface {
	Validate(ctx context.Context, credential string) (*AuthInfo, error)
}

// NopAuthProvider accepts every request as the anonymous local user.
type NopAuthProvider struct{}

// Validate ignores the credential and returns the local user without an
// e-mail address.
func (p *NopAuthProvider) Validate(_ context.Context, _ string) (*AuthInfo, error) {
	return &AuthInfo{UserID: LocalUserID}, nil
}

// HeaderAuthProvider trusts an e-mail address forwarded by a proxy.
//
// # Description
//
// An empty credential yields the anonymous local user. A non-empty one must
// parse as a bare address (user@host); display names and lists are
// rejected. The address is lower-cased and becomes both UserID and Email.
//
// # Limitations
//
// Only safe when the header cannot be set by clients directly.
type HeaderAuthProvider struct{}

// Validate parses credential as an e-mail address.
func (p *HeaderAuthProvider) Validate(_ context.Context, credential string) (*AuthInfo, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return &AuthInfo{UserID: LocalUserID}, nil
	}

	addr, err := mail.ParseAddress(credential)
	if err != nil || addr.Name != "" || addr.Address != credential {
		return nil, fmt.Errorf("invalid forwarded address %q: %w", credential, ErrUnauthorized)
	}

	email := strings.ToLower(addr.Address)
	return &AuthInfo{UserID: email, Email: email}, nil
}

var (
	_ AuthProvider = (*NopAuthProvider)(nil)
	_ AuthProvider = (*HeaderAuthProvider)(nil)
)
