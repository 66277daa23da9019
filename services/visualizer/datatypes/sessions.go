// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

import (
	"github.com/AleutianAI/compilerlens/services/sessions"
	"github.com/google/uuid"
)

// Session route messages. Clients match on these strings.
const (
	MsgSaved           = "Data saved successfully"
	MsgUpdated         = "Data updated successfully"
	MsgMatchFound      = "match found"
	MsgMatchNotFound   = "match not found"
	MsgInvalidQuery    = "invalid query"
	MsgInvalidQueryCap = "Invalid query"
	MsgInvalidParam    = "Invalid query parameter"
	MsgDeleted         = "deleted"
	MsgNotDeleted      = "not deleted"
)

// SaveSessionRequest is the body of POST /api/save and /api/saveInterpreter.
//
// ID is generated when absent. Email falls back to the caller's identity.
type SaveSessionRequest struct {
	ID    string `json:"id" validate:"omitempty,max=128"`
	Code  string `json:"code" validate:"maxbytes"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

// Validate checks the request after binding.
func (r *SaveSessionRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults fills ID and Email.
func (r *SaveSessionRequest) EnsureDefaults(identityEmail string) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Email == "" {
		r.Email = identityEmail
	}
}

// Session converts the request for the store.
func (r *SaveSessionRequest) Session() sessions.Session {
	return sessions.Session{ID: r.ID, Code: r.Code, Email: r.Email}
}

// UpdateSessionRequest is the body of PUT /api/save and /api/saveInterpreter.
type UpdateSessionRequest struct {
	ID   string `json:"id" validate:"required,max=128"`
	Code string `json:"code" validate:"maxbytes"`
}

// Validate checks the request after binding.
func (r *UpdateSessionRequest) Validate() error {
	return validate.Struct(r)
}

// MessageResponse is the envelope every session route answers with.
type MessageResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// MatchResponse carries lookup results. Res is never null.
type MatchResponse struct {
	Message string             `json:"message"`
	Res     []sessions.Session `json:"res"`
}

// MeResponse is the body of GET /api/me. Email is null when unknown.
type MeResponse struct {
	Email *string `json:"email"`
}
