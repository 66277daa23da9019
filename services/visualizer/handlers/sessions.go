// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"net/http"

	"github.com/AleutianAI/compilerlens/services/sessions"
	"github.com/AleutianAI/compilerlens/services/visualizer/datatypes"
	"github.com/AleutianAI/compilerlens/services/visualizer/middleware"
	"github.com/gin-gonic/gin"
)

// Session routes answer 200 with a message envelope for the outcomes the
// editor understands (match/no match, deleted/not deleted). Conflicts,
// missing rows on update and bad bodies use 409, 404 and 400.

func (h *Handlers) sessionsUnavailable(c *gin.Context) bool {
	if h.sessions != nil {
		return false
	}
	c.JSON(http.StatusServiceUnavailable, datatypes.MessageResponse{Message: "session storage is not available"})
	return true
}

// HandleCreateSession handles POST /api/save and /api/saveInterpreter.
//
// A missing id is generated and echoed back; a missing email is taken from
// the caller's identity.
func (h *Handlers) HandleCreateSession(kind sessions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleCreateSession").With("kind", kind)
		if h.sessionsUnavailable(c) {
			return
		}

		var req datatypes.SaveSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.Warn("Invalid request body", "error", err)
			c.JSON(http.StatusBadRequest, datatypes.MessageResponse{Message: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			status := http.StatusBadRequest
			if datatypes.IsOversize(err) {
				status = http.StatusRequestEntityTooLarge
			}
			logger.Warn("Session validation failed", "error", err)
			c.JSON(status, datatypes.MessageResponse{Message: "invalid request body"})
			return
		}
		req.EnsureDefaults(middleware.IdentityEmail(c))

		err := h.sessions.Create(c.Request.Context(), kind, req.Session())
		h.metrics.RecordSessionOp(string(kind), "create", err)
		switch {
		case errors.Is(err, sessions.ErrSessionExists):
			c.JSON(http.StatusConflict, datatypes.MessageResponse{Message: "session already exists", ID: req.ID})
			return
		case errors.Is(err, sessions.ErrInvalidSession):
			c.JSON(http.StatusBadRequest, datatypes.MessageResponse{Message: "invalid request body"})
			return
		case err != nil:
			logger.Error("Failed to save session", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.MessageResponse{Message: "failed to save session"})
			return
		}

		logger.Info("Session saved", "id", req.ID)
		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgSaved, ID: req.ID})
	}
}

// HandleUpdateSession handles PUT /api/save and /api/saveInterpreter.
func (h *Handlers) HandleUpdateSession(kind sessions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleUpdateSession").With("kind", kind)
		if h.sessionsUnavailable(c) {
			return
		}

		var req datatypes.UpdateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.MessageResponse{Message: "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			status := http.StatusBadRequest
			if datatypes.IsOversize(err) {
				status = http.StatusRequestEntityTooLarge
			}
			c.JSON(status, datatypes.MessageResponse{Message: "invalid request body"})
			return
		}

		err := h.sessions.UpdateCode(c.Request.Context(), kind, req.ID, req.Code)
		h.metrics.RecordSessionOp(string(kind), "update", err)
		switch {
		case errors.Is(err, sessions.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, datatypes.MessageResponse{Message: datatypes.MsgMatchNotFound})
			return
		case err != nil:
			logger.Error("Failed to update session", "id", req.ID, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.MessageResponse{Message: "failed to update session"})
			return
		}

		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgUpdated})
	}
}

// HandleGetSession handles GET /api/save?q=<id> and /api/saveInterpreter?q=<id>.
func (h *Handlers) HandleGetSession(kind sessions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleGetSession").With("kind", kind)
		if h.sessionsUnavailable(c) {
			return
		}

		id := c.Query("q")
		if id == "" {
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgInvalidQuery})
			return
		}

		sess, err := h.sessions.Get(c.Request.Context(), kind, id)
		h.metrics.RecordSessionOp(string(kind), "get", err)
		switch {
		case errors.Is(err, sessions.ErrSessionNotFound):
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgMatchNotFound})
			return
		case err != nil:
			logger.Error("Failed to load session", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.MessageResponse{Message: "failed to load session"})
			return
		}

		c.JSON(http.StatusOK, datatypes.MatchResponse{
			Message: datatypes.MsgMatchFound,
			Res:     []sessions.Session{*sess},
		})
	}
}

// HandleListSessions handles GET /api/getComp?q=<email> and /api/getInt?q=<email>.
//
// An absent q is "Invalid query"; a present but empty q lists sessions
// saved without an e-mail.
func (h *Handlers) HandleListSessions(kind sessions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleListSessions").With("kind", kind)
		if h.sessionsUnavailable(c) {
			return
		}

		email, ok := c.GetQuery("q")
		if !ok {
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgInvalidQueryCap})
			return
		}

		list, err := h.sessions.ListByEmail(c.Request.Context(), kind, email)
		h.metrics.RecordSessionOp(string(kind), "list", err)
		if err != nil {
			logger.Error("Failed to list sessions", "error", err)
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgMatchNotFound})
			return
		}

		c.JSON(http.StatusOK, datatypes.MatchResponse{Message: datatypes.MsgMatchFound, Res: list})
	}
}

// HandleDeleteSession handles DELETE /api/deleteInt?q=<id> and /api/deleteComp?q=<id>.
func (h *Handlers) HandleDeleteSession(kind sessions.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := h.requestLogger(c, "HandleDeleteSession").With("kind", kind)
		if h.sessionsUnavailable(c) {
			return
		}

		id := c.Query("q")
		if id == "" {
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgInvalidParam})
			return
		}

		deleted, err := h.sessions.Delete(c.Request.Context(), kind, id)
		h.metrics.RecordSessionOp(string(kind), "delete", err)
		if err != nil {
			logger.Error("Failed to delete session", "id", id, "error", err)
		}
		if err != nil || !deleted {
			c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgNotDeleted})
			return
		}

		logger.Info("Session deleted", "id", id)
		c.JSON(http.StatusOK, datatypes.MessageResponse{Message: datatypes.MsgDeleted})
	}
}

// HandleMe handles GET /api/me.
func (h *Handlers) HandleMe(c *gin.Context) {
	var resp datatypes.MeResponse
	if email := middleware.IdentityEmail(c); email != "" {
		resp.Email = &email
	}
	c.JSON(http.StatusOK, resp)
}
