// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the visualizer service.
//
// # Authentication Flow
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract credential (trusted header, else "Authorization: Bearer <token>")
//	   │
//	   ├─► provider.Validate(ctx, credential)
//	   │
//	   └─► Store AuthInfo in context
//	           │
//	           ▼
//	       Handler (retrieves via GetAuthInfo)
//
// With NopAuthProvider every request is the anonymous local user, so the
// editor works without any identity infrastructure.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/AleutianAI/compilerlens/pkg/extensions"
	"github.com/gin-gonic/gin"
)

// =============================================================================
// Context Keys
// =============================================================================

// authInfoKey is the gin context key for AuthInfo.
const authInfoKey = "compilerlens_auth_info"

// =============================================================================
// Context Helpers
// =============================================================================

// SetAuthInfo stores the caller identity in the Gin context.
//
// # Thread Safety
//
// Safe to call concurrently (Gin context is request-scoped).
func SetAuthInfo(c *gin.Context, info *extensions.AuthInfo) {
	c.Set(authInfoKey, info)
}

// GetAuthInfo retrieves the caller identity from the Gin context.
//
// # Outputs
//
//   - *extensions.AuthInfo: Identity, or nil if AuthMiddleware did not run.
//
// # Examples
//
//	email := ""
//	if info := middleware.GetAuthInfo(c); info.HasEmail() {
//	    email = info.Email
//	}
func GetAuthInfo(c *gin.Context) *extensions.AuthInfo {
	if info, exists := c.Get(authInfoKey); exists {
		if authInfo, ok := info.(*extensions.AuthInfo); ok {
			return authInfo
		}
	}
	return nil
}

// IdentityEmail returns the caller's e-mail address, or "" when unknown.
func IdentityEmail(c *gin.Context) string {
	if info := GetAuthInfo(c); info.HasEmail() {
		return info.Email
	}
	return ""
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// # Description
//
// When header is non-empty its value is the credential (header mode, for
// deployments behind an authenticating proxy). Otherwise the bearer token
// from the Authorization header is used. The credential is validated by
// provider and the resulting AuthInfo stored for handlers.
//
// # Inputs
//
//   - provider: Validates credentials. Must not be nil.
//   - header: Trusted header name, or "" for bearer tokens.
//
// # Outputs
//
//   - gin.HandlerFunc: Aborts with 401 when validation fails.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func AuthMiddleware(provider extensions.AuthProvider, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var credential string
		if header != "" {
			credential = strings.TrimSpace(c.GetHeader(header))
		} else {
			credential = extractBearerToken(c)
		}

		authInfo, err := provider.Validate(c.Request.Context(), credential)
		if err != nil {
			if errors.Is(err, extensions.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "unauthorized",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication failed",
			})
			return
		}

		SetAuthInfo(c, authInfo)
		c.Next()
	}
}

// =============================================================================
// Helper Functions
// =============================================================================

// extractBearerToken parses "Authorization: Bearer <token>". The scheme is
// case-insensitive per RFC 7235. Returns "" when missing or malformed.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
