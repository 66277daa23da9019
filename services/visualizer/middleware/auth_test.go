// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AleutianAI/compilerlens/pkg/extensions"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// mockAuthProvider records the credential it was given.
type mockAuthProvider struct {
	authInfo *extensions.AuthInfo
	err      error
	got      string
}

func (m *mockAuthProvider) Validate(_ context.Context, credential string) (*extensions.AuthInfo, error) {
	m.got = credential
	if m.err != nil {
		return nil, m.err
	}
	return m.authInfo, nil
}

func newAuthRouter(provider extensions.AuthProvider, header string) *gin.Engine {
	router := gin.New()
	router.Use(AuthMiddleware(provider, header))
	router.GET("/who", func(c *gin.Context) {
		info := GetAuthInfo(c)
		c.JSON(http.StatusOK, gin.H{"user": info.UserID, "email": IdentityEmail(c)})
	})
	return router
}

// =============================================================================
// extractBearerToken Tests
// =============================================================================

func TestExtractBearerToken_ValidToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "bearer abc123")

	assert.Equal(t, "abc123", extractBearerToken(c))
}

func TestExtractBearerToken_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"no bearer prefix", "abc123"},
		{"basic auth", "Basic abc123"},
		{"empty bearer", "Bearer "},
		{"only bearer", "Bearer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Empty(t, extractBearerToken(c))
		})
	}
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func TestAuthMiddleware_BearerMode(t *testing.T) {
	provider := &mockAuthProvider{authInfo: &extensions.AuthInfo{UserID: "u1"}}
	router := newAuthRouter(provider, "")

	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "tok", provider.got)
	assert.JSONEq(t, `{"user":"u1","email":""}`, w.Body.String())
}

func TestAuthMiddleware_HeaderMode(t *testing.T) {
	router := newAuthRouter(&extensions.HeaderAuthProvider{}, "X-User-Email")

	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("X-User-Email", "Dev@Example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":"dev@example.com","email":"dev@example.com"}`, w.Body.String())
}

func TestAuthMiddleware_Unauthorized(t *testing.T) {
	router := newAuthRouter(&extensions.HeaderAuthProvider{}, "X-User-Email")

	req := httptest.NewRequest("GET", "/who", nil)
	req.Header.Set("X-User-Email", "not an address")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, w.Body.String())
}

func TestAuthMiddleware_ProviderFailure(t *testing.T) {
	router := newAuthRouter(&mockAuthProvider{err: errors.New("idp down")}, "")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/who", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"authentication failed"}`, w.Body.String())
}

func TestGetAuthInfo_NotSet(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, GetAuthInfo(c))
	assert.Empty(t, IdentityEmail(c))

	c.Set(authInfoKey, "wrong type")
	assert.Nil(t, GetAuthInfo(c))
}

// =============================================================================
// RequestID Tests
// =============================================================================

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, GetRequestID(c))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(RequestIDHeader, "given-id")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "given-id", w.Body.String())
}
