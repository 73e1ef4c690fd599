/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCORSPreflightAllowedOrigin(t *testing.T) {
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler should not run for OPTIONS")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/browser/errors", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Monlight-Key, Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	require.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	called := false
	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/browser/errors", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.True(t, called)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSDuplicateOriginsCollapseUnderCap(t *testing.T) {
	origins := make([]string, 0, maxCORSOrigins+5)
	for i := 0; i < maxCORSOrigins+5; i++ {
		origins = append(origins, "https://site.example.com")
	}
	mw := CORS(origins)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodOptions, "/api/browser/errors", nil)
	req.Header.Set("Origin", "https://site.example.com")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	// Duplicates collapse into one allowlist entry regardless of how many
	// copies were passed in, so this stays under the cap and is allowed.
	require.Equal(t, "https://site.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
