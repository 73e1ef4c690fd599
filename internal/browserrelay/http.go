/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"net/http"
	"strconv"

	"github.com/mattmezza/monlight/internal/httpx"
)

const maxBodyBytes = 5*1024*1024 + 4096 // source maps (up to 5MB) plus a small margin for JSON framing

// AdminRoutes returns the X-API-Key-protected DSN key and source map
// management endpoints of spec.md §6.
func AdminRoutes(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/dsn-keys", svc.handleCreateDSNKey)
	mux.HandleFunc("GET /api/dsn-keys", svc.handleListDSNKeys)
	mux.HandleFunc("DELETE /api/dsn-keys/{id}", svc.handleDeactivateDSNKey)
	mux.HandleFunc("POST /api/source-maps", svc.handleUploadSourceMap)
	mux.HandleFunc("GET /api/source-maps", svc.handleListSourceMaps)
	mux.HandleFunc("DELETE /api/source-maps/{id}", svc.handleDeleteSourceMap)
	return mux
}

// BrowserRoutes returns the X-Monlight-Key-protected endpoints browsers
// submit to directly. DSN validation happens inside each handler rather
// than as middleware, since a miss must still be distinguishable from an
// auth failure for diagnostics on the relay side.
func BrowserRoutes(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/browser/errors", svc.handleBrowserError)
	mux.HandleFunc("POST /api/browser/metrics", svc.handleBrowserMetrics)
	return mux
}

func (s *Service) dsnFromRequest(r *http.Request) (*DSNKey, error) {
	key := r.Header.Get("X-Monlight-Key")
	if key == "" {
		return nil, httpx.Auth("missing X-Monlight-Key header")
	}
	return s.ValidateDSNKey(key)
}

func (s *Service) handleCreateDSNKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Project string `json:"project"`
	}
	if err := httpx.DecodeJSON(r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, err)
		return
	}
	key, err := s.GenerateDSNKey(body.Project)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, key)
}

func (s *Service) handleListDSNKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.ListDSNKeys()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keys)
}

func (s *Service) handleDeactivateDSNKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, httpx.Validation("invalid id"))
		return
	}
	if err := s.DeactivateDSNKey(id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Service) handleUploadSourceMap(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Project string `json:"project"`
		Release string `json:"release"`
		FileURL string `json:"file_url"`
		Content string `json:"content"`
	}
	if err := httpx.DecodeJSON(r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, err)
		return
	}
	sm, err := s.UploadSourceMap(body.Project, body.Release, body.FileURL, body.Content)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, sm)
}

func (s *Service) handleListSourceMaps(w http.ResponseWriter, r *http.Request) {
	maps, err := s.ListSourceMaps(r.URL.Query().Get("project"))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, maps)
}

func (s *Service) handleDeleteSourceMap(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, httpx.Validation("invalid id"))
		return
	}
	if err := s.DeleteSourceMap(id); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Service) handleBrowserError(w http.ResponseWriter, r *http.Request) {
	dsn, err := s.dsnFromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var report BrowserErrorReport
	if err := httpx.DecodeJSON(r, maxBodyBytes, &report); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.IngestBrowserError(dsn.Project, report); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Service) handleBrowserMetrics(w http.ResponseWriter, r *http.Request) {
	dsn, err := s.dsnFromRequest(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	var body struct {
		Points    []BrowserMetricPoint `json:"points"`
		SessionID string               `json:"session_id,omitempty"`
		Page      string               `json:"page,omitempty"`
	}
	if err := httpx.DecodeJSON(r, maxBodyBytes, &body); err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := s.IngestBrowserMetrics(dsn.Project, body.Points, body.SessionID, body.Page); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
