/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"net/http"
	"strconv"

	"github.com/mattmezza/monlight/internal/httpx"
)

const maxBodyBytes = 256 * 1024

// Routes returns the Error Tracker's handler for the mux patterns of
// spec.md §6. Mirrors the teacher's map-keyed dispatch in
// HttpIngester/handlers.go, generalized to a standard library ServeMux
// (Go 1.22+ method-aware patterns).
func Routes(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/errors", svc.handleIngest)
	mux.HandleFunc("GET /api/errors", svc.handleList)
	mux.HandleFunc("GET /api/errors/{id}", svc.handleDetail)
	mux.HandleFunc("POST /api/errors/{id}/resolve", svc.handleResolve)
	mux.HandleFunc("GET /api/projects", svc.handleProjects)
	return mux
}

func (s *Service) handleIngest(w http.ResponseWriter, r *http.Request) {
	var rep Report
	if err := httpx.DecodeJSON(r, maxBodyBytes, &rep); err != nil {
		httpx.WriteError(w, err)
		return
	}
	result, err := s.Ingest(rep)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if result.Branch == BranchCreated || result.Branch == BranchReopened {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, result)
}

func (s *Service) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilters{
		Project:     q.Get("project"),
		Environment: q.Get("environment"),
		Source:      q.Get("source"),
		SessionID:   q.Get("session_id"),
	}
	if v := q.Get("resolved"); v != "" {
		b := v == "true" || v == "1"
		f.Resolved = &b
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = v
	}
	res, err := s.List(f)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Service) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, httpx.Validation("invalid id"))
		return
	}
	d, err := s.Detail(id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, d)
}

func (s *Service) handleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		httpx.WriteError(w, httpx.Validation("invalid id"))
		return
	}
	g, err := s.Resolve(id)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, g)
}

func (s *Service) handleProjects(w http.ResponseWriter, r *http.Request) {
	p, err := s.Projects()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
