/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mattmezza/monlight/internal/httpx"
)

// Routes returns the Log Viewer's handler for the mux patterns of
// spec.md §6.
func Routes(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/logs", svc.handleQuery)
	mux.HandleFunc("GET /api/logs/tail", svc.HandleTail)
	mux.HandleFunc("GET /api/logs/containers", svc.handleContainers)
	mux.HandleFunc("GET /api/logs/stats", svc.handleStats)
	return mux
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := Query{
		Container: q.Get("container"),
		Level:     Level(q.Get("level")),
		Search:    q.Get("search"),
	}
	if v := q.Get("since"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			query.Since = &t
		}
	}
	if v := q.Get("until"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			query.Until = &t
		}
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		query.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		query.Offset = v
	}
	res, err := s.Query(query)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Service) handleContainers(w http.ResponseWriter, r *http.Request) {
	c, err := s.Containers()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, c)
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.Stats()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
