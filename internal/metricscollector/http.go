/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"net/http"

	"github.com/mattmezza/monlight/internal/httpx"
)

const maxBodyBytes = 512 * 1024

// Routes returns the Metrics Collector's handler for the mux patterns of
// spec.md §6.
func Routes(svc *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/metrics", svc.handleIngest)
	mux.HandleFunc("GET /api/metrics", svc.handleQuery)
	mux.HandleFunc("GET /api/metrics/names", svc.handleNames)
	mux.HandleFunc("GET /api/dashboard", svc.handleDashboard)
	return mux
}

func (s *Service) handleIngest(w http.ResponseWriter, r *http.Request) {
	var points []Point
	if err := httpx.DecodeJSON(r, maxBodyBytes, &points); err != nil {
		httpx.WriteError(w, err)
		return
	}
	res, err := s.Ingest(points)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, res)
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.Query(QueryParams{
		Name:       q.Get("name"),
		Period:     q.Get("period"),
		Resolution: q.Get("resolution"),
		Labels:     ParseLabelFilter(q.Get("labels")),
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (s *Service) handleNames(w http.ResponseWriter, r *http.Request) {
	names, err := s.Names()
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, names)
}

func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	if period == "" {
		period = "24h"
	}
	res, err := s.Dashboard(period)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
