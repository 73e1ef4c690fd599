/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mattmezza/monlight/internal/httpx"
)

const (
	maxSSEConnections  = 5
	sseHeartbeat       = 15 * time.Second
	sseTimeout         = 30 * time.Minute
	ssePollInterval    = 1 * time.Second
)

// sseConnections is the process-wide active live-tail connection counter of
// spec.md §4.2 ("reject with a server-busy signal if active_connections >=
// 5"), implemented as a single atomic as §9's re-architecture hints suggest
// for process-wide counters.
var sseConnections int32

// HandleTail serves GET /api/logs/tail: a server-sent-events live tail.
func (s *Service) HandleTail(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt32(&sseConnections, 1) > maxSSEConnections {
		atomic.AddInt32(&sseConnections, -1)
		httpx.WriteError(w, &httpx.Error{Kind: httpx.KindRateLimited, Message: "server busy: too many live tail connections"})
		return
	}
	defer atomic.AddInt32(&sseConnections, -1)

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, httpx.Server("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	cursor, err := s.store.MaxEntryID()
	if err != nil {
		return
	}

	deadline := time.Now().Add(sseTimeout)
	lastActivity := time.Now()
	ticker := time.NewTicker(ssePollInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.After(deadline) {
				writeSSEEvent(w, "close", map[string]string{"reason": "timeout"})
				flusher.Flush()
				return
			}
			entries, err := s.store.EntriesSince(cursor)
			if err != nil {
				return
			}
			if len(entries) > 0 {
				for _, e := range entries {
					if !writeSSEEvent(w, "log", e) {
						return
					}
					cursor = e.ID
				}
				flusher.Flush()
				lastActivity = now
			} else if now.Sub(lastActivity) >= sseHeartbeat {
				if !writeSSEEvent(w, "heartbeat", map[string]string{"time": now.UTC().Format(time.RFC3339)}) {
					return
				}
				flusher.Flush()
				lastActivity = now
			}
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event string, data interface{}) bool {
	b, err := json.Marshal(data)
	if err != nil {
		return false
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b)
	return err == nil
}
