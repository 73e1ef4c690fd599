/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package chassis

import (
	"container/list"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/mattmezza/monlight/internal/httpx"
)

// RateLimiter implements the sliding-window-per-key limiter of spec.md §4.5:
// a bounded deque of request timestamps per key; on each request, timestamps
// older than window are dropped, the request is rejected if the remaining
// count is already >= limit, else now is appended. State is a single guarded
// mapping from key to deque, as suggested in §9's re-architecture hints.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*list.List
	limit   int
	window  time.Duration
	// exempt paths never consume or check the window (always includes /health).
	exempt map[string]struct{}
}

func NewRateLimiter(limit int, window time.Duration, exemptPaths ...string) *RateLimiter {
	ex := map[string]struct{}{"/health": {}}
	for _, p := range exemptPaths {
		ex[p] = struct{}{}
	}
	return &RateLimiter{
		windows: make(map[string]*list.List),
		limit:   limit,
		window:  window,
		exempt:  ex,
	}
}

// Allow reports whether a request for key is permitted right now, given the
// current time now. It mutates the sliding window as a side effect.
func (rl *RateLimiter) Allow(key string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	dq, ok := rl.windows[key]
	if !ok {
		dq = list.New()
		rl.windows[key] = dq
	}
	cutoff := now.Add(-rl.window)
	for dq.Len() > 0 {
		front := dq.Front()
		if front.Value.(time.Time).Before(cutoff) {
			dq.Remove(front)
		} else {
			break
		}
	}
	if dq.Len() >= rl.limit {
		return false
	}
	dq.PushBack(now)
	return true
}

// Middleware rate-limits by client IP (the default key, per §4.5).
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := rl.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}
		key := clientIP(r)
		if !rl.Allow(key, time.Now()) {
			retryAfter := int(rl.window.Seconds())
			httpx.WriteError(w, httpx.RateLimited(retryAfter))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if h, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return h
	}
	return r.RemoteAddr
}
