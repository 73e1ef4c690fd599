/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package chassis

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/mattmezza/monlight/internal/httpx"
	"github.com/mattmezza/monlight/internal/logging"
)

// Recover converts a panic inside next into a logged 500 instead of
// crashing the handler goroutine, matching the "transient storage" error
// kind of spec.md §7 (background workers never propagate; HTTP handlers
// degrade to a 500 instead of taking the process down).
func Recover(lg *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					lg.Error("panic handling request", logging.SD("path", r.URL.Path))
					httpx.WriteError(w, httpx.Server("internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type requestIDKey struct{}

// RequestID stamps every request with a UUID, set as the X-Request-Id
// response header and retrievable downstream with RequestIDFromContext.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := uuid.New().String()
			w.Header().Set("X-Request-Id", id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request id stamped by RequestID, or ""
// if none is present.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Health returns the standard GET /health handler: {"status":"ok"} plus any
// service-specific metrics the caller supplies.
func Health(extra func() map[string]interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		if extra != nil {
			for k, v := range extra() {
				body[k] = v
			}
		}
		httpx.WriteJSON(w, http.StatusOK, body)
	}
}

// Chain composes middleware in the order given (first wraps outermost).
func Chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
