/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package chassis

import (
	"net/http"

	"github.com/mattmezza/monlight/internal/httpx"
)

// BodySizeGate rejects any request whose advertised Content-Length exceeds
// maxBytes before any body is read (spec.md §4.5, §7 kind 1). A request with
// no advertised length (chunked transfer) is let through to DecodeJSON's
// own read-cap, which rejects it after the fact.
func BodySizeGate(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				httpx.WriteError(w, &httpx.Error{Kind: httpx.KindPayloadTooLarge, Message: "request body exceeds maximum size"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
