/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import "net/http"

const (
	corsAllowHeaders = "X-Monlight-Key, Content-Type"
	corsAllowMethods = "POST, OPTIONS"
	corsMaxAge       = "86400"
	maxCORSOrigins   = 32
	maxCORSOriginLen = 256
)

// CORS returns middleware that answers preflight OPTIONS requests and
// stamps the access-control headers on every browser-facing response, per
// spec.md §4.4: exact case-sensitive match against a bounded allowlist.
// Origins beyond the limits are dropped rather than silently truncated.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := map[string]struct{}{}
	for _, o := range origins {
		if len(allowed) >= maxCORSOrigins || len(o) > maxCORSOriginLen {
			continue
		}
		allowed[o] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowed[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)
				w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
				w.Header().Set("Access-Control-Max-Age", corsMaxAge)
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
