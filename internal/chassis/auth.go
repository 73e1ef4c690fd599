/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package chassis

import (
	"crypto/subtle"
	"net/http"

	"github.com/mattmezza/monlight/internal/httpx"
)

// APIKeyAuth returns middleware that requires the given header to carry
// apiKey, compared in constant time (spec.md §4.5). /health is always
// exempt, matching every service's unauthenticated health probe (§6).
func APIKeyAuth(header, apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}
			got := []byte(r.Header.Get(header))
			if len(got) != len(want) || subtle.ConstantTimeCompare(got, want) != 1 {
				httpx.WriteError(w, httpx.Auth("invalid or missing API key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
