/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package httpx implements the small HTTP/JSON envelope shared by every
// Monlight endpoint: request decoding, response encoding, and the five-kind
// error taxonomy of spec.md §7 mapped onto status codes. It follows the
// read-cap-then-decode dispatch shape of the teacher's
// HttpIngester/handlers.go ServeHTTP method, generalized from a single
// fixed-size buffer read to a per-service configurable cap (§4.5).
package httpx

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
)

// Kind is one of the five error taxonomies of spec.md §7.
type Kind int

const (
	KindValidation Kind = iota
	KindAuth
	KindRateLimited
	KindNotFound
	KindServer
	KindPayloadTooLarge
)

// Error is the typed error handlers return; WriteError maps it to a status
// code and a {"detail": "..."} JSON body.
type Error struct {
	Kind    Kind
	Message string
	// RetryAfterSeconds is attached to 429 responses per §7 ("a retry_after
	// hint in rate-limit responses").
	RetryAfterSeconds int
}

func (e *Error) Error() string { return e.Message }

func Validation(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func Auth(msg string) *Error       { return &Error{Kind: KindAuth, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Kind: KindNotFound, Message: msg} }
func Server(msg string) *Error     { return &Error{Kind: KindServer, Message: msg} }
func RateLimited(retryAfter int) *Error {
	return &Error{Kind: KindRateLimited, Message: "rate limit exceeded", RetryAfterSeconds: retryAfter}
}

func statusFor(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders err as the status/body pair described by §7. A plain
// (non-*Error) err is treated as an opaque transient storage failure (500);
// per §7's propagation policy, storage errors bubble up unchanged and are
// categorised here, at the handler boundary.
func WriteError(w http.ResponseWriter, err error) {
	var e *Error
	if !errors.As(err, &e) {
		e = Server(err.Error())
	}
	if e.Kind == KindRateLimited && e.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(e.RetryAfterSeconds))
	}
	WriteJSON(w, statusFor(e.Kind), map[string]string{"detail": e.Message})
}

// WriteJSON encodes v as the JSON response body with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, capping the read at maxBody
// bytes per the body-size gate (§4.5) and rejecting trailing garbage.
func DecodeJSON(r *http.Request, maxBody int64, v interface{}) error {
	defer r.Body.Close()
	lr := io.LimitReader(r.Body, maxBody+1)
	b, err := io.ReadAll(lr)
	if err != nil {
		return Validation("failed to read request body")
	}
	if int64(len(b)) > maxBody {
		return &Error{Kind: KindPayloadTooLarge, Message: "request body too large"}
	}
	if len(b) == 0 {
		return Validation("empty request body")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(v); err != nil {
		return Validation("malformed JSON: " + err.Error())
	}
	if dec.More() {
		return Validation("malformed JSON: trailing data after value")
	}
	return nil
}
