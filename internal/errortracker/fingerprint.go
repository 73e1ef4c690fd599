/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package errortracker implements the error deduplication engine of
// spec.md §4.1: fingerprinting, at-most-one active group per fingerprint,
// idempotent resolve, an occurrence ring buffer, resolved-group reopen on
// recurrence, and time-based retention of resolved groups.
//
// Grounded on the teacher's ingest/log package for its level vocabulary and
// on HttpIngester/handlers.go for the read-decode-validate dispatch shape
// (internal/httpx generalizes that shape for all four services). The
// fingerprinting and ring-buffer/reopen state machine below have no teacher
// analogue — they are domain logic unique to Monlight's spec and are
// implemented directly against it.
package errortracker

import (
	"crypto/md5"
	"encoding/hex"
	"regexp"
)

var (
	// pythonFrame matches `File "X", line N`. The spec requires the LAST
	// match in the traceback (the deepest frame in a Python traceback is
	// printed last).
	pythonFrame = regexp.MustCompile(`File "([^"]+)", line (\d+)`)

	// chromeFrame matches both `at func (URL:line:col)` and the unwrapped
	// `at URL:line:col` form Chrome also emits for anonymous frames.
	chromeFrame = regexp.MustCompile(`at\s+(?:[^(\r\n]*\()?([^\s()]+):(\d+):(\d+)\)?`)

	// firefoxFrame matches `func@URL:line:col` (an empty func is valid: `@URL:1:2`).
	firefoxFrame = regexp.MustCompile(`(?m)^[^\s@]*@([^\s@]+):(\d+):(\d+)`)
)

// location is the (file, line) pair the fingerprint hashes over. Column is
// deliberately excluded per spec.md §4.1.
type location struct {
	file string
	line string
	ok   bool
}

// locate finds the frame a fingerprint should be computed from: the LAST
// Python-style frame if any exist, else the FIRST JavaScript-style frame
// (Chrome, then Firefox), else none.
func locate(traceback string) location {
	if matches := pythonFrame.FindAllStringSubmatch(traceback, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		return location{file: last[1], line: last[2], ok: true}
	}
	if m := chromeFrame.FindStringSubmatch(traceback); m != nil {
		return location{file: m[1], line: m[2], ok: true}
	}
	if m := firefoxFrame.FindStringSubmatch(traceback); m != nil {
		return location{file: m[1], line: m[2], ok: true}
	}
	return location{}
}

// Fingerprint computes the 32-character lowercase hex fingerprint of an
// error report per spec.md §4.1:
//
//	MD5(project || ":" || exceptionType || ":" || file || ":" || line)
//
// where file:line is the last Python-style frame, or failing that the
// first JavaScript-style (Chrome or Firefox) frame. If neither format
// parses, the entire traceback is substituted into the hash input so the
// fingerprint remains a deterministic function of the report.
func Fingerprint(project, exceptionType, traceback string) string {
	loc := locate(traceback)
	h := md5.New()
	h.Write([]byte(project))
	h.Write([]byte(":"))
	h.Write([]byte(exceptionType))
	h.Write([]byte(":"))
	if loc.ok {
		h.Write([]byte(loc.file))
		h.Write([]byte(":"))
		h.Write([]byte(loc.line))
	} else {
		h.Write([]byte(traceback))
	}
	return hex.EncodeToString(h.Sum(nil))
}
