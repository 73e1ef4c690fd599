/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import "time"

// DSNKey is a browser-visible identifier authorizing submissions for one
// project (spec.md §3).
type DSNKey struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Project   string    `json:"project"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceMap is one (project, release, file URL) mapping document (spec.md
// §3).
type SourceMap struct {
	ID         int64     `json:"id"`
	Project    string    `json:"project"`
	Release    string    `json:"release"`
	FileURL    string    `json:"file_url"`
	Content    string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}

const maxSourceMapBytes = 5 * 1024 * 1024

// BrowserErrorReport is the inbound payload of POST /api/browser/errors.
type BrowserErrorReport struct {
	Project       string       `json:"project,omitempty"`
	ExceptionType string       `json:"exception_type"`
	Message       string       `json:"message"`
	Release       string       `json:"release,omitempty"`
	SessionID     string       `json:"session_id,omitempty"`
	UserID        string       `json:"user_id,omitempty"`
	Stack         []StackFrame `json:"stack,omitempty"`
	RequestURL    string       `json:"request_url,omitempty"`
}

// StackFrame is one browser stack entry, rewritable by the source-map
// decoder (spec.md §4.4, §9's re-architecture hint).
type StackFrame struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Func   string `json:"func,omitempty"`
}

// BrowserMetricPoint is one inbound point of POST /api/browser/metrics.
type BrowserMetricPoint struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
}
