/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import "time"

// Group is one error group per spec.md §3 — one per distinct fingerprint
// per service at any moment a group is "active" (see the invariant that a
// resolved and unresolved group with the same fingerprint may transiently
// coexist).
type Group struct {
	ID            int64      `json:"id"`
	Fingerprint   string     `json:"fingerprint"`
	Project       string     `json:"project"`
	Environment   string     `json:"environment"`
	ExceptionType string     `json:"exception_type"`
	Message       string     `json:"message"`
	Traceback     string     `json:"traceback"`
	Count         int        `json:"count"`
	FirstSeen     time.Time  `json:"first_seen"`
	LastSeen      time.Time  `json:"last_seen"`
	Resolved      bool       `json:"resolved"`
	ResolvedAt    *time.Time `json:"resolved_at"`
}

// Occurrence is one submitted report, owned by exactly one Group.
type Occurrence struct {
	ID         int64     `json:"id"`
	GroupID    int64     `json:"error_id"`
	Timestamp  time.Time `json:"timestamp"`
	RequestURL string    `json:"request_url,omitempty"`
	Method     string    `json:"request_method,omitempty"`
	Headers    string    `json:"request_headers,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Extra      string    `json:"extra,omitempty"`
	Traceback  string    `json:"traceback"`
}

// Report is the inbound payload of POST /api/errors.
type Report struct {
	Project       string `json:"project"`
	Environment   string `json:"environment"`
	ExceptionType string `json:"exception_type"`
	Message       string `json:"message"`
	Traceback     string `json:"traceback"`
	RequestURL    string `json:"request_url,omitempty"`
	RequestMethod string `json:"request_method,omitempty"`
	Headers       string `json:"request_headers,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Extra         string `json:"extra,omitempty"`
}

// Branch names the three possible Ingest outcomes (spec.md §4.1).
type Branch string

const (
	BranchCreated     Branch = "created"
	BranchIncremented Branch = "incremented"
	BranchReopened    Branch = "reopened"
)

// IngestResult is the response to POST /api/errors.
type IngestResult struct {
	Branch Branch `json:"status"`
	Group  Group  `json:"group"`
}

const (
	maxProjectLen = 100
	maxEnvLen     = 20
	maxTypeLen    = 200
	defaultEnv    = "prod"
	maxOccurrencesPerGroup = 5
)

// ListFilters are the query parameters accepted by GET /api/errors.
type ListFilters struct {
	Project     string
	Environment string
	Resolved    *bool // nil means "default to false" per spec.md §4.1
	Source      string // "browser" | "server" | ""
	SessionID   string
	Limit       int
	Offset      int
}

// ListResult is the paginated response to GET /api/errors.
type ListResult struct {
	Total  int     `json:"total"`
	Groups []Group `json:"groups"`
}

// Detail is the response to GET /api/errors/{id}.
type Detail struct {
	Group       Group        `json:"group"`
	Occurrences []Occurrence `json:"occurrences"`
}
