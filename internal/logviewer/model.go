/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import "time"

// Level is the normalized severity of a reassembled log entry (spec.md §3).
type Level string

const (
	LevelDebug    Level = "DEBUG"
	LevelInfo     Level = "INFO"
	LevelWarning  Level = "WARNING"
	LevelError    Level = "ERROR"
	LevelCritical Level = "CRITICAL"
)

// Stream is which file descriptor a container line arrived on.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Entry is one reassembled log message (spec.md §3 "Log entry").
type Entry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Container string    `json:"container"`
	Stream    Stream    `json:"stream"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
}

// Cursor is the resumption state for one watched container (spec.md §3
// "Log cursor"). (Inode, Offset) together identify resumption.
type Cursor struct {
	Container string
	Path      string
	Offset    int64
	Inode     uint64
	UpdatedAt time.Time
}

// Query is the filter set accepted by GET /api/logs.
type Query struct {
	Container string
	Level     Level
	Search    string // FTS MATCH expression against message
	Since     *time.Time
	Until     *time.Time
	Limit     int
	Offset    int
}

// QueryResult is the paginated response to GET /api/logs.
type QueryResult struct {
	Total   int     `json:"total"`
	Entries []Entry `json:"entries"`
}

// ContainerSummary is one row of GET /api/logs/containers.
type ContainerSummary struct {
	Container string `json:"container"`
	Count     int    `json:"count"`
}

// Stats is the response to GET /api/logs/stats.
type Stats struct {
	Total          int            `json:"total"`
	Oldest         *time.Time     `json:"oldest"`
	Newest         *time.Time     `json:"newest"`
	CountsByLevel  map[Level]int  `json:"counts_by_level"`
	CountsByContainer map[string]int `json:"counts_by_container"`
}
