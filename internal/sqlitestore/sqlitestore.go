/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package sqlitestore opens the embedded relational store shared by all
// four Monlight services: SQLite in WAL mode (spec.md §1, §5 — "a
// write-ahead log is assumed so readers do not block writers"), optionally
// with the FTS5 extension for the Log Viewer's full-text index (§4.2).
//
// Grounded on other_examples'  ClusterCockpit-cc-backend  integration test,
// the one file in the retrieval pack that imports a SQLite driver
// (`_ "github.com/mattn/go-sqlite3"`) for an HTTP/JSON telemetry backend.
package sqlitestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Options configures the connection string pragmas applied at open time.
type Options struct {
	// BusyTimeoutMS bounds how long a writer waits for another writer's
	// transaction to release the database lock before failing.
	BusyTimeoutMS int
}

// Open opens (creating if absent) the SQLite database at path with
// write-ahead logging enabled and a bounded busy timeout so concurrent
// readers and the single writer never deadlock (§5).
func Open(path string, opts Options) (*sql.DB, error) {
	if opts.BusyTimeoutMS <= 0 {
		opts.BusyTimeoutMS = 5000
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on", path, opts.BusyTimeoutMS)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database %s: %w", path, err)
	}
	// SQLite allows only one writer; cap the pool so the driver doesn't
	// hand out concurrent connections that immediately contend on a write.
	db.SetMaxOpenConns(8)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database %s: %w", path, err)
	}
	return db, nil
}
