/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package chassis implements the service-chassis concerns shared by all
// four Monlight services (spec.md §4.5): rate limiting, auth, the body-size
// gate, the migration runner, a worker supervisor, and a panic-recovery
// middleware. It plays the role the teacher's migrate/ package plays for
// Gravwell's Splunk import — sequenced, idempotent application of a set of
// numbered steps against a single store — adapted here from data migration
// to SQL schema migration.
package chassis

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Migration is one ordered schema step. Ordinal must be unique and
// monotonically increasing within a service's migration list.
type Migration struct {
	Ordinal int
	Name    string
	Apply   func(*sql.Tx) error
}

// RunMigrations applies every migration whose Ordinal is greater than the
// value recorded in the _meta table, each inside its own transaction, and
// records the new ordinal on success. Idempotent: re-running with the same
// list and an up-to-date _meta table applies nothing.
func RunMigrations(db *sql.DB, migrations []Migration) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS _meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create _meta table: %w", err)
	}

	applied, err := currentOrdinal(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Ordinal <= applied {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d (%s): %w", m.Ordinal, m.Name, err)
		}
		if err := m.Apply(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.Ordinal, m.Name, err)
		}
		if _, err := tx.Exec(`INSERT INTO _meta(key, value) VALUES('schema_ordinal', ?)
			ON CONFLICT(key) DO UPDATE SET value=excluded.value`, strconv.Itoa(m.Ordinal)); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d (%s): %w", m.Ordinal, m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d (%s): %w", m.Ordinal, m.Name, err)
		}
		applied = m.Ordinal
	}
	return nil
}

func currentOrdinal(db *sql.DB) (int, error) {
	var v string
	err := db.QueryRow(`SELECT value FROM _meta WHERE key='schema_ordinal'`).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("read schema ordinal: %w", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse schema ordinal %q: %w", v, err)
	}
	return n, nil
}
