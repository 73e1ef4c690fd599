/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
)

// Migrations is the ordered schema for the Error Tracker's store.
var Migrations = []chassis.Migration{
	{
		Ordinal: 1,
		Name:    "create error groups and occurrences",
		Apply: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE error_groups (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					fingerprint TEXT NOT NULL,
					project TEXT NOT NULL,
					environment TEXT NOT NULL,
					exception_type TEXT NOT NULL,
					message TEXT NOT NULL,
					traceback TEXT NOT NULL,
					count INTEGER NOT NULL DEFAULT 1,
					first_seen TEXT NOT NULL,
					last_seen TEXT NOT NULL,
					resolved INTEGER NOT NULL DEFAULT 0,
					resolved_at TEXT
				)`,
				`CREATE INDEX idx_error_groups_fingerprint ON error_groups(fingerprint, resolved)`,
				`CREATE INDEX idx_error_groups_project ON error_groups(project, environment)`,
				`CREATE INDEX idx_error_groups_last_seen ON error_groups(last_seen DESC)`,
				`CREATE TABLE error_occurrences (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					error_id INTEGER NOT NULL REFERENCES error_groups(id) ON DELETE CASCADE,
					timestamp TEXT NOT NULL,
					request_url TEXT,
					request_method TEXT,
					request_headers TEXT,
					user_id TEXT,
					extra TEXT,
					traceback TEXT NOT NULL
				)`,
				`CREATE INDEX idx_error_occurrences_group ON error_occurrences(error_id, timestamp, id)`,
			}
			for _, s := range stmts {
				if _, err := tx.Exec(s); err != nil {
					return err
				}
			}
			return nil
		},
	},
}

const timeLayout = time.RFC3339

// Store is the persistence boundary for the Error Tracker, abstracted per
// spec.md §9 so the dedup engine's state machine is testable against a real
// (temp-file) SQLite database without a mock.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func scanGroup(row interface{ Scan(...interface{}) error }) (Group, error) {
	var g Group
	var firstSeen, lastSeen string
	var resolvedAt sql.NullString
	var resolved int
	if err := row.Scan(&g.ID, &g.Fingerprint, &g.Project, &g.Environment, &g.ExceptionType,
		&g.Message, &g.Traceback, &g.Count, &firstSeen, &lastSeen, &resolved, &resolvedAt); err != nil {
		return Group{}, err
	}
	g.Resolved = resolved != 0
	g.FirstSeen, _ = time.Parse(timeLayout, firstSeen)
	g.LastSeen, _ = time.Parse(timeLayout, lastSeen)
	if resolvedAt.Valid {
		t, _ := time.Parse(timeLayout, resolvedAt.String)
		g.ResolvedAt = &t
	}
	return g, nil
}

const groupColumns = `id, fingerprint, project, environment, exception_type, message, traceback, count, first_seen, last_seen, resolved, resolved_at`

// findUnresolved returns the unresolved group with the given fingerprint, if any.
func (s *Store) findUnresolved(tx *sql.Tx, fingerprint string) (*Group, error) {
	row := tx.QueryRow(`SELECT `+groupColumns+` FROM error_groups WHERE fingerprint=? AND resolved=0 LIMIT 1`, fingerprint)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &g, nil
}

// findResolved returns the most recently resolved group with the given
// fingerprint, if any. Per spec.md §3, lookup prefers the unresolved group
// when both exist; this is only consulted when findUnresolved found nothing.
func (s *Store) findResolved(tx *sql.Tx, fingerprint string) (*Group, error) {
	row := tx.QueryRow(`SELECT `+groupColumns+` FROM error_groups WHERE fingerprint=? AND resolved=1 ORDER BY resolved_at DESC LIMIT 1`, fingerprint)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) insertOccurrence(tx *sql.Tx, groupID int64, o Occurrence) (int64, error) {
	res, err := tx.Exec(`INSERT INTO error_occurrences(error_id, timestamp, request_url, request_method, request_headers, user_id, extra, traceback)
		VALUES (?,?,?,?,?,?,?,?)`,
		groupID, o.Timestamp.UTC().Format(timeLayout), nullable(o.RequestURL), nullable(o.Method),
		nullable(o.Headers), nullable(o.UserID), nullable(o.Extra), o.Traceback)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// pruneRing deletes the oldest occurrences for a group beyond the five-row
// ring buffer (spec.md §3: "at most five occurrences per group; when a
// sixth arrives, the oldest (by timestamp, then id) is purged").
func (s *Store) pruneRing(tx *sql.Tx, groupID int64) error {
	_, err := tx.Exec(`DELETE FROM error_occurrences WHERE id IN (
		SELECT id FROM error_occurrences WHERE error_id=?
		ORDER BY timestamp ASC, id ASC
		LIMIT MAX(0, (SELECT COUNT(*) FROM error_occurrences WHERE error_id=?) - ?)
	)`, groupID, groupID, maxOccurrencesPerGroup)
	return err
}

func (s *Store) Detail(id int64) (*Detail, error) {
	row := s.db.QueryRow(`SELECT `+groupColumns+` FROM error_groups WHERE id=?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(`SELECT id, error_id, timestamp, COALESCE(request_url,''), COALESCE(request_method,''),
		COALESCE(request_headers,''), COALESCE(user_id,''), COALESCE(extra,''), traceback
		FROM error_occurrences WHERE error_id=? ORDER BY timestamp DESC, id DESC LIMIT 5`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var occs []Occurrence
	for rows.Next() {
		var o Occurrence
		var ts string
		if err := rows.Scan(&o.ID, &o.GroupID, &ts, &o.RequestURL, &o.Method, &o.Headers, &o.UserID, &o.Extra, &o.Traceback); err != nil {
			return nil, err
		}
		o.Timestamp, _ = time.Parse(timeLayout, ts)
		occs = append(occs, o)
	}
	return &Detail{Group: g, Occurrences: occs}, nil
}

func (s *Store) Resolve(id int64, now time.Time) (*Group, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRow(`SELECT `+groupColumns+` FROM error_groups WHERE id=?`, id)
	g, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	if !g.Resolved {
		if _, err := tx.Exec(`UPDATE error_groups SET resolved=1, resolved_at=? WHERE id=?`, now.UTC().Format(timeLayout), id); err != nil {
			return nil, err
		}
		g.Resolved = true
		t := now.UTC()
		g.ResolvedAt = &t
	}
	// Idempotent: already-resolved groups are unchanged, resolved_at preserved.
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) Projects() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT project FROM error_groups ORDER BY project ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) List(f ListFilters) (*ListResult, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	if f.Project != "" {
		where = append(where, "project=?")
		args = append(args, f.Project)
	}
	if f.Environment != "" {
		where = append(where, "environment=?")
		args = append(args, f.Environment)
	}
	resolved := false
	if f.Resolved != nil {
		resolved = *f.Resolved
	}
	where = append(where, "resolved=?")
	if resolved {
		args = append(args, 1)
	} else {
		args = append(args, 0)
	}
	sourceJoin := ""
	switch f.Source {
	case "browser":
		sourceJoin = "AND EXISTS (SELECT 1 FROM error_occurrences o WHERE o.error_id=error_groups.id AND o.request_method='BROWSER')"
	case "server":
		sourceJoin = "AND NOT EXISTS (SELECT 1 FROM error_occurrences o WHERE o.error_id=error_groups.id AND o.request_method='BROWSER')"
	}
	if f.SessionID != "" {
		sourceJoin += " AND EXISTS (SELECT 1 FROM error_occurrences o WHERE o.error_id=error_groups.id AND json_extract(o.extra,'$.session_id')=?)"
		args = append(args, f.SessionID)
	}

	whereClause := ""
	for i, w := range where {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += w
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM error_groups WHERE %s %s`, whereClause, sourceJoin)
	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf(`SELECT %s FROM error_groups WHERE %s %s ORDER BY last_seen DESC LIMIT ? OFFSET ?`, groupColumns, whereClause, sourceJoin)
	listArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := s.db.Query(listQuery, listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return &ListResult{Total: total, Groups: groups}, nil
}

// PruneResolved deletes resolved groups whose resolved_at is older than
// cutoff (occurrences cascade via the foreign key). spec.md §4.1's
// retention worker.
func (s *Store) PruneResolved(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM error_groups WHERE resolved=1 AND resolved_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
