/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
)

const timeLayout = time.RFC3339

// Migrations is the ordered schema for the Log Viewer's store: the entry
// table, its FTS5 shadow index kept in lockstep via triggers (spec.md §4.2
// — "this must happen inside the same transaction or via a post-insert
// trigger so the two stay consistent"), and the cursor table.
var Migrations = []chassis.Migration{
	{
		Ordinal: 1,
		Name:    "create log entries, fts index, cursors",
		Apply: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE log_entries (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp TEXT NOT NULL,
					container TEXT NOT NULL,
					stream TEXT NOT NULL,
					level TEXT NOT NULL,
					message TEXT NOT NULL
				)`,
				`CREATE INDEX idx_log_entries_timestamp ON log_entries(timestamp DESC)`,
				`CREATE INDEX idx_log_entries_container ON log_entries(container)`,
				`CREATE INDEX idx_log_entries_level ON log_entries(level)`,
				`CREATE VIRTUAL TABLE log_entries_fts USING fts5(message, content='log_entries', content_rowid='id')`,
				`CREATE TRIGGER log_entries_ai AFTER INSERT ON log_entries BEGIN
					INSERT INTO log_entries_fts(rowid, message) VALUES (new.id, new.message);
				END`,
				`CREATE TRIGGER log_entries_ad AFTER DELETE ON log_entries BEGIN
					INSERT INTO log_entries_fts(log_entries_fts, rowid, message) VALUES('delete', old.id, old.message);
				END`,
				`CREATE TABLE log_cursors (
					container TEXT PRIMARY KEY,
					path TEXT NOT NULL,
					offset INTEGER NOT NULL,
					inode INTEGER NOT NULL,
					updated_at TEXT NOT NULL
				)`,
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

// Store is the persistence boundary for the Log Viewer.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// InsertEntry appends a reassembled entry; the FTS shadow table is kept
// consistent by the AFTER INSERT trigger above.
func (s *Store) InsertEntry(e Entry) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO log_entries(timestamp, container, stream, level, message) VALUES (?,?,?,?,?)`,
		e.Timestamp.UTC().Format(timeLayout), e.Container, string(e.Stream), string(e.Level), e.Message)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// PruneRing deletes the oldest entries beyond maxEntries, keeping the FTS
// index consistent via the AFTER DELETE trigger (spec.md §4.2, §8).
func (s *Store) PruneRing(maxEntries int) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM log_entries WHERE id IN (
		SELECT id FROM log_entries ORDER BY id ASC
		LIMIT MAX(0, (SELECT COUNT(*) FROM log_entries) - ?)
	)`, maxEntries)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) GetCursor(container string) (*Cursor, error) {
	var c Cursor
	var updatedAt string
	err := s.db.QueryRow(`SELECT container, path, offset, inode, updated_at FROM log_cursors WHERE container=?`, container).
		Scan(&c.Container, &c.Path, &c.Offset, &c.Inode, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	c.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &c, nil
}

// UpsertCursor atomically persists {path, offset, inode} for container
// (spec.md §4.2).
func (s *Store) UpsertCursor(c Cursor) error {
	_, err := s.db.Exec(`INSERT INTO log_cursors(container, path, offset, inode, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(container) DO UPDATE SET path=excluded.path, offset=excluded.offset, inode=excluded.inode, updated_at=excluded.updated_at`,
		c.Container, c.Path, c.Offset, c.Inode, time.Now().UTC().Format(timeLayout))
	return err
}

// Query implements GET /api/logs (spec.md §4.2): filters on container,
// level, FTS match, and a since/until timestamp window.
func (s *Store) Query(q Query) (*QueryResult, error) {
	where := []string{"1=1"}
	args := []interface{}{}
	join := "log_entries"

	if q.Search != "" {
		join = "log_entries JOIN log_entries_fts ON log_entries_fts.rowid = log_entries.id"
		where = append(where, "log_entries_fts MATCH ?")
		args = append(args, q.Search)
	}
	if q.Container != "" {
		where = append(where, "container=?")
		args = append(args, q.Container)
	}
	if q.Level != "" {
		where = append(where, "level=?")
		args = append(args, string(q.Level))
	}
	if q.Since != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, q.Since.UTC().Format(timeLayout))
	}
	if q.Until != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, q.Until.UTC().Format(timeLayout))
	}

	whereClause := ""
	for i, w := range where {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += w
	}

	var total int
	if err := s.db.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, join, whereClause), args...).Scan(&total); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	listArgs := append(append([]interface{}{}, args...), limit, offset)
	rows, err := s.db.Query(fmt.Sprintf(
		`SELECT log_entries.id, timestamp, container, stream, level, log_entries.message FROM %s WHERE %s ORDER BY timestamp DESC LIMIT ? OFFSET ?`,
		join, whereClause), listArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, stream, level string
		if err := rows.Scan(&e.ID, &ts, &e.Container, &stream, &level, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		e.Stream = Stream(stream)
		e.Level = Level(level)
		entries = append(entries, e)
	}
	return &QueryResult{Total: total, Entries: entries}, nil
}

func (s *Store) Containers() ([]ContainerSummary, error) {
	rows, err := s.db.Query(`SELECT container, COUNT(*) FROM log_entries GROUP BY container ORDER BY container ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ContainerSummary
	for rows.Next() {
		var c ContainerSummary
		if err := rows.Scan(&c.Container, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) Stats() (*Stats, error) {
	st := &Stats{CountsByLevel: map[Level]int{}, CountsByContainer: map[string]int{}}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM log_entries`).Scan(&st.Total); err != nil {
		return nil, err
	}
	var oldest, newest sql.NullString
	if err := s.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM log_entries`).Scan(&oldest, &newest); err != nil {
		return nil, err
	}
	if oldest.Valid {
		t, _ := time.Parse(timeLayout, oldest.String)
		st.Oldest = &t
	}
	if newest.Valid {
		t, _ := time.Parse(timeLayout, newest.String)
		st.Newest = &t
	}
	rows, err := s.db.Query(`SELECT level, COUNT(*) FROM log_entries GROUP BY level`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var lvl string
		var n int
		if err := rows.Scan(&lvl, &n); err != nil {
			rows.Close()
			return nil, err
		}
		st.CountsByLevel[Level(lvl)] = n
	}
	rows.Close()

	rows, err = s.db.Query(`SELECT container, COUNT(*) FROM log_entries GROUP BY container`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		st.CountsByContainer[c] = n
	}
	return st, nil
}

// MaxEntryID returns the highest entry id currently stored, used to
// establish the SSE live-tail cursor at connection start.
func (s *Store) MaxEntryID() (int64, error) {
	var id sql.NullInt64
	if err := s.db.QueryRow(`SELECT MAX(id) FROM log_entries`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// EntriesSince returns entries with id > afterID, ascending by id, for the
// SSE live-tail poll.
func (s *Store) EntriesSince(afterID int64) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT id, timestamp, container, stream, level, message FROM log_entries WHERE id > ? ORDER BY id ASC`, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts, stream, level string
		if err := rows.Scan(&e.ID, &ts, &e.Container, &stream, &level, &e.Message); err != nil {
			return nil, err
		}
		e.Timestamp, _ = time.Parse(timeLayout, ts)
		e.Stream = Stream(stream)
		e.Level = Level(level)
		entries = append(entries, e)
	}
	return entries, nil
}
