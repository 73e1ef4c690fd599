/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"database/sql"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
)

const timeLayout = time.RFC3339

// Migrations is the ordered schema for the Browser Relay's store.
var Migrations = []chassis.Migration{
	{
		Ordinal: 1,
		Name:    "create dsn_keys and source_maps",
		Apply: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE dsn_keys (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					key TEXT NOT NULL UNIQUE,
					project TEXT NOT NULL,
					active INTEGER NOT NULL DEFAULT 1,
					created_at TEXT NOT NULL
				)`,
				`CREATE INDEX idx_dsn_keys_key ON dsn_keys(key)`,
				`CREATE TABLE source_maps (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					project TEXT NOT NULL,
					release TEXT NOT NULL,
					file_url TEXT NOT NULL,
					content TEXT NOT NULL,
					uploaded_at TEXT NOT NULL,
					UNIQUE(project, release, file_url)
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

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// CreateDSNKey inserts a new active key for project.
func (s *Store) CreateDSNKey(key, project string, now time.Time) (*DSNKey, error) {
	res, err := s.db.Exec(`INSERT INTO dsn_keys(key, project, active, created_at) VALUES (?,?,1,?)`,
		key, project, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &DSNKey{ID: id, Key: key, Project: project, Active: true, CreatedAt: now.UTC()}, nil
}

// LookupDSNKey finds a key by its raw key string, whether active or
// deactivated; the caller checks Active (spec.md §4.4's DSN validation gate
// ahead of every browser-facing endpoint).
func (s *Store) LookupDSNKey(key string) (*DSNKey, error) {
	row := s.db.QueryRow(`SELECT id, key, project, active, created_at FROM dsn_keys WHERE key=?`, key)
	var d DSNKey
	var active int
	var created string
	if err := row.Scan(&d.ID, &d.Key, &d.Project, &active, &created); err != nil {
		return nil, err
	}
	d.Active = active != 0
	d.CreatedAt, _ = time.Parse(timeLayout, created)
	return &d, nil
}

// ListDSNKeys returns every key, newest first.
func (s *Store) ListDSNKeys() ([]DSNKey, error) {
	rows, err := s.db.Query(`SELECT id, key, project, active, created_at FROM dsn_keys ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DSNKey
	for rows.Next() {
		var d DSNKey
		var active int
		var created string
		if err := rows.Scan(&d.ID, &d.Key, &d.Project, &active, &created); err != nil {
			return nil, err
		}
		d.Active = active != 0
		d.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, d)
	}
	return out, nil
}

// DeactivateDSNKey soft-deletes a key (spec.md §3: keys are deactivated,
// never hard-deleted, so already-forwarded history stays attributable).
func (s *Store) DeactivateDSNKey(id int64) error {
	_, err := s.db.Exec(`UPDATE dsn_keys SET active=0 WHERE id=?`, id)
	return err
}

// UpsertSourceMap replaces any existing map for (project, release,
// file_url) — re-uploading the same triple is idempotent (spec.md §8).
func (s *Store) UpsertSourceMap(project, release, fileURL, content string, now time.Time) (*SourceMap, error) {
	_, err := s.db.Exec(`INSERT INTO source_maps(project, release, file_url, content, uploaded_at) VALUES (?,?,?,?,?)
		ON CONFLICT(project, release, file_url) DO UPDATE SET content=excluded.content, uploaded_at=excluded.uploaded_at`,
		project, release, fileURL, content, now.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	return s.GetSourceMap(project, release, fileURL)
}

// GetSourceMap looks up a map by its exact (project, release, file_url)
// key, per the "exact match on file URL" Open Question decision.
func (s *Store) GetSourceMap(project, release, fileURL string) (*SourceMap, error) {
	row := s.db.QueryRow(`SELECT id, project, release, file_url, content, uploaded_at FROM source_maps WHERE project=? AND release=? AND file_url=?`,
		project, release, fileURL)
	var m SourceMap
	var uploaded string
	if err := row.Scan(&m.ID, &m.Project, &m.Release, &m.FileURL, &m.Content, &uploaded); err != nil {
		return nil, err
	}
	m.UploadedAt, _ = time.Parse(timeLayout, uploaded)
	return &m, nil
}

// ListSourceMaps returns every map's metadata (without content) for project.
func (s *Store) ListSourceMaps(project string) ([]SourceMap, error) {
	rows, err := s.db.Query(`SELECT id, project, release, file_url, uploaded_at FROM source_maps WHERE project=? ORDER BY id DESC`, project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SourceMap
	for rows.Next() {
		var m SourceMap
		var uploaded string
		if err := rows.Scan(&m.ID, &m.Project, &m.Release, &m.FileURL, &uploaded); err != nil {
			return nil, err
		}
		m.UploadedAt, _ = time.Parse(timeLayout, uploaded)
		out = append(out, m)
	}
	return out, nil
}

// DeleteSourceMap removes a map by id.
func (s *Store) DeleteSourceMap(id int64) error {
	_, err := s.db.Exec(`DELETE FROM source_maps WHERE id=?`, id)
	return err
}

// PruneSourceMaps deletes maps uploaded before cutoff, the Browser Relay's
// RETENTION_DAYS analogue to the Error Tracker's resolved-group sweep —
// old releases' maps otherwise accumulate forever.
func (s *Store) PruneSourceMaps(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM source_maps WHERE uploaded_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
