/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/sqlitestore"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlitestore.Open(filepath.Join(dir, "relay.db"), sqlitestore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, chassis.RunMigrations(db, Migrations))
	return NewStore(db)
}

func TestDSNKeyLookupActiveVsDeactivated(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	key, err := store.CreateDSNKey("abc123", "proj", now)
	require.NoError(t, err)

	found, err := store.LookupDSNKey("abc123")
	require.NoError(t, err)
	require.True(t, found.Active)
	require.Equal(t, "proj", found.Project)

	require.NoError(t, store.DeactivateDSNKey(key.ID))
	found, err = store.LookupDSNKey("abc123")
	require.NoError(t, err)
	require.False(t, found.Active)
}

func TestLookupUnknownDSNKeyErrors(t *testing.T) {
	store := newTestStore(t)
	_, err := store.LookupDSNKey("does-not-exist")
	require.Error(t, err)
}

// TestSourceMapReuploadIsIdempotent is spec.md §8's property: uploading the
// same (project, release, file_url) twice leaves exactly one row whose
// content equals the latest upload.
func TestSourceMapReuploadIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.UpsertSourceMap("proj", "v1", "/app.js", "old-content", now)
	require.NoError(t, err)
	_, err = store.UpsertSourceMap("proj", "v1", "/app.js", "new-content", now.Add(time.Hour))
	require.NoError(t, err)

	maps, err := store.ListSourceMaps("proj")
	require.NoError(t, err)
	require.Len(t, maps, 1)

	got, err := store.GetSourceMap("proj", "v1", "/app.js")
	require.NoError(t, err)
	require.Equal(t, "new-content", got.Content)
}

func TestPruneSourceMapsByAge(t *testing.T) {
	store := newTestStore(t)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := store.UpsertSourceMap("proj", "old", "/a.js", "x", old)
	require.NoError(t, err)
	_, err = store.UpsertSourceMap("proj", "new", "/b.js", "y", recent)
	require.NoError(t, err)

	n, err := store.PruneSourceMaps(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	maps, err := store.ListSourceMaps("proj")
	require.NoError(t, err)
	require.Len(t, maps, 1)
	require.Equal(t, "new", maps[0].Release)
}
