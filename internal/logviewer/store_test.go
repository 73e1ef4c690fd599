/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

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
	db, err := sqlitestore.Open(filepath.Join(dir, "logs.db"), sqlitestore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, chassis.RunMigrations(db, Migrations))
	return NewStore(db)
}

// TestRingBufferPruneBoundary checks the boundary property of spec.md §8:
// count == MAX_ENTRIES does not prune; MAX_ENTRIES+1 removes exactly the
// oldest by id.
func TestRingBufferPruneBoundary(t *testing.T) {
	store := newTestStore(t)
	var firstID int64
	for i := 0; i < 5; i++ {
		id, err := store.InsertEntry(Entry{Timestamp: time.Now(), Container: "c1", Stream: StreamStdout, Level: LevelInfo, Message: "m"})
		require.NoError(t, err)
		if i == 0 {
			firstID = id
		}
	}
	n, err := store.PruneRing(5)
	require.NoError(t, err)
	require.Equal(t, int64(0), n)

	_, err = store.InsertEntry(Entry{Timestamp: time.Now(), Container: "c1", Stream: StreamStdout, Level: LevelInfo, Message: "m"})
	require.NoError(t, err)
	n, err = store.PruneRing(5)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	res, err := store.Query(Query{})
	require.NoError(t, err)
	for _, e := range res.Entries {
		require.NotEqual(t, firstID, e.ID, "oldest entry should have been pruned")
	}
}

// TestFTSConsistency checks that the FTS shadow index tracks inserts and
// deletes one-to-one (spec.md §8).
func TestFTSConsistency(t *testing.T) {
	store := newTestStore(t)
	id, err := store.InsertEntry(Entry{Timestamp: time.Now(), Container: "c1", Stream: StreamStdout, Level: LevelInfo, Message: "database connection refused"})
	require.NoError(t, err)

	res, err := store.Query(Query{Search: "refused"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, id, res.Entries[0].ID)

	// Pruning deletes the entry; the FTS row must follow it via the
	// AFTER DELETE trigger, or a search would still find a hit.
	_, err = store.PruneRing(0)
	require.NoError(t, err)

	res, err = store.Query(Query{Search: "refused"})
	require.NoError(t, err)
	require.Equal(t, 0, res.Total)
}

func TestCursorUpsertAndRotation(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.UpsertCursor(Cursor{Container: "c1", Path: "/a", Offset: 1000, Inode: 111}))
	c, err := store.GetCursor("c1")
	require.NoError(t, err)
	require.Equal(t, int64(1000), c.Offset)
	require.Equal(t, uint64(111), c.Inode)

	// Simulate rotation: new inode written with offset reset to file size.
	require.NoError(t, store.UpsertCursor(Cursor{Container: "c1", Path: "/a", Offset: 42, Inode: 222}))
	c, err = store.GetCursor("c1")
	require.NoError(t, err)
	require.Equal(t, uint64(222), c.Inode)
	require.Equal(t, int64(42), c.Offset)
}
