/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package errortracker

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/brianvoe/gofakeit"
	"github.com/stretchr/testify/require"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/logging"
	"github.com/mattmezza/monlight/internal/sqlitestore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlitestore.Open(filepath.Join(dir, "errors.db"), sqlitestore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, chassis.RunMigrations(db, Migrations))
	lg := logging.New(nopWriter{}, "test", logging.OFF)
	return NewService(db, NoopNotifier{}, lg, "", nil)
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func sampleReport() Report {
	return Report{
		Project:       "p",
		ExceptionType: "ValueError",
		Message:       "m",
		Traceback:     "Traceback (most recent call last):\n  File \"/a.py\", line 56, in f\n    raise",
	}
}

// TestDedupAndReopen is end-to-end scenario 1 of spec.md §8.
func TestDedupAndReopen(t *testing.T) {
	svc := newTestService(t)
	r := sampleReport()

	res, err := svc.Ingest(r)
	require.NoError(t, err)
	require.Equal(t, BranchCreated, res.Branch)
	require.Equal(t, 1, res.Group.Count)
	id := res.Group.ID

	for i := 0; i < 2; i++ {
		res, err = svc.Ingest(r)
		require.NoError(t, err)
		require.Equal(t, BranchIncremented, res.Branch)
	}
	require.Equal(t, 3, res.Group.Count)

	resolved, err := svc.Resolve(id)
	require.NoError(t, err)
	require.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)

	res, err = svc.Ingest(r)
	require.NoError(t, err)
	require.Equal(t, BranchReopened, res.Branch)
	require.Equal(t, 4, res.Group.Count)
	require.False(t, res.Group.Resolved)
	require.Nil(t, res.Group.ResolvedAt)
}

// TestOccurrenceRing is end-to-end scenario 2 of spec.md §8.
func TestOccurrenceRing(t *testing.T) {
	svc := newTestService(t)
	r := sampleReport()

	var id int64
	for i := 0; i < 7; i++ {
		res, err := svc.Ingest(r)
		require.NoError(t, err)
		id = res.Group.ID
	}

	detail, err := svc.Detail(id)
	require.NoError(t, err)
	require.Equal(t, 7, detail.Group.Count)
	require.Len(t, detail.Occurrences, 5)
}

// TestResolveIdempotent checks the round-trip property of spec.md §8:
// Resolve(id) called twice yields the same resolved_at on the second call.
func TestResolveIdempotent(t *testing.T) {
	svc := newTestService(t)
	res, err := svc.Ingest(sampleReport())
	require.NoError(t, err)

	first, err := svc.Resolve(res.Group.ID)
	require.NoError(t, err)
	second, err := svc.Resolve(res.Group.ID)
	require.NoError(t, err)

	require.Equal(t, first.ResolvedAt.Unix(), second.ResolvedAt.Unix())
}

func TestIngestValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(Report{ExceptionType: "X", Message: "m"})
	require.Error(t, err)
}

func TestListFiltersBySource(t *testing.T) {
	svc := newTestService(t)
	serverReport := sampleReport()
	_, err := svc.Ingest(serverReport)
	require.NoError(t, err)

	browserReport := sampleReport()
	browserReport.ExceptionType = "TypeError"
	browserReport.RequestMethod = "BROWSER"
	browserReport.Traceback = "foo@https://example.com/app.js:1:1"
	_, err = svc.Ingest(browserReport)
	require.NoError(t, err)

	res, err := svc.List(ListFilters{Source: "browser"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)

	res, err = svc.List(ListFilters{Source: "server"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
}

func TestProjects(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest(sampleReport())
	require.NoError(t, err)
	projects, err := svc.Projects()
	require.NoError(t, err)
	require.Equal(t, []string{"p"}, projects)
}

// TestListPaginationDefaultsAndCap exercises §8's limit-boundary property
// ("above the cap is clamped to the cap") against a fleet of distinct
// groups, using gofakeit to synthesize realistic-looking project/host
// fields the way the teacher's generators/ package fabricates test traffic.
func TestListPaginationDefaultsAndCap(t *testing.T) {
	gofakeit.Seed(1)
	svc := newTestService(t)

	const projectCount = 210
	for i := 0; i < projectCount; i++ {
		r := sampleReport()
		r.Project = fmt.Sprintf("%s-%d", gofakeit.DomainName(), i)
		r.RequestURL = fmt.Sprintf("https://%s/healthz", gofakeit.IPv4Address())
		r.Traceback = fmt.Sprintf("Traceback (most recent call last):\n  File \"/app-%d.py\", line %d, in f\n    raise", i, i+1)
		_, err := svc.Ingest(r)
		require.NoError(t, err)
	}

	res, err := svc.List(ListFilters{})
	require.NoError(t, err)
	require.Equal(t, projectCount, res.Total)
	require.Len(t, res.Groups, 50, "default limit is 50")

	res, err = svc.List(ListFilters{Limit: 1000})
	require.NoError(t, err)
	require.Len(t, res.Groups, 200, "limit above the cap is clamped to 200")
}
