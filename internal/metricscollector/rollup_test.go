/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

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
	db, err := sqlitestore.Open(filepath.Join(dir, "metrics.db"), sqlitestore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, chassis.RunMigrations(db, Migrations))
	return NewStore(db)
}

func TestPercentileNearestRank(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	require.Equal(t, float64(5), percentile(sorted, 50))
	require.Equal(t, float64(10), percentile(sorted, 95))
	require.Equal(t, float64(10), percentile(sorted, 99))
}

// TestMinuteRollupPercentiles is end-to-end scenario 5 of spec.md §8.
func TestMinuteRollupPercentiles(t *testing.T) {
	store := newTestStore(t)
	bucket := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	var points []Point
	for i := 1; i <= 10; i++ {
		v := float64(i) / 100.0
		ts := bucket.Add(time.Duration(i) * time.Second)
		points = append(points, Point{Name: "latency", Type: TypeHistogram, Value: v, Timestamp: &ts})
	}
	_, err := store.InsertBatch(points, bucket)
	require.NoError(t, err)

	require.NoError(t, RunMinuteRollup(store, bucket))

	rows, err := store.Query("latency", "", ResolutionMinute, bucket, bucket.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, int64(10), row.Count)
	require.InDelta(t, 0.05, *row.P50, 1e-9)
	require.InDelta(t, 0.10, *row.P95, 1e-9)
	require.InDelta(t, 0.10, *row.P99, 1e-9)
}

func TestCounterGaugeHaveNoPercentiles(t *testing.T) {
	store := newTestStore(t)
	bucket := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts := bucket.Add(time.Second)
	_, err := store.InsertBatch([]Point{{Name: "requests", Type: TypeCounter, Value: 1, Timestamp: &ts}}, bucket)
	require.NoError(t, err)
	require.NoError(t, RunMinuteRollup(store, bucket))

	rows, err := store.Query("requests", "", ResolutionMinute, bucket, bucket.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Nil(t, rows[0].P50)
	require.Nil(t, rows[0].P95)
	require.Nil(t, rows[0].P99)
}

func TestHourRollupAggregatesMinuteRows(t *testing.T) {
	store := newTestStore(t)
	hourBucket := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for m := 0; m < 3; m++ {
		minBucket := hourBucket.Add(time.Duration(m) * time.Minute)
		ts := minBucket.Add(time.Second)
		_, err := store.InsertBatch([]Point{{Name: "cpu", Type: TypeGauge, Value: float64(m + 1), Timestamp: &ts}}, minBucket)
		require.NoError(t, err)
		require.NoError(t, RunMinuteRollup(store, minBucket))
	}

	require.NoError(t, RunHourRollup(store, hourBucket))

	rows, err := store.Query("cpu", "", ResolutionHour, hourBucket, hourBucket.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(3), rows[0].Count)
	require.InDelta(t, 6, rows[0].Sum, 1e-9)
}

func TestCanonicalLabelsOrderIndependent(t *testing.T) {
	a := CanonicalLabels(map[string]string{"b": "2", "a": "1"})
	b := CanonicalLabels(map[string]string{"a": "1", "b": "2"})
	require.Equal(t, a, b)
	require.Equal(t, a, ParseLabelFilter("b:2,a:1"))
}
