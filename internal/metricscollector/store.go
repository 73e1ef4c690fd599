/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"database/sql"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
)

const timeLayout = time.RFC3339

// Migrations is the ordered schema for the Metrics Collector's store.
var Migrations = []chassis.Migration{
	{
		Ordinal: 1,
		Name:    "create raw and aggregated metrics",
		Apply: func(tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE raw_metrics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					timestamp TEXT NOT NULL,
					name TEXT NOT NULL,
					labels TEXT NOT NULL DEFAULT '',
					value REAL NOT NULL,
					type TEXT NOT NULL
				)`,
				`CREATE INDEX idx_raw_metrics_name_time ON raw_metrics(name, labels, timestamp)`,
				`CREATE INDEX idx_raw_metrics_timestamp ON raw_metrics(timestamp)`,
				`CREATE TABLE aggregated_metrics (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					bucket TEXT NOT NULL,
					resolution TEXT NOT NULL,
					name TEXT NOT NULL,
					labels TEXT NOT NULL DEFAULT '',
					count INTEGER NOT NULL,
					sum REAL NOT NULL,
					min REAL NOT NULL,
					max REAL NOT NULL,
					avg REAL NOT NULL,
					p50 REAL,
					p95 REAL,
					p99 REAL,
					UNIQUE(bucket, resolution, name, labels)
				)`,
				`CREATE INDEX idx_agg_query ON aggregated_metrics(name, labels, resolution, bucket)`,
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

// InsertBatch inserts up to 1000 raw points in one transaction (spec.md
// §4.3), canonicalizing each point's labels at ingest (spec.md §3, §4.3)
// so the query path's equally-canonicalized filter can match by plain
// string equality regardless of the key order a producer submitted.
func (s *Store) InsertBatch(points []Point, now time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO raw_metrics(timestamp, name, labels, value, type) VALUES (?,?,?,?,?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, p := range points {
		ts := now
		if p.Timestamp != nil {
			ts = *p.Timestamp
		}
		if _, err := stmt.Exec(ts.UTC().Format(timeLayout), p.Name, p.Labels.Canonical(), p.Value, string(p.Type)); err != nil {
			return n, err
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// distinctRawGroup is one (name, labels, type) triple observed with raw
// rows in a bucket.
type distinctRawGroup struct {
	Name   string
	Labels string
	Type   MetricType
}

// DistinctRawGroups finds the (name, labels, type) triples with raw rows
// in [start, end) (spec.md §4.3 minute rollup).
func (s *Store) DistinctRawGroups(start, end time.Time) ([]distinctRawGroup, error) {
	rows, err := s.db.Query(`SELECT DISTINCT name, labels, type FROM raw_metrics WHERE timestamp >= ? AND timestamp < ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []distinctRawGroup
	for rows.Next() {
		var g distinctRawGroup
		var typ string
		if err := rows.Scan(&g.Name, &g.Labels, &typ); err != nil {
			return nil, err
		}
		g.Type = MetricType(typ)
		out = append(out, g)
	}
	return out, nil
}

// RawValues returns every raw value for (name, labels) in [start, end),
// ordered ascending — the input to nearest-rank percentile computation.
func (s *Store) RawValues(name, labels string, start, end time.Time) ([]float64, error) {
	rows, err := s.db.Query(`SELECT value FROM raw_metrics WHERE name=? AND labels=? AND timestamp >= ? AND timestamp < ? ORDER BY value ASC`,
		name, labels, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// InsertAggregate upserts one aggregated row (append-only in practice: a
// given (bucket, resolution, name, labels) is only ever rolled up once, but
// ON CONFLICT guards re-runs after a crash mid-cycle).
func (s *Store) InsertAggregate(a Aggregate) error {
	_, err := s.db.Exec(`INSERT INTO aggregated_metrics(bucket, resolution, name, labels, count, sum, min, max, avg, p50, p95, p99)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(bucket, resolution, name, labels) DO UPDATE SET
			count=excluded.count, sum=excluded.sum, min=excluded.min, max=excluded.max, avg=excluded.avg,
			p50=excluded.p50, p95=excluded.p95, p99=excluded.p99`,
		a.Bucket.UTC().Format(timeLayout), string(a.Resolution), a.Name, a.Labels,
		a.Count, a.Sum, a.Min, a.Max, a.Avg, a.P50, a.P95, a.P99)
	return err
}

// DistinctMinuteGroups finds (name, labels) pairs with minute rows in
// [start, end) (spec.md §4.3 hour rollup).
func (s *Store) DistinctMinuteGroups(start, end time.Time) ([]distinctRawGroup, error) {
	rows, err := s.db.Query(`SELECT DISTINCT name, labels FROM aggregated_metrics WHERE resolution='minute' AND bucket >= ? AND bucket < ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []distinctRawGroup
	for rows.Next() {
		var g distinctRawGroup
		if err := rows.Scan(&g.Name, &g.Labels); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// MinuteRows returns the minute-resolution aggregate rows for (name,
// labels) in [start, end), the input to hour rollup.
func (s *Store) MinuteRows(name, labels string, start, end time.Time) ([]Aggregate, error) {
	rows, err := s.db.Query(`SELECT bucket, count, sum, min, max, avg, p50, p95, p99 FROM aggregated_metrics
		WHERE resolution='minute' AND name=? AND labels=? AND bucket >= ? AND bucket < ?`,
		name, labels, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		var bucket string
		var p50, p95, p99 sql.NullFloat64
		if err := rows.Scan(&bucket, &a.Count, &a.Sum, &a.Min, &a.Max, &a.Avg, &p50, &p95, &p99); err != nil {
			return nil, err
		}
		a.Bucket, _ = time.Parse(timeLayout, bucket)
		a.Name, a.Labels = name, labels
		if p50.Valid {
			v := p50.Float64
			a.P50 = &v
		}
		if p95.Valid {
			v := p95.Float64
			a.P95 = &v
		}
		if p99.Valid {
			v := p99.Float64
			a.P99 = &v
		}
		out = append(out, a)
	}
	return out, nil
}

// Query returns aggregated rows for name in [start, end] at resolution,
// optionally filtered by canonical labels (spec.md §4.3).
func (s *Store) Query(name string, labels string, resolution Resolution, start, end time.Time) ([]Aggregate, error) {
	args := []interface{}{name, string(resolution), start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)}
	where := `name=? AND resolution=? AND bucket >= ? AND bucket <= ?`
	if labels != "" {
		where += " AND labels=?"
		args = append(args, labels)
	}
	rows, err := s.db.Query(`SELECT bucket, labels, count, sum, min, max, avg, p50, p95, p99 FROM aggregated_metrics WHERE `+where+` ORDER BY bucket ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Aggregate
	for rows.Next() {
		var a Aggregate
		var bucket string
		var p50, p95, p99 sql.NullFloat64
		if err := rows.Scan(&bucket, &a.Labels, &a.Count, &a.Sum, &a.Min, &a.Max, &a.Avg, &p50, &p95, &p99); err != nil {
			return nil, err
		}
		a.Bucket, _ = time.Parse(timeLayout, bucket)
		a.Name = name
		a.Resolution = resolution
		if p50.Valid {
			v := p50.Float64
			a.P50 = &v
		}
		if p95.Valid {
			v := p95.Float64
			a.P95 = &v
		}
		if p99.Valid {
			v := p99.Float64
			a.P99 = &v
		}
		out = append(out, a)
	}
	return out, nil
}

// Names returns every distinct metric name ever ingested.
func (s *Store) Names() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT name FROM raw_metrics ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// DashboardTotals returns the total raw datapoint count, distinct metric
// name count, and top-10 metrics by raw count in [start, end].
func (s *Store) DashboardTotals(start, end time.Time) (total int64, distinct int, top []MetricCount, err error) {
	if err = s.db.QueryRow(`SELECT COUNT(*) FROM raw_metrics WHERE timestamp >= ? AND timestamp <= ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)).Scan(&total); err != nil {
		return
	}
	if err = s.db.QueryRow(`SELECT COUNT(DISTINCT name) FROM raw_metrics WHERE timestamp >= ? AND timestamp <= ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)).Scan(&distinct); err != nil {
		return
	}
	rows, qerr := s.db.Query(`SELECT name, COUNT(*) c FROM raw_metrics WHERE timestamp >= ? AND timestamp <= ? GROUP BY name ORDER BY c DESC LIMIT 10`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if qerr != nil {
		err = qerr
		return
	}
	defer rows.Close()
	for rows.Next() {
		var mc MetricCount
		if err = rows.Scan(&mc.Name, &mc.Count); err != nil {
			return
		}
		top = append(top, mc)
	}
	return
}

// WebVitalsExists reports whether any browser-sourced web_vitals_* point
// exists in [start, end] (spec.md §4.3's conditional dashboard block).
func (s *Store) WebVitalsExists(start, end time.Time) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM raw_metrics WHERE name LIKE 'web_vitals_%' AND labels LIKE '%"source":"browser"%' AND timestamp >= ? AND timestamp <= ?`,
		start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// WebVitalsAverage returns the average raw value for a web_vitals_* metric
// in [start, end].
func (s *Store) WebVitalsAverage(name string, start, end time.Time) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRow(`SELECT AVG(value) FROM raw_metrics WHERE name=? AND labels LIKE '%"source":"browser"%' AND timestamp >= ? AND timestamp <= ?`,
		name, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}

// WebVitalsSeries returns (bucket, avg) pairs for name bucketed to the
// given truncation unit.
func (s *Store) WebVitalsSeries(name string, start, end time.Time, bucketSeconds int) ([]struct {
	Bucket time.Time
	Avg    float64
}, error) {
	rows, err := s.db.Query(`SELECT timestamp, value FROM raw_metrics WHERE name=? AND labels LIKE '%"source":"browser"%' AND timestamp >= ? AND timestamp <= ? ORDER BY timestamp ASC`,
		name, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := map[int64]float64{}
	counts := map[int64]int{}
	var order []int64
	for rows.Next() {
		var ts string
		var v float64
		if err := rows.Scan(&ts, &v); err != nil {
			return nil, err
		}
		t, _ := time.Parse(timeLayout, ts)
		key := t.Unix() / int64(bucketSeconds) * int64(bucketSeconds)
		if _, ok := sums[key]; !ok {
			order = append(order, key)
		}
		sums[key] += v
		counts[key]++
	}
	out := make([]struct {
		Bucket time.Time
		Avg    float64
	}, 0, len(order))
	for _, key := range order {
		out = append(out, struct {
			Bucket time.Time
			Avg    float64
		}{Bucket: time.Unix(key, 0).UTC(), Avg: sums[key] / float64(counts[key])})
	}
	return out, nil
}

// WebVitalsByPage returns the average value per labels.page for name in
// [start, end].
func (s *Store) WebVitalsByPage(name string, start, end time.Time) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT labels, value FROM raw_metrics WHERE name=? AND labels LIKE '%"source":"browser"%' AND timestamp >= ? AND timestamp <= ?`,
		name, start.UTC().Format(timeLayout), end.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sums := map[string]float64{}
	counts := map[string]int{}
	for rows.Next() {
		var labels string
		var v float64
		if err := rows.Scan(&labels, &v); err != nil {
			return nil, err
		}
		page := DecodeLabels(labels)["page"]
		if page == "" {
			continue
		}
		sums[page] += v
		counts[page]++
	}
	out := map[string]float64{}
	for page, sum := range sums {
		out[page] = sum / float64(counts[page])
	}
	return out, nil
}

// PruneRaw deletes raw rows older than cutoff.
func (s *Store) PruneRaw(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM raw_metrics WHERE timestamp < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PruneAggregates deletes aggregated rows at resolution older than cutoff.
func (s *Store) PruneAggregates(resolution Resolution, cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM aggregated_metrics WHERE resolution=? AND bucket < ?`, string(resolution), cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
