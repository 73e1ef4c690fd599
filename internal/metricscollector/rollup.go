/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"context"
	"math"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/logging"
)

// percentile computes the nearest-rank percentile of sorted (ascending)
// values: rank index r = ceil(p*n/100) - 1, clipped to [0, n-1] (spec.md
// §4.3, §8 scenario 5).
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	r := int(math.Ceil(p*float64(n)/100)) - 1
	if r < 0 {
		r = 0
	}
	if r > n-1 {
		r = n - 1
	}
	return sorted[r]
}

func summarize(values []float64) (count int64, sum, min, max, avg float64) {
	count = int64(len(values))
	if count == 0 {
		return
	}
	min, max = values[0], values[0]
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	avg = sum / float64(count)
	return
}

// RunMinuteRollup computes the minute rollup for the bucket
// [bucket, bucket+1min) (spec.md §4.3). bucket must already be truncated to
// the minute.
func RunMinuteRollup(store *Store, bucket time.Time) error {
	end := bucket.Add(time.Minute)
	groups, err := store.DistinctRawGroups(bucket, end)
	if err != nil {
		return err
	}
	for _, g := range groups {
		values, err := store.RawValues(g.Name, g.Labels, bucket, end)
		if err != nil {
			return err
		}
		count, sum, min, max, avg := summarize(values)
		a := Aggregate{Bucket: bucket, Resolution: ResolutionMinute, Name: g.Name, Labels: g.Labels,
			Count: count, Sum: sum, Min: min, Max: max, Avg: avg}
		if g.Type == TypeHistogram {
			p50, p95, p99 := percentile(values, 50), percentile(values, 95), percentile(values, 99)
			a.P50, a.P95, a.P99 = &p50, &p95, &p99
		}
		if err := store.InsertAggregate(a); err != nil {
			return err
		}
	}
	return nil
}

// RunHourRollup computes the hour rollup for [bucket, bucket+1h) from
// already-persisted minute rows (spec.md §4.3: count=Σcount, sum=Σsum,
// min=min(min), max=max(max), avg=Σsum/Σcount, percentiles = arithmetic
// mean of minute percentiles — a documented approximation, see DESIGN.md's
// Open Question decision).
func RunHourRollup(store *Store, bucket time.Time) error {
	end := bucket.Add(time.Hour)
	groups, err := store.DistinctMinuteGroups(bucket, end)
	if err != nil {
		return err
	}
	for _, g := range groups {
		rows, err := store.MinuteRows(g.Name, g.Labels, bucket, end)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		var count int64
		var sum, min, max float64
		var p50sum, p95sum, p99sum float64
		var histCount int
		min, max = rows[0].Min, rows[0].Max
		for _, r := range rows {
			count += r.Count
			sum += r.Sum
			if r.Min < min {
				min = r.Min
			}
			if r.Max > max {
				max = r.Max
			}
			if r.P50 != nil {
				p50sum += *r.P50
				p95sum += *r.P95
				p99sum += *r.P99
				histCount++
			}
		}
		a := Aggregate{Bucket: bucket, Resolution: ResolutionHour, Name: g.Name, Labels: g.Labels,
			Count: count, Sum: sum, Min: min, Max: max}
		if count > 0 {
			a.Avg = sum / float64(count)
		}
		if histCount > 0 {
			p50, p95, p99 := p50sum/float64(histCount), p95sum/float64(histCount), p99sum/float64(histCount)
			a.P50, a.P95, a.P99 = &p50, &p95, &p99
		}
		if err := store.InsertAggregate(a); err != nil {
			return err
		}
	}
	return nil
}

// RunRetention implements spec.md §4.3's tiered retention: raw rows older
// than rawHours, minute rows older than minuteHours, hour rows older than
// hourlyDays.
func RunRetention(store *Store, now time.Time, rawHours, minuteHours, hourlyDays int) error {
	if _, err := store.PruneRaw(now.Add(-time.Duration(rawHours) * time.Hour)); err != nil {
		return err
	}
	if _, err := store.PruneAggregates(ResolutionMinute, now.Add(-time.Duration(minuteHours)*time.Hour)); err != nil {
		return err
	}
	if _, err := store.PruneAggregates(ResolutionHour, now.AddDate(0, 0, -hourlyDays)); err != nil {
		return err
	}
	return nil
}

// RunAggregationWorker implements spec.md §5's aggregation worker: every
// interval, roll up the previous completed minute; every 60th cycle, also
// roll up the previous completed hour and run tiered retention.
//
// Late-arriving raw points for an already-rolled-up minute are never
// re-aggregated (documented open question, see DESIGN.md): each cycle only
// ever rolls up the single minute bucket that just completed.
func RunAggregationWorker(ctx context.Context, store *Store, interval time.Duration, rawHours, minuteHours, hourlyDays int, lg *logging.Logger) error {
	cycle := 0
	for {
		if chassis.SleepChunked(ctx, interval) {
			return ctx.Err()
		}
		now := time.Now().UTC()
		bucket := now.Truncate(time.Minute).Add(-time.Minute)
		if err := RunMinuteRollup(store, bucket); err != nil {
			lg.Error("minute rollup failed", logging.SD("error", err.Error()))
		}
		cycle++
		if cycle%60 == 0 {
			hourBucket := now.Truncate(time.Hour).Add(-time.Hour)
			if err := RunHourRollup(store, hourBucket); err != nil {
				lg.Error("hour rollup failed", logging.SD("error", err.Error()))
			}
			if err := RunRetention(store, now, rawHours, minuteHours, hourlyDays); err != nil {
				lg.Error("retention sweep failed", logging.SD("error", err.Error()))
			}
		}
	}
}
