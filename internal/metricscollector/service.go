/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"fmt"
	"time"

	"github.com/mattmezza/monlight/internal/httpx"
)

const maxBatchPoints = 1000

// Service implements the Metrics Collector's public operations of spec.md
// §4.3. Aggregation runs as a background worker (RunAggregationWorker)
// sharing the same store.
type Service struct {
	store *Store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

func validatePoint(p Point) error {
	if p.Name == "" {
		return httpx.Validation("name is required")
	}
	if len(p.Name) > 200 {
		return httpx.Validation("name exceeds maximum length")
	}
	switch p.Type {
	case TypeCounter, TypeHistogram, TypeGauge:
	default:
		return httpx.Validation("type must be one of counter, histogram, gauge")
	}
	return nil
}

// Ingest implements POST /api/metrics: accepts up to 1000 points, inserts
// them as raw rows, and responds asynchronously (no synchronous
// aggregation, spec.md §4.3).
func (s *Service) Ingest(points []Point) (*IngestResult, error) {
	if len(points) == 0 {
		return nil, httpx.Validation("batch must contain at least one point")
	}
	if len(points) > maxBatchPoints {
		return nil, httpx.Validation(fmt.Sprintf("batch exceeds maximum of %d points", maxBatchPoints))
	}
	for _, p := range points {
		if err := validatePoint(p); err != nil {
			return nil, err
		}
	}
	n, err := s.store.InsertBatch(points, s.now().UTC())
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return &IngestResult{Accepted: n}, nil
}

func periodDuration(period string) time.Duration {
	switch period {
	case "1h":
		return time.Hour
	case "7d":
		return 7 * 24 * time.Hour
	case "30d":
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

func resolveAutoResolution(resolution string, period time.Duration) Resolution {
	switch resolution {
	case "minute":
		return ResolutionMinute
	case "hour":
		return ResolutionHour
	default:
		if period <= 24*time.Hour {
			return ResolutionMinute
		}
		return ResolutionHour
	}
}

// Query implements GET /api/metrics (spec.md §4.3).
func (s *Service) Query(p QueryParams) ([]Aggregate, error) {
	if p.Name == "" {
		return nil, httpx.Validation("name is required")
	}
	dur := periodDuration(p.Period)
	resolution := resolveAutoResolution(p.Resolution, dur)
	now := s.now().UTC()
	start := now.Add(-dur)

	rows, err := s.store.Query(p.Name, p.Labels, resolution, start, now)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return rows, nil
}

func (s *Service) Names() ([]string, error) {
	names, err := s.store.Names()
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return names, nil
}

// Dashboard implements GET /api/dashboard (spec.md §4.3): totals, top
// metrics, and a conditional Web Vitals block.
func (s *Service) Dashboard(period string) (*DashboardResult, error) {
	dur := periodDuration(period)
	now := s.now().UTC()
	start := now.Add(-dur)

	total, distinct, top, err := s.store.DashboardTotals(start, now)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	res := &DashboardResult{Period: period, TotalDatapoints: total, DistinctNames: distinct, TopMetrics: top}

	hasVitals, err := s.store.WebVitalsExists(start, now)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	if hasVitals {
		block, err := s.buildWebVitals(start, now, dur)
		if err != nil {
			return nil, httpx.Server(err.Error())
		}
		res.WebVitals = block
	}
	return res, nil
}

func (s *Service) buildWebVitals(start, end time.Time, dur time.Duration) (*WebVitalsBlock, error) {
	block := &WebVitalsBlock{
		Averages:   map[string]float64{},
		Thresholds: WebVitalsThresholds,
		ByPage:     map[string]map[string]float64{},
	}
	bucketSeconds := 60
	if dur > 24*time.Hour {
		bucketSeconds = 3600
	}
	seriesByBucket := map[int64]map[string]float64{}
	var order []int64
	for name := range WebVitalsThresholds {
		avg, err := s.store.WebVitalsAverage(name, start, end)
		if err != nil {
			return nil, err
		}
		block.Averages[name] = avg

		byPage, err := s.store.WebVitalsByPage(name, start, end)
		if err != nil {
			return nil, err
		}
		block.ByPage[name] = byPage

		series, err := s.store.WebVitalsSeries(name, start, end, bucketSeconds)
		if err != nil {
			return nil, err
		}
		for _, pt := range series {
			key := pt.Bucket.Unix()
			if _, ok := seriesByBucket[key]; !ok {
				seriesByBucket[key] = map[string]float64{}
				order = append(order, key)
			}
			seriesByBucket[key][name] = pt.Avg
		}
	}
	for _, key := range order {
		block.Series = append(block.Series, WebVitalsBucket{Bucket: time.Unix(key, 0).UTC(), Metrics: seriesByBucket[key]})
	}
	return block, nil
}
