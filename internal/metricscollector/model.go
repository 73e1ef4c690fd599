/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import "time"

// MetricType is one of the three point kinds of spec.md §3.
type MetricType string

const (
	TypeCounter   MetricType = "counter"
	TypeHistogram MetricType = "histogram"
	TypeGauge     MetricType = "gauge"
)

// Resolution is an aggregation bucket width.
type Resolution string

const (
	ResolutionMinute Resolution = "minute"
	ResolutionHour   Resolution = "hour"
)

// Point is one inbound raw measurement (spec.md §4.3 Ingest(batch)). Labels
// is accepted on the wire as a JSON object (the shape every producer,
// including the browser relay's forwarder, naturally emits) and is
// canonicalized to the stored string form (spec.md §3) at ingest, not at
// query time, so two semantically identical label sets submitted in
// different key order are always the same stored row.
type Point struct {
	Name      string     `json:"name"`
	Type      MetricType `json:"type"`
	Value     float64    `json:"value"`
	Labels    Labels     `json:"labels,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// IngestResult is the response to POST /api/metrics.
type IngestResult struct {
	Accepted int `json:"accepted"`
}

// Aggregate is one row of the aggregated_metrics table (spec.md §3).
type Aggregate struct {
	Bucket     time.Time  `json:"bucket"`
	Resolution Resolution `json:"resolution"`
	Name       string     `json:"name"`
	Labels     string     `json:"labels,omitempty"`
	Count      int64      `json:"count"`
	Sum        float64    `json:"sum"`
	Min        float64    `json:"min"`
	Max        float64    `json:"max"`
	Avg        float64    `json:"avg"`
	P50        *float64   `json:"p50"`
	P95        *float64   `json:"p95"`
	P99        *float64   `json:"p99"`
}

// QueryParams are the accepted parameters of GET /api/metrics.
type QueryParams struct {
	Name       string
	Period     string // 1h/24h/7d/30d
	Resolution string // minute/hour/auto
	Labels     string // canonical JSON, parsed from the k1:v1,k2:v2 filter
}

// DashboardResult is the response to GET /api/dashboard.
type DashboardResult struct {
	Period           string           `json:"period"`
	TotalDatapoints  int64            `json:"total_datapoints"`
	DistinctNames    int              `json:"distinct_metric_names"`
	TopMetrics       []MetricCount    `json:"top_metrics"`
	WebVitals        *WebVitalsBlock  `json:"web_vitals,omitempty"`
}

type MetricCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// WebVitalsThresholds are the fixed good/needs-improvement/poor boundaries
// of spec.md §4.3.
var WebVitalsThresholds = map[string][2]float64{
	"web_vitals_lcp": {2500, 4000},
	"web_vitals_inp": {200, 500},
	"web_vitals_cls": {0.1, 0.25},
}

// WebVitalsBlock is the conditional Web Vitals projection of spec.md §4.3,
// present only when a browser-sourced web_vitals_* point exists in the
// requested period.
type WebVitalsBlock struct {
	Averages   map[string]float64          `json:"averages"`
	Thresholds map[string][2]float64       `json:"thresholds"`
	Series     []WebVitalsBucket           `json:"series"`
	ByPage     map[string]map[string]float64 `json:"by_page"`
}

type WebVitalsBucket struct {
	Bucket  time.Time          `json:"bucket"`
	Metrics map[string]float64 `json:"metrics"`
}
