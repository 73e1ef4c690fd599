/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	return NewService(newTestStore(t))
}

func TestIngestBatchBoundary(t *testing.T) {
	svc := newTestService(t)

	points := make([]Point, 1000)
	for i := range points {
		points[i] = Point{Name: "m", Type: TypeGauge, Value: 1}
	}
	res, err := svc.Ingest(points)
	require.NoError(t, err)
	require.Equal(t, 1000, res.Accepted)

	points = append(points, Point{Name: "m", Type: TypeGauge, Value: 1})
	_, err = svc.Ingest(points)
	require.Error(t, err)
}

func TestIngestValidatesType(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Ingest([]Point{{Name: "m", Type: "bogus", Value: 1}})
	require.Error(t, err)
}

func TestQueryRequiresName(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Query(QueryParams{})
	require.Error(t, err)
}

func TestResolveAutoResolution(t *testing.T) {
	require.Equal(t, ResolutionMinute, resolveAutoResolution("auto", periodDuration("24h")))
	require.Equal(t, ResolutionHour, resolveAutoResolution("auto", periodDuration("7d")))
	require.Equal(t, ResolutionHour, resolveAutoResolution("hour", periodDuration("1h")))
}

// TestIngestDecodesObjectLabels is a regression test for the browser-relay
// forwarding path (spec.md §4.4): the relay's forwarder serializes a
// point's labels as a JSON object, the same shape any ordinary metrics
// producer would send, so decoding a batch in that wire shape must not
// fail.
func TestIngestDecodesObjectLabels(t *testing.T) {
	svc := newTestService(t)

	body := []byte(`[{"name":"web_vitals_lcp","type":"gauge","value":1200,"labels":{"source":"browser","project":"proj","page":"/home"}}]`)
	var points []Point
	require.NoError(t, json.Unmarshal(body, &points))
	require.Equal(t, map[string]string{"source": "browser", "project": "proj", "page": "/home"}, map[string]string(points[0].Labels))

	res, err := svc.Ingest(points)
	require.NoError(t, err)
	require.Equal(t, 1, res.Accepted)
}

// TestIngestCanonicalizesLabelsRegardlessOfKeyOrder is a regression test for
// spec.md §4.3's "must match the stored canonical JSON exactly after
// normalization": two points submitted with the same labels in different
// key order must be stored under one canonical labels string, so they form
// a single raw group.
func TestIngestCanonicalizesLabelsRegardlessOfKeyOrder(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Ingest([]Point{{Name: "requests", Type: TypeCounter, Value: 1, Labels: Labels{"host": "a", "region": "us"}}})
	require.NoError(t, err)
	_, err = svc.Ingest([]Point{{Name: "requests", Type: TypeCounter, Value: 1, Labels: Labels{"region": "us", "host": "a"}}})
	require.NoError(t, err)

	groups, err := svc.store.DistinctRawGroups(periodStart(svc), periodEnd(svc))
	require.NoError(t, err)
	require.Len(t, groups, 1, "both insertions must canonicalize to the same labels string")
}

func periodStart(svc *Service) time.Time { return svc.now().UTC().Add(-time.Hour) }
func periodEnd(svc *Service) time.Time   { return svc.now().UTC().Add(time.Hour) }
