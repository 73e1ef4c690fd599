/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/mattmezza/monlight/internal/logging"
)

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriter) Close() error                { return nil }

func newTestLogger() *logging.Logger {
	return logging.New(nopWriter{}, "test", logging.OFF)
}

func newTestForwarder(t *testing.T, onError, onMetrics func(body []byte)) (*Forwarder, func()) {
	t.Helper()
	errSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onError != nil {
			b, _ := io.ReadAll(r.Body)
			onError(b)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	metSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if onMetrics != nil {
			b, _ := io.ReadAll(r.Body)
			onMetrics(b)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	f := NewForwarder(errSrv.URL, "et-key", metSrv.URL, "mc-key")
	return f, func() { errSrv.Close(); metSrv.Close() }
}

func TestValidateDSNKeyRejectsUnknownAndInactive(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, nil, newTestLogger())

	_, err := svc.ValidateDSNKey("nope")
	require.Error(t, err)

	key, err := svc.GenerateDSNKey("proj")
	require.NoError(t, err)
	require.Len(t, key.Key, 32)

	found, err := svc.ValidateDSNKey(key.Key)
	require.NoError(t, err)
	require.Equal(t, "proj", found.Project)

	require.NoError(t, svc.DeactivateDSNKey(key.ID))
	_, err = svc.ValidateDSNKey(key.Key)
	require.Error(t, err)
}

func TestUploadSourceMapRejectsOversize(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, nil, newTestLogger())
	big := make([]byte, maxSourceMapBytes+1)
	_, err := svc.UploadSourceMap("proj", "v1", "/a.js", string(big))
	require.Error(t, err)
}

func TestIngestBrowserErrorForwardsTransformedReport(t *testing.T) {
	store := newTestStore(t)
	var captured map[string]interface{}
	forwarder, closeSrv := newTestForwarder(t, func(body []byte) {
		require.NoError(t, json.Unmarshal(body, &captured))
	}, nil)
	defer closeSrv()
	svc := NewService(store, forwarder, newTestLogger())

	report := BrowserErrorReport{
		ExceptionType: "TypeError",
		Message:       "boom",
		SessionID:     "sess-1",
		Stack:         []StackFrame{{File: "app.js", Line: 1, Column: 2, Func: "onClick"}},
	}
	require.NoError(t, svc.IngestBrowserError("proj", report))
	require.Equal(t, "BROWSER", captured["request_method"])
	require.Equal(t, "proj", captured["project"])
}

func TestIngestBrowserMetricsEnrichesLabels(t *testing.T) {
	store := newTestStore(t)
	var captured []map[string]interface{}
	forwarder, closeSrv := newTestForwarder(t, nil, func(body []byte) {
		require.NoError(t, json.Unmarshal(body, &captured))
	})
	defer closeSrv()
	svc := NewService(store, forwarder, newTestLogger())

	points := []BrowserMetricPoint{{Name: "web_vitals_lcp", Type: "gauge", Value: 1200}}
	require.NoError(t, svc.IngestBrowserMetrics("proj", points, "sess-1", "/home"))
	require.Len(t, captured, 1)
	labels := captured[0]["labels"].(map[string]interface{})
	require.Equal(t, "proj", labels["project"])
	require.Equal(t, "browser", labels["source"])
	require.Equal(t, "/home", labels["page"])
}

func TestIngestBrowserMetricsRequiresPoints(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store, nil, newTestLogger())
	err := svc.IngestBrowserMetrics("proj", nil, "", "")
	require.Error(t, err)
}
