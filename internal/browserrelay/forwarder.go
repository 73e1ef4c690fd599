/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// Forwarder posts transformed browser payloads on to the Error Tracker and
// Metrics Collector (spec.md §4.4's fan-out forwarding, §9's best-effort
// side-effect policy: failures are logged and swallowed by the caller).
type Forwarder struct {
	client          *http.Client
	errorTrackerURL string
	errorTrackerKey string
	metricsURL      string
	metricsKey      string
}

func NewForwarder(errorTrackerURL, errorTrackerKey, metricsURL, metricsKey string) *Forwarder {
	return &Forwarder{
		client:          &http.Client{Timeout: 5 * time.Second},
		errorTrackerURL: strings.TrimRight(errorTrackerURL, "/"),
		errorTrackerKey: errorTrackerKey,
		metricsURL:      strings.TrimRight(metricsURL, "/"),
		metricsKey:      metricsKey,
	}
}

// errorTrackerReport mirrors errortracker.Report's wire shape without
// importing that package, keeping the relay's forward path decoupled from
// the tracker's internal model (spec.md §9).
type errorTrackerReport struct {
	Project       string `json:"project"`
	Environment   string `json:"environment"`
	ExceptionType string `json:"exception_type"`
	Message       string `json:"message"`
	Traceback     string `json:"traceback"`
	RequestURL    string `json:"request_url,omitempty"`
	RequestMethod string `json:"request_method,omitempty"`
	UserID        string `json:"user_id,omitempty"`
	Extra         string `json:"extra,omitempty"`
}

// framesToTraceback renders a (possibly deobfuscated) stack as a
// Chrome-style traceback string so the Error Tracker's own fingerprinter
// (its `chromeFrame` regex) resolves the same file:line it was given here.
func framesToTraceback(frames []StackFrame) string {
	var b strings.Builder
	for _, f := range frames {
		fn := f.Func
		if fn == "" {
			fn = "<anonymous>"
		}
		fmt.Fprintf(&b, "    at %s (%s:%d:%d)\n", fn, f.File, f.Line, f.Column)
	}
	return b.String()
}

// ForwardError transforms a browser error report into the Error Tracker's
// ingest shape and posts it (spec.md §4.4's forwarding transform:
// request_method="BROWSER", session_id folded into extra).
func (f *Forwarder) ForwardError(project string, report BrowserErrorReport, frames []StackFrame) error {
	extra := ""
	if report.SessionID != "" {
		b, _ := json.Marshal(map[string]string{"session_id": report.SessionID})
		extra = string(b)
	}
	body := errorTrackerReport{
		Project:       project,
		ExceptionType: report.ExceptionType,
		Message:       report.Message,
		Traceback:     framesToTraceback(frames),
		RequestURL:    report.RequestURL,
		RequestMethod: "BROWSER",
		UserID:        report.UserID,
		Extra:         extra,
	}
	return f.post(f.errorTrackerURL+"/api/errors", f.errorTrackerKey, body)
}

// metricPoint mirrors metricscollector.Point's wire shape.
type metricPoint struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels,omitempty"`
	Timestamp *time.Time        `json:"timestamp,omitempty"`
}

// ForwardMetrics transforms browser metric points into the Metrics
// Collector's ingest shape, enriching labels with project/source/session/
// page per spec.md §4.4.
func (f *Forwarder) ForwardMetrics(project string, points []BrowserMetricPoint, sessionID, page string) error {
	out := make([]metricPoint, len(points))
	for i, p := range points {
		labels := map[string]string{}
		for k, v := range p.Labels {
			labels[k] = v
		}
		labels["project"] = project
		labels["source"] = "browser"
		if sessionID != "" {
			labels["session_id"] = sessionID
		}
		if page != "" {
			labels["page"] = page
		}
		out[i] = metricPoint{Name: p.Name, Type: p.Type, Value: p.Value, Labels: labels, Timestamp: p.Timestamp}
	}
	return f.post(f.metricsURL+"/api/metrics", f.metricsKey, out)
}

func (f *Forwarder) post(url, apiKey string, body interface{}) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forward to %s: status %d", url, resp.StatusCode)
	}
	return nil
}
