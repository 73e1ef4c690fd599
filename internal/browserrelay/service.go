/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/mattmezza/monlight/internal/httpx"
	"github.com/mattmezza/monlight/internal/logging"
)

const maxSourceMapUploadBytes = maxSourceMapBytes

// Service wires DSN validation, source-map deobfuscation, and forwarding
// together (spec.md §4.4).
type Service struct {
	store     *Store
	forwarder *Forwarder
	lg        *logging.Logger
	now       func() time.Time
}

func NewService(store *Store, forwarder *Forwarder, lg *logging.Logger) *Service {
	return &Service{store: store, forwarder: forwarder, lg: lg, now: time.Now}
}

// GenerateDSNKey creates a new 32-character hex DSN key for project.
func (s *Service) GenerateDSNKey(project string) (*DSNKey, error) {
	if project == "" {
		return nil, httpx.Validation("project is required")
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, httpx.Server("failed to generate key")
	}
	key, err := s.store.CreateDSNKey(hex.EncodeToString(buf), project, s.now())
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return key, nil
}

func (s *Service) ListDSNKeys() ([]DSNKey, error) {
	keys, err := s.store.ListDSNKeys()
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return keys, nil
}

func (s *Service) DeactivateDSNKey(id int64) error {
	if err := s.store.DeactivateDSNKey(id); err != nil {
		return httpx.Server(err.Error())
	}
	return nil
}

// ValidateDSNKey looks up an active key by its raw value (spec.md §4.4:
// "on miss or inactive, reject"). The associated project is returned for
// the caller to attach to the downstream request.
func (s *Service) ValidateDSNKey(key string) (*DSNKey, error) {
	d, err := s.store.LookupDSNKey(key)
	if err != nil {
		return nil, httpx.Auth("unknown DSN key")
	}
	if !d.Active {
		return nil, httpx.Auth("DSN key is deactivated")
	}
	return d, nil
}

// UploadSourceMap stores or replaces a (project, release, file URL) map.
func (s *Service) UploadSourceMap(project, release, fileURL, content string) (*SourceMap, error) {
	if project == "" || release == "" || fileURL == "" {
		return nil, httpx.Validation("project, release, and file_url are required")
	}
	if len(content) > maxSourceMapUploadBytes {
		return nil, &httpx.Error{Kind: httpx.KindPayloadTooLarge, Message: "source map exceeds maximum size"}
	}
	sm, err := s.store.UpsertSourceMap(project, release, fileURL, content, s.now())
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return sm, nil
}

func (s *Service) ListSourceMaps(project string) ([]SourceMap, error) {
	maps, err := s.store.ListSourceMaps(project)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return maps, nil
}

func (s *Service) DeleteSourceMap(id int64) error {
	if err := s.store.DeleteSourceMap(id); err != nil {
		return httpx.Server(err.Error())
	}
	return nil
}

// IngestBrowserError validates the report, deobfuscates its stack against
// any stored source map, and forwards it to the Error Tracker. Forwarding
// failures are logged and swallowed per spec.md §9's best-effort policy —
// the browser's request still succeeds.
func (s *Service) IngestBrowserError(project string, report BrowserErrorReport) error {
	if report.ExceptionType == "" || report.Message == "" {
		return httpx.Validation("exception_type and message are required")
	}
	frames := Deobfuscate(s.store, project, report.Release, report.Stack)
	if err := s.forwarder.ForwardError(project, report, frames); err != nil {
		s.lg.Error("forward browser error failed", logging.SD("project", project), logging.SD("error", err.Error()))
	}
	return nil
}

// IngestBrowserMetrics forwards a batch of browser metric points to the
// Metrics Collector, enriched with project/source/session/page labels.
func (s *Service) IngestBrowserMetrics(project string, points []BrowserMetricPoint, sessionID, page string) error {
	if len(points) == 0 {
		return httpx.Validation("at least one metric point is required")
	}
	if err := s.forwarder.ForwardMetrics(project, points, sessionID, page); err != nil {
		s.lg.Error("forward browser metrics failed", logging.SD("project", project), logging.SD("error", err.Error()))
	}
	return nil
}
