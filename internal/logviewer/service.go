/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"github.com/mattmezza/monlight/internal/httpx"
)

// Service implements the Log Viewer's query-side operations of spec.md §4.2
// against a Store. The ingestion side runs as a background worker
// (RunIngestionWorker) sharing the same store.
type Service struct {
	store *Store
}

func NewService(store *Store) *Service {
	return &Service{store: store}
}

func (s *Service) Query(q Query) (*QueryResult, error) {
	res, err := s.store.Query(q)
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return res, nil
}

func (s *Service) Containers() ([]ContainerSummary, error) {
	c, err := s.store.Containers()
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return c, nil
}

func (s *Service) Stats() (*Stats, error) {
	st, err := s.store.Stats()
	if err != nil {
		return nil, httpx.Server(err.Error())
	}
	return st, nil
}
