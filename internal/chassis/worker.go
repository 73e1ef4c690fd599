/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package chassis

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Supervisor owns the background workers of a service (the ingestion
// worker, aggregation worker and retention worker of spec.md §5) and joins
// them on shutdown. SSE streams run in their HTTP handler goroutines, not
// under the Supervisor. Each worker sleeps in one-second
// increments so ctx cancellation is observed promptly, per §5's shutdown
// discipline.
type Supervisor struct {
	g   *errgroup.Group
	ctx context.Context
}

func NewSupervisor(ctx context.Context) *Supervisor {
	g, ctx := errgroup.WithContext(ctx)
	return &Supervisor{g: g, ctx: ctx}
}

// Go runs fn in its own goroutine, passing it the supervisor's context.
func (s *Supervisor) Go(fn func(ctx context.Context) error) {
	s.g.Go(func() error { return fn(s.ctx) })
}

// Wait blocks until every worker has returned.
func (s *Supervisor) Wait() error { return s.g.Wait() }

// SleepChunked sleeps for d, but in one-second increments, returning early
// (with true) if ctx is cancelled. Workers use this instead of a single
// time.Sleep so the stop flag is observed within one second (§5).
func SleepChunked(ctx context.Context, d time.Duration) (cancelled bool) {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		chunk := time.Second
		if remaining := time.Until(deadline); remaining < chunk {
			chunk = remaining
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(chunk):
		}
	}
	return false
}
