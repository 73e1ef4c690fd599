/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"context"
	"strconv"
	"time"

	"github.com/mattmezza/monlight/internal/chassis"
	"github.com/mattmezza/monlight/internal/logging"
)

// RunIngestionWorker implements spec.md §5's ingestion worker: one thread,
// polls all watched containers in sequence per tick, sleeping in
// 1-second increments so the stop flag is observed promptly. An fsnotify
// watch on the log source root (discoverwatch.go) supplements the fixed
// poll: a newly created container directory wakes the loop early instead
// of waiting out the remainder of pollInterval, without replacing the
// mandatory poll (§4.2 is explicit that ingestion is poll-driven).
func RunIngestionWorker(ctx context.Context, store *Store, root string, containers []string, pollInterval time.Duration, tailBuffer int64, maxEntries int, lg *logging.Logger) error {
	tailer := NewTailer(store, tailBuffer)
	dw := newDiscoverWatcher(root, lg)
	if dw != nil {
		defer dw.Close()
	}
	for {
		found, err := Discover(root, containers)
		if err != nil {
			lg.Error("log source discovery failed", logging.SD("error", err.Error()))
		}
		for _, name := range containers {
			path, ok := found[name]
			if !ok {
				continue
			}
			if _, err := tailer.Poll(name, path); err != nil {
				lg.Error("tail poll failed", logging.SD("container", name), logging.SD("error", err.Error()))
			}
		}
		if n, err := store.PruneRing(maxEntries); err != nil {
			lg.Error("ring prune failed", logging.SD("error", err.Error()))
		} else if n > 0 {
			lg.Debug("pruned log entries", logging.SD("count", strconv.FormatInt(n, 10)))
		}
		if dw != nil {
			select {
			case <-dw.Signal():
				continue
			case <-time.After(pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		if chassis.SleepChunked(ctx, pollInterval) {
			return ctx.Err()
		}
	}
}
