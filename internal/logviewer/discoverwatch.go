/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"github.com/fsnotify/fsnotify"

	"github.com/mattmezza/monlight/internal/logging"
)

// discoverWatcher supplements the Discovering state's poll-driven directory
// scan (Discover, in source.go) with an fsnotify watch on the log-source
// root, so a newly created per-container metadata directory can trigger an
// immediate re-scan instead of waiting out the full poll interval.
//
// Grounded on the teacher's filewatch.go watcher setup (fsnotify.NewWatcher,
// a single goroutine draining Events/Errors into a bounded signal), adapted
// from file-content change notification to directory-create notification.
type discoverWatcher struct {
	watcher *fsnotify.Watcher
	signal  chan struct{}
}

// newDiscoverWatcher watches root non-recursively; Docker creates one
// subdirectory per container directly under root, so a single watch on root
// sees every new container's arrival.
func newDiscoverWatcher(root string, lg *logging.Logger) *discoverWatcher {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		if lg != nil {
			lg.Error("fsnotify watcher unavailable, falling back to poll-only discovery", logging.SD("error", err.Error()))
		}
		return nil
	}
	if err := w.Add(root); err != nil {
		if lg != nil {
			lg.Error("fsnotify watch on log source root failed, falling back to poll-only discovery", logging.SD("root", root), logging.SD("error", err.Error()))
		}
		w.Close()
		return nil
	}

	dw := &discoverWatcher{watcher: w, signal: make(chan struct{}, 1)}
	go dw.run(lg)
	return dw
}

func (dw *discoverWatcher) run(lg *logging.Logger) {
	for {
		select {
		case evt, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case dw.signal <- struct{}{}:
			default:
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			if lg != nil {
				lg.Error("fsnotify watcher error", logging.SD("error", err.Error()))
			}
		}
	}
}

// Signal fires (non-blocking, coalescing) whenever a new entry appears
// under the watched root.
func (dw *discoverWatcher) Signal() <-chan struct{} {
	return dw.signal
}

func (dw *discoverWatcher) Close() {
	dw.watcher.Close()
}
