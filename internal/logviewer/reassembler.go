/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"strings"
	"time"
)

// dockerLine is one decoded line of the Docker JSON log envelope
// `{"log": "...\n", "stream": "stdout"|"stderr", "time": "..."}` (spec.md
// §4.2).
type dockerLine struct {
	Text   string
	Stream Stream
	Time   time.Time
}

// buffered is the in-flight entry a reassembler accumulates lines into.
type buffered struct {
	lines  []string
	stream Stream
	time   time.Time
}

// reassembler maintains one in-flight buffered entry per container
// (spec.md §4.2). It has no timeout: the final buffer flushes only when the
// caller explicitly calls Flush at the end of a poll batch.
type reassembler struct {
	current *buffered
}

func newReassembler() *reassembler { return &reassembler{} }

// Feed processes one decoded line, returning a completed Entry if the line
// started a new entry and there was a prior buffer to flush.
func (r *reassembler) Feed(container string, l dockerLine) *Entry {
	text := strings.TrimSuffix(l.Text, "\n")

	// isContinuation's signals (blank, indented, Traceback/File-prefixed) are
	// unambiguous and take precedence over isNewEntryStart: its bracketLevel
	// probe matches `[TOKEN]` anywhere in the line, so an indented
	// continuation line that happens to quote a bracketed token must not be
	// split into a new entry.
	if r.current != nil && isContinuation(text) {
		r.current.lines = append(r.current.lines, text)
		return nil
	}

	var flushed *Entry
	if r.current != nil {
		flushed = r.build(container)
	}
	r.current = &buffered{lines: []string{text}, stream: l.Stream, time: l.Time}
	return flushed
}

// Flush completes the in-flight buffer (if any) at the end of a poll batch.
func (r *reassembler) Flush(container string) *Entry {
	if r.current == nil {
		return nil
	}
	e := r.build(container)
	r.current = nil
	return e
}

func (r *reassembler) build(container string) *Entry {
	b := r.current
	message := strings.Join(b.lines, "\n")
	return &Entry{
		Timestamp: b.time.UTC().Truncate(time.Second),
		Container: container,
		Stream:    b.stream,
		Level:     classifyLevel(message, b.stream),
		Message:   message,
	}
}
