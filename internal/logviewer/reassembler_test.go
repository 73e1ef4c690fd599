/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"strings"
	"testing"
	"time"
)

// TestMultilineReassembly is end-to-end scenario 4 of spec.md §8.
func TestMultilineReassembly(t *testing.T) {
	re := newReassembler()
	now := time.Now()

	lines := []dockerLine{
		{Text: "ERROR: failed\n", Stream: StreamStderr, Time: now},
		{Text: "Traceback (most recent call last):\n", Stream: StreamStderr, Time: now},
		{Text: "  File \"/x\", line 1\n", Stream: StreamStderr, Time: now},
	}

	var flushedCount int
	var last *Entry
	for _, l := range lines {
		if e := re.Feed("c1", l); e != nil {
			flushedCount++
			last = e
		}
	}
	final := re.Flush("c1")

	if flushedCount != 0 {
		t.Fatalf("expected no mid-stream flush, got %d", flushedCount)
	}
	if final == nil {
		t.Fatalf("expected a final flushed entry")
	}
	if !strings.HasPrefix(final.Message, "ERROR: failed") {
		t.Fatalf("expected message to begin with ERROR: failed, got %q", final.Message)
	}
	if !strings.Contains(final.Message, "Traceback") {
		t.Fatalf("expected message to contain Traceback, got %q", final.Message)
	}
	if !strings.HasSuffix(final.Message, `  File "/x", line 1`) {
		t.Fatalf("expected message to end with the File line, got %q", final.Message)
	}
	if final.Level != LevelError {
		t.Fatalf("expected ERROR level, got %s", final.Level)
	}
	_ = last
}

func TestReassemblerFlushesOnNewStart(t *testing.T) {
	re := newReassembler()
	now := time.Now()

	first := re.Feed("c1", dockerLine{Text: "[INFO] entry one\n", Stream: StreamStdout, Time: now})
	if first != nil {
		t.Fatalf("expected no flush on first line, got %+v", first)
	}
	second := re.Feed("c1", dockerLine{Text: "[INFO] entry two\n", Stream: StreamStdout, Time: now})
	if second == nil {
		t.Fatalf("expected the first buffered entry to flush")
	}
	if second.Message != "[INFO] entry one" {
		t.Fatalf("unexpected flushed message: %q", second.Message)
	}
	final := re.Flush("c1")
	if final == nil || final.Message != "[INFO] entry two" {
		t.Fatalf("unexpected final flush: %+v", final)
	}
}

// TestReassemblerIndentedBracketIsContinuation guards against
// isNewEntryStart's unanchored bracketLevel probe hijacking an indented
// continuation line that happens to quote a bracketed token.
func TestReassemblerIndentedBracketIsContinuation(t *testing.T) {
	re := newReassembler()
	now := time.Now()

	first := re.Feed("c1", dockerLine{Text: "ERROR: failed\n", Stream: StreamStderr, Time: now})
	if first != nil {
		t.Fatalf("expected no flush on first line, got %+v", first)
	}
	second := re.Feed("c1", dockerLine{Text: "  see [INFO] marker for detail\n", Stream: StreamStderr, Time: now})
	if second != nil {
		t.Fatalf("expected the indented bracketed line to continue, not flush: %+v", second)
	}

	final := re.Flush("c1")
	if final == nil {
		t.Fatalf("expected a final flushed entry")
	}
	if final.Message != "ERROR: failed\n  see [INFO] marker for detail" {
		t.Fatalf("unexpected merged message: %q", final.Message)
	}
}
