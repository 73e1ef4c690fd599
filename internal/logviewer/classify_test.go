/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import "testing"

func TestClassifyLevelJSON(t *testing.T) {
	lvl := classifyLevel(`{"level": "warning", "msg": "disk low"}`, StreamStdout)
	if lvl != LevelWarning {
		t.Fatalf("expected WARNING, got %s", lvl)
	}
}

func TestClassifyLevelBracket(t *testing.T) {
	lvl := classifyLevel("[ERROR] connection refused", StreamStdout)
	if lvl != LevelError {
		t.Fatalf("expected ERROR, got %s", lvl)
	}
}

func TestClassifyLevelKV(t *testing.T) {
	lvl := classifyLevel("msg=boom level=debug", StreamStdout)
	if lvl != LevelDebug {
		t.Fatalf("expected DEBUG, got %s", lvl)
	}
}

func TestClassifyLevelUvicornPrefix(t *testing.T) {
	lvl := classifyLevel("INFO:     Started server process", StreamStdout)
	if lvl != LevelInfo {
		t.Fatalf("expected INFO, got %s", lvl)
	}
}

func TestClassifyLevelDefaults(t *testing.T) {
	if lvl := classifyLevel("plain text, nothing recognisable", StreamStderr); lvl != LevelError {
		t.Fatalf("expected stderr default ERROR, got %s", lvl)
	}
	if lvl := classifyLevel("plain text, nothing recognisable", StreamStdout); lvl != LevelInfo {
		t.Fatalf("expected stdout default INFO, got %s", lvl)
	}
}

func TestIsNewEntryStartAndContinuation(t *testing.T) {
	cases := []struct {
		line       string
		start      bool
		continues  bool
	}{
		{"2024-01-01T00:00:00Z starting up", true, false},
		{"[INFO] ready", true, false},
		{"  at some.stack.frame", false, true},
		{"Traceback (most recent call last):", false, true},
		{`File "/x", line 1`, false, true},
		{"", false, true},
	}
	for _, c := range cases {
		if got := isNewEntryStart(c.line); got != c.start {
			t.Errorf("isNewEntryStart(%q) = %v, want %v", c.line, got, c.start)
		}
		if got := isContinuation(c.line); got != c.continues {
			t.Errorf("isContinuation(%q) = %v, want %v", c.line, got, c.continues)
		}
	}
}
