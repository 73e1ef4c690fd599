/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"regexp"
	"strings"
)

var (
	jsonLevelField = regexp.MustCompile(`"level"\s*:\s*"([A-Za-z]+)"`)
	bracketLevel   = regexp.MustCompile(`\[([A-Za-z]+)\]`)
	kvLevel        = regexp.MustCompile(`(?i)level=([A-Za-z]+)`)
	prefixLevel    = regexp.MustCompile(`^([A-Za-z]+):\s*`)

	dateStart    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	tracebackCont = "Traceback (most recent call last):"
	fileCont      = `File "`
)

// classifyLevel is the pure function of message+stream from spec.md §4.2: try
// each probe in order, normalize the first recognised token, and fall back
// to a stream-dependent default. Kept as a single ordered predicate function
// per the spec's own note that the probe order is load-bearing — splitting
// it into independently reorderable pieces would invite exactly the
// misclassification the spec flags as an open question.
func classifyLevel(message string, stream Stream) Level {
	if m := jsonLevelField.FindStringSubmatch(message); m != nil {
		if lvl, ok := normalizeLevel(m[1]); ok {
			return lvl
		}
	}
	if m := bracketLevel.FindStringSubmatch(message); m != nil {
		if lvl, ok := normalizeLevel(m[1]); ok {
			return lvl
		}
	}
	if m := kvLevel.FindStringSubmatch(message); m != nil {
		if lvl, ok := normalizeLevel(m[1]); ok {
			return lvl
		}
	}
	if m := prefixLevel.FindStringSubmatch(message); m != nil {
		if lvl, ok := normalizeLevel(m[1]); ok {
			return lvl
		}
	}
	if stream == StreamStderr {
		return LevelError
	}
	return LevelInfo
}

func normalizeLevel(token string) (Level, bool) {
	switch strings.ToUpper(token) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarning, true
	case "ERR", "ERROR":
		return LevelError, true
	case "CRIT", "CRITICAL", "FATAL":
		return LevelCritical, true
	}
	return "", false
}

// isNewEntryStart reports whether line begins a new reassembled log entry
// per spec.md §4.2's ordered list of start markers.
func isNewEntryStart(line string) bool {
	if dateStart.MatchString(line) {
		return true
	}
	if bracketLevel.MatchString(line) {
		return true
	}
	if prefixLevel.MatchString(line) {
		return true
	}
	if strings.HasPrefix(line, "{") {
		return true
	}
	return false
}

// isContinuation reports whether line continues the in-flight buffered
// entry rather than starting a new one.
func isContinuation(line string) bool {
	if line == "" {
		return true
	}
	if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
		return true
	}
	if strings.HasPrefix(line, tracebackCont) {
		return true
	}
	if strings.HasPrefix(line, fileCont) {
		return true
	}
	return false
}
