/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

// Hand-encoded mappings for one generated line with two segments:
//   segment 1 @ column 0  -> original.js:0:0
//   segment 2 @ column 10 -> original.js:5:0
const sampleMappings = "AAAA,UAKA"

func sampleSourceMapJSON() string {
	return `{"version":3,"sources":["original.js"],"names":[],"mappings":"` + sampleMappings + `"}`
}

func TestParseSourceMapSegments(t *testing.T) {
	dm, err := parseSourceMap(sampleSourceMapJSON())
	require.NoError(t, err)
	require.Len(t, dm.lines, 1)
	require.Len(t, dm.lines[0], 2)
}

func TestLookupNearestSegmentAtOrBeforeColumn(t *testing.T) {
	dm, err := parseSourceMap(sampleSourceMapJSON())
	require.NoError(t, err)

	file, line, col, _, ok := dm.lookup(0, 7)
	require.True(t, ok)
	require.Equal(t, "original.js", file)
	require.Equal(t, 0, line)
	require.Equal(t, 0, col)

	file, line, _, _, ok = dm.lookup(0, 10)
	require.True(t, ok)
	require.Equal(t, "original.js", file)
	require.Equal(t, 5, line)
}

func TestLookupMissingLineFails(t *testing.T) {
	dm, err := parseSourceMap(sampleSourceMapJSON())
	require.NoError(t, err)
	_, _, _, _, ok := dm.lookup(7, 0)
	require.False(t, ok)
}

func TestParseSourceMapInvalidJSON(t *testing.T) {
	_, err := parseSourceMap("not json")
	require.Error(t, err)
}

// fakeLookup implements MapLookup without a database for Deobfuscate tests.
type fakeLookup struct {
	content string
	fail    bool
}

func (f fakeLookup) GetSourceMap(project, release, fileURL string) (*SourceMap, error) {
	if f.fail {
		return nil, errNotFound
	}
	return &SourceMap{Project: project, Release: release, FileURL: fileURL, Content: f.content}, nil
}

func TestDeobfuscateRewritesMatchedFrame(t *testing.T) {
	lookup := fakeLookup{content: sampleSourceMapJSON()}
	frames := []StackFrame{{File: "https://cdn.example.com/app.min.js", Line: 0, Column: 10, Func: "minified"}}
	out := Deobfuscate(lookup, "proj", "v1", frames)
	require.Len(t, out, 1)
	require.Equal(t, "original.js", out[0].File)
	require.Equal(t, 5, out[0].Line)
}

func TestDeobfuscateLeavesFrameUnmodifiedOnLookupFailure(t *testing.T) {
	lookup := fakeLookup{fail: true}
	frames := []StackFrame{{File: "https://cdn.example.com/app.min.js", Line: 0, Column: 10, Func: "minified"}}
	out := Deobfuscate(lookup, "proj", "v1", frames)
	require.Equal(t, frames, out)
}

func TestDeobfuscateLeavesFrameUnmodifiedOnBadContent(t *testing.T) {
	lookup := fakeLookup{content: "not json"}
	frames := []StackFrame{{File: "a.js", Line: 0, Column: 0}}
	out := Deobfuscate(lookup, "proj", "v1", frames)
	require.Equal(t, frames, out)
}
