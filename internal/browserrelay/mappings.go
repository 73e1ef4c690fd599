/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import (
	"sort"
	"strings"

	"github.com/goccy/go-json"
)

// rawSourceMap is the on-disk source-map v3 document shape.
type rawSourceMap struct {
	Version int      `json:"version"`
	Sources []string `json:"sources"`
	Names   []string `json:"names"`
	Mapping string   `json:"mappings"`
}

// segment is one decoded mapping entry for a single generated line.
type segment struct {
	generatedColumn int
	hasSource       bool
	sourceIndex     int
	originalLine    int
	originalColumn  int
	hasName         bool
	nameIndex       int
}

// decodedMap is a parsed source map ready for position lookups.
type decodedMap struct {
	sources []string
	names   []string
	// lines[i] holds the segments for generated line i, sorted by column.
	lines [][]segment
}

// parseSourceMap decodes a source-map v3 JSON document's mappings field
// into per-generated-line segments (spec.md §4.4, §9). Running sums for
// source/line/column/name are cumulative across the whole document except
// generatedColumn, which resets at the start of every generated line, per
// the source-map v3 VLQ scheme.
func parseSourceMap(content string) (*decodedMap, error) {
	var raw rawSourceMap
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, err
	}

	dm := &decodedMap{sources: raw.Sources, names: raw.Names}

	genLine := 0
	sourceIdx, origLine, origCol, nameIdx := 0, 0, 0, 0

	lineGroups := strings.Split(raw.Mapping, ";")
	dm.lines = make([][]segment, len(lineGroups))

	for li, group := range lineGroups {
		genLine = li
		genCol := 0
		if group == "" {
			continue
		}
		var segs []segment
		for _, part := range strings.Split(group, ",") {
			if part == "" {
				continue
			}
			fields, err := decodeVLQSegment(part)
			if err != nil {
				return nil, err
			}
			if len(fields) == 0 {
				continue
			}
			genCol += fields[0]
			seg := segment{generatedColumn: genCol}
			if len(fields) >= 4 {
				sourceIdx += fields[1]
				origLine += fields[2]
				origCol += fields[3]
				seg.hasSource = true
				seg.sourceIndex = sourceIdx
				seg.originalLine = origLine
				seg.originalColumn = origCol
			}
			if len(fields) >= 5 {
				nameIdx += fields[4]
				seg.hasName = true
				seg.nameIndex = nameIdx
			}
			segs = append(segs, seg)
		}
		sort.Slice(segs, func(a, b int) bool { return segs[a].generatedColumn < segs[b].generatedColumn })
		dm.lines[genLine] = segs
	}

	return dm, nil
}

// lookup finds the segment covering (line, column) in generated-code
// coordinates: the last segment on that line whose generatedColumn is
// <= column (spec.md §4.4: "nearest mapped segment at or before the
// frame's column"). Returns ok=false when the frame cannot be resolved,
// leaving the caller to keep the original frame unmodified.
func (d *decodedMap) lookup(line, column int) (file string, origLine, origCol int, name string, ok bool) {
	if line < 0 || line >= len(d.lines) {
		return "", 0, 0, "", false
	}
	segs := d.lines[line]
	if len(segs) == 0 {
		return "", 0, 0, "", false
	}
	idx := sort.Search(len(segs), func(i int) bool { return segs[i].generatedColumn > column }) - 1
	if idx < 0 {
		return "", 0, 0, "", false
	}
	seg := segs[idx]
	if !seg.hasSource {
		return "", 0, 0, "", false
	}
	f := ""
	if seg.sourceIndex >= 0 && seg.sourceIndex < len(d.sources) {
		f = d.sources[seg.sourceIndex]
	}
	n := ""
	if seg.hasName && seg.nameIndex >= 0 && seg.nameIndex < len(d.names) {
		n = d.names[seg.nameIndex]
	}
	return f, seg.originalLine, seg.originalColumn, n, true
}
