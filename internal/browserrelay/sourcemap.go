/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package browserrelay

import "net/url"

// MapLookup resolves a stored source map by (project, release, file URL),
// kept as its own interface so the VLQ decoder and frame rewriter stay
// independent of the SQL store (spec.md §9's re-architecture hint).
type MapLookup interface {
	GetSourceMap(project, release, fileURL string) (*SourceMap, error)
}

// stripSchemeAndHost normalises a frame's file URL the way uploaded
// source-map keys are normalised, per spec.md §4.4.
func stripSchemeAndHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Path
}

// Deobfuscate rewrites each frame whose file has a matching source map to
// its original (file, line, column, name), leaving frames unmodified when
// no map is stored or decoding fails (spec.md §4.4: "the overall request
// still succeeds").
func Deobfuscate(lookup MapLookup, project, release string, frames []StackFrame) []StackFrame {
	out := make([]StackFrame, len(frames))
	copy(out, frames)

	cache := map[string]*decodedMap{}
	for i, f := range out {
		file := stripSchemeAndHost(f.File)
		dm, ok := cache[file]
		if !ok {
			sm, err := lookup.GetSourceMap(project, release, file)
			if err != nil {
				cache[file] = nil
				continue
			}
			parsed, err := parseSourceMap(sm.Content)
			if err != nil {
				cache[file] = nil
				continue
			}
			dm = parsed
			cache[file] = dm
		}
		if dm == nil {
			continue
		}
		origFile, origLine, origCol, name, ok := dm.lookup(f.Line, f.Column)
		if !ok {
			continue
		}
		rewritten := f
		rewritten.File = origFile
		rewritten.Line = origLine
		rewritten.Column = origCol
		if name != "" {
			rewritten.Func = name
		}
		out[i] = rewritten
	}
	return out
}
