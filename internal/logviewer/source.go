/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package logviewer

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/bmatcuk/doublestar/v4"
)

// containerMeta is the subset of a Docker container's config.v2.json this
// package reads to resolve a container name to its log file.
type containerMeta struct {
	Name     string `json:"Name"`
	LogPath  string `json:"LogPath"`
}

// Discover implements spec.md §4.2's "Discovering" state: scan root for
// subdirectories carrying a metadata document (config.v2.json, Docker's
// per-container state file) that names one of the wanted containers, and
// return the resolved log file path for each one found. Containers not
// found this pass are simply absent from the result and remain in
// Discovering until a later call succeeds.
//
// Grounded on github.com/bmatcuk/doublestar/v4, the glob library the
// retrieval pack pulls in for recursive pattern matching; no pack example
// scans Docker's container layout directly; this glob usage is the
// concrete home spec.md's pack wiring gives that dependency.
func Discover(root string, wanted []string) (map[string]string, error) {
	want := make(map[string]struct{}, len(wanted))
	for _, w := range wanted {
		want[w] = struct{}{}
	}

	matches, err := doublestar.FilepathGlob(filepath.Join(root, "*", "config.v2.json"))
	if err != nil {
		return nil, err
	}

	found := make(map[string]string, len(wanted))
	for _, m := range matches {
		meta, err := readContainerMeta(m)
		if err != nil {
			continue
		}
		name := meta.Name
		if len(name) > 0 && name[0] == '/' {
			name = name[1:]
		}
		if _, ok := want[name]; !ok {
			continue
		}
		path := meta.LogPath
		if path == "" {
			// Docker's conventional layout: <containerDir>/<id>-json.log.
			path = filepath.Join(filepath.Dir(m), filepath.Base(filepath.Dir(m))+"-json.log")
		}
		found[name] = path
	}
	return found, nil
}

func readContainerMeta(path string) (*containerMeta, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m containerMeta
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
