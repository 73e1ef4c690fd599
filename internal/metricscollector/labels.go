/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

package metricscollector

import (
	"bytes"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// Labels is the wire representation of an inbound Point's label set: a
// JSON object of string key/value pairs. It also accepts a JSON string
// holding an already-canonicalized object, so a producer that stores and
// resends the canonical form round-trips unchanged.
type Labels map[string]string

// Canonical renders l through CanonicalLabels, the same deterministic
// rendering the store and the query path both use.
func (l Labels) Canonical() string {
	return CanonicalLabels(l)
}

// UnmarshalJSON accepts either a JSON object ({"host":"a"}, the shape every
// producer — including the browser relay's forwarder — naturally emits) or
// a JSON string encoding one, null, or the empty string.
func (l *Labels) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*l = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*l = nil
			return nil
		}
		var m map[string]string
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return err
		}
		*l = Labels(m)
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*l = Labels(m)
	return nil
}

// CanonicalLabels renders a label set as deterministic JSON: keys sorted
// ascending, so two semantically identical label sets always produce the
// same stored string (spec.md §3 "labels (canonical JSON string, or
// null)").
func CanonicalLabels(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, _ := json.Marshal(m[k])
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.String()
}

// ParseLabelFilter parses the query-string label filter form
// "k1:v1,k2:v2" into the same canonical JSON the store holds, so the query
// path can compare by exact string equality (spec.md §4.3).
func ParseLabelFilter(s string) string {
	if s == "" {
		return ""
	}
	m := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		kv := strings.SplitN(pair, ":", 2)
		if len(kv) != 2 {
			continue
		}
		m[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
	}
	return CanonicalLabels(m)
}

// DecodeLabels parses a stored canonical labels string back into a map (used
// by the dashboard's by-page breakdown).
func DecodeLabels(s string) map[string]string {
	out := map[string]string{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
