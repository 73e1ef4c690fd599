/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package config implements the environment-variable loading shared by all
// four Monlight services (spec.md §6), following the style of the teacher's
// ingest/config/env.go: every loader first checks NAME, then falls back to
// reading a file path given by NAME_FILE (so secrets can be mounted rather
// than placed directly in the environment).
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/inhies/go-bytesize"
)

var ErrEmptyEnvFile = errors.New("environment secret file is empty")

func loadEnvFile(path string) (string, error) {
	fin, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fin.Close()
	s := bufio.NewScanner(fin)
	s.Scan()
	if err := s.Err(); err != nil {
		return "", err
	}
	v := s.Text()
	if v == "" {
		return "", ErrEmptyEnvFile
	}
	return v, nil
}

func lookup(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok {
		return v, true
	}
	if fp, ok := os.LookupEnv(name + "_FILE"); ok {
		if v, err := loadEnvFile(fp); err == nil {
			return v, true
		}
	}
	return "", false
}

// String returns the named env var, or def if unset.
func String(name, def string) string {
	if v, ok := lookup(name); ok {
		return v
	}
	return def
}

// Required returns the named env var, erroring if it is unset or empty.
func Required(name string) (string, error) {
	v, ok := lookup(name)
	if !ok || v == "" {
		return "", fmt.Errorf("required environment variable %s is not set", name)
	}
	return v, nil
}

// Int returns the named env var parsed as an int, or def if unset/invalid.
func Int(name string, def int) int {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// DurationSeconds returns the named env var parsed as seconds (a bare integer, per
// spec.md's "default NN (seconds)" convention), or def if unset/invalid.
func DurationSeconds(name string, def time.Duration) time.Duration {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return time.Duration(n) * time.Second
}

// Bytes returns the named env var parsed as a human-readable byte size
// (e.g. "64KiB", "512Ki", "4MB") via github.com/inhies/go-bytesize, or def
// if unset/invalid.
func Bytes(name string, def bytesize.ByteSize) bytesize.ByteSize {
	v, ok := lookup(name)
	if !ok {
		return def
	}
	bs, err := bytesize.Parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return bs
}

// StringList splits a comma-separated env var into trimmed, non-empty
// entries (used for CONTAINERS and CORS_ORIGINS).
func StringList(name string, def []string) []string {
	v, ok := lookup(name)
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
