/*************************************************************************
 * Copyright 2026 Monlight Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package logging implements the structured, levelled logger shared by all
// four Monlight services. It mirrors the teacher's ingest/log package:
// RFC5424-formatted records, a level gate, and a small set of severities
// that double as the Log Viewer's own level taxonomy (spec.md §4.2).
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

// Level is a logging verbosity level, ordered DEBUG < INFO < WARN < ERROR < CRITICAL.
type Level int

const (
	OFF Level = iota
	DEBUG
	INFO
	WARN
	ERROR
	CRITICAL
)

func (l Level) String() string {
	switch l {
	case OFF:
		return `OFF`
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case CRITICAL:
		return `CRITICAL`
	}
	return `UNKNOWN`
}

// LevelFromString parses the LOG_LEVEL environment variable. Unknown values
// default to INFO.
func LevelFromString(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case `DEBUG`:
		return DEBUG
	case `INFO`, ``:
		return INFO
	case `WARN`, `WARNING`:
		return WARN
	case `ERROR`:
		return ERROR
	case `CRITICAL`, `CRIT`, `FATAL`:
		return CRITICAL
	}
	return INFO
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	case CRITICAL:
		return rfc5424.User | rfc5424.Crit
	}
	return rfc5424.User | rfc5424.Debug
}

const defaultSDID = `monlight@1`

// Logger is a structured, levelled logger writing RFC5424 records to an
// io.Writer (stderr in production). Safe for concurrent use.
type Logger struct {
	mu       sync.Mutex
	wtr      io.Writer
	lvl      Level
	hostname string
	appname  string
}

// New creates a Logger that writes to w, tagging every record with appname.
// DO NOT close w from outside the logger's lifetime; callers own it.
func New(w io.Writer, appname string, lvl Level) *Logger {
	host, _ := os.Hostname()
	return &Logger{wtr: w, lvl: lvl, hostname: host, appname: appname}
}

// NewStderr creates a Logger writing to os.Stderr, matching the teacher's
// `lg = log.New(os.Stderr)` startup convention.
func NewStderr(appname string, lvl Level) *Logger {
	return New(os.Stderr, appname, lvl)
}

func (l *Logger) SetLevel(lvl Level) {
	l.mu.Lock()
	l.lvl = lvl
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(ERROR, msg, sds...) }
func (l *Logger) Critical(msg string, sds ...rfc5424.SDParam) {
	l.output(CRITICAL, msg, sds...)
}

// Errorf and Infof cover the common case of formatting without structured
// data params, mirroring how most call sites in the teacher's ingest/log
// package actually log.
func (l *Logger) Errorf(f string, args ...interface{}) { l.output(ERROR, fmt.Sprintf(f, args...)) }
func (l *Logger) Infof(f string, args ...interface{})  { l.output(INFO, fmt.Sprintf(f, args...)) }
func (l *Logger) Warnf(f string, args ...interface{})  { l.output(WARN, fmt.Sprintf(f, args...)) }
func (l *Logger) Debugf(f string, args ...interface{}) { l.output(DEBUG, fmt.Sprintf(f, args...)) }

func (l *Logger) output(lvl Level, msg string, sds ...rfc5424.SDParam) {
	l.mu.Lock()
	gate, wtr, host, app := l.lvl, l.wtr, l.hostname, l.appname
	l.mu.Unlock()
	if gate == OFF || lvl < gate {
		return
	}
	b, err := genRFCMessage(time.Now(), lvl.priority(), host, app, msg, sds...)
	if err != nil || len(b) == 0 {
		// Fall back to a raw line rather than silently dropping the record.
		fmt.Fprintf(wtr, "%s %s %s %s\n", time.Now().UTC().Format(time.RFC3339), app, lvl, msg)
		return
	}
	wtr.Write(b)
	io.WriteString(wtr, "\n")
}

func genRFCMessage(ts time.Time, prio rfc5424.Priority, hostname, appname, msg string, sds ...rfc5424.SDParam) ([]byte, error) {
	m := rfc5424.Message{
		Priority:  prio,
		Timestamp: ts,
		Hostname:  trimLength(255, hostname),
		AppName:   trimLength(48, appname),
		MessageID: trimLength(32, `monlight`),
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{
			{ID: defaultSDID, Parameters: sds},
		}
	}
	return m.MarshalBinary()
}

func trimLength(n int, s string) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// SD builds an rfc5424.SDParam, a small convenience used by call sites that
// attach a single key/value (e.g. request id, container name) to a record.
func SD(name, value string) rfc5424.SDParam {
	return rfc5424.SDParam{Name: name, Value: value}
}
