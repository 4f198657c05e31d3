/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package logger is the leveled, field-carrying logging collaborator every
// reactor/socket/server/kcp component takes as an optional dependency. It is
// intentionally small: one logrus-backed implementation instead of the
// multi-hook tower the package is descended from, because nothing in this
// module writes to syslog, gorm, or a gin request context.
package logger

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	loglvl "github.com/nabbar/reactor/logger/level"
)

// Logger is the collaborator interface described by the Socket error
// model's "entirely external" logging channel: levels plus structured
// fields, nothing more. A nil Logger is valid and silent.
type Logger interface {
	Trace(message string, data interface{}, args ...interface{})
	Debug(message string, data interface{}, args ...interface{})
	Info(message string, data interface{}, args ...interface{})
	Warn(message string, data interface{}, args ...interface{})
	Error(message string, data interface{}, args ...interface{})

	SetLevel(lvl loglvl.Level)
	GetLevel() loglvl.Level

	// WithField returns a derived Logger that always carries the given
	// field (component name, fd number, session id, ...).
	WithField(key string, value interface{}) Logger

	// SetOutput redirects the backing writer (default os.Stderr).
	SetOutput(w io.Writer)
}

type lgr struct {
	mu  sync.RWMutex
	log *logrus.Logger
	fld logrus.Fields
}

// New returns a Logger writing to stderr at Info level.
func New() Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(loglvl.InfoLevel.Logrus())

	return &lgr{
		log: l,
		fld: logrus.Fields{},
	}
}

// NewSilent returns a Logger that never writes anything, for code paths
// that accept an optional Logger and were not given one.
func NewSilent() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &lgr{log: l, fld: logrus.Fields{}}
}

func (l *lgr) entry(fields logrus.Fields) *logrus.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	merged := make(logrus.Fields, len(l.fld)+len(fields))
	for k, v := range l.fld {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return l.log.WithFields(merged)
}

func fieldsFor(data interface{}, args []interface{}) logrus.Fields {
	f := make(logrus.Fields)
	if data != nil {
		f["data"] = data
	}
	if len(args) > 0 {
		f["args"] = args
	}
	return f
}

func (l *lgr) Trace(message string, data interface{}, args ...interface{}) {
	l.entry(fieldsFor(data, args)).Trace(message)
}

func (l *lgr) Debug(message string, data interface{}, args ...interface{}) {
	l.entry(fieldsFor(data, args)).Debug(message)
}

func (l *lgr) Info(message string, data interface{}, args ...interface{}) {
	l.entry(fieldsFor(data, args)).Info(message)
}

func (l *lgr) Warn(message string, data interface{}, args ...interface{}) {
	l.entry(fieldsFor(data, args)).Warn(message)
}

func (l *lgr) Error(message string, data interface{}, args ...interface{}) {
	l.entry(fieldsFor(data, args)).Error(message)
}

func (l *lgr) SetLevel(lvl loglvl.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.SetLevel(lvl.Logrus())
}

func (l *lgr) GetLevel() loglvl.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return loglvl.ParseFromUint32(uint32(l.log.GetLevel()))
}

func (l *lgr) WithField(key string, value interface{}) Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	fld := make(logrus.Fields, len(l.fld)+1)
	for k, v := range l.fld {
		fld[k] = v
	}
	fld[key] = value

	return &lgr{log: l.log, fld: fld}
}

func (l *lgr) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.log.SetOutput(w)
}
