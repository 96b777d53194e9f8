// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clog provides context aware logging.
// It can store arbitrary labels (e.g. run id, library name) to each context,
// so log entries emitted deep in the scanner carry the context of the run.
package clog

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

type contextKeyType int

var contextKey contextKeyType

// Logger holds a labeled logger and the verbosity of the run.
type Logger struct {
	l         *log.Logger
	verbosity int
}

// New creates a new Logger writing to w.
// verbosity > 0 enables debug level logs.
func New(w io.Writer, verbosity int) *Logger {
	level := log.InfoLevel
	if verbosity > 0 {
		level = log.DebugLevel
	}
	return &Logger{
		l: log.NewWithOptions(w, log.Options{
			Level:           level,
			ReportTimestamp: true,
		}),
		verbosity: verbosity,
	}
}

// NewContext sets the given logger to the context.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// NewSpan sets a new logger with the given labels to the context.
// labels are key-value pairs.
func NewSpan(ctx context.Context, labels ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(labels...))
}

// FromContext returns a logger in the context.
// If it's not set, it returns a logger using charmbracelet/log's default logger.
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey).(*Logger)
	if !ok || logger == nil {
		return &Logger{l: log.Default()}
	}
	return logger
}

// With returns a sub logger with the labels.
func (l *Logger) With(labels ...any) *Logger {
	return &Logger{
		l:         l.l.With(labels...),
		verbosity: l.verbosity,
	}
}

// V checks at verbose log level.
func (l *Logger) V(level int) bool {
	return l.verbosity >= level
}

// Infof logs at info log level in the manner of fmt.Printf.
func (l *Logger) Infof(format string, args ...any) {
	l.l.Helper()
	l.l.Info(fmt.Sprintf(format, args...))
}

// Debugf logs at debug log level in the manner of fmt.Printf.
func (l *Logger) Debugf(format string, args ...any) {
	l.l.Helper()
	l.l.Debug(fmt.Sprintf(format, args...))
}

// Warningf logs at warning log level in the manner of fmt.Printf.
func (l *Logger) Warningf(format string, args ...any) {
	l.l.Helper()
	l.l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs at error log level in the manner of fmt.Printf.
func (l *Logger) Errorf(format string, args ...any) {
	l.l.Helper()
	l.l.Error(fmt.Sprintf(format, args...))
}

// V checks at verbose log level of the logger in the context.
func V(ctx context.Context, level int) bool {
	return FromContext(ctx).V(level)
}

// Infof logs at info log level in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Infof(format, args...)
}

// Debugf logs at debug log level in the manner of fmt.Printf.
func Debugf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Debugf(format, args...)
}

// Warningf logs at warning log level in the manner of fmt.Printf.
func Warningf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Warningf(format, args...)
}

// Errorf logs at error log level in the manner of fmt.Printf.
func Errorf(ctx context.Context, format string, args ...any) {
	FromContext(ctx).Errorf(format, args...)
}
