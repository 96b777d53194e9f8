// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package trace manages execution traces.
package trace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
)

// Context is a trace context of a run.
type Context struct {
	traceID uuid.UUID

	mu sync.Mutex
	// first span is the top span in the trace.
	spans []*Span
}

// New creates a new context for id (uuid).
func New(ctx context.Context, id string) *Context {
	if clog.V(ctx, 2) {
		clog.Infof(ctx, "new trace context for %s", id)
	}
	u, err := uuid.Parse(id)
	if err != nil {
		clog.Errorf(ctx, "bad id %q: %v", id, err)
	}
	return &Context{
		traceID: u,
	}
}

// NewSpan creates new span in the parent.
func (t *Context) NewSpan(ctx context.Context, name string, parent *Span) *Span {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if parent == nil && len(t.spans) > 0 {
		parent = t.spans[0]
	}
	span := &Span{
		t:           t,
		parent:      parent,
		displayName: name,
		start:       time.Now(),
		attrs:       make(map[string]any),
	}
	if clog.V(ctx, 2) {
		clog.Infof(ctx, "new span %s <%v", name, parent)
	}
	t.spans = append(t.spans, span)
	return span
}

// Spans returns span data in the trace context.
func (t *Context) Spans() []SpanData {
	var data []SpanData
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, s := range t.spans {
		sd := s.data()
		if sd.Name == "" {
			continue
		}
		data = append(data, sd)
	}
	return data
}

type contextKeyType int

const (
	contextKey contextKeyType = iota
	spanKey
)

// NewContext returns new context with a trace context.
func NewContext(ctx context.Context, t *Context) context.Context {
	return context.WithValue(ctx, contextKey, t)
}

// NewSpan returns new contexts and span.
// If no trace context, returns nil span.
func NewSpan(ctx context.Context, name string) (context.Context, *Span) {
	t, ok := ctx.Value(contextKey).(*Context)
	if !ok || t == nil {
		return ctx, nil
	}
	parent, _ := ctx.Value(spanKey).(*Span)
	span := t.NewSpan(ctx, name, parent)
	return context.WithValue(ctx, spanKey, span), span
}

// ID returns the trace id.
func ID(ctx context.Context) string {
	t, ok := ctx.Value(contextKey).(*Context)
	if !ok || t == nil {
		return ""
	}
	return t.traceID.String()
}

// Span is a trace span.
type Span struct {
	t      *Context
	parent *Span

	mu          sync.Mutex
	displayName string
	start       time.Time
	end         time.Time
	attrs       map[string]any
	err         error
}

func (s *Span) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.displayName
}

// SetAttr sets attributes in the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Close closes the span with err.
func (s *Span) Close(err error) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = time.Now()
	s.err = err
}

func (s *Span) data() SpanData {
	if s == nil {
		return SpanData{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	end := s.end
	if end.IsZero() {
		end = time.Now()
	}
	var parent string
	if s.parent != nil {
		parent = s.parent.displayName
	}
	return SpanData{
		Name:   s.displayName,
		Parent: parent,
		Start:  s.start,
		End:    end,
		Attrs:  s.attrs,
		Err:    s.err,
	}
}

// SpanData is a span data.
type SpanData struct {
	Name   string
	Parent string
	Start  time.Time
	End    time.Time
	Attrs  map[string]any
	Err    error
}

// Duration returns duration of the span.
func (sd SpanData) Duration() time.Duration {
	return sd.End.Sub(sd.Start)
}

func (sd SpanData) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", sd.Name, sd.Duration())
	keys := make([]string, 0, len(sd.Attrs))
	for k := range sd.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, sd.Attrs[k])
	}
	if sd.Err != nil {
		fmt.Fprintf(&sb, " err=%v", sd.Err)
	}
	return sb.String()
}
