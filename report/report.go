// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package report aggregates and renders scan results.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"go.chromium.org/infra/build/depcheck/scandeps"
	"go.chromium.org/infra/build/depcheck/ui"
)

// Aggregate is an aggregated report of a run.
type Aggregate struct {
	// RunID identifies the run in logs.
	RunID      string
	Dependency string
	Libraries  []scandeps.Result
	// Total is the sum of counts of Libraries.
	Total int
	// SharedHeaderUsage is files matched in the first library scanned.
	SharedHeaderUsage []string
}

// Add adds a result of a library.
func (a *Aggregate) Add(r scandeps.Result) {
	a.Libraries = append(a.Libraries, r)
	a.Total += r.Count
}

// Writer writes a report.
type Writer interface {
	// Library is called as soon as a library is scanned.
	Library(r scandeps.Result) error
	// Finish is called after all libraries are scanned.
	Finish(a *Aggregate) error
}

// Formats are supported report formats.
var Formats = []string{"text", "table", "json"}

// NewWriter returns a writer for format to w.
// color enables SGR escape sequences in text format.
func NewWriter(format string, w io.Writer, dep string, color bool) (Writer, error) {
	switch format {
	case "", "text":
		return &textWriter{w: w, dep: dep, color: color}, nil
	case "table":
		return &tableWriter{w: w}, nil
	case "json":
		return &jsonWriter{w: w}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Formats, ","))
}

type textWriter struct {
	w     io.Writer
	dep   string
	color bool
}

func (t *textWriter) sgr(n ui.SGRCode, s string) string {
	if !t.color {
		return s
	}
	return ui.SGR(n, s)
}

func (t *textWriter) Library(r scandeps.Result) error {
	count := fmt.Sprint(r.Count)
	if r.Count > 0 {
		count = t.sgr(ui.Bold, count)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Number of Files in %s with %s: %s\n", r.Library, t.dep, count)
	for _, f := range r.Files {
		fmt.Fprintln(&sb, f)
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&sb, "%s %s: %v\n", t.sgr(ui.Yellow, "skipped"), s.Path, s.Err)
	}
	fmt.Fprintln(&sb)
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *textWriter) Finish(a *Aggregate) error {
	_, err := fmt.Fprintf(t.w, "# of files with dependency: %d\n", a.Total)
	return err
}

type tableWriter struct {
	w io.Writer
}

func (*tableWriter) Library(scandeps.Result) error { return nil }

func (t *tableWriter) Finish(a *Aggregate) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(t.w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("files including %q", a.Dependency)
	tw.AppendHeader(table.Row{"Library", "Count", "Files"})
	for _, r := range a.Libraries {
		files := r.Files
		for _, s := range r.Skipped {
			files = append(files[:len(files):len(files)], "skipped "+s.Path)
		}
		tw.AppendRow(table.Row{r.Library, r.Count, strings.Join(files, "\n")})
	}
	tw.AppendFooter(table.Row{"Total", a.Total, ""})
	tw.Render()
	return nil
}

type jsonWriter struct {
	w io.Writer
}

type jsonSkipped struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type jsonLibrary struct {
	Library string        `json:"library"`
	Count   int           `json:"count"`
	Files   []string      `json:"files"`
	Skipped []jsonSkipped `json:"skipped,omitempty"`
}

type jsonReport struct {
	RunID             string        `json:"run_id,omitempty"`
	Dependency        string        `json:"dependency"`
	Libraries         []jsonLibrary `json:"libraries"`
	Total             int           `json:"total"`
	SharedHeaderUsage []string      `json:"shared_header_usage,omitempty"`
}

func (*jsonWriter) Library(scandeps.Result) error { return nil }

func (j *jsonWriter) Finish(a *Aggregate) error {
	rep := jsonReport{
		RunID:             a.RunID,
		Dependency:        a.Dependency,
		Libraries:         []jsonLibrary{},
		Total:             a.Total,
		SharedHeaderUsage: a.SharedHeaderUsage,
	}
	for _, r := range a.Libraries {
		lib := jsonLibrary{
			Library: r.Library,
			Count:   r.Count,
			Files:   r.Files,
		}
		if lib.Files == nil {
			lib.Files = []string{}
		}
		for _, s := range r.Skipped {
			lib.Skipped = append(lib.Skipped, jsonSkipped{Path: s.Path, Error: s.Err.Error()})
		}
		rep.Libraries = append(rep.Libraries, lib)
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
