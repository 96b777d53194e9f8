// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
	"go.chromium.org/infra/build/depcheck/o11y/trace"
)

// Option is an option of ScanDeps.
type Option struct {
	// KeepGoing records unreadable files in Result.Skipped and
	// continues with the remaining files, instead of failing the scan.
	KeepGoing bool
}

// ScanDeps is a simple external dependency scanner.
type ScanDeps struct {
	fsys fs.FS
	dep  string
	ldep []byte
	opt  Option

	// sharedHeaders is computed once, from the first library scanned.
	primed        bool
	sharedHeaders []string
}

// New creates new ScanDeps to scan files on fsys for dep.
func New(fsys fs.FS, dep string, opt Option) *ScanDeps {
	return &ScanDeps{
		fsys: fsys,
		dep:  dep,
		ldep: []byte(strings.ToLower(dep)),
		opt:  opt,
	}
}

// Dependency returns the dependency to scan.
func (s *ScanDeps) Dependency() string {
	return s.dep
}

// SharedHeaderUsage returns files matched in the first library scanned.
// It is not updated by later scans.
func (s *ScanDeps) SharedHeaderUsage() []string {
	return s.sharedHeaders
}

// Request is a request to scan deps of a library.
type Request struct {
	Library string
	// Sources are files relative to the root of fsys.
	Sources []string
}

// SkippedFile is a file that couldn't be scanned.
type SkippedFile struct {
	Path string
	Err  error
}

// Result is a result of scanning a library.
type Result struct {
	Library string
	// Count is the number of files that include the dependency.
	Count int
	// Files are files that include the dependency, in request order.
	Files []string
	// Skipped are files that couldn't be read in KeepGoing mode.
	Skipped []SkippedFile
}

// FileError is an error to read a source file.
type FileError struct {
	Library string
	Path    string
	Err     error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("failed to scan %s in %s: %v", e.Path, e.Library, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Scan scans source files of req for the dependency.
func (s *ScanDeps) Scan(ctx context.Context, req Request) (Result, error) {
	ctx, span := trace.NewSpan(ctx, "scan-"+req.Library)
	ctx = clog.NewSpan(ctx, "library", req.Library)
	started := time.Now()

	result, err := s.scan(ctx, req)
	span.SetAttr("files", len(req.Sources))
	span.SetAttr("count", result.Count)
	span.Close(err)
	if err != nil {
		return Result{}, err
	}
	if !s.primed {
		s.sharedHeaders = slices.Clone(result.Files)
		s.primed = true
	}
	if clog.V(ctx, 1) {
		clog.Debugf(ctx, "scan %d/%d files include %q in %s", result.Count, len(req.Sources), s.dep, time.Since(started))
	}
	return result, nil
}

func (s *ScanDeps) scan(ctx context.Context, req Request) (Result, error) {
	result := Result{
		Library: req.Library,
	}
	for _, fname := range req.Sources {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		buf, err := fs.ReadFile(s.fsys, path.Clean(filepath.ToSlash(fname)))
		if err != nil {
			if !s.opt.KeepGoing {
				return Result{}, &FileError{Library: req.Library, Path: fname, Err: err}
			}
			clog.Warningf(ctx, "skip %s: %v", fname, err)
			result.Skipped = append(result.Skipped, SkippedFile{Path: fname, Err: err})
			continue
		}
		if _, ok := CPPScan(ctx, fname, buf, s.ldep); !ok {
			continue
		}
		result.Count++
		result.Files = append(result.Files, fname)
	}
	return result, nil
}
