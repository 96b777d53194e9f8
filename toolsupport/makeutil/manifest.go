// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package makeutil provides utilities for make.
package makeutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"slices"
	"strings"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
	"go.chromium.org/infra/build/depcheck/o11y/trace"
)

// ErrManifestNotFound is returned when the manifest doesn't exist.
var ErrManifestNotFound = errors.New("manifest not found")

// Config configures markers recognized in an automake manifest (Makefile.am).
// Markers are matched by substring.
type Config struct {
	// HeaderVar is the variable holding the shared header group.
	// "<HeaderVar> = \" opens the group, and "$(<HeaderVar>)" in
	// a source list expands to it.
	HeaderVar string

	// SourcesMarker opens a source list, e.g. "libfoo_a_SOURCES = \".
	SourcesMarker string

	// ExtraMarker ends the current group. Lines after it are ignored
	// until the next marker.
	ExtraMarker string

	// EmitHeaderGroup also emits the header group as a block.
	EmitHeaderGroup bool
}

// DefaultConfig returns the config for bitcoin's src/Makefile.am.
func DefaultConfig() Config {
	return Config{
		HeaderVar:     "BITCOIN_CORE_H",
		SourcesMarker: `SOURCES = \`,
		ExtraMarker:   "EXTRA_DIST",
	}
}

func (c Config) headerMarker() string {
	return c.HeaderVar + ` = \`
}

func (c Config) aggregateSymbol() string {
	return "$(" + c.HeaderVar + ")"
}

// Block is a named list of files declared in a manifest.
type Block struct {
	Name  string
	Files []string
	// Header is true for the header group.
	Header bool
}

// DiagnosticKind is a kind of diagnostic.
type DiagnosticKind int

const (
	// MalformedGroup is a group that never terminates.
	MalformedGroup DiagnosticKind = iota
	// DuplicateHeaderGroup is a second declaration of the header group.
	DuplicateHeaderGroup
)

func (k DiagnosticKind) String() string {
	switch k {
	case MalformedGroup:
		return "malformed group"
	case DuplicateHeaderGroup:
		return "duplicate header group"
	}
	return fmt.Sprintf("DiagnosticKind(%d)", int(k))
}

// Diagnostic is a non-fatal problem found in a manifest.
type Diagnostic struct {
	Line  int
	Group string
	Kind  DiagnosticKind
	Msg   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s %s: %s", d.Line, d.Kind, d.Group, d.Msg)
}

// State is a state of manifest parsing.
type State struct {
	// Line is the number of physical lines consumed.
	Line int
	// Buf accumulates a logical line across continued physical lines.
	Buf string

	// Name is the current group. Empty outside of any group.
	Name  string
	Files []string
	// InHeader is true while the current group is the header group.
	InHeader bool
	// Closed is set once the final entry of the current group is seen.
	Closed bool

	// Headers holds the header group once it closes.
	Headers []string
	// HeaderDeclared is set when the header group is declared.
	HeaderDeclared bool
}

// Step consumes one physical line and returns the next state.
// It returns a block when the line completes the previous group, and
// a diagnostic for a problem found on the line.
func (c Config) Step(st State, line string) (State, *Block, *Diagnostic) {
	st.Line++
	st.Buf += line

	var blk *Block
	switch {
	case strings.Contains(st.Buf, c.headerMarker()):
		st, blk = c.closeGroup(st)
		st.Buf = ""
		if st.HeaderDeclared {
			return st, blk, &Diagnostic{
				Line:  st.Line,
				Group: c.HeaderVar,
				Kind:  DuplicateHeaderGroup,
				Msg:   "already declared; ignored",
			}
		}
		st.Name = c.HeaderVar
		st.InHeader = true
		st.HeaderDeclared = true
		return st, blk, nil

	case strings.Contains(st.Buf, c.SourcesMarker):
		name := blockName(st.Buf, c.SourcesMarker)
		if strings.Contains(line, c.SourcesMarker) {
			name = blockName(line, c.SourcesMarker)
		}
		st, blk = c.closeGroup(st)
		st.Buf = ""
		st.Name = name
		return st, blk, nil

	case strings.Contains(st.Buf, c.ExtraMarker):
		st, blk = c.closeGroup(st)
		st.Buf = ""
		return st, blk, nil
	}

	open := st.Name != "" && !st.Closed
	if isContinued(line) {
		// comments and assignments outside of a source list
		// continue to the end of the logical line.
		if !open || strings.Contains(st.Buf, "#") {
			return st, nil, nil
		}
		st = c.addEntry(st, st.Buf)
		st.Buf = ""
		return st, nil, nil
	}

	// last line of a logical line.
	buf := st.Buf
	st.Buf = ""
	if !open || strings.Contains(buf, "#") {
		return st, nil, nil
	}
	st = c.addEntry(st, buf)
	st.Closed = true
	return st, nil, nil
}

// addEntry adds a file entry in buf to the current group.
// A line with a macro reference or an assignment contributes no file,
// except the aggregate symbol that expands to the header group.
func (c Config) addEntry(st State, buf string) State {
	switch e := entry(buf); {
	case strings.Contains(buf, c.aggregateSymbol()):
		st.Files = append(st.Files, st.Headers...)
	case e == "":
	case strings.ContainsAny(buf, "$="):
	default:
		st.Files = append(st.Files, e)
	}
	return st
}

// Finish finishes parsing at the end of input.
// It returns the last group if it was terminated, or a diagnostic if not.
func (c Config) Finish(st State) (State, *Block, *Diagnostic) {
	if st.Name == "" {
		return st, nil, nil
	}
	if !st.Closed {
		diag := &Diagnostic{
			Line:  st.Line,
			Group: st.Name,
			Kind:  MalformedGroup,
			Msg:   fmt.Sprintf("not terminated at end of manifest; %d files not scanned", len(st.Files)),
		}
		st.Name = ""
		st.Files = nil
		st.InHeader = false
		st.Buf = ""
		return st, nil, diag
	}
	st, blk := c.closeGroup(st)
	return st, blk, nil
}

func (c Config) closeGroup(st State) (State, *Block) {
	var blk *Block
	switch {
	case st.InHeader:
		st.Headers = slices.Clone(st.Files)
		if c.EmitHeaderGroup && len(st.Files) > 0 {
			blk = &Block{Name: st.Name, Files: st.Files, Header: true}
		}
	case st.Name != "" && len(st.Files) > 0:
		blk = &Block{Name: st.Name, Files: st.Files}
	}
	st.Name = ""
	st.Files = nil
	st.InHeader = false
	st.Closed = false
	return st, blk
}

func isContinued(line string) bool {
	return strings.HasSuffix(strings.TrimRight(line, " \t\r"), `\`)
}

func entry(buf string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(buf), `\`))
}

// blockName returns library name from the text before marker.
// e.g. "libbitcoin_util_a_SOURCES = \" -> "libbitcoin_util".
func blockName(buf, marker string) string {
	name, _, _ := strings.Cut(buf, marker)
	name = strings.TrimSuffix(strings.TrimSpace(name), "_")
	for _, primary := range []string{"_la", "_a"} {
		if n, ok := strings.CutSuffix(name, primary); ok && n != "" {
			return n
		}
	}
	return name
}

// Parser parses a manifest line by line.
type Parser struct {
	cfg   Config
	st    State
	diags []Diagnostic
}

// NewParser creates a new parser for cfg.
func NewParser(cfg Config) *Parser {
	return &Parser{cfg: cfg}
}

// Feed feeds a physical line, and returns a block if the line completes it.
func (p *Parser) Feed(line string) *Block {
	var blk *Block
	var diag *Diagnostic
	p.st, blk, diag = p.cfg.Step(p.st, line)
	if diag != nil {
		p.diags = append(p.diags, *diag)
	}
	return blk
}

// Finish finishes parsing, and returns the last block if any.
func (p *Parser) Finish() *Block {
	var blk *Block
	var diag *Diagnostic
	p.st, blk, diag = p.cfg.Finish(p.st)
	if diag != nil {
		p.diags = append(p.diags, *diag)
	}
	return blk
}

// Headers returns the header group.
func (p *Parser) Headers() []string {
	return p.st.Headers
}

// Diagnostics returns diagnostics found so far.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.diags
}

// Parse parses a manifest in r and calls fn for each block as soon as
// the block is complete.
// Parsing stops at the first error returned by fn.
func Parse(ctx context.Context, r io.Reader, cfg Config, fn func(context.Context, Block) error) ([]Diagnostic, error) {
	ctx, span := trace.NewSpan(ctx, "parse-manifest")
	p := NewParser(cfg)
	nblocks := 0
	emit := func(blk *Block) error {
		if blk == nil {
			return nil
		}
		nblocks++
		if clog.V(ctx, 1) {
			clog.Debugf(ctx, "block %s => %q", blk.Name, blk.Files)
		}
		return fn(ctx, *blk)
	}
	err := func() error {
		s := bufio.NewScanner(r)
		s.Buffer(nil, 1<<20)
		for s.Scan() {
			if err := emit(p.Feed(s.Text())); err != nil {
				return err
			}
		}
		if err := s.Err(); err != nil {
			return err
		}
		return emit(p.Finish())
	}()
	span.SetAttr("blocks", nblocks)
	span.SetAttr("headers", len(p.Headers()))
	span.Close(err)
	for _, d := range p.Diagnostics() {
		clog.Warningf(ctx, "manifest %s", d)
	}
	return p.Diagnostics(), err
}

// ParseFile parses a manifest in fname on fsys.
func ParseFile(ctx context.Context, fsys fs.FS, fname string, cfg Config, fn func(context.Context, Block) error) ([]Diagnostic, error) {
	f, err := fsys.Open(fname)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrManifestNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	ctx = clog.NewSpan(ctx, "manifest", fname)
	return Parse(ctx, f, cfg, fn)
}
