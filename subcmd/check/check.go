// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package check is check subcommand to count files including a dependency.
package check

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/maruel/subcommands"
	"golang.org/x/term"

	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
	"go.chromium.org/infra/build/depcheck/o11y/trace"
	"go.chromium.org/infra/build/depcheck/report"
	"go.chromium.org/infra/build/depcheck/scandeps"
	"go.chromium.org/infra/build/depcheck/toolsupport/gitutil"
	"go.chromium.org/infra/build/depcheck/toolsupport/makeutil"
	"go.chromium.org/infra/build/depcheck/ui"
)

const usage = `count files including a dependency per library

 $ depcheck check [-C <repo>] [-manifest src/Makefile.am] <dependency>

Scans the files listed in each library of <repo>/<manifest> for
#include lines containing <dependency> (case insensitive), and
reports the number of such files per library and in total.
If <dependency> is omitted on a terminal, it is asked interactively.

The exit status is the total number of files including <dependency>,
which the OS truncates to 0-255. Use the printed total when it may be
larger. Errors exit with 1.
`

// Cmd returns the Command for the `check` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "check [-C <repo>] <dependency>",
		ShortDesc: "count files including a dependency per library",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	dir             string
	manifest        string
	dep             string
	format          string
	keepGoing       bool
	strict          bool
	headerVar       string
	scanHeaderGroup bool
	verbose         int

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func (c *run) init() {
	cfg := makeutil.DefaultConfig()
	c.Flags.StringVar(&c.dir, "C", "", "repository root. default is the toplevel of the git checkout of the current directory")
	c.Flags.StringVar(&c.manifest, "manifest", filepath.Join("src", "Makefile.am"), "manifest relative to the repository root. files in the manifest are relative to its directory")
	c.Flags.StringVar(&c.dep, "dep", "", "dependency to check. same as the positional argument")
	c.Flags.StringVar(&c.format, "format", "text", fmt.Sprintf("report format. one of %s", strings.Join(report.Formats, ",")))
	c.Flags.BoolVar(&c.keepGoing, "keep_going", false, "report unreadable files as skipped and continue, instead of failing")
	c.Flags.BoolVar(&c.strict, "strict", false, "fail if the manifest has malformed groups")
	c.Flags.StringVar(&c.headerVar, "header_var", cfg.HeaderVar, "variable of the shared header group")
	c.Flags.BoolVar(&c.scanHeaderGroup, "scan_header_group", false, "also report the shared header group as a library")
	c.Flags.IntVar(&c.verbose, "v", 0, "log verbosity")
	c.stdin = os.Stdin
	c.stdout = os.Stdout
	c.stderr = os.Stderr
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	total, err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(c.stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
		}
		return 1
	}
	return total
}

func (c *run) run(ctx context.Context, args []string) (int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer signals.HandleInterrupt(cancel)()

	dep, err := c.dependency(args)
	if err != nil {
		return 0, err
	}

	if c.verbose > 0 {
		log.SetLevel(log.DebugLevel)
	}
	runID := uuid.New().String()
	ctx = clog.NewContext(ctx, clog.New(c.stderr, c.verbose).With("run", runID))
	tc := trace.New(ctx, runID)
	ctx = trace.NewContext(ctx, tc)

	manifest, err := c.manifestPath(ctx)
	if err != nil {
		return 0, err
	}
	baseDir := filepath.Dir(manifest)
	clog.Infof(ctx, "manifest %s dependency %q", manifest, dep)

	w, err := report.NewWriter(c.format, c.stdout, dep, ui.IsTerminal())
	if err != nil {
		return 0, fmt.Errorf("%w: %w", err, flag.ErrHelp)
	}
	cfg := makeutil.DefaultConfig()
	cfg.HeaderVar = c.headerVar
	cfg.EmitHeaderGroup = c.scanHeaderGroup
	fsys := os.DirFS(baseDir)
	s := scandeps.New(fsys, dep, scandeps.Option{KeepGoing: c.keepGoing})
	agg := &report.Aggregate{
		RunID:      trace.ID(ctx),
		Dependency: s.Dependency(),
	}

	diags, err := makeutil.ParseFile(ctx, fsys, filepath.Base(manifest), cfg, func(ctx context.Context, blk makeutil.Block) error {
		spin := ui.Default.NewSpinner()
		spin.Start("scanning %s (%d files)", blk.Name, len(blk.Files))
		result, err := s.Scan(ctx, scandeps.Request{
			Library: blk.Name,
			Sources: blk.Files,
		})
		spin.Stop(err)
		if err != nil {
			return err
		}
		agg.Add(result)
		return w.Library(result)
	})
	if err != nil {
		return 0, err
	}
	agg.SharedHeaderUsage = s.SharedHeaderUsage()
	skipped := 0
	for _, r := range agg.Libraries {
		skipped += len(r.Skipped)
	}
	if skipped > 0 {
		ui.Default.Warningf("%d files skipped. counts may be incomplete", skipped)
	}
	if clog.V(ctx, 1) {
		clog.Debugf(ctx, "shared header usage: %q", agg.SharedHeaderUsage)
		for _, sd := range tc.Spans() {
			clog.Debugf(ctx, "span %s", sd)
		}
	}
	if c.strict && len(diags) > 0 {
		return 0, fmt.Errorf("%s: %d problems in manifest", manifest, len(diags))
	}
	err = w.Finish(agg)
	if err != nil {
		return 0, err
	}
	return agg.Total, nil
}

func (c *run) manifestPath(ctx context.Context) (string, error) {
	if filepath.IsAbs(c.manifest) {
		return c.manifest, nil
	}
	root := c.dir
	if root == "" {
		var err error
		root, err = gitutil.RepoRoot(ctx, ".")
		if err != nil {
			return "", fmt.Errorf("failed to find repository root. use -C: %w", err)
		}
	}
	return filepath.Join(root, c.manifest), nil
}

// dependency returns the dependency given by -dep or the argument.
// On a terminal, it asks the user if none is given.
func (c *run) dependency(args []string) (string, error) {
	dep := c.dep
	switch {
	case len(args) == 1 && dep == "":
		dep = args[0]
	case len(args) > 0:
		return "", fmt.Errorf("unexpected arguments %q: %w", args, flag.ErrHelp)
	}
	if dep == "" {
		if f, ok := c.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			var err error
			dep, err = prompt(c.stdin, c.stdout)
			if err != nil {
				return "", err
			}
		}
	}
	dep = strings.TrimSpace(dep)
	if dep == "" {
		return "", fmt.Errorf("missing dependency: %w", flag.ErrHelp)
	}
	return dep, nil
}

func prompt(r io.Reader, w io.Writer) (string, error) {
	fmt.Fprint(w, "Enter the Dependency: ")
	s := bufio.NewScanner(r)
	if !s.Scan() {
		if err := s.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	fmt.Fprintln(w)
	return strings.TrimSpace(s.Text()), nil
}
