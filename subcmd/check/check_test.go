// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"go.chromium.org/infra/build/depcheck/scandeps"
	"go.chromium.org/infra/build/depcheck/toolsupport/makeutil"
)

func setupRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		fullpath := filepath.Join(dir, name)
		err := os.MkdirAll(filepath.Dir(fullpath), 0755)
		if err != nil {
			t.Fatal(err)
		}
		err = os.WriteFile(fullpath, []byte(content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newRun(t *testing.T, flags ...string) (*run, *bytes.Buffer) {
	t.Helper()
	c := &run{}
	c.init()
	var stdout, stderr bytes.Buffer
	c.stdin = strings.NewReader("")
	c.stdout = &stdout
	c.stderr = &stderr
	err := c.Flags.Parse(flags)
	if err != nil {
		t.Fatalf("Flags.Parse(%q)=%v", flags, err)
	}
	return c, &stdout
}

var scenario = map[string]string{
	"src/Makefile.am": `HEADERS = \
  a.h \
  b.h

LIBX_SOURCES = \
  x.cpp \
  $(HEADERS)
`,
	"src/a.h":   "#include <zlib.h>\n",
	"src/b.h":   "#include <stdint.h>\n",
	"src/x.cpp": "#include <openssl/rsa.h>\n",
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	dir := setupRepo(t, scenario)

	c, stdout := newRun(t, "-C", dir, "-header_var", "HEADERS")
	total, err := c.run(ctx, []string{"zlib"})
	if err != nil {
		t.Fatalf("run(ctx, zlib)=%d, %v; want nil err", total, err)
	}
	if total != 1 {
		t.Errorf("run(ctx, zlib)=%d; want 1", total)
	}
	want := `Number of Files in LIBX with zlib: 1
a.h

# of files with dependency: 1
`
	if diff := cmp.Diff(want, stdout.String()); diff != "" {
		t.Errorf("report -want +got:\n%s", diff)
	}

	// unchanged inputs give identical output.
	c2, stdout2 := newRun(t, "-C", dir, "-header_var", "HEADERS")
	total2, err := c2.run(ctx, []string{"zlib"})
	if err != nil || total2 != total || stdout2.String() != stdout.String() {
		t.Errorf("second run=%d, %v, %q; want %d, nil, %q", total2, err, stdout2.String(), total, stdout.String())
	}
}

func TestRun_ScanHeaderGroup(t *testing.T) {
	ctx := context.Background()
	dir := setupRepo(t, scenario)

	c, stdout := newRun(t, "-C", dir, "-header_var", "HEADERS", "-scan_header_group")
	total, err := c.run(ctx, []string{"ZLIB"})
	if err != nil {
		t.Fatalf("run(ctx, ZLIB)=%d, %v; want nil err", total, err)
	}
	if total != 2 {
		t.Errorf("run(ctx, ZLIB)=%d; want 2", total)
	}
	if !strings.HasPrefix(stdout.String(), "Number of Files in HEADERS with ZLIB: 1\na.h\n") {
		t.Errorf("report=%q; want header group first", stdout.String())
	}
}

func TestRun_JSON(t *testing.T) {
	ctx := context.Background()
	dir := setupRepo(t, scenario)

	c, stdout := newRun(t, "-C", dir, "-header_var", "HEADERS", "-format", "json")
	total, err := c.run(ctx, []string{"zlib"})
	if err != nil || total != 1 {
		t.Fatalf("run(ctx, zlib)=%d, %v; want 1, nil", total, err)
	}
	var rep struct {
		RunID      string `json:"run_id"`
		Dependency string `json:"dependency"`
		Total      int    `json:"total"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &rep); err != nil {
		t.Fatalf("json.Unmarshal(%q)=%v", stdout.String(), err)
	}
	if _, err := uuid.Parse(rep.RunID); err != nil {
		t.Errorf("run_id=%q; want uuid: %v", rep.RunID, err)
	}
	if rep.Dependency != "zlib" || rep.Total != 1 {
		t.Errorf("report=%+v; want dependency zlib, total 1", rep)
	}
}

func TestRun_MissingFile(t *testing.T) {
	ctx := context.Background()
	files := map[string]string{
		"src/Makefile.am": `libfoo_a_SOURCES = \
  gone.cpp \
  foo.cpp
`,
		"src/foo.cpp": "#include <zlib.h>\n",
	}
	dir := setupRepo(t, files)

	c, _ := newRun(t, "-C", dir)
	_, err := c.run(ctx, []string{"zlib"})
	var ferr *scandeps.FileError
	if !errors.As(err, &ferr) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("run(ctx, zlib)=%v; want FileError", err)
	}

	c, stdout := newRun(t, "-C", dir, "-keep_going")
	total, err := c.run(ctx, []string{"zlib"})
	if err != nil || total != 1 {
		t.Errorf("run(ctx, zlib) keep going=%d, %v; want 1, nil", total, err)
	}
	if !strings.Contains(stdout.String(), "skipped gone.cpp") {
		t.Errorf("report=%q; want skipped gone.cpp", stdout.String())
	}
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	dir := setupRepo(t, map[string]string{
		"src/Makefile.am": "libfoo_a_SOURCES = \\\n  foo.cpp \\\n",
		"src/foo.cpp":     "#include <zlib.h>\n",
	})

	for _, tc := range []struct {
		name  string
		flags []string
		args  []string
		check func(error) bool
	}{
		{
			name:  "no-dependency",
			flags: []string{"-C", dir},
			check: func(err error) bool { return errors.Is(err, flag.ErrHelp) },
		},
		{
			name:  "too-many-args",
			flags: []string{"-C", dir},
			args:  []string{"zlib", "boost"},
			check: func(err error) bool { return errors.Is(err, flag.ErrHelp) },
		},
		{
			name:  "bad-format",
			flags: []string{"-C", dir, "-format", "xml"},
			args:  []string{"zlib"},
			check: func(err error) bool { return errors.Is(err, flag.ErrHelp) },
		},
		{
			name:  "manifest-not-found",
			flags: []string{"-C", dir, "-manifest", "Makefile.am"},
			args:  []string{"zlib"},
			check: func(err error) bool { return errors.Is(err, makeutil.ErrManifestNotFound) },
		},
		{
			name:  "strict",
			flags: []string{"-C", dir, "-strict"},
			args:  []string{"zlib"},
			check: func(err error) bool { return err != nil && strings.Contains(err.Error(), "problems in manifest") },
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newRun(t, tc.flags...)
			_, err := c.run(ctx, tc.args)
			if !tc.check(err) {
				t.Errorf("run(ctx, %q)=%v; unexpected error", tc.args, err)
			}
		})
	}

	// not strict: unterminated group is not scanned.
	c, stdout := newRun(t, "-C", dir)
	total, err := c.run(ctx, []string{"zlib"})
	if err != nil || total != 0 {
		t.Errorf("run(ctx, zlib)=%d, %v; want 0, nil", total, err)
	}
	if got, want := stdout.String(), "# of files with dependency: 0\n"; got != want {
		t.Errorf("report=%q; want %q", got, want)
	}
}

func TestPrompt(t *testing.T) {
	var out bytes.Buffer
	got, err := prompt(strings.NewReader("  Boost \n"), &out)
	if err != nil || got != "Boost" {
		t.Errorf("prompt=%q, %v; want Boost, nil", got, err)
	}
	if !strings.HasPrefix(out.String(), "Enter the Dependency: ") {
		t.Errorf("prompt output=%q", out.String())
	}
}
