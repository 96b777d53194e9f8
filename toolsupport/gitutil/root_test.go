// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gitutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindDotGit(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "repo")
	sub := filepath.Join(root, "src", "zerocoin")
	err := os.MkdirAll(sub, 0755)
	if err != nil {
		t.Fatal(err)
	}
	err = os.Mkdir(filepath.Join(root, ".git"), 0755)
	if err != nil {
		t.Fatal(err)
	}

	got, err := findDotGit(sub)
	if err != nil || got != root {
		t.Errorf("findDotGit(%q)=%q, %v; want %q, nil", sub, got, err, root)
	}

	got, err = findDotGit(dir)
	if !errors.Is(err, ErrNotFound) {
		// TempDir may live under a git checkout on some bots.
		if _, serr := os.Stat(filepath.Join(got, ".git")); serr != nil {
			t.Errorf("findDotGit(%q)=%q, %v; want %v", dir, got, err, ErrNotFound)
		}
	}
}
