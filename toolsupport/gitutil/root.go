// Copyright 2024 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gitutil provides utilities for git checkouts.
package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
)

// ErrNotFound is returned when dir is not in a git checkout.
var ErrNotFound = errors.New("git checkout not found")

// RepoRoot returns the top level directory of the git checkout containing dir.
// It asks `git rev-parse --show-toplevel`, and falls back to
// looking for .git in dir and its ancestors when git is unavailable.
func RepoRoot(ctx context.Context, dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err == nil {
		root := string(bytes.TrimSpace(out))
		clog.Debugf(ctx, "git toplevel of %s: %s", dir, root)
		return root, nil
	}
	clog.Debugf(ctx, "git rev-parse in %s: %v", dir, err)
	return findDotGit(dir)
}

func findDotGit(dir string) (string, error) {
	for {
		_, err := os.Stat(filepath.Join(dir, ".git"))
		if err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w in %s", ErrNotFound, dir)
		}
		dir = parent
	}
}
