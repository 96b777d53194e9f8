// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Depcheck counts files including an external dependency per library
// of an automake manifest.
package main

import (
	"context"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"

	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/depcheck/subcmd/check"
	"go.chromium.org/infra/build/depcheck/subcmd/help"
	"go.chromium.org/infra/build/depcheck/subcmd/version"
)

const versionID = "v0.1.0"

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "depcheck",
		Title: "count files including an external dependency per library",
		Context: func(ctx context.Context) context.Context {
			return ctx
		},
		Commands: []*subcommands.Command{
			check.Cmd(),
			help.Cmd(),
			version.Cmd(versionID),
		},
	}
}

func main() {
	os.Exit(depcheckMain(os.Args[1:]))
}

func depcheckMain(args []string) int {
	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()
	return subcommands.Run(getApplication(), args)
}
