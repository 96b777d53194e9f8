// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"context"
	"testing"
)

func TestCPPScan(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name     string
		buf      string
		dep      string
		wantLine string
		wantOK   bool
	}{
		{
			name: "helloworld",
			buf: `
#include <stdio.h>

int main(int arg, char *argv[]) {
  printf("hello, world\n");
}
`,
			dep:      "stdio",
			wantLine: "#include <stdio.h>",
			wantOK:   true,
		},
		{
			name: "case-insensitive",
			buf: `
#include <stdint.h>
#include "compat/ZLIB_compat.h"
`,
			dep:      "zlib",
			wantLine: `#include "compat/ZLIB_compat.h"`,
			wantOK:   true,
		},
		{
			name: "first-match",
			buf: `#include <openssl/rsa.h>
#include <openssl/evp.h>
`,
			dep:      "openssl",
			wantLine: "#include <openssl/rsa.h>",
			wantOK:   true,
		},
		{
			name: "not-include-line",
			buf: `
// uses zlib for compression.
static const char* kName = "zlib";
`,
			dep: "zlib",
		},
		{
			name: "include-next",
			buf: `#include_next <boost/thread.hpp>
`,
			dep:      "boost",
			wantLine: "#include_next <boost/thread.hpp>",
			wantOK:   true,
		},
		{
			name:     "no-newline",
			buf:      `#include <zlib.h>`,
			dep:      "zlib",
			wantLine: "#include <zlib.h>",
			wantOK:   true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			line, ok := CPPScan(ctx, tc.name, []byte(tc.buf), []byte(tc.dep))
			if line != tc.wantLine || ok != tc.wantOK {
				t.Errorf("CPPScan(%q, %q)=%q, %t; want %q, %t", tc.buf, tc.dep, line, ok, tc.wantLine, tc.wantOK)
			}
		})
	}
}

func TestIncludesDep(t *testing.T) {
	for _, tc := range []struct {
		line string
		want bool
	}{
		{line: "#include <boost/filesystem.hpp>", want: true},
		{line: "#include <Boost/Filesystem.hpp>", want: true},
		{line: "#include <univalue.h>", want: false},
		{line: "using boost::filesystem::path;", want: false},
		{line: "# include <boost/filesystem.hpp>", want: false},
	} {
		got := IncludesDep([]byte(tc.line), []byte("boost"))
		if got != tc.want {
			t.Errorf("IncludesDep(%q, boost)=%t; want %t", tc.line, got, tc.want)
		}
	}
}
