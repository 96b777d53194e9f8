// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package scandeps

import (
	"bytes"
	"context"

	"go.chromium.org/infra/build/depcheck/o11y/clog"
)

var includeToken = []byte("#include")

// IncludesDep reports whether line is an include line that contains dep.
// dep must be lower case.
func IncludesDep(line, dep []byte) bool {
	if !bytes.Contains(line, includeToken) {
		return false
	}
	return bytes.Contains(bytes.ToLower(line), dep)
}

// CPPScan scans buf of fname line by line, and returns the first include
// line that contains dep.
// dep must be lower case.
func CPPScan(ctx context.Context, fname string, buf, dep []byte) (string, bool) {
	for len(buf) > 0 {
		var line []byte
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			line = buf
			buf = nil
		} else {
			line = buf[:i]
			buf = buf[i+1:]
		}
		if !IncludesDep(line, dep) {
			continue
		}
		line = bytes.TrimSpace(line)
		if clog.V(ctx, 2) {
			clog.Debugf(ctx, "%s: match %q", fname, line)
		}
		return string(line), true
	}
	return "", false
}
