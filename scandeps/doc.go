// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package scandeps provides a simple external dependency scanner for
// C/C++ source files listed in a manifest.
//
// It doesn't preprocess the sources. A file depends on the external
// dependency when a line containing
//
//	#include
//
// also contains the dependency name, compared case insensitively. e.g.
// "zlib" matches
//
//	#include <zlib.h>
//	#include "compat/ZLIB_compat.h"
//
// Each file counts at most once per library, no matter how many
// includes match in it.
//
// It doesn't process `#if` or `#ifdef`, so includes in disabled
// sections and commented out includes are also counted.
package scandeps
