// Copyright 2024 The kvfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package nsfs is the filesystem semantic layer: the inode/directory data
// model, the path resolver, the per-operation command sequences, and the
// mutation invariants that keep a flat key/value namespace looking like a
// POSIX tree. Nothing in this package talks to a kernel or a network byte;
// see package fs for the FUSE binding and package store for the backing
// store client.
package nsfs

import "strings"

// Parent returns the substring of p up to, but not including, the final "/".
// If that substring is empty the parent is "/". If p contains no "/" at all,
// ok is false: p has no representable parent (callers never pass such a path
// down from the root, since resolution always starts at "/").
//
// Operates on the literal bytes of p; "." and ".." are not collapsed.
func Parent(p string) (parent string, ok bool) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", false
	}

	if i == 0 {
		return "/", true
	}

	return p[:i], true
}

// Basename returns the substring of p after the final "/", or all of p if it
// contains none.
func Basename(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return p
	}

	return p[i+1:]
}
