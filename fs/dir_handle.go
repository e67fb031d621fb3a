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

package fs

import (
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/skx-labs/kvfs/internal/nsfs"
)

// dirHandle holds one snapshot of a directory's listing, taken at OpenDir
// time (readdir doesn't describe a live view — the snapshot is a
// fuse-binding-layer concern, since the kernel expects a stable offset
// space for the lifetime of one open directory).
type dirHandle struct {
	entries []fuseops.Dirent
}

func newDirHandle(children []nsfs.DirEntry) *dirHandle {
	entries := make([]fuseops.Dirent, 0, len(children))

	for i, c := range children {
		entries = append(entries, fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  toKernelInode(c.Inode),
			Name:   c.Name,
			Type:   direntType(c.Type),
		})
	}

	return &dirHandle{entries: entries}
}

// readAt serializes entries with Offset > offset into a buffer of at most
// size bytes, in the fuse_dirent wire format fuseutil.WriteDirent produces.
// An entry that doesn't fit ends the listing early; the kernel will come
// back with a larger Offset to pick up where this call left off.
func (dh *dirHandle) readAt(offset fuseops.DirOffset, size int) []byte {
	buf := make([]byte, size)
	n := 0

	for _, e := range dh.entries {
		if e.Offset <= offset {
			continue
		}

		written := fuseutil.WriteDirent(buf[n:], e)
		if written == 0 {
			break
		}
		n += written
	}

	return buf[:n]
}
