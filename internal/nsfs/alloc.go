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

package nsfs

import (
	"context"
	"strconv"
)

// KernelRootInodeSeed is the conventional FUSE root inode ID (the value
// jacobsa/fuse calls fuseops.RootInodeID). The global counter is seeded to
// this value the first time a Filesystem touches it, so that the first
// allocated inode is strictly greater than any inode number the fuse
// binding layer reserves for the kernel-visible root. The counter only
// ever grows from there, so it stays strictly greater than every inode
// number handed out so far.
const KernelRootInodeSeed int64 = 1

// ensureCounterSeeded sets the global counter to KernelRootInodeSeed iff it
// does not exist yet. Safe to call more than once; a benign race between two
// processes mounting the same prefix for the first time can at worst cause
// one extra no-op Set, never a regression of the counter.
func (fs *Filesystem) ensureCounterSeeded(ctx context.Context) error {
	key := fs.codec.CounterKey()

	field, err := fs.store.Get(ctx, key)
	if err != nil {
		return ErrIO
	}

	if field.Present {
		return nil
	}

	if err := fs.store.Set(ctx, key, strconv.FormatInt(KernelRootInodeSeed, 10)); err != nil {
		return ErrIO
	}

	return nil
}

// nextInode issues an atomic increment on the global counter and returns the
// freshly allocated inode number. A failure to obtain an
// integer reply is surfaced as ErrIO; callers abort the operation.
func (fs *Filesystem) nextInode(ctx context.Context) (int64, error) {
	n, err := fs.store.Incr(ctx, fs.codec.CounterKey())
	if err != nil {
		return -1, ErrIO
	}

	return n, nil
}
