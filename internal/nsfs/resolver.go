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

import "context"

// resolveChild looks up one name within one parent directory: one
// set-members fetch for the parent's children, then a single batched
// multi-get of their NAME attributes. The first child whose
// NAME matches byte-for-byte wins; ordering within the set is unspecified,
// which is fine because names within a directory are unique by construction.
//
// Returns ErrNotFound if no child has that name.
func (fs *Filesystem) resolveChild(ctx context.Context, parent int64, name string) (int64, error) {
	members, err := fs.store.SMembers(ctx, fs.codec.DirentKey(parent))
	if err != nil {
		return 0, ErrIO
	}

	if len(members) == 0 {
		return 0, ErrNotFound
	}

	ids := make([]int64, 0, len(members))
	keys := make([]string, 0, len(members))
	for _, m := range members {
		id, ok := parseInode(m)
		if !ok {
			continue
		}
		ids = append(ids, id)
		keys = append(keys, fs.codec.AttrKey(id, AttrName))
	}

	fields, err := fs.store.MGet(ctx, keys)
	if err != nil {
		return 0, ErrIO
	}

	for i, f := range fields {
		if f.Present && f.Value == name {
			return ids[i], nil
		}
	}

	return 0, ErrNotFound
}

// ResolvePath resolves an absolute path to an inode number by recursive
// descent from the root. The fuse binding layer doesn't need this
// directly — the kernel already walks the tree one LookUpInode call per
// component — but tests that want to exercise multi-level resolution use
// it.
func (fs *Filesystem) ResolvePath(ctx context.Context, path string) (int64, error) {
	if path == "/" {
		return RootInode, nil
	}

	parentPath, ok := Parent(path)
	if !ok {
		return 0, ErrNotFound
	}

	parentInode, err := fs.ResolvePath(ctx, parentPath)
	if err != nil {
		return 0, err
	}

	return fs.resolveChild(ctx, parentInode, Basename(path))
}
