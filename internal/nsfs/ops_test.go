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

package nsfs_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/require"

	"github.com/skx-labs/kvfs/internal/nsfs"
	"github.com/skx-labs/kvfs/internal/store/faketest"
)

func newTestFS(t *testing.T, opts nsfs.Options) (*nsfs.Filesystem, *faketest.Store) {
	t.Helper()

	if opts.Prefix == "" {
		opts.Prefix = "test"
	}
	if opts.Clock == nil {
		clock := &timeutil.SimulatedClock{}
		clock.SetTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
		opts.Clock = clock
	}

	store := faketest.New()
	fs, err := nsfs.New(context.Background(), store, opts)
	require.NoError(t, err)

	return fs, store
}

func TestMkDirCreatesResolvableDirectory(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	child, attrs, err := fs.MkDir(ctx, nsfs.RootInode, "sub", 0755, 1000, 1000)
	require.NoError(t, err)
	require.Equal(t, nsfs.TypeDir, attrs.Type)

	got, err := fs.ResolvePath(ctx, "/sub")
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestMkDirDuplicateNameRejected(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	_, _, err := fs.MkDir(ctx, nsfs.RootInode, "sub", 0755, 0, 0)
	require.NoError(t, err)

	_, _, err = fs.MkDir(ctx, nsfs.RootInode, "sub", 0755, 0, 0)
	require.ErrorIs(t, err, nsfs.ErrExists)
}

func TestCreateFileThenReadWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	child, _, err := fs.CreateFile(ctx, nsfs.RootInode, "f.txt", 0644, 0, 0)
	require.NoError(t, err)

	n, err := fs.WriteData(ctx, child, []byte("hello"), 0)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	data, err := fs.ReadData(ctx, child, 0, 5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	attrs, err := fs.GetAttrs(ctx, child, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(5), attrs.Size)
}

func TestWriteAppendAtNonZeroOffset(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	child, _, err := fs.CreateFile(ctx, nsfs.RootInode, "f.txt", 0644, 0, 0)
	require.NoError(t, err)

	_, err = fs.WriteData(ctx, child, []byte("abc"), 0)
	require.NoError(t, err)

	// A known limitation: any non-zero offset write appends rather than
	// seeking, so this lands after "abc" regardless of the requested
	// offset.
	_, err = fs.WriteData(ctx, child, []byte("def"), 100)
	require.NoError(t, err)

	data, err := fs.ReadData(ctx, child, 0, 100)
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(data))
}

func TestTruncateAlwaysYieldsZeroSize(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	child, _, err := fs.CreateFile(ctx, nsfs.RootInode, "f.txt", 0644, 0, 0)
	require.NoError(t, err)

	_, err = fs.WriteData(ctx, child, []byte("some data"), 0)
	require.NoError(t, err)

	require.NoError(t, fs.Truncate(ctx, child))

	attrs, err := fs.GetAttrs(ctx, child, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), attrs.Size)

	data, err := fs.ReadData(ctx, child, 0, 100)
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestUnlinkRemovesEntryAndAttributes(t *testing.T) {
	ctx := context.Background()
	fs, store := newTestFS(t, nsfs.Options{})

	child, _, err := fs.CreateFile(ctx, nsfs.RootInode, "f.txt", 0644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.Unlink(ctx, nsfs.RootInode, "f.txt"))

	_, err = fs.ResolvePath(ctx, "/f.txt")
	require.ErrorIs(t, err, nsfs.ErrNotFound)

	// Every attribute key for the deleted inode must be gone, not merely
	// its NAME.
	for _, a := range nsfs.AllAttrs {
		field, err := store.Get(ctx, nsfs.Codec{Prefix: "test"}.AttrKey(child, a))
		require.NoError(t, err)
		require.False(t, field.Present, a.String())
	}
}

func TestRmDirRefusesNonEmptyDirectory(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	_, _, err := fs.MkDir(ctx, nsfs.RootInode, "d", 0755, 0, 0)
	require.NoError(t, err)
	dir, err := fs.ResolvePath(ctx, "/d")
	require.NoError(t, err)

	_, _, err = fs.CreateFile(ctx, dir, "child.txt", 0644, 0, 0)
	require.NoError(t, err)

	err = fs.RmDir(ctx, nsfs.RootInode, "d")
	require.ErrorIs(t, err, nsfs.ErrNotEmpty)

	require.NoError(t, fs.Unlink(ctx, dir, "child.txt"))
	require.NoError(t, fs.RmDir(ctx, nsfs.RootInode, "d"))
}

func TestRenameMovesEntryAcrossDirectories(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	_, _, err := fs.MkDir(ctx, nsfs.RootInode, "a", 0755, 0, 0)
	require.NoError(t, err)
	_, _, err = fs.MkDir(ctx, nsfs.RootInode, "b", 0755, 0, 0)
	require.NoError(t, err)

	dirA, err := fs.ResolvePath(ctx, "/a")
	require.NoError(t, err)
	dirB, err := fs.ResolvePath(ctx, "/b")
	require.NoError(t, err)

	child, _, err := fs.CreateFile(ctx, dirA, "f.txt", 0644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.Rename(ctx, dirA, "f.txt", dirB, "g.txt"))

	_, err = fs.ResolvePath(ctx, "/a/f.txt")
	require.ErrorIs(t, err, nsfs.ErrNotFound)

	got, err := fs.ResolvePath(ctx, "/b/g.txt")
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestRenameRejectsExistingDestinationName(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	_, _, err := fs.CreateFile(ctx, nsfs.RootInode, "a.txt", 0644, 0, 0)
	require.NoError(t, err)
	_, _, err = fs.CreateFile(ctx, nsfs.RootInode, "b.txt", 0644, 0, 0)
	require.NoError(t, err)

	err = fs.Rename(ctx, nsfs.RootInode, "a.txt", nsfs.RootInode, "b.txt")
	require.ErrorIs(t, err, nsfs.ErrExists)
}

func TestReadOnlyRejectsMutatingOperations(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{ReadOnly: true})

	_, _, err := fs.MkDir(ctx, nsfs.RootInode, "d", 0755, 0, 0)
	require.ErrorIs(t, err, nsfs.ErrReadOnly)

	_, _, err = fs.CreateFile(ctx, nsfs.RootInode, "f", 0644, 0, 0)
	require.ErrorIs(t, err, nsfs.ErrReadOnly)

	_, _, err = fs.CreateSymlink(ctx, nsfs.RootInode, "l", "target", 0, 0)
	require.ErrorIs(t, err, nsfs.ErrReadOnly)
}

func TestReadDirListsAllCreatedChildren(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	const n = 1000
	want := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("file-%04d", i)
		_, _, err := fs.CreateFile(ctx, nsfs.RootInode, name, 0644, 0, 0)
		require.NoError(t, err)
		want[name] = true
	}

	entries, err := fs.ReadDir(ctx, nsfs.RootInode)
	require.NoError(t, err)
	require.Len(t, entries, n)

	for _, e := range entries {
		require.True(t, want[e.Name], e.Name)
		delete(want, e.Name)
	}
	require.Empty(t, want)
}

func TestSymlinkReadBack(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	_, attrs, err := fs.CreateSymlink(ctx, nsfs.RootInode, "link", "/a/b/c", 0, 0)
	require.NoError(t, err)
	require.Equal(t, nsfs.TypeLink, attrs.Type)

	inode, err := fs.ResolvePath(ctx, "/link")
	require.NoError(t, err)

	target, err := fs.ReadLink(ctx, inode)
	require.NoError(t, err)
	require.Equal(t, "/a/b/c", target)
}

func TestChmodAndChownPersist(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	child, _, err := fs.CreateFile(ctx, nsfs.RootInode, "f", 0644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, fs.SetMode(ctx, child, 0600))
	require.NoError(t, fs.SetOwner(ctx, child, 42, 43))

	attrs, err := fs.GetAttrs(ctx, child, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint32(0600), attrs.Mode)
	require.Equal(t, uint32(42), attrs.Uid)
	require.Equal(t, uint32(43), attrs.Gid)
}

func TestGetAttrsRootIsSynthesized(t *testing.T) {
	ctx := context.Background()
	fs, _ := newTestFS(t, nsfs.Options{})

	attrs, err := fs.GetAttrs(ctx, nsfs.RootInode, 7, 8)
	require.NoError(t, err)
	require.Equal(t, nsfs.TypeDir, attrs.Type)
	require.Equal(t, uint32(0755), attrs.Mode)
	require.Equal(t, uint32(7), attrs.Uid)
	require.Equal(t, uint32(8), attrs.Gid)
}
