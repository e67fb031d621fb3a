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
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/timeutil"
	"github.com/stretchr/testify/require"

	"github.com/skx-labs/kvfs/internal/nsfs"
	"github.com/skx-labs/kvfs/internal/store/faketest"
)

func newTestFileSystem(t *testing.T, opts nsfs.Options) (*FileSystem, *faketest.Store) {
	t.Helper()

	clock := &timeutil.SimulatedClock{}
	clock.SetTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	opts.Clock = clock

	store := faketest.New()
	ns, err := nsfs.New(context.Background(), store, opts)
	require.NoError(t, err)

	fs, err := NewFileSystem(&ServerConfig{NS: ns, Clock: clock})
	require.NoError(t, err)

	return fs, store
}

func TestMkDirThenLookUpRoundTrip(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	mkdir := &fuseops.MkDirOp{
		Parent: fuseops.RootInodeID,
		Name:   "sub",
		Mode:   os.ModeDir | 0755,
	}
	require.NoError(t, fs.MkDir(mkdir))
	require.True(t, mkdir.Entry.Attributes.Mode.IsDir())
	require.NotEqual(t, fuseops.RootInodeID, mkdir.Entry.Child)

	lookup := &fuseops.LookUpInodeOp{
		Parent: fuseops.RootInodeID,
		Name:   "sub",
	}
	require.NoError(t, fs.LookUpInode(lookup))
	require.Equal(t, mkdir.Entry.Child, lookup.Entry.Child)
	require.True(t, lookup.Entry.Attributes.Mode.IsDir())
}

func TestMkDirDuplicateNameReturnsEEXIST(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	op := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "dup", Mode: os.ModeDir | 0755}
	require.NoError(t, fs.MkDir(op))

	again := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "dup", Mode: os.ModeDir | 0755}
	err := fs.MkDir(again)
	require.Equal(t, syscall.EEXIST, err)
}

func TestLookUpInodeMissingNameReturnsENOENT(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	op := &fuseops.LookUpInodeOp{Parent: fuseops.RootInodeID, Name: "nope"}
	err := fs.LookUpInode(op)
	require.Equal(t, syscall.ENOENT, err)
}

func TestMkDirUnderReadOnlyReturnsEPERM(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test", ReadOnly: true})

	op := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "sub", Mode: os.ModeDir | 0755}
	err := fs.MkDir(op)
	require.Equal(t, syscall.EPERM, err)
}

func TestRmDirOnNonEmptyDirReturnsENOTEMPTY(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	mkdir := &fuseops.MkDirOp{Parent: fuseops.RootInodeID, Name: "parent", Mode: os.ModeDir | 0755}
	require.NoError(t, fs.MkDir(mkdir))

	child := &fuseops.MkDirOp{Parent: mkdir.Entry.Child, Name: "child", Mode: os.ModeDir | 0755}
	require.NoError(t, fs.MkDir(child))

	err := fs.RmDir(&fuseops.RmDirOp{Parent: fuseops.RootInodeID, Name: "parent"})
	require.Equal(t, syscall.ENOTEMPTY, err)
}

func TestCreateWriteReadFileRoundTrip(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	create := &fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "f", Mode: 0644}
	require.NoError(t, fs.CreateFile(create))
	require.Equal(t, uint64(0), create.Entry.Attributes.Size)

	write := &fuseops.WriteFileOp{Inode: create.Entry.Child, Data: []byte("hello"), Offset: 0}
	require.NoError(t, fs.WriteFile(write))

	read := &fuseops.ReadFileOp{Inode: create.Entry.Child, Offset: 0, Size: 5}
	require.NoError(t, fs.ReadFile(read))
	require.Equal(t, []byte("hello"), read.Data)
}

func TestOpenDirReadDirReleaseDirHandle(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, fs.MkDir(&fuseops.MkDirOp{
			Parent: fuseops.RootInodeID, Name: name, Mode: os.ModeDir | 0755,
		}))
	}

	open := &fuseops.OpenDirOp{Inode: fuseops.RootInodeID}
	require.NoError(t, fs.OpenDir(open))
	require.NotZero(t, open.Handle)

	read := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Handle: open.Handle, Offset: 0, Size: 4096}
	require.NoError(t, fs.ReadDir(read))
	require.NotEmpty(t, read.Data)

	require.NoError(t, fs.ReleaseDirHandle(&fuseops.ReleaseDirHandleOp{Handle: open.Handle}))

	again := &fuseops.ReadDirOp{Inode: fuseops.RootInodeID, Handle: open.Handle, Offset: 0, Size: 4096}
	require.Equal(t, syscall.EINVAL, fs.ReadDir(again))
}

func TestRenameRejectsCollidingDestinationName(t *testing.T) {
	fs, _ := newTestFileSystem(t, nsfs.Options{Prefix: "test"})

	require.NoError(t, fs.CreateFile(&fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "src", Mode: 0644}))
	require.NoError(t, fs.CreateFile(&fuseops.CreateFileOp{Parent: fuseops.RootInodeID, Name: "dst", Mode: 0644}))

	err := fs.Rename(&fuseops.RenameOp{
		OldParent: fuseops.RootInodeID, OldName: "src",
		NewParent: fuseops.RootInodeID, NewName: "dst",
	})
	require.Equal(t, syscall.EEXIST, err)
}
