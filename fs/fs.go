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

// Package fs is the FUSE binding layer: it translates fuseops requests into
// calls against an *nsfs.Filesystem and translates nsfs's sentinel errors
// back into the errno values the kernel expects. Every method takes the
// single process-wide lock on entry and holds it for the method's entire
// body — there is no finer-grained, per-inode locking here.
package fs

import (
	"context"
	"os"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"

	"github.com/skx-labs/kvfs/internal/logger"
	"github.com/skx-labs/kvfs/internal/nsfs"
)

// entryTTL bounds how long the kernel may cache an entry or its attributes.
// The namespace pushes no invalidation of its own, so a short TTL keeps a
// second writer against the same prefix from going unnoticed for long, at
// the cost of extra GetInodeAttributes traffic.
const entryTTL = time.Second

// ServerConfig configures NewServer.
type ServerConfig struct {
	// NS is the already-constructed namespace filesystem (see nsfs.New).
	NS *nsfs.Filesystem

	// Clock is used for entry/attribute expiration timestamps.
	Clock timeutil.Clock
}

// NewServer creates a fuse.Server that serves cfg.NS over FUSE.
func NewServer(cfg *ServerConfig) (fuse.Server, error) {
	fs, err := NewFileSystem(cfg)
	if err != nil {
		return nil, err
	}

	return fuseutil.NewFileSystemServer(fs), nil
}

// NewFileSystem builds the fuseutil.FileSystem implementation itself,
// without wrapping it in a fuse.Server. Tests call this directly to drive
// fuseops structs through the binding layer without a real kernel
// connection; NewServer is what cmd/mount.go uses to actually serve one.
func NewFileSystem(cfg *ServerConfig) (*FileSystem, error) {
	fs := &FileSystem{
		ns:         cfg.NS,
		clock:      cfg.Clock,
		dirHandles: make(map[fuseops.HandleID]*dirHandle),
		nextHandle: 1,
	}

	fs.mu = syncutil.NewInvariantMutex(fs.checkInvariants)

	return fs, nil
}

// FileSystem implements fuseutil.FileSystem against an *nsfs.Filesystem.
type FileSystem struct {
	fuseutil.NotImplementedFileSystem

	ns    *nsfs.Filesystem
	clock timeutil.Clock

	mu syncutil.InvariantMutex

	// GUARDED_BY(mu)
	dirHandles map[fuseops.HandleID]*dirHandle
	// GUARDED_BY(mu)
	nextHandle fuseops.HandleID
}

func (fs *FileSystem) checkInvariants() {
	if fs.dirHandles == nil {
		panic("nil dirHandles map")
	}
}

// enter takes the file system lock and makes sure the backing store
// connection is alive. Every handler that reaches the namespace calls this
// immediately on entry, before touching any inode; ReadDir and
// ReleaseDirHandle only take fs.mu, and ReleaseFileHandle takes no lock.
// A connection that can't be revived is fatal:
// there is no useful degraded mode for a filesystem with no backing store.
func (fs *FileSystem) enter() context.Context {
	fs.mu.Lock()

	ctx := context.Background()
	if err := fs.ns.EnsureAlive(ctx); err != nil {
		logger.Errorf("backing store unavailable, exiting: %v", err)
		os.Exit(1)
	}

	return ctx
}

////////////////////////////////////////////////////////////////////////
// Inode ID translation
////////////////////////////////////////////////////////////////////////

// toStoreInode converts a kernel-visible inode ID to the inode number nsfs
// uses internally, mapping the kernel's reserved root ID onto the
// namespace's root sentinel.
func toStoreInode(id fuseops.InodeID) int64 {
	if id == fuseops.RootInodeID {
		return nsfs.RootInode
	}
	return int64(id)
}

func toKernelInode(id int64) fuseops.InodeID {
	if id == nsfs.RootInode {
		return fuseops.RootInodeID
	}
	return fuseops.InodeID(id)
}

////////////////////////////////////////////////////////////////////////
// Attribute translation
////////////////////////////////////////////////////////////////////////

// fuseAttrs synthesizes the file-type bits onto Mode the way
// getattr describes: DIR gets S_IFDIR, LINK gets S_IFLNK with link count 1
// and size 0, FILE keeps its recorded size untouched.
func fuseAttrs(a nsfs.Attrs) fuseops.InodeAttributes {
	mode := os.FileMode(a.Mode & 0777)
	size := a.Size
	link := a.Link

	switch a.Type {
	case nsfs.TypeDir:
		mode |= os.ModeDir
	case nsfs.TypeLink:
		mode |= os.ModeSymlink
		size = 0
		link = 1
	}

	return fuseops.InodeAttributes{
		Size:   size,
		Nlink:  link,
		Mode:   mode,
		Uid:    a.Uid,
		Gid:    a.Gid,
		Atime:  a.Atime,
		Mtime:  a.Mtime,
		Ctime:  a.Ctime,
		Crtime: a.Ctime,
	}
}

func direntType(t nsfs.InodeType) fuseops.DirentType {
	switch t {
	case nsfs.TypeDir:
		return fuseops.DT_Directory
	case nsfs.TypeLink:
		return fuseops.DT_Link
	default:
		return fuseops.DT_File
	}
}

// errnoFor maps the nsfs sentinel errors to the errno values
// assigns them. Anything else (a wrapped ErrIO, or an error this layer
// doesn't recognize) becomes EIO, matching the "operation failed" default.
func errnoFor(err error) error {
	switch err {
	case nil:
		return nil
	case nsfs.ErrNotFound:
		return syscall.ENOENT
	case nsfs.ErrNotADirectory:
		return syscall.ENOTDIR
	case nsfs.ErrIsADirectory:
		return syscall.EISDIR
	case nsfs.ErrNotEmpty:
		return syscall.ENOTEMPTY
	case nsfs.ErrReadOnly:
		return syscall.EPERM
	case nsfs.ErrExists:
		return syscall.EEXIST
	default:
		return syscall.EIO
	}
}

////////////////////////////////////////////////////////////////////////
// Inodes
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) LookUpInode(op *fuseops.LookUpInodeOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	child, attrs, err := fs.ns.LookupChild(ctx, toStoreInode(op.Parent), op.Name)
	if err != nil {
		return errnoFor(err)
	}

	op.Entry.Child = toKernelInode(child)
	op.Entry.Attributes = fuseAttrs(attrs)
	op.Entry.AttributesExpiration = fs.clock.Now().Add(entryTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration

	return nil
}

func (fs *FileSystem) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	h := op.Header()
	attrs, err := fs.ns.GetAttrs(ctx, toStoreInode(op.Inode), h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}

	op.Attributes = fuseAttrs(attrs)
	op.AttributesExpiration = fs.clock.Now().Add(entryTTL)

	return nil
}

func (fs *FileSystem) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	inode := toStoreInode(op.Inode)

	if op.Mode != nil {
		if err = fs.ns.SetMode(ctx, inode, uint32(op.Mode.Perm())); err != nil {
			return errnoFor(err)
		}
	}

	if op.Size != nil {
		if err = fs.ns.Truncate(ctx, inode); err != nil {
			return errnoFor(err)
		}
	}

	if op.Atime != nil || op.Mtime != nil {
		var atime, mtime *int64
		if op.Atime != nil {
			a := op.Atime.Unix()
			atime = &a
		}
		if op.Mtime != nil {
			m := op.Mtime.Unix()
			mtime = &m
		}
		if err = fs.ns.SetTimes(ctx, inode, atime, mtime); err != nil {
			return errnoFor(err)
		}
	}

	h := op.Header()
	attrs, err := fs.ns.GetAttrs(ctx, inode, h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}

	op.Attributes = fuseAttrs(attrs)
	op.AttributesExpiration = fs.clock.Now().Add(entryTTL)

	return nil
}

////////////////////////////////////////////////////////////////////////
// Inode creation / removal
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) MkDir(op *fuseops.MkDirOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	h := op.Header()
	child, attrs, err := fs.ns.MkDir(ctx, toStoreInode(op.Parent), op.Name, uint32(op.Mode.Perm()), h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}

	op.Entry.Child = toKernelInode(child)
	op.Entry.Attributes = fuseAttrs(attrs)
	op.Entry.AttributesExpiration = fs.clock.Now().Add(entryTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration

	return nil
}

func (fs *FileSystem) CreateFile(op *fuseops.CreateFileOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	h := op.Header()
	child, attrs, err := fs.ns.CreateFile(ctx, toStoreInode(op.Parent), op.Name, uint32(op.Mode.Perm()), h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}

	op.Entry.Child = toKernelInode(child)
	op.Entry.Attributes = fuseAttrs(attrs)
	op.Entry.AttributesExpiration = fs.clock.Now().Add(entryTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration

	// Nothing interesting to put in op.Handle: ReadFile/WriteFile address
	// the inode directly, not through any per-open-handle state.
	return nil
}

func (fs *FileSystem) CreateSymlink(op *fuseops.CreateSymlinkOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	h := op.Header()
	child, attrs, err := fs.ns.CreateSymlink(ctx, toStoreInode(op.Parent), op.Name, op.Target, h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}

	op.Entry.Child = toKernelInode(child)
	op.Entry.Attributes = fuseAttrs(attrs)
	op.Entry.AttributesExpiration = fs.clock.Now().Add(entryTTL)
	op.Entry.EntryExpiration = op.Entry.AttributesExpiration

	return nil
}

func (fs *FileSystem) Rename(op *fuseops.RenameOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	return errnoFor(fs.ns.Rename(ctx,
		toStoreInode(op.OldParent), op.OldName,
		toStoreInode(op.NewParent), op.NewName))
}

func (fs *FileSystem) RmDir(op *fuseops.RmDirOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	return errnoFor(fs.ns.RmDir(ctx, toStoreInode(op.Parent), op.Name))
}

func (fs *FileSystem) Unlink(op *fuseops.UnlinkOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	return errnoFor(fs.ns.Unlink(ctx, toStoreInode(op.Parent), op.Name))
}

func (fs *FileSystem) ReadSymlink(op *fuseops.ReadSymlinkOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	target, err := fs.ns.ReadLink(ctx, toStoreInode(op.Inode))
	if err != nil {
		return errnoFor(err)
	}

	op.Target = target
	return nil
}

////////////////////////////////////////////////////////////////////////
// Directory handles
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) OpenDir(op *fuseops.OpenDirOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	self := toStoreInode(op.Inode)
	h := op.Header()

	selfAttrs, err := fs.ns.GetAttrs(ctx, self, h.Uid, h.Gid)
	if err != nil {
		return errnoFor(err)
	}
	if self != nsfs.RootInode && selfAttrs.Type != nsfs.TypeDir {
		return syscall.ENOTDIR
	}

	children, err := fs.ns.ReadDir(ctx, self)
	if err != nil {
		return errnoFor(err)
	}

	handle := fs.nextHandle
	fs.nextHandle++
	fs.dirHandles[handle] = newDirHandle(children)

	op.Handle = handle
	return nil
}

func (fs *FileSystem) ReadDir(op *fuseops.ReadDirOp) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	handle, ok := fs.dirHandles[op.Handle]
	if !ok {
		return syscall.EINVAL
	}

	op.Data = handle.readAt(op.Offset, op.Size)
	return nil
}

func (fs *FileSystem) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) (err error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.dirHandles, op.Handle)
	return nil
}

////////////////////////////////////////////////////////////////////////
// File handles
////////////////////////////////////////////////////////////////////////

func (fs *FileSystem) OpenFile(op *fuseops.OpenFileOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	return errnoFor(fs.ns.Touch(ctx, toStoreInode(op.Inode)))
}

func (fs *FileSystem) ReadFile(op *fuseops.ReadFileOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	data, err := fs.ns.ReadData(ctx, toStoreInode(op.Inode), op.Offset, int64(op.Size))
	if err != nil {
		return errnoFor(err)
	}

	op.Data = data
	return nil
}

func (fs *FileSystem) WriteFile(op *fuseops.WriteFileOp) (err error) {
	ctx := fs.enter()
	defer fs.mu.Unlock()

	_, err = fs.ns.WriteData(ctx, toStoreInode(op.Inode), op.Data, op.Offset)
	return errnoFor(err)
}

func (fs *FileSystem) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) (err error) {
	return nil
}
