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

// DirEntry is one child returned by ReadDir.
type DirEntry struct {
	Inode int64
	Name  string
	Type  InodeType
}

var allAttrKeys = func(codec Codec, inode int64) []string {
	keys := make([]string, len(AllAttrs))
	for i, a := range AllAttrs {
		keys[i] = codec.AttrKey(inode, a)
	}
	return keys
}

func (fs *Filesystem) fetchAttrs(ctx context.Context, inode int64) (Attrs, error) {
	keys := allAttrKeys(fs.codec, inode)
	fields, err := fs.store.MGet(ctx, keys)
	if err != nil {
		return Attrs{}, ErrIO
	}

	byAttr := make(map[Attr]Field, len(AllAttrs))
	for i, a := range AllAttrs {
		byAttr[a] = fields[i]
	}

	return decodeAttrs(byAttr), nil
}

// GetAttrs returns the decoded attribute block for inode. The root inode is
// synthesized (getattr): mode S_IFDIR|0755, link 1, all three
// timestamps "now", uid/gid supplied by the caller (the kernel bridge's
// credential for this call, since the root has no owner of its own).
func (fs *Filesystem) GetAttrs(ctx context.Context, inode int64, callerUid, callerGid uint32) (Attrs, error) {
	if inode == RootInode {
		now := fs.now()
		return Attrs{
			Type:  TypeDir,
			Mode:  0755,
			Uid:   callerUid,
			Gid:   callerGid,
			Link:  1,
			Atime: now,
			Mtime: now,
			Ctime: now,
		}, nil
	}

	attrs, err := fs.fetchAttrs(ctx, inode)
	if err != nil {
		return Attrs{}, err
	}

	if attrs.Type == TypeUnknown {
		return Attrs{}, ErrNotFound
	}

	return attrs, nil
}

// LookupChild resolves one name within parent and returns the child's
// inode number and attributes in one logical step, composed the way the
// kernel's per-component LookUpInode calls need them.
func (fs *Filesystem) LookupChild(ctx context.Context, parent int64, name string) (int64, Attrs, error) {
	child, err := fs.resolveChild(ctx, parent, name)
	if err != nil {
		return 0, Attrs{}, err
	}

	attrs, err := fs.fetchAttrs(ctx, child)
	if err != nil {
		return 0, Attrs{}, err
	}

	return child, attrs, nil
}

// ReadDir lists the direct children of a directory inode. The result holds
// only those children: "." and ".." are not included, and the fuse binding
// layer's directory handles do not add them either.
func (fs *Filesystem) ReadDir(ctx context.Context, dirInode int64) ([]DirEntry, error) {
	members, err := fs.store.SMembers(ctx, fs.codec.DirentKey(dirInode))
	if err != nil {
		return nil, ErrIO
	}

	if len(members) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(members))
	nameKeys := make([]string, 0, len(members))
	typeKeys := make([]string, 0, len(members))
	for _, m := range members {
		id, ok := parseInode(m)
		if !ok {
			continue
		}
		ids = append(ids, id)
		nameKeys = append(nameKeys, fs.codec.AttrKey(id, AttrName))
		typeKeys = append(typeKeys, fs.codec.AttrKey(id, AttrType))
	}

	names, err := fs.store.MGet(ctx, nameKeys)
	if err != nil {
		return nil, ErrIO
	}
	types, err := fs.store.MGet(ctx, typeKeys)
	if err != nil {
		return nil, ErrIO
	}

	entries := make([]DirEntry, 0, len(ids))
	for i, id := range ids {
		if !names[i].Present {
			// Dangling set member with no NAME attribute behind it. Skip it
			// rather than fail the whole listing.
			continue
		}
		entries = append(entries, DirEntry{
			Inode: id,
			Name:  names[i].Value,
			Type:  parseInodeType(types[i].Value),
		})
	}

	return entries, nil
}

func (fs *Filesystem) checkWritable() error {
	if fs.readOnly {
		return ErrReadOnly
	}
	return nil
}

// createChild is the shared body of mkdir/create/symlink: allocate an
// inode, reject a colliding name in the destination directory, add it to
// the parent's entry set, and write the full attribute block, all in one
// pipelined batch.
func (fs *Filesystem) createChild(
	ctx context.Context,
	parent int64,
	name string,
	extra map[Attr]string,
) (int64, Attrs, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, Attrs{}, err
	}

	if _, err := fs.resolveChild(ctx, parent, name); err == nil {
		return 0, Attrs{}, ErrExists
	} else if err != ErrNotFound {
		return 0, Attrs{}, err
	}

	child, err := fs.nextInode(ctx)
	if err != nil {
		return 0, Attrs{}, err
	}

	kv := map[string]string{fs.codec.AttrKey(child, AttrName): name}
	for a, v := range extra {
		kv[fs.codec.AttrKey(child, a)] = v
	}

	p := fs.store.Pipeline()
	p.SAdd(fs.codec.DirentKey(parent), inodeString(child))
	p.MSet(kv)
	if err := p.Exec(ctx); err != nil {
		return 0, Attrs{}, ErrIO
	}

	attrs, err := fs.fetchAttrs(ctx, child)
	if err != nil {
		return 0, Attrs{}, err
	}

	return child, attrs, nil
}

// MkDir implements mkdir.
func (fs *Filesystem) MkDir(ctx context.Context, parent int64, name string, mode, uid, gid uint32) (int64, Attrs, error) {
	now := inodeString(fs.now().Unix())
	return fs.createChild(ctx, parent, name, map[Attr]string{
		AttrType:  TypeDir.String(),
		AttrMode:  inodeString(int64(mode)),
		AttrUid:   inodeString(int64(uid)),
		AttrGid:   inodeString(int64(gid)),
		AttrSize:  "0",
		AttrCtime: now,
		AttrMtime: now,
		AttrAtime: now,
		AttrLink:  "1",
	})
}

// CreateFile implements create.
func (fs *Filesystem) CreateFile(ctx context.Context, parent int64, name string, mode, uid, gid uint32) (int64, Attrs, error) {
	now := inodeString(fs.now().Unix())
	return fs.createChild(ctx, parent, name, map[Attr]string{
		AttrType:  TypeFile.String(),
		AttrMode:  inodeString(int64(mode)),
		AttrUid:   inodeString(int64(uid)),
		AttrGid:   inodeString(int64(gid)),
		AttrSize:  "0",
		AttrCtime: now,
		AttrMtime: now,
		AttrAtime: now,
		AttrLink:  "1",
	})
}

// CreateSymlink implements symlink.
func (fs *Filesystem) CreateSymlink(ctx context.Context, parent int64, name, target string, uid, gid uint32) (int64, Attrs, error) {
	now := inodeString(fs.now().Unix())
	return fs.createChild(ctx, parent, name, map[Attr]string{
		AttrType:   TypeLink.String(),
		AttrTarget: target,
		AttrMode:   "292", // 0444
		AttrUid:    inodeString(int64(uid)),
		AttrGid:    inodeString(int64(gid)),
		AttrSize:   "0",
		AttrCtime:  now,
		AttrMtime:  now,
		AttrAtime:  now,
		AttrLink:   "1",
	})
}

// eraseAttrs deletes every attribute key an inode may have, per the
// deletion contract for a removed inode.
func (fs *Filesystem) eraseAttrs(p Pipeline, inode int64) {
	keys := allAttrKeys(fs.codec, inode)
	p.Del(keys...)
}

// RmDir implements rmdir: the target must be a directory and its
// entry set must be empty.
func (fs *Filesystem) RmDir(ctx context.Context, parent int64, name string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	child, err := fs.resolveChild(ctx, parent, name)
	if err != nil {
		return err
	}

	attrs, err := fs.fetchAttrs(ctx, child)
	if err != nil {
		return err
	}
	if attrs.Type != TypeDir {
		return ErrNotFound
	}

	members, err := fs.store.SMembers(ctx, fs.codec.DirentKey(child))
	if err != nil {
		return ErrIO
	}
	if len(members) != 0 {
		return ErrNotEmpty
	}

	p := fs.store.Pipeline()
	p.SRem(fs.codec.DirentKey(parent), inodeString(child))
	fs.eraseAttrs(p, child)
	p.Del(fs.codec.DirentKey(child))
	if err := p.Exec(ctx); err != nil {
		return ErrIO
	}

	return nil
}

// Unlink implements unlink: removes files and symlinks alike,
// without recursing (directories are refused via rmdir, never routed here
// by the fuse binding layer).
func (fs *Filesystem) Unlink(ctx context.Context, parent int64, name string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	child, err := fs.resolveChild(ctx, parent, name)
	if err != nil {
		return err
	}

	p := fs.store.Pipeline()
	p.SRem(fs.codec.DirentKey(parent), inodeString(child))
	fs.eraseAttrs(p, child)
	if err := p.Exec(ctx); err != nil {
		return ErrIO
	}

	return nil
}

// ReadLink implements readlink.
func (fs *Filesystem) ReadLink(ctx context.Context, inode int64) (string, error) {
	field, err := fs.store.Get(ctx, fs.codec.AttrKey(inode, AttrTarget))
	if err != nil {
		return "", ErrIO
	}
	if !field.Present {
		return "", ErrNotFound
	}
	return field.Value, nil
}

// SetMode implements chmod.
func (fs *Filesystem) SetMode(ctx context.Context, inode int64, mode uint32) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}
	return fs.setAttrsExist(ctx, inode, map[Attr]string{
		AttrMode:  inodeString(int64(mode)),
		AttrMtime: inodeString(fs.now().Unix()),
	})
}

// SetOwner implements chown.
func (fs *Filesystem) SetOwner(ctx context.Context, inode int64, uid, gid uint32) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}
	return fs.setAttrsExist(ctx, inode, map[Attr]string{
		AttrUid:   inodeString(int64(uid)),
		AttrGid:   inodeString(int64(gid)),
		AttrMtime: inodeString(fs.now().Unix()),
	})
}

// SetTimes implements utimens. Either pointer may be nil, meaning
// "leave unchanged" (the kernel only sends the fields the caller asked to
// change).
func (fs *Filesystem) SetTimes(ctx context.Context, inode int64, atimeUnix, mtimeUnix *int64) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	kv := map[Attr]string{}
	if atimeUnix != nil {
		kv[AttrAtime] = inodeString(*atimeUnix)
	}
	if mtimeUnix != nil {
		kv[AttrMtime] = inodeString(*mtimeUnix)
	}
	if len(kv) == 0 {
		return nil
	}

	return fs.setAttrsExist(ctx, inode, kv)
}

func (fs *Filesystem) setAttrsExist(ctx context.Context, inode int64, kv map[Attr]string) error {
	field, err := fs.store.Get(ctx, fs.codec.AttrKey(inode, AttrName))
	if err != nil {
		return ErrIO
	}
	if !field.Present {
		return ErrNotFound
	}

	m := make(map[string]string, len(kv))
	for a, v := range kv {
		m[fs.codec.AttrKey(inode, a)] = v
	}
	if err := fs.store.MSet(ctx, m); err != nil {
		return ErrIO
	}
	return nil
}

// Touch implements open/access: unless fast mode is set, bumps
// ATIME. A missing inode is not an error here — the kernel already
// gate-kept the call by resolving the inode before issuing it.
func (fs *Filesystem) Touch(ctx context.Context, inode int64) error {
	if fs.fast {
		return nil
	}

	_ = fs.store.Set(ctx, fs.codec.AttrKey(inode, AttrAtime), inodeString(fs.now().Unix()))
	return nil
}

// ReadData implements read: clamps the request to the file's
// recorded SIZE, then fetches the resulting byte range.
func (fs *Filesystem) ReadData(ctx context.Context, inode int64, offset, size int64) ([]byte, error) {
	field, err := fs.store.Get(ctx, fs.codec.AttrKey(inode, AttrSize))
	if err != nil {
		return nil, ErrIO
	}
	if !field.Present {
		return nil, ErrNotFound
	}

	total := int64(parseUint(field))
	if size > total {
		size = total
	}
	if offset+size > total {
		size = total - offset
	}
	if size <= 0 || offset >= total {
		return []byte{}, nil
	}

	data, err := fs.store.GetRange(ctx, fs.codec.AttrKey(inode, AttrData), offset, offset+size-1)
	if err != nil {
		return nil, ErrIO
	}

	return []byte(data), nil
}

// WriteData implements write. Offset 0 is a full (re)write; any other
// offset is append-only — a known limitation carried forward from the
// source rather than fabricated true random-offset writes.
func (fs *Filesystem) WriteData(ctx context.Context, inode int64, data []byte, offset int64) (int, error) {
	if err := fs.checkWritable(); err != nil {
		return 0, err
	}

	p := fs.store.Pipeline()
	if offset == 0 {
		p.MSet(map[string]string{
			fs.codec.AttrKey(inode, AttrSize): inodeString(int64(len(data))),
			fs.codec.AttrKey(inode, AttrMtime): inodeString(fs.now().Unix()),
			fs.codec.AttrKey(inode, AttrData):  string(data),
		})
	} else {
		p.IncrBy(fs.codec.AttrKey(inode, AttrSize), int64(len(data)))
		p.Append(fs.codec.AttrKey(inode, AttrData), string(data))
		if !fs.fast {
			p.Set(fs.codec.AttrKey(inode, AttrMtime), inodeString(fs.now().Unix()))
		}
	}

	if err := p.Exec(ctx); err != nil {
		return 0, ErrIO
	}

	return len(data), nil
}

// Truncate implements truncate. The requested size is ignored:
// truncation always goes to zero regardless of the argument, a carried
// limitation rather than a true resize.
func (fs *Filesystem) Truncate(ctx context.Context, inode int64) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	attrs, err := fs.fetchAttrs(ctx, inode)
	if err != nil {
		return err
	}
	if attrs.Type == TypeUnknown {
		return ErrNotFound
	}
	if attrs.Type == TypeDir {
		return ErrNotFound
	}

	p := fs.store.Pipeline()
	p.Del(fs.codec.AttrKey(inode, AttrData))
	p.MSet(map[string]string{
		fs.codec.AttrKey(inode, AttrSize):  "0",
		fs.codec.AttrKey(inode, AttrMtime): inodeString(fs.now().Unix()),
	})
	if err := p.Exec(ctx); err != nil {
		return ErrIO
	}

	return nil
}

// Rename implements rename. A colliding destination name is
// rejected with ErrExists rather than silently shadowed.
func (fs *Filesystem) Rename(ctx context.Context, oldParent int64, oldName string, newParent int64, newName string) error {
	if err := fs.checkWritable(); err != nil {
		return err
	}

	child, err := fs.resolveChild(ctx, oldParent, oldName)
	if err != nil {
		return err
	}

	if _, err := fs.resolveChild(ctx, newParent, newName); err == nil {
		return ErrExists
	} else if err != ErrNotFound {
		return err
	}

	p := fs.store.Pipeline()
	p.Set(fs.codec.AttrKey(child, AttrName), newName)
	p.SRem(fs.codec.DirentKey(oldParent), inodeString(child))
	p.SAdd(fs.codec.DirentKey(newParent), inodeString(child))
	if err := p.Exec(ctx); err != nil {
		return ErrIO
	}

	return nil
}
