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

import "strconv"

// RootInode is the sentinel inode number of the filesystem root. It is never
// materialized in the store: no attribute keys are ever written for it, and
// its children live in the directory-entry set keyed by this value.
const RootInode int64 = -99

// Attr names one of an inode's independent attribute keys. The exact string
// form (see Attr.String) is part of the persisted, bit-stable key layout:
// the companion snapshot tool and any operator tooling depend on it.
type Attr int

const (
	AttrName Attr = iota
	AttrType
	AttrMode
	AttrUid
	AttrGid
	AttrSize
	AttrAtime
	AttrCtime
	AttrMtime
	AttrLink
	AttrTarget
	AttrData
)

var attrNames = [...]string{
	AttrName:   "NAME",
	AttrType:   "TYPE",
	AttrMode:   "MODE",
	AttrUid:    "UID",
	AttrGid:    "GID",
	AttrSize:   "SIZE",
	AttrAtime:  "ATIME",
	AttrCtime:  "CTIME",
	AttrMtime:  "MTIME",
	AttrLink:   "LINK",
	AttrTarget: "TARGET",
	AttrData:   "DATA",
}

func (a Attr) String() string { return attrNames[a] }

// AllAttrs enumerates every attribute name a non-root inode may have, in the
// a fixed order. Used to erase an inode's full attribute block on
// unlink/rmdir.
var AllAttrs = []Attr{
	AttrName, AttrType, AttrMode, AttrUid, AttrGid, AttrSize,
	AttrAtime, AttrCtime, AttrMtime, AttrLink, AttrTarget, AttrData,
}

// InodeType distinguishes the three kinds of filesystem object. The zero
// value never appears in the store; it only shows up in Attrs when the TYPE
// key was absent or unparsable, which GetAttrs and Truncate treat as "no
// such inode".
type InodeType int

const (
	TypeUnknown InodeType = iota
	TypeFile
	TypeDir
	TypeLink
)

var typeNames = [...]string{
	TypeUnknown: "",
	TypeFile:    "FILE",
	TypeDir:     "DIR",
	TypeLink:    "LINK",
}

func (t InodeType) String() string { return typeNames[t] }

func parseInodeType(s string) InodeType {
	switch s {
	case "FILE":
		return TypeFile
	case "DIR":
		return TypeDir
	case "LINK":
		return TypeLink
	default:
		return TypeUnknown
	}
}

// Codec maps (prefix, inode, attribute) and (prefix, inode) to the key
// names a namespace uses in the backing store. The textual form is fixed:
// "<prefix>:INODE:<inode>:<ATTR>" for attributes, "<prefix>:DIRENT:<inode>"
// for a directory's child set, and "<prefix>:GLOBAL:INODE" for the
// allocator counter.
type Codec struct {
	Prefix string
}

// AttrKey returns the key holding one attribute of one inode.
func (c Codec) AttrKey(inode int64, a Attr) string {
	return c.Prefix + ":INODE:" + strconv.FormatInt(inode, 10) + ":" + a.String()
}

// DirentKey returns the key of the directory-entry set for a DIR inode (or
// the root sentinel).
func (c Codec) DirentKey(inode int64) string {
	return c.Prefix + ":DIRENT:" + strconv.FormatInt(inode, 10)
}

// CounterKey returns the global, atomically-incremented inode allocator key.
func (c Codec) CounterKey() string {
	return c.Prefix + ":GLOBAL:INODE"
}

// inodeString and parseInode convert between an inode number and the
// decimal ASCII encoding directory-entry sets store their members as.
func inodeString(inode int64) string {
	return strconv.FormatInt(inode, 10)
}

func parseInode(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
