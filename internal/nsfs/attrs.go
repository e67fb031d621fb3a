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
	"strconv"
	"time"
)

// Attrs is the decoded attribute block of one inode. Fields not
// meaningful for a given Type are left zero; Target is only set for
// TypeLink, and Size is non-zero only for TypeFile.
type Attrs struct {
	Name  string
	Type  InodeType
	Mode  uint32
	Uid   uint32
	Gid   uint32
	Size  uint64
	Atime time.Time
	Ctime time.Time
	Mtime time.Time
	Link  uint32

	Target string
}

// parseUint and parseTime tolerate a missing or malformed reply by returning
// the zero value: a malformed or absent scalar is treated as
// "attribute absent", not a failed operation, to keep partially-corrupt
// inodes readable for recovery.
func parseUint(f Field) uint64 {
	if !f.Present {
		return 0
	}

	n, err := strconv.ParseUint(f.Value, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

func parseTime(f Field) time.Time {
	if !f.Present {
		return time.Time{}
	}

	sec, err := strconv.ParseInt(f.Value, 10, 64)
	if err != nil {
		return time.Time{}
	}

	return time.Unix(sec, 0)
}

// decodeAttrs turns the raw multi-get fields (keyed by attribute) into an
// Attrs value. It never fails: a missing TYPE field simply yields
// TypeUnknown, which GetAttrs and Truncate treat as "no such inode" at the
// call site, not here.
func decodeAttrs(fields map[Attr]Field) Attrs {
	return Attrs{
		Name:   fields[AttrName].Value,
		Type:   parseInodeType(fields[AttrType].Value),
		Mode:   uint32(parseUint(fields[AttrMode])),
		Uid:    uint32(parseUint(fields[AttrUid])),
		Gid:    uint32(parseUint(fields[AttrGid])),
		Size:   parseUint(fields[AttrSize]),
		Atime:  parseTime(fields[AttrAtime]),
		Ctime:  parseTime(fields[AttrCtime]),
		Mtime:  parseTime(fields[AttrMtime]),
		Link:   uint32(parseUint(fields[AttrLink])),
		Target: fields[AttrTarget].Value,
	}
}
