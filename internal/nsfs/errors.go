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

import "errors"

// Sentinel errors returned by the operations in ops.go and resolver.go. The
// fuse binding layer (package fs) maps each of these to an errno;
// nothing in this package knows about errno values.
var (
	// ErrNotFound means a path or child name did not resolve to any inode.
	ErrNotFound = errors.New("nsfs: no such entry")

	// ErrNotADirectory means an operation that requires a DIR inode found
	// something else. No operation in this package returns it: RmDir reports
	// a non-directory target as ErrNotFound, and ReadDir and ResolvePath do
	// not check the inode type.
	ErrNotADirectory = errors.New("nsfs: not a directory")

	// ErrIsADirectory means an operation that refuses directories found one.
	// No operation in this package returns it: Truncate reports a directory
	// as ErrNotFound, and Unlink does not check the inode type.
	ErrIsADirectory = errors.New("nsfs: is a directory")

	// ErrNotEmpty means rmdir was asked to remove a directory whose
	// entry set is non-empty.
	ErrNotEmpty = errors.New("nsfs: directory not empty")

	// ErrReadOnly means a mutating operation was attempted while the
	// filesystem is mounted read-only.
	ErrReadOnly = errors.New("nsfs: filesystem is read-only")

	// ErrExists means create/mkdir/symlink/rename found an entry with the
	// requested name already present in the destination directory.
	ErrExists = errors.New("nsfs: entry already exists")

	// ErrStoreUnavailable means the backing store could not be reached
	// even after a reconnect attempt. This is always
	// fatal to the process; it is a distinct sentinel so callers can tell
	// it apart from an ordinary per-command failure (ErrIO).
	ErrStoreUnavailable = errors.New("nsfs: backing store unavailable")

	// ErrIO wraps a per-command store failure that isn't connection loss:
	// the operation simply failed and the caller should report EIO.
	ErrIO = errors.New("nsfs: backing store command failed")
)
