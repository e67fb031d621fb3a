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
	"time"

	"github.com/jacobsa/timeutil"
)

// Options configures a Filesystem. It is built once at startup and never
// mutated afterwards; Filesystem reads it without synchronization.
type Options struct {
	Prefix   string
	ReadOnly bool

	// Fast omits atime updates on open/access and mtime updates on
	// appending writes.
	Fast bool

	Clock timeutil.Clock
}

// Filesystem implements the operation handlers against a Store.
// It holds no per-inode state and performs no caching of inode metadata
// across calls: every method does exactly the store round trips
// that operation requires, nothing more. Callers (package fs) are
// responsible for the single global serialization lock — this
// type is not safe for concurrent use by itself, by design, since the
// handler layer above it is what provides "one handler at a time."
type Filesystem struct {
	codec    Codec
	store    Store
	clock    timeutil.Clock
	readOnly bool
	fast     bool
}

// New constructs a Filesystem and seeds the inode allocator if this is the
// first time this prefix has been used against the store.
func New(ctx context.Context, store Store, opts Options) (*Filesystem, error) {
	fs := &Filesystem{
		codec:    Codec{Prefix: opts.Prefix},
		store:    store,
		clock:    opts.Clock,
		readOnly: opts.ReadOnly,
		fast:     opts.Fast,
	}

	if err := fs.ensureCounterSeeded(ctx); err != nil {
		return nil, err
	}

	return fs, nil
}

// ReadOnly reports whether mutating operations are refused.
func (fs *Filesystem) ReadOnly() bool { return fs.readOnly }

// EnsureAlive probes the backing store connection. Handlers in package fs
// that reach the namespace call this immediately on entry, before touching
// any inode:
// a failure here is fatal to the process, never recoverable mid-operation.
func (fs *Filesystem) EnsureAlive(ctx context.Context) error {
	return fs.store.EnsureAlive(ctx)
}

func (fs *Filesystem) now() time.Time { return fs.clock.Now() }
