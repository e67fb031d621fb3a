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

// Package snapshot implements a companion tool: a one-shot
// copy of every key under one prefix to another, used to clone a namespace
// for backup or migration without involving the mounted filesystem.
package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/skx-labs/kvfs/internal/nsfs"
)

// Stats summarizes one Run.
type Stats struct {
	StringsCopied int
	SetsCopied    int
	MembersCopied int
}

// Run copies every key matching "<oldPrefix>*" to the same suffix under
// newPrefix. It is not synchronized with a running filesystem: it observes
// whatever partial state exists at the moment it scans. An unrecognized
// key type aborts the whole run.
func Run(ctx context.Context, store nsfs.Store, oldPrefix, newPrefix string) (Stats, error) {
	var stats Stats

	keys, err := store.ScanKeys(ctx, oldPrefix+"*")
	if err != nil {
		return stats, fmt.Errorf("scanning keys under %q: %w", oldPrefix, err)
	}

	for _, key := range keys {
		suffix := strings.TrimPrefix(key, oldPrefix)
		newKey := newPrefix + suffix

		kind, err := store.Type(ctx, key)
		if err != nil {
			return stats, fmt.Errorf("typing key %q: %w", key, err)
		}

		switch kind {
		case "string":
			field, err := store.Get(ctx, key)
			if err != nil {
				return stats, fmt.Errorf("reading %q: %w", key, err)
			}
			if !field.Present {
				continue
			}
			if err := store.Set(ctx, newKey, field.Value); err != nil {
				return stats, fmt.Errorf("writing %q: %w", newKey, err)
			}
			stats.StringsCopied++

		case "set":
			members, err := store.SMembers(ctx, key)
			if err != nil {
				return stats, fmt.Errorf("reading set %q: %w", key, err)
			}
			for _, m := range members {
				if err := store.SAdd(ctx, newKey, m); err != nil {
					return stats, fmt.Errorf("writing set member of %q: %w", newKey, err)
				}
				stats.MembersCopied++
			}
			stats.SetsCopied++

		default:
			return stats, fmt.Errorf("key %q has unsupported type %q", key, kind)
		}
	}

	return stats, nil
}
