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

// Package faketest provides an in-memory nsfs.Store double, so tests in
// nsfs and fs can exercise operation semantics without a real Redis
// instance.
package faketest

import (
	"context"
	"strconv"
	"sync"

	"github.com/skx-labs/kvfs/internal/nsfs"
)

// Store is a minimal, non-persistent implementation of nsfs.Store backed by
// two maps: strings and sets. It is safe for concurrent use, though nothing
// in this package exercises it concurrently today.
type Store struct {
	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	// Down, when true, makes every command fail with a generic error,
	// simulating backing-store loss for EnsureAlive/error-path tests.
	Down bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

var errDown = errFakeDown{}

type errFakeDown struct{}

func (errFakeDown) Error() string { return "faketest: store is down" }

func (s *Store) EnsureAlive(ctx context.Context) error {
	if s.Down {
		return nsfs.ErrStoreUnavailable
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (nsfs.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return nsfs.Field{}, errDown
	}

	v, ok := s.strings[key]
	return nsfs.Field{Value: v, Present: ok}, nil
}

func (s *Store) Set(ctx context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	s.strings[key] = val
	return nil
}

func (s *Store) MSet(ctx context.Context, kv map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	for k, v := range kv {
		s.strings[k] = v
	}
	return nil
}

func (s *Store) MGet(ctx context.Context, keys []string) ([]nsfs.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return nil, errDown
	}

	out := make([]nsfs.Field, len(keys))
	for i, k := range keys {
		v, ok := s.strings[k]
		out[i] = nsfs.Field{Value: v, Present: ok}
	}
	return out, nil
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	for _, k := range keys {
		delete(s.strings, k)
		delete(s.sets, k)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	s.strings[key] += val
	return nil
}

func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return 0, errDown
	}

	n, _ := strconv.ParseInt(s.strings[key], 10, 64)
	n++
	s.strings[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (s *Store) IncrBy(ctx context.Context, key string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	n, _ := strconv.ParseInt(s.strings[key], 10, 64)
	n += delta
	s.strings[key] = strconv.FormatInt(n, 10)
	return nil
}

func (s *Store) GetRange(ctx context.Context, key string, start, end int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return "", errDown
	}

	v := s.strings[key]
	n := int64(len(v))
	if n == 0 {
		return "", nil
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end {
		return "", nil
	}
	return v[start : end+1], nil
}

func (s *Store) SAdd(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (s *Store) SRem(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return errDown
	}

	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return nil, errDown
	}

	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) Type(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return "", errDown
	}

	if _, ok := s.sets[key]; ok {
		return "set", nil
	}
	if _, ok := s.strings[key]; ok {
		return "string", nil
	}
	return "none", nil
}

func (s *Store) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Down {
		return nil, errDown
	}

	prefix := pattern
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' {
			prefix = pattern[:i]
			break
		}
	}

	var out []string
	for k := range s.strings {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	for k := range s.sets {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) Pipeline() nsfs.Pipeline {
	return &pipeline{s: s}
}

// pipeline queues ops then replays them against the parent Store under one
// lock acquisition per command on Exec, matching the all-or-nothing-visible
// semantics tests rely on closely enough without a real transaction log.
type pipeline struct {
	s   *Store
	ops []func() error
}

func (p *pipeline) Set(key, val string) {
	p.ops = append(p.ops, func() error { return p.s.Set(context.Background(), key, val) })
}

func (p *pipeline) MSet(kv map[string]string) {
	p.ops = append(p.ops, func() error { return p.s.MSet(context.Background(), kv) })
}

func (p *pipeline) Del(keys ...string) {
	p.ops = append(p.ops, func() error { return p.s.Del(context.Background(), keys...) })
}

func (p *pipeline) Append(key, val string) {
	p.ops = append(p.ops, func() error { return p.s.Append(context.Background(), key, val) })
}

func (p *pipeline) IncrBy(key string, delta int64) {
	p.ops = append(p.ops, func() error { return p.s.IncrBy(context.Background(), key, delta) })
}

func (p *pipeline) SAdd(key, member string) {
	p.ops = append(p.ops, func() error { return p.s.SAdd(context.Background(), key, member) })
}

func (p *pipeline) SRem(key, member string) {
	p.ops = append(p.ops, func() error { return p.s.SRem(context.Background(), key, member) })
}

func (p *pipeline) Exec(ctx context.Context) error {
	if p.s.Down {
		return errDown
	}
	for _, op := range p.ops {
		if err := op(); err != nil {
			return err
		}
	}
	return nil
}
