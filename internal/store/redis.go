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

// Package store is the concrete nsfs.Store implementation: a thin adaptor
// over a redis/go-redis client, the way package main's bucket setup in the
// source adapts a GCS client into the gcs.Bucket interface the rest of the
// tree depends on.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skx-labs/kvfs/internal/nsfs"
)

// connectTimeout bounds how long EnsureAlive waits for a single PING before
// giving up and reporting the store unavailable.
const connectTimeout = 1500 * time.Millisecond

// Client wraps a *redis.Client to satisfy nsfs.Store.
type Client struct {
	rdb *redis.Client
}

// Config names the backing Redis endpoint.
type Config struct {
	Host string
	Port int
}

// New dials lazily: go-redis only opens a connection on first use, so this
// never blocks. Call EnsureAlive once at startup to fail fast instead of on
// the first filesystem operation.
func New(cfg Config) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	})

	return &Client{rdb: rdb}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// EnsureAlive pings the server with a bounded deadline. A failure here is
// always reported as nsfs.ErrStoreUnavailable: callers one level up (package
// fs, package cmd) treat it as fatal.
func (c *Client) EnsureAlive(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return nsfs.ErrStoreUnavailable
	}

	return nil
}

func (c *Client) Get(ctx context.Context, key string) (nsfs.Field, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nsfs.Field{}, nil
	}
	if err != nil {
		return nsfs.Field{}, err
	}

	return nsfs.Field{Value: v, Present: true}, nil
}

func (c *Client) Set(ctx context.Context, key, val string) error {
	return c.rdb.Set(ctx, key, val, 0).Err()
}

func (c *Client) MSet(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}

	pairs := make([]interface{}, 0, len(kv)*2)
	for k, v := range kv {
		pairs = append(pairs, k, v)
	}

	return c.rdb.MSet(ctx, pairs...).Err()
}

func (c *Client) MGet(ctx context.Context, keys []string) ([]nsfs.Field, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]nsfs.Field, len(vals))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[i] = nsfs.Field{Value: s, Present: true}
	}

	return out, nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *Client) Append(ctx context.Context, key, val string) error {
	return c.rdb.Append(ctx, key, val).Err()
}

func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

func (c *Client) IncrBy(ctx context.Context, key string, delta int64) error {
	return c.rdb.IncrBy(ctx, key, delta).Err()
}

// GetRange tries the modern GETRANGE first and falls back to the legacy
// SUBSTR name for servers old enough to only speak
// it. go-redis's GetRange issues GETRANGE directly; the legacy path sends
// SUBSTR through Do.
func (c *Client) GetRange(ctx context.Context, key string, start, end int64) (string, error) {
	v, err := c.rdb.GetRange(ctx, key, start, end).Result()
	if err == nil {
		return v, nil
	}

	if isUnknownCommand(err) {
		return c.rdb.Do(ctx, "SUBSTR", key, start, end).Text()
	}

	return "", err
}

func isUnknownCommand(err error) bool {
	return err != nil && len(err.Error()) >= 16 && err.Error()[:16] == "ERR unknown comm"
}

func (c *Client) SAdd(ctx context.Context, key, member string) error {
	return c.rdb.SAdd(ctx, key, member).Err()
}

func (c *Client) SRem(ctx context.Context, key, member string) error {
	return c.rdb.SRem(ctx, key, member).Err()
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

func (c *Client) Type(ctx context.Context, key string) (string, error) {
	return c.rdb.Type(ctx, key).Result()
}

// ScanKeys walks the keyspace with SCAN rather than KEYS, so the companion
// snapshot tool doesn't block the server on a large namespace.
func (c *Client) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := c.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Pipeline() nsfs.Pipeline {
	return &pipeline{p: c.rdb.Pipeline()}
}

type pipeline struct {
	p redis.Pipeliner
}

func (pl *pipeline) Set(key, val string) {
	pl.p.Set(context.Background(), key, val, 0)
}

func (pl *pipeline) MSet(kv map[string]string) {
	pairs := make([]interface{}, 0, len(kv)*2)
	for k, v := range kv {
		pairs = append(pairs, k, v)
	}
	pl.p.MSet(context.Background(), pairs...)
}

func (pl *pipeline) Del(keys ...string) {
	pl.p.Del(context.Background(), keys...)
}

func (pl *pipeline) Append(key, val string) {
	pl.p.Append(context.Background(), key, val)
}

func (pl *pipeline) IncrBy(key string, delta int64) {
	pl.p.IncrBy(context.Background(), key, delta)
}

func (pl *pipeline) SAdd(key, member string) {
	pl.p.SAdd(context.Background(), key, member)
}

func (pl *pipeline) SRem(key, member string) {
	pl.p.SRem(context.Background(), key, member)
}

// Exec drains every queued reply as one round trip; any single
// command's error fails the whole batch.
func (pl *pipeline) Exec(ctx context.Context) error {
	_, err := pl.p.Exec(ctx)
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
