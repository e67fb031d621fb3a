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

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/timeutil"

	"github.com/skx-labs/kvfs/fs"
	"github.com/skx-labs/kvfs/internal/config"
	"github.com/skx-labs/kvfs/internal/logger"
	"github.com/skx-labs/kvfs/internal/nsfs"
	"github.com/skx-labs/kvfs/internal/pidfile"
	"github.com/skx-labs/kvfs/internal/store"
)

// registerSIGINTHandler unmounts dir on SIGINT/SIGTERM. mfs.Join returns
// once the kernel has actually torn the mount down, which is what lets
// runMount return control to Execute.
func registerSIGINTHandler(dir string) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalChan
		logger.Infof("received shutdown signal, attempting to unmount %q", dir)
		if err := fuse.Unmount(dir); err != nil {
			logger.Errorf("failed to unmount %q: %v", dir, err)
		}
	}()
}

// checkMountPoint makes sure dir exists and is a directory before handing it
// to fuse.Mount, which otherwise reports a much less specific error.
func checkMountPoint(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("mount point: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("mount point %q is not a directory", dir)
	}
	return nil
}

// runMount wires together the backing-store client, the namespace layer,
// and the FUSE binding, then blocks until the file system is unmounted.
// Every path below a successful fuse.Mount ends in a non-nil error on
// failure, which Execute turns into a non-zero exit status.
func runMount(ctx context.Context, cfg config.Config) error {
	if err := logger.InitLogFile(logger.Config{
		Severity:        severityFor(cfg.Debug),
		FilePath:        cfg.LogFile,
		MaxFileSizeMB:   cfg.LogFileSizeMB,
		BackupFileCount: cfg.LogBackupCount,
		Compress:        cfg.LogCompress,
	}); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	if err := checkMountPoint(cfg.Mount); err != nil {
		return err
	}

	if os.Getuid() == 0 {
		logger.Warnf("running as root: every file in the mount will be owned by root " +
			"unless the caller's own uid/gid happens to be root's")
	}

	client := store.New(store.Config{Host: cfg.Host, Port: cfg.Port})
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warnf("closing backing store client: %v", err)
		}
	}()

	if err := client.EnsureAlive(ctx); err != nil {
		return fmt.Errorf("connecting to %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	clock := timeutil.RealClock()
	ns, err := nsfs.New(ctx, client, nsfs.Options{
		Prefix:   cfg.Prefix,
		ReadOnly: cfg.ReadOnly,
		Fast:     cfg.Fast,
		Clock:    clock,
	})
	if err != nil {
		return fmt.Errorf("initializing namespace: %w", err)
	}

	server, err := fs.NewServer(&fs.ServerConfig{NS: ns, Clock: clock})
	if err != nil {
		return fmt.Errorf("fs.NewServer: %w", err)
	}

	if err := pidfile.Write(cfg.PIDFile); err != nil {
		return err
	}
	defer func() {
		if err := pidfile.Remove(cfg.PIDFile); err != nil {
			logger.Warnf("removing pid file: %v", err)
		}
	}()

	logger.Infof("mounting %q (prefix %q, read-only=%v, fast=%v)", cfg.Mount, cfg.Prefix, cfg.ReadOnly, cfg.Fast)

	mfs, err := fuse.Mount(cfg.Mount, server, &fuse.MountConfig{
		FSName:     "kvfs",
		Subtype:    "kvfs",
		VolumeName: "kvfs",
	})
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}

	registerSIGINTHandler(mfs.Dir())

	if err := mfs.Join(ctx); err != nil {
		return fmt.Errorf("serving file system: %w", err)
	}

	logger.Infof("unmounted %q", cfg.Mount)
	return nil
}

func severityFor(debug bool) string {
	if debug {
		return "DEBUG"
	}
	return "INFO"
}
