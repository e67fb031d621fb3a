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

// Package config gathers every process-wide setting into one value built
// once at startup, replacing the scattered globals a naive port of the
// source would otherwise carry.
package config

// Config is built by package cmd and passed by value to the mount flow,
// which copies the relevant fields into store.Config and nsfs.Options;
// nothing below cmd reads an environment variable or a flag directly.
type Config struct {
	Host string
	Port int

	Mount  string
	Prefix string

	ReadOnly bool
	Fast     bool
	Debug    bool

	LogFile        string
	LogFileSizeMB  int
	LogBackupCount int
	LogCompress    bool

	PIDFile string
}

// Default returns the compiled-in flag defaults.
func Default() Config {
	return Config{
		Host:           "localhost",
		Port:           6379,
		Mount:          "/mnt/redis",
		Prefix:         "skx",
		LogFileSizeMB:  100,
		LogBackupCount: 5,
		LogCompress:    true,
	}
}
