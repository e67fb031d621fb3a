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

// Package pidfile writes and removes the PID file named by --pid-file,
// a minimal stand-in for the daemonization library's double-fork support.
package pidfile

import (
	"fmt"
	"os"
	"strconv"
)

// Write creates path containing the current process's PID. An empty path is
// a no-op, successfully.
func Write(path string) error {
	if path == "" {
		return nil
	}

	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing pid file %q: %w", path, err)
	}

	return nil
}

// Remove deletes path, ignoring the case where it is already gone.
func Remove(path string) error {
	if path == "" {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing pid file %q: %w", path, err)
	}

	return nil
}
