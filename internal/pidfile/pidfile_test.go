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

package pidfile_test

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skx-labs/kvfs/internal/pidfile"
)

func TestWriteAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvfsd.pid")

	require.NoError(t, pidfile.Write(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(content))

	require.NoError(t, pidfile.Remove(path))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEmptyPathIsNoop(t *testing.T) {
	require.NoError(t, pidfile.Write(""))
	require.NoError(t, pidfile.Remove(""))
}

func TestRemoveMissingFileIsNotAnError(t *testing.T) {
	require.NoError(t, pidfile.Remove(filepath.Join(t.TempDir(), "absent.pid")))
}
