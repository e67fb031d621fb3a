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

package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type LoggerTest struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTest))
}

func redirectLogsToBuffer(buf *bytes.Buffer) {
	var lvl slog.LevelVar
	defaultLogger = slog.New(defaultLoggerFactory.handler(buf, &lvl))
}

func (t *LoggerTest) TestTextFormatIncludesSeverityAndMessage() {
	defaultLoggerFactory = &loggerFactory{level: LevelInfo, format: "text"}
	var buf bytes.Buffer
	redirectLogsToBuffer(&buf)

	Infof("hello %s", "world")

	assert.Regexp(t.T(), regexp.MustCompile(`severity=INFO`), buf.String())
	assert.Regexp(t.T(), regexp.MustCompile(`message="hello world"`), buf.String())
}

func (t *LoggerTest) TestJSONFormatIncludesSeverityAndMessage() {
	defaultLoggerFactory = &loggerFactory{level: LevelInfo, format: "json"}
	var buf bytes.Buffer
	redirectLogsToBuffer(&buf)

	Errorf("boom %d", 42)

	assert.Contains(t.T(), buf.String(), `"severity":"ERROR"`)
	assert.Contains(t.T(), buf.String(), `"message":"boom 42"`)
}

func (t *LoggerTest) TestSeverityBelowThresholdIsSuppressed() {
	defaultLoggerFactory = &loggerFactory{level: LevelWarn, format: "text"}
	var buf bytes.Buffer
	redirectLogsToBuffer(&buf)

	Infof("should not appear")

	assert.Empty(t.T(), buf.String())
}

func (t *LoggerTest) TestSeverityFromString() {
	cases := map[string]slog.Level{
		"TRACE":   LevelTrace,
		"DEBUG":   LevelDebug,
		"WARNING": LevelWarn,
		"ERROR":   LevelError,
		"OFF":     LevelOff,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t.T(), want, severityFromString(in), in)
	}
}

func (t *LoggerTest) TestInitLogFileRotatesToDisk() {
	dir := t.T().TempDir()
	path := filepath.Join(dir, "kvfs.log")

	err := InitLogFile(Config{
		Severity:        "DEBUG",
		Format:          "text",
		FilePath:        path,
		MaxFileSizeMB:   10,
		BackupFileCount: 2,
		Compress:        true,
	})
	require.NoError(t.T(), err)

	Infof("first line")

	require.NoError(t.T(), defaultLoggerFactory.file.Close())
	content, err := os.ReadFile(path)
	require.NoError(t.T(), err)
	assert.Contains(t.T(), string(content), "first line")
}
