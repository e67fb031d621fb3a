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

// Package logger is the process-wide logging facade: a slog.Logger wrapped
// behind severity-named helpers (Tracef, Debugf, Infof, Warnf, Errorf), a
// choice of text or JSON output, and optional rotation to a log file via
// lumberjack.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, spaced like slog's built-ins so TRACE can sit below
// DEBUG and OFF above ERROR.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelWarn:  "WARNING",
}

// Config describes where and how to log: Severity is one of the names severityFromString accepts, Format is
// "text" or "json", FilePath is empty for stderr-only logging.
type Config struct {
	Severity string
	Format   string
	FilePath string

	// Log rotation, mirroring lumberjack.Logger's own knobs.
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

type loggerFactory struct {
	file  *lumberjack.Logger
	level slog.Level

	format string
}

var (
	defaultLoggerFactory = &loggerFactory{level: LevelInfo}
	defaultLogger        = slog.New(defaultLoggerFactory.handler(os.Stderr, new(slog.LevelVar)))
)

func severityFromString(s string) slog.Level {
	switch s {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return LevelDebug
	case "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	case "OFF":
		return LevelOff
	default:
		return LevelInfo
	}
}

func (f *loggerFactory) handler(w io.Writer, programLevel *slog.LevelVar) slog.Handler {
	programLevel.Set(f.level)

	opts := &slog.HandlerOptions{
		Level: programLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				if name, ok := levelNames[level]; ok {
					a.Value = slog.StringValue(name)
				} else {
					a.Value = slog.StringValue(level.String())
				}
				a.Key = "severity"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			if a.Key == slog.TimeKey {
				a.Key = "time"
			}
			return a
		},
	}

	if f.format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func (f *loggerFactory) output() io.Writer {
	if f.file != nil {
		return f.file
	}
	return os.Stderr
}

func rebuild() {
	var lvl slog.LevelVar
	defaultLogger = slog.New(defaultLoggerFactory.handler(defaultLoggerFactory.output(), &lvl))
}

// SetLogFormat switches between "text" and "json" output. An empty or
// unrecognized value defaults to json.
func SetLogFormat(format string) {
	defaultLoggerFactory.format = format
	rebuild()
}

// InitLogFile applies cfg's severity and format and points logging at a
// rotated file instead of stderr. With an empty Config.FilePath only the
// severity and format are applied; output keeps its current destination.
func InitLogFile(cfg Config) error {
	defaultLoggerFactory.level = severityFromString(cfg.Severity)
	defaultLoggerFactory.format = cfg.Format

	if cfg.FilePath == "" {
		rebuild()
		return nil
	}

	defaultLoggerFactory.file = &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxFileSizeMB,
		MaxBackups: cfg.BackupFileCount,
		Compress:   cfg.Compress,
	}

	rebuild()
	return nil
}

func Tracef(format string, args ...interface{}) { logf(LevelTrace, format, args...) }
func Debugf(format string, args ...interface{}) { logf(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...interface{}) { logf(LevelError, format, args...) }

func Info(msg string)  { defaultLogger.Log(context.Background(), LevelInfo, msg) }
func Warn(msg string)  { defaultLogger.Log(context.Background(), LevelWarn, msg) }
func Error(msg string) { defaultLogger.Log(context.Background(), LevelError, msg) }
func Debug(msg string) { defaultLogger.Log(context.Background(), LevelDebug, msg) }

func logf(level slog.Level, format string, args ...interface{}) {
	defaultLogger.Log(context.Background(), level, fmt.Sprintf(format, args...))
}
