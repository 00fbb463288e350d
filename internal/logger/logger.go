// Copyright 2026 The Ultrasearch Authors
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

// Package logger is a slog-based structured logger with a severity ladder
// matching cfg.Severity, JSON/text encoding, and lumberjack-backed file
// rotation. It is the one place in the core allowed to own a package-level
// singleton shared by the whole process.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/shaneholloman/ultrasearch/cfg"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Custom levels layered on top of slog's four built-ins so TRACE can sit
// below DEBUG and OFF can sit above ERROR, completing the six-rung
// severity ladder.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

type loggerFactory struct {
	mu        sync.Mutex
	file      *lumberjack.Logger
	format    string
	level     cfg.Severity
	prefix    string
	extra     []io.Writer
}

var (
	defaultLoggerFactory = &loggerFactory{format: "text", level: cfg.SeverityInfo}
	defaultLogger        = slog.New(defaultLoggerFactory.createJsonOrTextHandler(os.Stderr, levelVar(cfg.SeverityInfo), ""))
	loggerMu             sync.RWMutex

	onceWarnings sync.Map // map[string]struct{}: per-volume-per-lifetime dedup
)

func levelVar(sev cfg.Severity) *slog.LevelVar {
	v := new(slog.LevelVar)
	setLoggingLevel(sev, v)
	return v
}

func setLoggingLevel(sev cfg.Severity, v *slog.LevelVar) {
	switch sev {
	case cfg.SeverityTrace:
		v.Set(LevelTrace)
	case cfg.SeverityDebug:
		v.Set(LevelDebug)
	case cfg.SeverityInfo:
		v.Set(LevelInfo)
	case cfg.SeverityWarning:
		v.Set(LevelWarn)
	case cfg.SeverityError:
		v.Set(LevelError)
	case cfg.SeverityOff:
		v.Set(LevelOff)
	default:
		v.Set(LevelInfo)
	}
}

func severityName(l slog.Level) string {
	switch {
	case l <= LevelTrace:
		return "TRACE"
	case l <= LevelDebug:
		return "DEBUG"
	case l <= LevelInfo:
		return "INFO"
	case l <= LevelWarn:
		return "WARNING"
	default:
		return "ERROR"
	}
}

func (f *loggerFactory) createJsonOrTextHandler(w io.Writer, level *slog.LevelVar, msgPrefix string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				return slog.String("severity", severityName(a.Value.Any().(slog.Level)))
			case slog.MessageKey:
				return slog.String(slog.MessageKey, msgPrefix+a.Value.String())
			}
			return a
		},
	}
	if f.format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Init configures the default logger from a resolved Config. It opens the
// rotating log file under <data-root>/log if FilePath is set, otherwise
// logs to stderr.
func Init(c *cfg.Config, appName string) error {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	defaultLoggerFactory.format = c.Logging.Format
	defaultLoggerFactory.level = c.Logging.Severity
	defaultLoggerFactory.prefix = appName + ": "

	var w io.Writer = os.Stderr
	if c.Logging.FilePath != "" {
		defaultLoggerFactory.file = &lumberjack.Logger{
			Filename:   c.Logging.FilePath,
			MaxSize:    c.Logging.LogRotate.MaxFileSizeMb,
			MaxBackups: c.Logging.LogRotate.BackupFileCount,
			Compress:   c.Logging.LogRotate.Compress,
		}
		w = defaultLoggerFactory.file
	}

	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, levelVar(c.Logging.Severity), appName+": "))
	return nil
}

// SetFormat switches the default logger's encoding at runtime (used by
// ReloadConfig handling).
func SetFormat(format string) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLoggerFactory.format = format

	var w io.Writer = os.Stderr
	if defaultLoggerFactory.file != nil {
		w = defaultLoggerFactory.file
	}
	defaultLogger = slog.New(defaultLoggerFactory.createJsonOrTextHandler(w, levelVar(defaultLoggerFactory.level), defaultLoggerFactory.prefix))
}

func logf(level slog.Level, format string, v ...interface{}) {
	loggerMu.RLock()
	l := defaultLogger
	loggerMu.RUnlock()
	l.Log(context.Background(), level, fmt.Sprintf(format, v...))
}

func Tracef(format string, v ...interface{}) { logf(LevelTrace, format, v...) }
func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

// WarnOncePerKey logs a WARNING the first time it is called for a given
// key during this process's lifetime and is silent afterward; the volume
// probe uses it to report a permission-denied volume once instead of on
// every discovery pass.
func WarnOncePerKey(key, format string, v ...interface{}) {
	if _, loaded := onceWarnings.LoadOrStore(key, struct{}{}); loaded {
		return
	}
	Warnf(format, v...)
}
