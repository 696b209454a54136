// SPDX-FileCopyrightText: 2026 The perfrun Authors
// SPDX-License-Identifier: Apache-2.0

// Package logger builds the slog handler every perfrun component logs
// through.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// New returns a logger writing to w in the given format ("text" or "json")
// at the given level ("debug", "info", "warn", "error"). Unknown levels fall
// back to info; an unknown format is a programming error and panics.
func New(level, format string, w io.Writer) *slog.Logger {
	return slog.New(handlerForFormat(format, parseLevel(level), w))
}

func handlerForFormat(format string, level slog.Level, w io.Writer) slog.Handler {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		})

	case "text":
		return slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				// Trim source paths to the last two directories + file.
				if a.Key == slog.SourceKey {
					if src, ok := a.Value.Any().(*slog.Source); ok {
						parts := strings.Split(filepath.ToSlash(src.File), "/")
						if len(parts) > 2 {
							parts = parts[len(parts)-3:]
						}
						src.File = filepath.Join(parts...)
					}
				}
				return a
			},
		})

	default:
		panic(fmt.Sprintf("invalid log format: %s", format))
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
