// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LoggerOptions selects the log format and level. Embed it in a
// command's params to get --log-format and --log-level.
type LoggerOptions struct {
	// Format is "auto", "text", or "json". Auto picks text when the
	// output is a terminal and JSON otherwise.
	Format string `flag:"log-format" default:"auto" desc:"log format: auto, text, or json"`

	// Level is debug, info, warn, or error.
	Level string `flag:"log-level" default:"info" desc:"log level: debug, info, warn, or error"`
}

// NewLogger creates a structured logger writing to output, normally
// stderr. terminal reports whether output is a terminal: with Format
// auto that gives slog text, otherwise JSON for log collectors.
func NewLogger(output io.Writer, terminal bool, options LoggerOptions) (*slog.Logger, error) {
	var level slog.Level
	if options.Level != "" {
		if err := level.UnmarshalText([]byte(options.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: want debug, info, warn, or error", options.Level)
		}
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(options.Format) {
	case "", "auto":
		if terminal {
			return slog.New(slog.NewTextHandler(output, handlerOptions)), nil
		}
		return slog.New(slog.NewJSONHandler(output, handlerOptions)), nil
	case "text":
		return slog.New(slog.NewTextHandler(output, handlerOptions)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(output, handlerOptions)), nil
	default:
		return nil, fmt.Errorf("log format %q: want auto, text, or json", options.Format)
	}
}
