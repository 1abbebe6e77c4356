// Package logging configures structured logging with tint.
//
// The level names match the loglevel key of the configuration file:
// debug, info, warn and error.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// ParseLevel maps a configuration level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logging: unknown level %q", s)
	}
}

// NewLogger returns a tint logger writing to w. Colour is only used when
// writing to a terminal-like stream such as stderr.
func NewLogger(w io.Writer, level slog.Level, color bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !color,
	}))
}

// Setup installs the default logger. When file is empty logs go to stderr;
// otherwise they are appended to file. The returned function closes the file.
func Setup(level, file string) (*slog.Logger, func() error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if file == "" {
		logger := NewLogger(os.Stderr, lvl, true)
		slog.SetDefault(logger)
		return logger, func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return nil, nil, fmt.Errorf("logging: create directory: %w", err)
	}
	f, err := os.OpenFile(file, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: open log file: %w", err)
	}
	logger := NewLogger(f, lvl, false)
	slog.SetDefault(logger)
	return logger, f.Close, nil
}
