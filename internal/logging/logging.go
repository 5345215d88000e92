// Package logging builds slog loggers for the standalone tools, which
// run outside the server's logging setup. Output goes to stdout and,
// when a directory is configured, to a size-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how verbosely a tool logger writes.
type Config struct {
	Level      string // debug|info|warn|error, defaults to info
	LogDir     string // empty disables the file sink
	FileName   string // defaults to sitepulse.log
	Quiet      bool   // drop the stdout sink
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger builds a text-handler slog logger from the config.
func NewLogger(cfg Config) *slog.Logger {
	var sinks []io.Writer
	if !cfg.Quiet {
		sinks = append(sinks, os.Stdout)
	}
	if cfg.LogDir != "" {
		name := cfg.FileName
		if name == "" {
			name = "sitepulse.log"
		}
		sinks = append(sinks, &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogDir, name),
			MaxSize:    defaultInt(cfg.MaxSizeMB, 20),
			MaxBackups: defaultInt(cfg.MaxBackups, 10),
			MaxAge:     defaultInt(cfg.MaxAgeDays, 30),
		})
	}
	if len(sinks) == 0 {
		sinks = append(sinks, io.Discard)
	}

	handler := slog.NewTextHandler(io.MultiWriter(sinks...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultInt(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
