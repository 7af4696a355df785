package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/rickgao/session-keeper/internal/config"
)

// resolveMode turns "auto" into tui or headless depending on the terminal.
func resolveMode(mode string, terminal bool) string {
	if mode != config.ModeAuto {
		return mode
	}
	if terminal {
		return config.ModeTUI
	}
	return config.ModeHeadless
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// newLogger builds the process logger. The TUI owns the terminal, so
// without a log file its logs are discarded.
func newLogger(cfg config.LoggingConfig, mode string, stderr io.Writer) (*slog.Logger, func() error, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, nil, fmt.Errorf("parse log level: %w", err)
	}

	var w io.Writer
	closeFn := func() error { return nil }
	switch {
	case cfg.File != "":
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	case mode == config.ModeTUI:
		w = io.Discard
	default:
		w = stderr
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, closeFn, nil
}
