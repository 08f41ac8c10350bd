package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Config struct {
	Dir      string
	MaxMB    int
	MaxFiles int
	Debug    bool
}

// New builds the debug logger. Without Debug it stays quiet (warnings
// and errors to the rotating file only); with Debug it tees everything
// to stderr as well. Probing behavior never depends on it.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	lj := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Dir, "debug.log"),
		MaxSize:    cfg.MaxMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   false,
	}

	var w io.Writer = lj
	level := slog.LevelWarn
	if cfg.Debug {
		w = io.MultiWriter(lj, os.Stderr)
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), lj, nil
}

func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
