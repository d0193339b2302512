// Package logging builds the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/unklstewy/planes-near-me/pkg/config"
)

// ParseLevel maps debug/info/warn/error to a slog level. Unknown names are
// an error and map to info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%s: invalid log level", level)
	}
}

// New returns a logger writing text to stderr and, when cfg.Dir is set, to a
// rotating file in that directory as well. The returned closer flushes the
// file writer; it is a no-op without a directory.
func New(name string, cfg config.LogConfig) (*slog.Logger, io.Closer) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	var w io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.Dir != "" {
		lj := newRotatingFile(name, cfg.Dir)
		w = io.MultiWriter(os.Stderr, lj)
		closer = lj
	}

	l := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	l.Info("Logging started",
		slog.String("program", name),
		slog.String("GOOS", runtime.GOOS),
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("level", lvl.String()))

	return l, closer
}

// NewFileOnly is New without the stderr sink, for full-screen terminal
// programs. Without cfg.Dir it discards everything.
func NewFileOnly(name string, cfg config.LogConfig) (*slog.Logger, io.Closer) {
	if cfg.Dir == "" {
		return Discard(), nopCloser{}
	}

	lvl, _ := ParseLevel(cfg.Level)
	lj := newRotatingFile(name, cfg.Dir)
	return slog.New(slog.NewTextHandler(lj, &slog.HandlerOptions{Level: lvl})), lj
}

func newRotatingFile(name, dir string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name+".log"),
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
}

// Discard returns a logger that drops everything, for tests and callers
// that do not care.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
