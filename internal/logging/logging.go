// Package logging builds the zerolog logger shared by the CLI commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	// Level is the configured level name (debug, info, warn, error).
	Level string
	// Verbose forces debug level and wins over Quiet.
	Verbose bool
	// Quiet raises the level to warn.
	Quiet bool

	// File enables a rotating log file when non-empty.
	File      string
	MaxSizeMB int
	MaxFiles  int

	// Console receives human-facing output. Nil means stderr.
	Console io.Writer
}

// Logger is a configured logger plus the file writer it owns.
type Logger struct {
	zerolog.Logger
	file io.WriteCloser
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// New creates the CLI logger. Console output is pretty-printed on a TTY and
// JSON otherwise; the optional file always receives JSON.
func New(opts Options) (*Logger, error) {
	level := SelectLevel(opts.Level, opts.Verbose, opts.Quiet)

	console := opts.Console
	if console == nil {
		console = selectOutput(os.Stderr)
	}

	out := &Logger{}
	writer := console
	if opts.File != "" {
		fw, err := newFileWriter(opts.File, opts.MaxSizeMB, opts.MaxFiles)
		if err != nil {
			return nil, err
		}
		out.file = fw
		writer = zerolog.MultiLevelWriter(console, fw)
	}

	out.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return out, nil
}

// SelectLevel resolves the effective level. Verbose wins over quiet, and both
// win over the configured name. Unknown names fall back to info.
func SelectLevel(name string, verbose, quiet bool) zerolog.Level {
	switch {
	case verbose:
		return zerolog.DebugLevel
	case quiet:
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func selectOutput(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) && os.Getenv("NO_COLOR") == "" {
		return zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.Kitchen,
		}
	}
	return f
}

func newFileWriter(path string, maxSizeMB, maxFiles int) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxFiles,
	}, nil
}
