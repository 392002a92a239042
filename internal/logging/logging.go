// Package logging sets up the daemon's structured log.
//
// Records go to a size-rotated file inside the watched repository's .git
// directory, so the log is never mirrored and its writes never show up as
// changes. Verbose mode also copies debug records to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the log file name inside the metadata directory.
const FileName = "agsync.log"

// Options configures the logger.
type Options struct {
	// Dir is where the log file lives, normally <root>/.git
	Dir string
	// MaxSizeMB rotates the file once it reaches this size
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept
	MaxBackups int
	// Verbose adds debug records and a stderr copy
	Verbose bool
	// Stderr overrides the verbose copy's destination
	Stderr io.Writer
}

// Logger is a slog.Logger with the file it writes to.
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// New creates a logger. With an empty Dir it only writes to stderr when
// verbose, and discards otherwise.
func New(opts Options) *Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var writers []io.Writer
	var file *lumberjack.Logger

	if opts.Dir != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		backups := opts.MaxBackups
		if backups <= 0 {
			backups = 3
		}
		file = &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, FileName),
			MaxSize:    maxSize,
			MaxBackups: backups,
			Compress:   true,
		}
		writers = append(writers, file)
	}

	if opts.Verbose {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	if len(writers) == 0 {
		return &Logger{Logger: slog.New(slog.DiscardHandler)}
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return &Logger{Logger: slog.New(handler), file: file}
}

// Path returns the log file path, or "" when not logging to a file.
func (l *Logger) Path() string {
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}

// Close flushes and closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
