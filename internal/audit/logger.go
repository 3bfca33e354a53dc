package audit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// TimestampLayout prefixes every log line.
const TimestampLayout = "2006-01-02 15:04:05.000000"

// Options configure the operator log.
type Options struct {
	// Path is the log file. Its directory is created when missing.
	Path string

	// MaxSizeMB enables rotation when > 0.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Mirror receives a copy of every line when set (typically stderr).
	Mirror io.Writer
}

// Logger is the append-only operator log.
type Logger struct {
	mu       sync.Mutex
	filePath string
	out      io.WriteCloser
	rotating *lumberjack.Logger
	mirror   io.Writer
	now      func() time.Time
	closed   bool
}

// NewLogger opens the log at opts.Path for appending.
func NewLogger(opts Options) (*Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("log path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		filePath: opts.Path,
		mirror:   opts.Mirror,
		now:      time.Now,
	}

	if opts.MaxSizeMB > 0 {
		l.rotating = &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
			LocalTime:  true,
		}
		l.out = l.rotating
		return l, nil
	}

	file, err := openAppend(opts.Path)
	if err != nil {
		return nil, err
	}
	l.out = file
	return l, nil
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}

// Logf writes one timestamped line.
func (l *Logger) Logf(format string, args ...interface{}) {
	l.writeLine(fmt.Sprintf(format, args...))
}

// LogAction records a router command with its result and latency.
func (l *Logger) LogAction(ctx context.Context, action, routerID, result string, latency time.Duration) {
	l.writeLine(fmt.Sprintf("Router %s: %s -> %s (%v)", routerID, action, result, latency.Round(time.Millisecond)))
}

func (l *Logger) writeLine(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	line := l.now().Format(TimestampLayout) + ": " + msg + "\n"
	if l.mirror != nil {
		_, _ = io.WriteString(l.mirror, line)
	}
	if l.out == nil {
		return
	}
	if _, err := io.WriteString(l.out, line); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log line: %v\n", err)
	}
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.out != nil {
		err := l.out.Close()
		l.out = nil
		return err
	}
	return nil
}

// GetFilePath returns the path to the log file.
func (l *Logger) GetFilePath() string {
	return l.filePath
}

// Rotate moves the current file aside and starts a new one. It fails once
// the logger is closed.
func (l *Logger) Rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("log %s is closed", l.filePath)
	}

	if l.rotating != nil {
		return l.rotating.Rotate()
	}

	if l.out != nil {
		if err := l.out.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
		l.out = nil
	}

	newFilePath := fmt.Sprintf("%s.%s", l.filePath, l.now().Format("20060102-150405"))
	if err := os.Rename(l.filePath, newFilePath); err != nil {
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	file, err := openAppend(l.filePath)
	if err != nil {
		return err
	}
	l.out = file
	return nil
}
