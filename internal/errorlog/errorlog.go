// Package errorlog appends dispatch failures to a local, size-rotated file.
package errorlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Config holds configuration for the error log.
type Config struct {
	Enabled   bool
	FilePath  string
	MaxSizeMB int
	MaxFiles  int
}

// Log is an append-only error record with file rotation. A nil or disabled
// Log discards every record.
type Log struct {
	mu          sync.Mutex
	file        *os.File
	config      Config
	currentSize int64
	now         func() time.Time
}

// Open opens (or creates) the log file described by cfg.
func Open(cfg Config) (*Log, error) {
	if !cfg.Enabled {
		return &Log{config: cfg, now: time.Now}, nil
	}
	if cfg.MaxFiles < 1 {
		cfg.MaxFiles = 1
	}

	dir := filepath.Dir(cfg.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory %s: %w", dir, err)
	}

	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open error log %s: %w", cfg.FilePath, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat error log: %w", err)
	}

	return &Log{
		file:        f,
		config:      cfg,
		currentSize: stat.Size(),
		now:         time.Now,
	}, nil
}

// Record appends one entry: timestamp and operation, the error message, then
// the stack context indented beneath it.
func (l *Log) Record(op string, err error, stack []byte) {
	if l == nil || !l.config.Enabled || err == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	maxBytes := int64(l.config.MaxSizeMB) * 1024 * 1024
	if maxBytes > 0 && l.currentSize >= maxBytes {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "error log rotation failed: %v\n", err)
		}
		if l.file == nil {
			return
		}
	}

	var sb strings.Builder
	sb.WriteString(l.now().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(op)
	sb.WriteString("] ")
	sb.WriteString(err.Error())
	sb.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(string(stack), "\n"), "\n") {
		if line == "" {
			continue
		}
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	n, werr := l.file.WriteString(sb.String())
	if werr != nil {
		fmt.Fprintf(os.Stderr, "failed to write error log entry: %v\n", werr)
		return
	}
	l.currentSize += int64(n)
}

// Close closes the log file.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// rotate shifts errors.log -> errors.log.1 -> errors.log.2 ..., dropping the
// oldest beyond MaxFiles.
func (l *Log) rotate() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	basePath := l.config.FilePath
	os.Remove(fmt.Sprintf("%s.%d", basePath, l.config.MaxFiles))
	for i := l.config.MaxFiles - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", basePath, i), fmt.Sprintf("%s.%d", basePath, i+1))
	}

	if err := os.Rename(basePath, basePath+".1"); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to rotate error log: %w", err)
	}

	f, err := os.OpenFile(basePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open new error log: %w", err)
	}

	l.file = f
	l.currentSize = 0
	return nil
}
