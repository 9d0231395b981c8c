// This file implements the stdout, file and no-operation audit backends.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lottery/pkg/logger"
)

// ErrQueryNotSupported is returned by backends that cannot read entries back.
var ErrQueryNotSupported = errors.New("query not supported by audit backend")

// StdoutLogger writes audit entries as JSON lines to a stream, stdout by default.
type StdoutLogger struct {
	config *Config
	out    io.Writer
	mu     sync.Mutex
}

// NewStdoutLogger creates and returns a new StdoutLogger.
func NewStdoutLogger(cfg *Config) *StdoutLogger {
	return &StdoutLogger{config: cfg, out: os.Stdout}
}

// NewWriterLogger creates a StdoutLogger that writes to w.
func NewWriterLogger(cfg *Config, w io.Writer) *StdoutLogger {
	return &StdoutLogger{config: cfg, out: w}
}

// Log marshals an audit entry to JSON and writes it with an [AUDIT] prefix.
// If auditing is disabled in the config, it does nothing.
func (l *StdoutLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = fmt.Fprintln(l.out, "[AUDIT]", string(data))
	return err
}

// Query is not supported by StdoutLogger.
func (l *StdoutLogger) Query(_ context.Context, _ *QueryFilter) ([]*Entry, error) {
	return nil, ErrQueryNotSupported
}

// Close for StdoutLogger does nothing as there are no resources to release.
func (l *StdoutLogger) Close() error {
	return nil
}

// FileLogger appends audit entries as JSON lines to a file.
// Entries go through a buffered channel and are flushed periodically and on Close.
type FileLogger struct {
	config    *Config
	file      *os.File
	writer    *bufio.Writer
	mu        sync.Mutex
	buffer    chan *Entry
	syncReq   chan chan struct{}
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewFileLogger opens the audit file (creating parent directories) and
// starts the background writer.
func NewFileLogger(cfg *Config) (*FileLogger, error) {
	if cfg.FilePath == "" {
		cfg.FilePath = "audit.log"
	}

	if dir := filepath.Dir(cfg.FilePath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create audit log directory: %w", err)
		}
	}

	file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().BufferSize
	}

	l := &FileLogger{
		config:   cfg,
		file:     file,
		writer:   bufio.NewWriter(file),
		buffer:   make(chan *Entry, bufferSize),
		syncReq:  make(chan chan struct{}),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}

	go l.processLoop()

	return l, nil
}

// Log sends an audit entry to the internal buffer.
// If the buffer is full, the entry is written synchronously.
func (l *FileLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	select {
	case l.buffer <- entry:
		return nil
	default:
		return l.writeEntry(entry)
	}
}

// Query reads the audit file back and returns matching entries in file order.
// Pending buffered entries are flushed first. Lines that are not valid JSON are skipped.
func (l *FileLogger) Query(ctx context.Context, filter *QueryFilter) ([]*Entry, error) {
	l.sync()

	f, err := os.Open(l.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer f.Close()

	return scanEntries(ctx, f, filter)
}

// ReadFile returns the entries of an audit file without opening it for writing.
func ReadFile(ctx context.Context, path string, filter *QueryFilter) ([]*Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	defer f.Close()

	return scanEntries(ctx, f, filter)
}

func scanEntries(ctx context.Context, r io.Reader, filter *QueryFilter) ([]*Entry, error) {
	var (
		result  []*Entry
		skipped int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		if !filter.Match(&e) {
			continue
		}
		if filter != nil && skipped < filter.Offset {
			skipped++
			continue
		}

		result = append(result, &e)
		if filter != nil && filter.Limit > 0 && len(result) >= filter.Limit {
			break
		}
	}

	return result, scanner.Err()
}

// Close stops the background writer, drains remaining entries, flushes
// and closes the file. Repeated calls return the first result.
func (l *FileLogger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		<-l.loopDone

		l.drain()

		l.mu.Lock()
		defer l.mu.Unlock()
		l.closeErr = l.file.Close()
	})
	return l.closeErr
}

func (l *FileLogger) processLoop() {
	defer close(l.loopDone)

	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = DefaultConfig().FlushPeriod
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case entry := <-l.buffer:
			if err := l.writeEntry(entry); err != nil {
				logger.Log.Warn("Failed to write audit entry", "error", err)
			}
		case ack := <-l.syncReq:
			l.drain()
			close(ack)
		case <-ticker.C:
			l.flush()
		}
	}
}

// sync дожидается записи всех принятых записей.
// Через processLoop, чтобы не потерять запись, которую цикл уже вынул из канала.
func (l *FileLogger) sync() {
	ack := make(chan struct{})
	select {
	case l.syncReq <- ack:
		<-ack
	case <-l.loopDone:
		l.drain()
	}
}

// drain пишет все записи из канала и сбрасывает буфер на диск
func (l *FileLogger) drain() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for {
		select {
		case entry := <-l.buffer:
			if err := l.writeEntryUnsafe(entry); err != nil {
				logger.Log.Warn("Failed to write audit entry", "error", err)
			}
		default:
			if err := l.writer.Flush(); err != nil {
				logger.Log.Warn("Failed to flush audit writer", "error", err)
			}
			return
		}
	}
}

func (l *FileLogger) writeEntry(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeEntryUnsafe(entry)
}

// writeEntryUnsafe assumes the caller holds the mutex.
func (l *FileLogger) writeEntryUnsafe(entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	_, err = l.writer.Write(append(data, '\n'))
	return err
}

func (l *FileLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		logger.Log.Warn("Failed to flush audit writer", "error", err)
	}
}

// New creates the Logger for the configured backend.
// A nil config uses DefaultConfig. A disabled config yields a NoopLogger.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.Enabled {
		return &NoopLogger{}, nil
	}

	switch cfg.Backend {
	case "file":
		return NewFileLogger(cfg)
	case "noop":
		return &NoopLogger{}, nil
	case "stdout", "":
		return NewStdoutLogger(cfg), nil
	default:
		logger.Log.Warn("Unknown audit backend, using stdout", "backend", cfg.Backend)
		return NewStdoutLogger(cfg), nil
	}
}

// NoopLogger discards all entries.
type NoopLogger struct{}

// Log for NoopLogger does nothing.
func (l *NoopLogger) Log(_ context.Context, _ *Entry) error { return nil }

// Query for NoopLogger returns no entries.
func (l *NoopLogger) Query(_ context.Context, _ *QueryFilter) ([]*Entry, error) {
	return nil, nil
}

// Close for NoopLogger does nothing.
func (l *NoopLogger) Close() error { return nil }
