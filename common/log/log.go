package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Level defines the log levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Entry represents a single log entry
type Entry struct {
	Level     Level
	Message   string
	Timestamp time.Time
	Fields    map[string]interface{}
}

// AsyncLogger provides asynchronous logging functionality
type AsyncLogger struct {
	logChan    chan Entry
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
	logger     *slog.Logger
	bufferSize int
}

// NewAsyncLogger creates a new async logger with specified buffer size
func NewAsyncLogger(bufferSize int) *AsyncLogger {
	if bufferSize <= 0 {
		bufferSize = 1000 // default buffer size
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	al := &AsyncLogger{
		logChan:    make(chan Entry, bufferSize),
		done:       make(chan struct{}),
		logger:     slog.New(handler),
		bufferSize: bufferSize,
	}

	al.wg.Add(1)
	go al.worker()

	return al
}

// worker processes log entries in the background
func (al *AsyncLogger) worker() {
	defer al.wg.Done()

	batch := make([]Entry, 0, 100)
	ticker := time.NewTicker(100 * time.Millisecond) // flush every 100ms
	defer ticker.Stop()

	for {
		select {
		case entry := <-al.logChan:
			batch = append(batch, entry)

			if len(batch) >= 100 {
				al.flushBatch(batch)
				batch = batch[:0] // clear batch but keep capacity
			}

		case <-ticker.C:
			if len(batch) > 0 {
				al.flushBatch(batch)
				batch = batch[:0]
			}

		case <-al.done:
			// logChan stays open: producers racing with Close would
			// otherwise send on a closed channel. Drain what is buffered
			// and flush.
			for {
				select {
				case entry := <-al.logChan:
					batch = append(batch, entry)
				default:
					al.flushBatch(batch)
					return
				}
			}
		}
	}
}

func (al *AsyncLogger) flushBatch(entries []Entry) {
	for _, entry := range entries {
		al.writeEntry(entry)
	}
}

func (al *AsyncLogger) writeEntry(entry Entry) {
	ctx := context.Background()

	attrs := make([]slog.Attr, 0, len(entry.Fields))
	for key, value := range entry.Fields {
		attrs = append(attrs, slog.Any(key, value))
	}

	switch entry.Level {
	case LevelDebug:
		al.logger.LogAttrs(ctx, slog.LevelDebug, entry.Message, attrs...)
	case LevelInfo:
		al.logger.LogAttrs(ctx, slog.LevelInfo, entry.Message, attrs...)
	case LevelWarn:
		al.logger.LogAttrs(ctx, slog.LevelWarn, entry.Message, attrs...)
	case LevelError:
		al.logger.LogAttrs(ctx, slog.LevelError, entry.Message, attrs...)
	}
}

// log queues a log entry, dropping it if the buffer is full
func (al *AsyncLogger) log(level Level, msg string, fields map[string]interface{}) {
	entry := Entry{
		Level:     level,
		Message:   msg,
		Timestamp: time.Now(),
		Fields:    fields,
	}

	select {
	case <-al.done:
		// shutting down, drop silently
		return
	default:
	}

	select {
	case al.logChan <- entry:
	default:
		fmt.Fprintf(os.Stderr, "async logger buffer full, dropping log: %s\n", msg)
	}
}

func (al *AsyncLogger) Debug(msg string, fields ...map[string]interface{}) {
	al.log(LevelDebug, msg, firstField(fields))
}

func (al *AsyncLogger) Info(msg string, fields ...map[string]interface{}) {
	al.log(LevelInfo, msg, firstField(fields))
}

func (al *AsyncLogger) Warn(msg string, fields ...map[string]interface{}) {
	al.log(LevelWarn, msg, firstField(fields))
}

func (al *AsyncLogger) Error(msg string, fields ...map[string]interface{}) {
	al.log(LevelError, msg, firstField(fields))
}

func firstField(fields []map[string]interface{}) map[string]interface{} {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Close gracefully shuts down the async logger. Entries logged after Close
// are dropped. Safe to call more than once.
func (al *AsyncLogger) Close() {
	al.closeOnce.Do(func() {
		close(al.done)
	})
	al.wg.Wait()
}

// Global async logger instance
var globalLogger *AsyncLogger
var loggerOnce sync.Once

func global() *AsyncLogger {
	loggerOnce.Do(func() {
		globalLogger = NewAsyncLogger(2000) // 2000 entry buffer
	})
	return globalLogger
}

// Package-level convenience functions that use the global async logger
func Debug(msg string, fields ...map[string]interface{}) {
	global().Debug(msg, fields...)
}

func Info(msg string, fields ...map[string]interface{}) {
	global().Info(msg, fields...)
}

func Warn(msg string, fields ...map[string]interface{}) {
	global().Warn(msg, fields...)
}

func Error(msg string, fields ...map[string]interface{}) {
	global().Error(msg, fields...)
}

// Close closes the global async logger
func Close() {
	if globalLogger != nil {
		globalLogger.Close()
	}
}
