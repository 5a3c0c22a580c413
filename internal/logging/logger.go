// Package logging provides structured logging with log levels and correlation IDs.
// Text output colours the level tag; JSON output emits one object per line.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Fields are key/value pairs attached to log entries.
type Fields map[string]any

// merge returns a copy of f overlaid with other.
func (f Fields) merge(other Fields) Fields {
	out := make(Fields, len(f)+len(other))
	for k, v := range f {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// text renders fields sorted by key.
func (f Fields) text() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, f[k])
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// shortIDLen is how much of a correlation ID text output shows.
const shortIDLen = 8

// Entry is one JSON log line.
type Entry struct {
	Timestamp     string `json:"ts"`
	Level         string `json:"level"`
	Message       string `json:"msg"`
	CorrelationID string `json:"correlation_id,omitempty"`
	Fields        Fields `json:"fields,omitempty"`
}

// Logger is a structured logger with level support. Loggers derived with
// WithFields share their parent's output and settings.
type Logger struct {
	sink   *sink
	fields Fields
}

// sink is the shared, mutable part of a logger family.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	json  bool
}

var defaultLogger = New()

// New creates a logger writing to stderr, configured from
// KBCATALOG_LOG_LEVEL and KBCATALOG_LOG_FORMAT.
func New() *Logger {
	return &Logger{sink: &sink{
		out:   os.Stderr,
		level: ParseLevel(os.Getenv("KBCATALOG_LOG_LEVEL")),
		json:  os.Getenv("KBCATALOG_LOG_FORMAT") == "json",
	}}
}

// Configure applies a level and format ("json" or "text") to the default logger.
func Configure(level, format string) {
	defaultLogger.SetLevel(ParseLevel(level))
	defaultLogger.SetJSON(strings.EqualFold(format, "json"))
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = w
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// SetJSON enables or disables JSON output format.
func (l *Logger) SetJSON(enabled bool) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.json = enabled
}

// WithField returns a logger that adds one field to every entry.
func (l *Logger) WithField(key string, value any) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{sink: l.sink, fields: l.fields.merge(fields)}
}

func (l *Logger) log(ctx context.Context, level Level, format string, args ...any) {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if level < s.level {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	fields := l.fields
	if cf := contextFields(ctx); len(cf) > 0 {
		fields = fields.merge(cf)
	}
	id := GetCorrelationID(ctx)

	if s.json {
		s.writeJSON(level, msg, id, fields)
	} else {
		s.writeText(level, msg, id, fields)
	}
}

func (s *sink) writeJSON(level Level, msg, correlationID string, fields Fields) {
	entry := Entry{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Level:         level.String(),
		Message:       msg,
		CorrelationID: correlationID,
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(s.out, "ERROR: failed to marshal log entry: %v\n", err)
		return
	}
	s.out.Write(append(data, '\n'))
}

// writeText renders "2006/01/02 15:04:05 [corrid] [LEVEL] message {k=v}".
func (s *sink) writeText(level Level, msg, correlationID string, fields Fields) {
	var b strings.Builder
	b.WriteString(time.Now().Format("2006/01/02 15:04:05"))

	if correlationID != "" {
		if len(correlationID) > shortIDLen {
			correlationID = correlationID[:shortIDLen]
		}
		fmt.Fprintf(&b, " [%s]", correlationID)
	}

	b.WriteString(" " + level.tag() + " " + msg)
	if len(fields) > 0 {
		b.WriteString(" " + fields.text())
	}
	b.WriteByte('\n')

	io.WriteString(s.out, b.String())
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(context.Background(), LevelDebug, format, args...)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) {
	l.log(context.Background(), LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(context.Background(), LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(context.Background(), LevelError, format, args...)
}

// Printf logs at info level, matching the standard log package signature.
func (l *Logger) Printf(format string, args ...any) {
	l.log(context.Background(), LevelInfo, format, args...)
}

// DebugContext logs a debug message with the context's correlation ID and fields.
func (l *Logger) DebugContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelDebug, format, args...)
}

func (l *Logger) InfoContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelInfo, format, args...)
}

func (l *Logger) WarnContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelWarn, format, args...)
}

func (l *Logger) ErrorContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelError, format, args...)
}

// Default returns the default logger.
func Default() *Logger { return defaultLogger }

// SetDefault replaces the default logger.
func SetDefault(l *Logger) { defaultLogger = l }

// Package-level functions log through the default logger.

func Debug(format string, args ...any) {
	defaultLogger.log(context.Background(), LevelDebug, format, args...)
}
func Info(format string, args ...any) {
	defaultLogger.log(context.Background(), LevelInfo, format, args...)
}
func Warn(format string, args ...any) {
	defaultLogger.log(context.Background(), LevelWarn, format, args...)
}
func Error(format string, args ...any) {
	defaultLogger.log(context.Background(), LevelError, format, args...)
}
func Printf(format string, args ...any) {
	defaultLogger.log(context.Background(), LevelInfo, format, args...)
}

func DebugContext(ctx context.Context, format string, args ...any) {
	defaultLogger.log(ctx, LevelDebug, format, args...)
}

func InfoContext(ctx context.Context, format string, args ...any) {
	defaultLogger.log(ctx, LevelInfo, format, args...)
}

func WarnContext(ctx context.Context, format string, args ...any) {
	defaultLogger.log(ctx, LevelWarn, format, args...)
}

func ErrorContext(ctx context.Context, format string, args ...any) {
	defaultLogger.log(ctx, LevelError, format, args...)
}
