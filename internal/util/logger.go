package util

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LogFormat selects how entries are rendered.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// Field is a key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value any
}

// F builds a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Err builds the conventional "error" field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// LogEntry is a single rendered log line.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Output is a log destination.
type Output interface {
	Write(entry LogEntry) error
	Close() error
}

// Logger is the structured logger used across tasktimer.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
}

type logger struct {
	level   LogLevel
	outputs []Output
	fields  map[string]any
}

// NewLogger creates a logger writing to every output at or above level.
func NewLogger(level string, outputs ...Output) Logger {
	return &logger{
		level:   ParseLogLevel(level),
		outputs: outputs,
		fields:  map[string]any{},
	}
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return &logger{level: LevelError + 1, fields: map[string]any{}}
}

// ParseLogLevel parses a level name, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l *logger) log(level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   msg,
		Fields:    make(map[string]any, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		entry.Fields[k] = v
	}
	for _, f := range fields {
		entry.Fields[f.Key] = f.Value
	}
	for _, out := range l.outputs {
		if err := out.Write(entry); err != nil {
			log.Printf("failed to write log entry: %v", err)
		}
	}
}

func (l *logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

// With returns a child logger carrying additional fields.
func (l *logger) With(fields ...Field) Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	return &logger{level: l.level, outputs: l.outputs, fields: merged}
}

// WriterOutput renders entries onto an io.Writer.
type WriterOutput struct {
	mu     sync.Mutex
	w      io.Writer
	format LogFormat
	closer io.Closer
}

// NewWriterOutput creates an output for w (stderr, a buffer in tests).
func NewWriterOutput(w io.Writer, format LogFormat) *WriterOutput {
	return &WriterOutput{w: w, format: format}
}

// NewFileOutput appends to path, creating its directory.
func NewFileOutput(path string, format LogFormat) (*WriterOutput, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &WriterOutput{w: f, format: format, closer: f}, nil
}

func (o *WriterOutput) Write(entry LogEntry) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var line string
	if o.format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return err
		}
		line = string(data)
	} else {
		line = fmt.Sprintf("%s [%s] %s", entry.Timestamp.Format("2006/01/02 15:04:05"), entry.Level, entry.Message)
		if len(entry.Fields) > 0 {
			keys := make([]string, 0, len(entry.Fields))
			for k := range entry.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Fields[k]))
			}
			line += " " + strings.Join(parts, " ")
		}
	}
	_, err := fmt.Fprintln(o.w, line)
	return err
}

func (o *WriterOutput) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = Discard()
)

// SetDefault replaces the process-wide logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// L returns the process-wide logger.
func L() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}
