// Package logger provides the structured leveled logger used across the
// service and the batch CLI. Output is JSON in deployment and plain text in
// development, selected by configuration.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a configuration string to a Level. Unknown strings fall
// back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// Format selects the output encoding.
type Format int

const (
	TextFormat Format = iota
	JSONFormat
)

// ParseFormat maps a configuration string to a Format. Unknown strings fall
// back to text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return JSONFormat
	}
	return TextFormat
}

// Entry is one structured log record.
type Entry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// Logger writes leveled structured entries to a single output. Component
// loggers created with WithComponent share the output and settings of their
// parent.
type Logger struct {
	mu        sync.Mutex
	level     Level
	format    Format
	out       io.Writer
	component string
	exit      func(int)
}

// Options configures a new Logger.
type Options struct {
	Level     Level
	Format    Format
	Output    io.Writer
	Component string
}

// New builds a logger. A nil Output defaults to stdout.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Logger{
		level:     opts.Level,
		format:    opts.Format,
		out:       opts.Output,
		component: opts.Component,
		exit:      os.Exit,
	}
}

// NewDefault builds a text logger at INFO writing to stdout.
func NewDefault() *Logger {
	return New(Options{Level: INFO, Format: TextFormat})
}

// WithComponent returns a logger tagging every entry with the component name.
func (l *Logger) WithComponent(component string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Logger{
		level:     l.level,
		format:    l.format,
		out:       l.out,
		component: component,
		exit:      l.exit,
	}
}

// SetLevel changes the minimum level that gets written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFormat changes the output encoding.
func (l *Logger) SetFormat(format Format) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.format = format
}

func (l *Logger) write(level Level, msg string, err error, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	entry := Entry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     level.String(),
		Component: l.component,
		Message:   msg,
		Fields:    fields,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	var line string
	if l.format == JSONFormat {
		data, marshalErr := json.Marshal(entry)
		if marshalErr != nil {
			data = []byte(fmt.Sprintf(`{"level":"ERROR","message":"log encoding failed: %v"}`, marshalErr))
		}
		line = string(data) + "\n"
	} else {
		line = formatText(entry)
	}
	l.out.Write([]byte(line))

	if level == FATAL {
		l.exit(1)
	}
}

func formatText(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s", e.Timestamp, e.Level)
	if e.Component != "" {
		fmt.Fprintf(&b, " [%s]", e.Component)
	}
	b.WriteString(" " + e.Message)
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
		}
	}
	if e.Error != "" {
		fmt.Fprintf(&b, " error=%q", e.Error)
	}
	b.WriteString("\n")
	return b.String()
}

func first(fields []map[string]any) map[string]any {
	if len(fields) > 0 {
		return fields[0]
	}
	return nil
}

// Debug logs at DEBUG.
func (l *Logger) Debug(msg string, fields ...map[string]any) {
	l.write(DEBUG, msg, nil, first(fields))
}

// Info logs at INFO.
func (l *Logger) Info(msg string, fields ...map[string]any) {
	l.write(INFO, msg, nil, first(fields))
}

// Warn logs at WARN.
func (l *Logger) Warn(msg string, fields ...map[string]any) {
	l.write(WARN, msg, nil, first(fields))
}

// Error logs at ERROR with an attached error.
func (l *Logger) Error(msg string, err error, fields ...map[string]any) {
	l.write(ERROR, msg, err, first(fields))
}

// Fatal logs at FATAL and terminates the process.
func (l *Logger) Fatal(msg string, err error, fields ...map[string]any) {
	l.write(FATAL, msg, err, first(fields))
}

// Debugf logs a formatted message at DEBUG.
func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(fmt.Sprintf(format, args...))
}

// Infof logs a formatted message at INFO.
func (l *Logger) Infof(format string, args ...any) {
	l.Info(fmt.Sprintf(format, args...))
}

// Warnf logs a formatted message at WARN.
func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(fmt.Sprintf(format, args...))
}

// Errorf logs a formatted message at ERROR.
func (l *Logger) Errorf(format string, args ...any) {
	l.Error(fmt.Sprintf(format, args...), nil)
}
