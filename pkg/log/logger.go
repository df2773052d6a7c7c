// Structured logging for the print panel
//
// Component loggers share one logrus backend. Each Logger carries a
// prefix (emitted as the "component" field) and optional persistent
// fields; Entry values add per-call fields.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota

	// INFO level for general informational messages
	INFO

	// WARN level for warning messages
	WARN

	// ERROR level for error messages
	ERROR

	// OFF discards everything
	OFF
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case OFF:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a LogLevel
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG", "TRACE":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR", "FATAL", "PANIC":
		return ERROR
	case "OFF", "NONE":
		return OFF
	default:
		return INFO
	}
}

func (l LogLevel) logrus() logrus.Level {
	switch l {
	case DEBUG:
		return logrus.DebugLevel
	case WARN:
		return logrus.WarnLevel
	case ERROR:
		return logrus.ErrorLevel
	case OFF:
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text format
	FormatText OutputFormat = iota
	// FormatJSON outputs machine-readable JSON format
	FormatJSON
)

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// backend is shared by a logger and everything derived from it
type backend struct {
	mu         sync.Mutex
	lr         *logrus.Logger
	level      LogLevel
	timeFormat string
	colorize   bool
	outFormat  OutputFormat
	caller     bool
}

func (b *backend) applyFormatter() {
	if b.outFormat == FormatJSON {
		b.lr.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: b.timeFormat,
		})
		return
	}
	b.lr.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: b.timeFormat,
		DisableColors:   !b.colorize,
		ForceColors:     b.colorize,
	})
}

// Logger is the main logging interface
type Logger struct {
	b      *backend
	prefix string
	fields Fields
}

// Entry represents a single log entry with fields
type Entry struct {
	logger *Logger
	fields Fields
}

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// New creates a new logger with the given prefix
func New(prefix string) *Logger {
	lr := logrus.New()
	lr.SetOutput(os.Stderr)
	b := &backend{
		lr:         lr,
		level:      INFO,
		timeFormat: "2006-01-02 15:04:05.000",
		colorize:   os.Getenv("NO_COLOR") == "",
		outFormat:  FormatText,
	}
	lr.SetLevel(b.level.logrus())
	b.applyFormatter()
	return &Logger{b: b, prefix: prefix, fields: Fields{}}
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.level = level
	l.b.lr.SetLevel(level.logrus())
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	return l.b.level
}

// SetWriter sets the output writer (e.g., for testing)
func (l *Logger) SetWriter(w io.Writer) {
	l.b.lr.SetOutput(w)
}

// SetTimeFormat sets the time format string
func (l *Logger) SetTimeFormat(format string) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.timeFormat = format
	l.b.applyFormatter()
}

// SetColorize enables or disables colorized output
func (l *Logger) SetColorize(enable bool) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.colorize = enable
	l.b.applyFormatter()
}

// SetFormat sets the output format (FormatText or FormatJSON)
func (l *Logger) SetFormat(format OutputFormat) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.outFormat = format
	l.b.applyFormatter()
}

// SetCaller enables or disables caller info in log output
func (l *Logger) SetCaller(enable bool) {
	l.b.mu.Lock()
	defer l.b.mu.Unlock()
	l.b.caller = enable
}

// Prefix returns the component name of this logger
func (l *Logger) Prefix() string {
	return l.prefix
}

// WithField returns an Entry with the given field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{
		logger: l,
		fields: Fields{key: value},
	}
}

// WithFields returns an Entry with the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{
		logger: l,
		fields: fields,
	}
}

// WithError returns an Entry with the error field set
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

// getCaller returns the caller file and line number
func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// logInternal is the core logging function
func (l *Logger) logInternal(level LogLevel, msg string, args []interface{}, fields Fields, callerSkip int) {
	l.b.mu.Lock()
	min, caller := l.b.level, l.b.caller
	l.b.mu.Unlock()
	if level < min || min == OFF {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	data := make(logrus.Fields, len(l.fields)+len(fields)+2)
	if l.prefix != "" {
		data["component"] = l.prefix
	}
	for k, v := range l.fields {
		data[k] = v
	}
	for k, v := range fields {
		data[k] = v
	}
	if caller {
		data["caller"] = getCaller(callerSkip + 1)
	}
	l.b.lr.WithFields(data).Log(level.logrus(), msg)
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.logInternal(DEBUG, msg, args, nil, 2)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...interface{}) {
	l.logInternal(INFO, msg, args, nil, 2)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.logInternal(WARN, msg, args, nil, 2)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...interface{}) {
	l.logInternal(ERROR, msg, args, nil, 2)
}

// WithPrefix returns a new logger with a modified prefix. The new logger
// shares level, output and format with l.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{
		b:      l.b,
		prefix: prefix,
		fields: l.fields,
	}
}

// With returns a logger that attaches fields to every message.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{b: l.b, prefix: l.prefix, fields: merged}
}

// Entry methods - log with fields

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	newFields := make(Fields, len(e.fields)+1)
	for k, v := range e.fields {
		newFields[k] = v
	}
	newFields[key] = value
	return &Entry{
		logger: e.logger,
		fields: newFields,
	}
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	newFields := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Entry{
		logger: e.logger,
		fields: newFields,
	}
}

// WithError adds an error field to the entry
func (e *Entry) WithError(err error) *Entry {
	return e.WithField("error", err.Error())
}

func (e *Entry) Debug(msg string) { e.logger.logInternal(DEBUG, msg, nil, e.fields, 2) }
func (e *Entry) Info(msg string)  { e.logger.logInternal(INFO, msg, nil, e.fields, 2) }
func (e *Entry) Warn(msg string)  { e.logger.logInternal(WARN, msg, nil, e.fields, 2) }
func (e *Entry) Error(msg string) { e.logger.logInternal(ERROR, msg, nil, e.fields, 2) }

// Debugf logs formatted message at DEBUG level with fields
func (e *Entry) Debugf(format string, args ...interface{}) {
	e.logger.logInternal(DEBUG, format, args, e.fields, 2)
}

// Infof logs formatted message at INFO level with fields
func (e *Entry) Infof(format string, args ...interface{}) {
	e.logger.logInternal(INFO, format, args, e.fields, 2)
}

// Warnf logs formatted message at WARN level with fields
func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.logInternal(WARN, format, args, e.fields, 2)
}

// Errorf logs formatted message at ERROR level with fields
func (e *Entry) Errorf(format string, args ...interface{}) {
	e.logger.logInternal(ERROR, format, args, e.fields, 2)
}

// Package-level functions using default logger

// SetDefaultLogger sets the global default logger
func SetDefaultLogger(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// GetLogger returns a component logger derived from the default logger
func GetLogger(prefix string) *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New("printpanel")
		ConfigureFromEnv(defaultLogger)
	}
	return defaultLogger.WithPrefix(prefix)
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	l := New("")
	l.SetWriter(io.Discard)
	l.SetLevel(OFF)
	return l
}

// ConfigureFromEnv applies environment-based configuration to the logger.
// Environment variables:
//   - PRINTPANEL_LOG_LEVEL: DEBUG, INFO, WARN, ERROR, OFF
//   - PRINTPANEL_LOG_FORMAT: text, json
//   - PRINTPANEL_LOG_CALLER: any non-empty value enables caller info
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("PRINTPANEL_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	if formatStr := os.Getenv("PRINTPANEL_LOG_FORMAT"); formatStr != "" {
		l.SetFormat(ParseFormat(formatStr))
	}
	if os.Getenv("PRINTPANEL_LOG_CALLER") != "" {
		l.SetCaller(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}

// ParseFormat maps "json" to FormatJSON and anything else to FormatText.
func ParseFormat(s string) OutputFormat {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}
