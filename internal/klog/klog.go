// Package klog provides the kernel's structured-ish logging: plain
// log.Logger writing one line per event to stderr, following the teacher's
// cmd/controller/main.go (log.Printf/log.Fatalf, no custom handler stack).
// Fields are appended as key=value pairs rather than JSON, matching what
// the rest of the corpus actually does (no zap/zerolog/logrus anywhere in
// the retrieved examples); see DESIGN.md.
package klog

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// #region logger

// Logger wraps a *log.Logger with a fixed component name, printed first on
// every line.
type Logger struct {
	component string
	std       *log.Logger
}

// New returns a Logger that writes to stderr with no timestamp: the
// log.LstdFlags prefix is disabled and no ts= field is added.
func New(component string) *Logger {
	return &Logger{
		component: component,
		std:       log.New(os.Stderr, "", 0),
	}
}

// #endregion logger

// #region fields

// Field is one key=value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F is shorthand for constructing a Field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

func formatFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s=%v", f.Key, formatValue(f.Value))
	}
	return " " + strings.Join(parts, " ")
}

func formatValue(v interface{}) interface{} {
	if s, ok := v.(string); ok && strings.ContainsAny(s, " \t\n") {
		return fmt.Sprintf("%q", s)
	}
	return v
}

// #endregion fields

// #region levels

func (l *Logger) log(level, msg string, fields []Field) {
	l.std.Printf("level=%s component=%s msg=%q%s", level, l.component, msg, formatFields(fields))
}

// Info logs at info level.
func (l *Logger) Info(msg string, fields ...Field) { l.log("info", msg, fields) }

// Warn logs at warning level.
func (l *Logger) Warn(msg string, fields ...Field) { l.log("warn", msg, fields) }

// Error logs at error level.
func (l *Logger) Error(msg string, fields ...Field) { l.log("error", msg, fields) }

// Fatal logs at fatal level and exits with status 1, mirroring the
// teacher's log.Fatalf usage in cmd/controller/main.go.
func (l *Logger) Fatal(msg string, fields ...Field) {
	l.log("fatal", msg, fields)
	os.Exit(1)
}

// #endregion levels
