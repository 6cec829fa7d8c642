// Package logger provides the structured logger used across the SDK and CLI.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger writes namespaced, structured log messages.
//
// After the message, arguments are key-value pairs which are written as
// structured fields:
//
//	log.Info("Some message here", "key1", value1, "key2", value2)
type Logger struct {
	base   *logrus.Logger
	fields logrus.Fields
}

// NewLogger returns a new Logger instance configured with conf.
func NewLogger(ns string, conf Config) *Logger {
	l := &Logger{
		base:   logrus.New(),
		fields: logrus.Fields{"ns": ns},
	}
	l.Configure(conf)
	return l
}

// New returns a new Logger instance with the default configuration and
// the given base fields.
func New(ns string, args ...interface{}) *Logger {
	return NewLogger(ns, DefaultConfig()).WithFields(args...)
}

// SetLevel sets the level of logging
func (l *Logger) SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		l.base.SetLevel(logrus.DebugLevel)
	case "info":
		l.base.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		l.base.SetLevel(logrus.WarnLevel)
	case "error":
		l.base.SetLevel(logrus.ErrorLevel)
	default:
		l.base.SetLevel(logrus.InfoLevel)
	}
}

// SetFormatter sets the formatter used by this logger and its children.
func (l *Logger) SetFormatter(f logrus.Formatter) {
	l.base.SetFormatter(f)
}

// SetOutput sets the output used by this logger and its children.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Discard configures the logger to discard all logs.
func (l *Logger) Discard() {
	l.base.SetOutput(io.Discard)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Debug(msg)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Info(msg)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Warn(msg)
}

// Error logs an error message.
//
// Error has a two-argument version that can be used as a shortcut.
//
//	err := login()
//	log.Error("Couldn't log in", err)
func (l *Logger) Error(msg string, args ...interface{}) {
	defer recoverLogErr()
	l.entry(args...).Error(msg)
}

// WithFields returns a new Logger instance with the given fields added to all
// log messages. The new logger shares level, formatter and output with l.
func (l *Logger) WithFields(args ...interface{}) *Logger {
	defer recoverLogErr()
	f := make(logrus.Fields, len(l.fields)+len(args)/2)
	for k, v := range l.fields {
		f[k] = v
	}
	for k, v := range fields(args...) {
		f[k] = v
	}
	return &Logger{base: l.base, fields: f}
}

// NewSubLogger returns a child logger with a different namespace.
func (l *Logger) NewSubLogger(ns string, args ...interface{}) *Logger {
	sub := l.WithFields(args...)
	sub.fields["ns"] = ns
	return sub
}

func (l *Logger) entry(args ...interface{}) *logrus.Entry {
	return l.base.WithFields(l.fields).WithFields(fields(args...))
}

// recoverLogErr is used to recover from any panics during logging.
// Panics aren't expected of course, but logging should never crash
// a program, so this failsafe tries to prevent those crashes.
func recoverLogErr() {
	if r := recover(); r != nil {
		fmt.Println("Recovered from logging panic", r)
	}
}

// fields converts an argument list to a map, e.g.
// ("key", value, "key2", value2) => {"key": value, "key2": value2}
// A lone error is stored under "error"; a dangling value under "unknown".
func fields(args ...interface{}) logrus.Fields {
	f := make(logrus.Fields, len(args)/2)

	if len(args) == 1 {
		if err, ok := args[0].(error); ok {
			f["error"] = err
		} else {
			f["unknown"] = args[0]
		}
		return f
	}

	if len(args)%2 != 0 {
		f["unknown"] = args[len(args)-1]
		args = args[:len(args)-1]
	}

	for i := 0; i < len(args); i += 2 {
		k := fmt.Sprintf("%v", args[i])
		f[k] = args[i+1]
	}
	return f
}
