// Package log provides the logger used by the importer.
// It is a thin layer over zap.SugaredLogger, so the same logger can be passed to the HTTP client.
package log

import (
	"go.uber.org/zap/zapcore"
)

const (
	DebugLevel = zapcore.DebugLevel
	InfoLevel  = zapcore.InfoLevel
	WarnLevel  = zapcore.WarnLevel
	ErrorLevel = zapcore.ErrorLevel
)

type Logger interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)

	// Debugw logs a message with additional key-value pairs, see zap.SugaredLogger.Debugw.
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)

	// With returns a child logger with the key-value pairs attached to each message.
	With(keysAndValues ...any) Logger

	Sync() error
}

// DebugLogger returns logs as string in tests.
// Each getter truncates all buffers.
type DebugLogger interface {
	Logger
	Truncate()
	AllMessages() string
	DebugMessages() string
	InfoMessages() string
	WarnMessages() string
	WarnAndErrorMessages() string
	ErrorMessages() string
}
