package logging

import (
	"go.uber.org/zap"
)

// Logger is a thin structured logger used across the service.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger creates a new Logger backed by a production zap core.
func NewLogger() *Logger {
	z, err := zap.NewProduction()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{sugar: z.Sugar()}
}

// Info logs an informational message with key/value pairs.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.sugar.Infow(msg, args...)
}

// Warn logs a warning message with key/value pairs.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.sugar.Warnw(msg, args...)
}

// Error logs an error message with key/value pairs.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.sugar.Errorw(msg, args...)
}

// Debug logs a debug message with key/value pairs.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.sugar.Debugw(msg, args...)
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
