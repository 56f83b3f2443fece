// Package corelog is the structured logging surface used across the core,
// wrapping go.uber.org/zap the way the teacher's erigon-lib/log package
// wraps its own backend: a small set of leveled methods plus structured
// fields, so components never import zap directly.
package corelog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a structured logging key/value pair.
type Field = zap.Field

// String, Int, Uint64, Error, and Stringer construct Fields.
func String(key, val string) Field          { return zap.String(key, val) }
func Int(key string, val int) Field         { return zap.Int(key, val) }
func Uint64(key string, val uint64) Field   { return zap.Uint64(key, val) }
func Err(err error) Field                   { return zap.Error(err) }
func Stringer(key string, v fmt.Stringer) Field { return zap.Stringer(key, v) }

// Logger is the leveled logging interface every component depends on.
type Logger struct {
	z *zap.Logger
}

// New builds a production-profile Logger writing JSON to stderr, matching
// the teacher's default node logging configuration.
func New() *Logger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	z, err := cfg.Build()
	if err != nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Nop returns a Logger that discards everything, used in tests.
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }

// With returns a child Logger carrying the given fields on every call.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// Sync flushes any buffered log entries, called on node shutdown.
func (l *Logger) Sync() error { return l.z.Sync() }
