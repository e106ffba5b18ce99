// Package logger wraps zap with the small surface playerd logs through.
package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a wrapper around zap.Logger
type Logger struct {
	zap *zap.Logger
}

// Config holds logger configuration
type Config struct {
	Level       string
	Environment string // "production" selects JSON output, anything else the console encoder
	ServiceName string
}

// New builds the process logger. Every entry carries the service name.
func New(cfg Config) (*Logger, error) {
	z, err := zapConfigFor(cfg).Build(zap.Fields(zap.String("service", cfg.ServiceName)))
	if err != nil {
		return nil, err
	}
	return &Logger{zap: z}, nil
}

func zapConfigFor(cfg Config) zap.Config {
	zc := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zc
}

// NewNop returns a Logger that discards everything
func NewNop() *Logger { return &Logger{zap: zap.NewNop()} }

// FromZap wraps an existing zap.Logger
func FromZap(z *zap.Logger) *Logger { return &Logger{zap: z} }

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.zap.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.zap.Warn(msg, fields...) }

// Error logs msg at error level with err attached under "error"
func (l *Logger) Error(msg string, err error, fields ...zap.Field) {
	l.zap.Error(msg, append(fields, zap.Error(err))...)
}

// With returns a child logger carrying fields
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{zap: l.zap.With(fields...)}
}

// Named returns a child logger for one component, e.g. "txn" or "http"
func (l *Logger) Named(name string) *Logger {
	return &Logger{zap: l.zap.Named(name)}
}

// DebugEnabled reports whether debug entries would be written.
// Raw request payloads are only rendered when it is true.
func (l *Logger) DebugEnabled() bool {
	return l.zap.Core().Enabled(zapcore.DebugLevel)
}

// Sync flushes buffered entries
func (l *Logger) Sync() error { return l.zap.Sync() }

type ctxKey struct{}

// ContextWithFields returns a copy of ctx carrying fields, appended to any
// already there. Loggers pick them up through For.
func ContextWithFields(ctx context.Context, fields ...zap.Field) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// For returns l with the request fields stored in ctx, or l itself
func (l *Logger) For(ctx context.Context) *Logger {
	fields, _ := ctx.Value(ctxKey{}).([]zap.Field)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// ParseLevel parses a level name, falling back to info
func ParseLevel(level string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
