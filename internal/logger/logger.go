package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
)

// Logger is the structured logging interface used by services, jobs and handlers.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	// WithFields returns a child logger that adds fields to every entry.
	WithFields(fields map[string]interface{}) Logger
	// WithError returns a child logger carrying err under the "error" key.
	WithError(err error) Logger
	Sync() error
}

// NewZap builds a zap logger. format "json" selects the production encoder,
// anything else the development console encoder. Unknown levels log at info.
func NewZap(levelStr, format string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(levelStr)
	if err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

type structured struct {
	base *zap.Logger
}

func (s *structured) write(level zapcore.Level, msg string, fields map[string]interface{}) {
	if ce := s.base.Check(level, msg); ce != nil {
		ce.Write(fieldsOf(fields)...)
	}
}

func (s *structured) Debug(msg string, fields map[string]interface{}) {
	s.write(zapcore.DebugLevel, msg, fields)
}

func (s *structured) Info(msg string, fields map[string]interface{}) {
	s.write(zapcore.InfoLevel, msg, fields)
}

func (s *structured) Warn(msg string, fields map[string]interface{}) {
	s.write(zapcore.WarnLevel, msg, fields)
}

func (s *structured) Error(msg string, fields map[string]interface{}) {
	s.write(zapcore.ErrorLevel, msg, fields)
}

func (s *structured) WithFields(fields map[string]interface{}) Logger {
	if len(fields) == 0 {
		return s
	}
	return &structured{base: s.base.With(fieldsOf(fields)...)}
}

func (s *structured) WithError(err error) Logger {
	if err == nil {
		return s
	}
	return &structured{base: s.base.With(zap.Error(err))}
}

func (s *structured) Sync() error {
	return s.base.Sync()
}

func fieldsOf(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	zf := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		if err, ok := value.(error); ok {
			zf = append(zf, zap.NamedError(key, err))
			continue
		}
		zf = append(zf, zap.Any(key, value))
	}
	return zf
}

// New returns a zap-backed Logger.
func New(levelStr, format string) (Logger, error) {
	base, err := NewZap(levelStr, format)
	if err != nil {
		return nil, err
	}
	return &structured{base: base}, nil
}

// FromZap wraps an existing *zap.Logger.
func FromZap(base *zap.Logger) Logger {
	return &structured{base: base}
}

// NewTestLogger writes through testing.TB.
func NewTestLogger(t testing.TB) Logger {
	return &structured{base: zaptest.NewLogger(t)}
}

// NewNoOpLogger discards everything.
func NewNoOpLogger() Logger {
	return &structured{base: zap.NewNop()}
}
