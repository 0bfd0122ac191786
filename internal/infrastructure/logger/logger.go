package logger

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the zap logger shared by every component of the service
type Logger struct {
	*zap.Logger
}

// New wraps an existing zap logger
func New(z *zap.Logger) *Logger {
	return &Logger{Logger: z}
}

// NewLogger builds the service logger. Unknown levels fall back to info.
// The development environment logs colored console lines, every other one JSON.
func NewLogger(level, env string) (*Logger, error) {
	var cfg zap.Config
	if isDevelopment(env) {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	z, err := cfg.Build(zap.Fields(zap.String("service", "onchain-intel")))
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	return New(zap.NewNop())
}

// ParseLevel maps a configured level name onto a zap level
func ParseLevel(level string) zapcore.Level {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func isDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// WithComponent tags every entry with the emitting component
func (l *Logger) WithComponent(component string) *Logger {
	return New(l.Logger.With(zap.String("component", component)))
}

// WithFields attaches fields in key order so entries render the same way every time
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	zapFields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		zapFields = append(zapFields, zap.Any(k, fields[k]))
	}
	return New(l.Logger.With(zapFields...))
}

// Flush writes buffered entries; errors from syncing a terminal are ignored
func (l *Logger) Flush() {
	_ = l.Logger.Sync()
}
