package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide structured logger. Level accepts the usual zap
// names ("debug", "info", "warn", "error"); unknown values fall back to info.
// Format "console" is for local development, anything else means JSON.
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// NewNop returns a logger that discards everything. Tests use it so store
// constructors never need nil checks.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
