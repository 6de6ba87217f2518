package logging

import (
	"log/slog"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string // "debug", "info", "warn", "error"
	Development bool
	OutputPaths []string
}

func DefaultConfig() Config {
	return Config{
		Level:       "info",
		OutputPaths: []string{"stderr"},
	}
}

// Logger is a zap logger exposed as a [slog.Logger].
type Logger struct {
	*slog.Logger

	zap   *zap.Logger
	level zap.AtomicLevel
	base  zapcore.Level
}

func New(cfg Config) (*Logger, error) {
	var base zapcore.Level
	if err := base.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, errors.Wrapf(err, "parsing log level %q", cfg.Level)
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zapCfg.Level = zap.NewAtomicLevelAt(base)
	zapCfg.DisableStacktrace = !cfg.Development
	if len(cfg.OutputPaths) > 0 {
		zapCfg.OutputPaths = cfg.OutputPaths
	}

	z, err := zapCfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}

	return newLogger(z, zapCfg.Level, base), nil
}

// NewCore wraps core, filtered by a switchable level.
func NewCore(core zapcore.Core, base zapcore.Level) *Logger {
	level := zap.NewAtomicLevelAt(base)
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		// core is stricter than level.
		filtered = core
	}
	return newLogger(zap.New(filtered), level, base)
}

func newLogger(z *zap.Logger, level zap.AtomicLevel, base zapcore.Level) *Logger {
	return &Logger{
		Logger: slog.New(zapslog.NewHandler(z.Core(), zapslog.WithCaller(true))),
		zap:    z,
		level:  level,
		base:   base,
	}
}

// Zap returns the underlying zap logger.
func (l *Logger) Zap() *zap.Logger { return l.zap }

func (l *Logger) Sync() error { return l.zap.Sync() }

// Enabled reports whether debug entries are logged.
func (l *Logger) Enabled() bool { return l.level.Enabled(zapcore.DebugLevel) }

// SetEnabled switches debug logging on, or back to the configured level.
func (l *Logger) SetEnabled(enabled bool) {
	if enabled {
		l.level.SetLevel(zapcore.DebugLevel)
		return
	}
	if l.base == zapcore.DebugLevel {
		l.level.SetLevel(zapcore.InfoLevel)
		return
	}
	l.level.SetLevel(l.base)
}
