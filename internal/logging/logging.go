package logging

import (
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	current atomic.Int32
	sugar   atomic.Pointer[zap.SugaredLogger]
)

func init() {
	current.Store(int32(LevelInfo))
	sugar.Store(build(false))
}

// ParseLevel maps debug|info|error onto a Level. Anything else is info.
func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "error":
		return LevelError
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// InitFromEnv reads LOG_LEVEL (debug|info|error) and LOG_FORMAT (json|console).
func InitFromEnv() {
	SetLevel(ParseLevel(os.Getenv("LOG_LEVEL")))
	sugar.Store(build(strings.EqualFold(os.Getenv("LOG_FORMAT"), "console")))
}

func SetLevel(l Level) {
	current.Store(int32(l))
}

func CurrentLevel() Level {
	return Level(current.Load())
}

func build(console bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if console {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

func Debugf(format string, args ...interface{}) {
	if CurrentLevel() <= LevelDebug {
		sugar.Load().Debugf(format, args...)
	}
}

func Infof(format string, args ...interface{}) {
	if CurrentLevel() <= LevelInfo {
		sugar.Load().Infof(format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	sugar.Load().Errorf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	sugar.Load().Fatalf(format, args...)
}

// Sync flushes buffered entries. Call before exit.
func Sync() {
	_ = sugar.Load().Sync()
}
