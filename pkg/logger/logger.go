package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// init builds the process logger. LOG_ENV=production selects JSON output,
// LOG_LEVEL (debug, info, warn, error) overrides the level of either preset.
func init() {
	var config zap.Config

	if os.Getenv("LOG_ENV") == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err == nil {
			config.Level = zap.NewAtomicLevelAt(level)
		}
	}

	_, err := NewLogger(config)
	if err != nil {
		panic(err)
	}
}

func Info(msg string, values ...any) {
	current().Info(msg, values...)
}

func Warn(msg string, values ...any) {
	current().Warn(msg, values...)
}

func Error(msg string, values ...any) {
	current().Error(msg, values...)
}

func Debug(msg string, values ...any) {
	current().Debug(msg, values...)
}

func Panic(msg string, values ...any) {
	current().Panic(msg, values...)
}

// Sync flushes buffered entries. Call it before the process exits.
func Sync() {
	_ = current().log.Sync()
}
