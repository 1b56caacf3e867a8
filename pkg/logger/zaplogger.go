package logger

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ZapLogger writes key/value entries through a sugared zap logger.
type ZapLogger struct {
	log *zap.SugaredLogger
}

var std *ZapLogger

// NewLogger builds a logger from config and makes it the package logger.
func NewLogger(config zap.Config) (*ZapLogger, error) {
	base, err := config.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build zap logger")
	}
	return install(base), nil
}

// install makes base the package logger. The caller skip points entries at
// whoever called the package level functions.
func install(base *zap.Logger) *ZapLogger {
	std = &ZapLogger{log: base.WithOptions(zap.AddCallerSkip(2)).Sugar()}
	return std
}

func current() *ZapLogger {
	if std == nil {
		panic("logger not initialized")
	}
	return std
}

func (l *ZapLogger) Debug(message string, values ...any) { l.log.Debugw(message, values...) }

func (l *ZapLogger) Info(message string, values ...any) { l.log.Infow(message, values...) }

func (l *ZapLogger) Warn(message string, values ...any) { l.log.Warnw(message, values...) }

func (l *ZapLogger) Error(message string, values ...any) { l.log.Errorw(message, values...) }

func (l *ZapLogger) Panic(message string, values ...any) { l.log.Panicw(message, values...) }
