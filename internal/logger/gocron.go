package logger

import (
	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// gocronLogger implements gocron.Logger on a sugared zap logger. gocron logs
// alternating key/value pairs, which is what the *w methods take.
type gocronLogger struct {
	log *zap.SugaredLogger
}

// NewGocronLogger adapts log for gocron.WithLogger.
//
//nolint:ireturn // Interface return is required by gocron's API contract
func NewGocronLogger(log *zap.Logger) gocron.Logger {
	return &gocronLogger{log: log.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l *gocronLogger) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }
