// Package logging adapts zap to the domain logging contract.
package logging

import (
	"go.uber.org/zap"

	"agritrack/pkg/domain"
)

// ZapLogger bridges a zap sugared logger to domain.Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ domain.Logger = (*ZapLogger)(nil)

// NewZap wraps an existing zap logger.
func NewZap(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{sugar: logger.Sugar()}
}

// NewProduction builds a production zap logger. Debug enables the development
// configuration with debug-level output.
func NewProduction(debug bool) (*ZapLogger, func(), error) {
	build := zap.NewProduction
	if debug {
		build = zap.NewDevelopment
	}
	logger, err := build()
	if err != nil {
		return nil, nil, err
	}
	flush := func() { _ = logger.Sync() }
	return NewZap(logger), flush, nil
}

// Debug implements domain.Logger.
func (l *ZapLogger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, kv...) }

// Info implements domain.Logger.
func (l *ZapLogger) Info(msg string, kv ...any) { l.sugar.Infow(msg, kv...) }

// Warn implements domain.Logger.
func (l *ZapLogger) Warn(msg string, kv ...any) { l.sugar.Warnw(msg, kv...) }

// Error implements domain.Logger.
func (l *ZapLogger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, kv...) }
