package auth

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

var (
	defaultLoggerOnce sync.Once
	defaultBase       *zap.Logger
)

func defaultZap() *zap.Logger {
	defaultLoggerOnce.Do(func() {
		l, err := zap.NewProduction()
		if err != nil {
			l = zap.NewNop()
		}
		defaultBase = l
	})
	return defaultBase
}

// zapLogger adapts a sugared zap logger to Logger
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapLogger wraps a zap logger. A nil logger yields a no-op logger.
func NewZapLogger(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return zapLogger{sugar: l.Sugar()}
}

func (z zapLogger) Trace(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z zapLogger) Debug(msg string, args ...any) { z.sugar.Debugw(msg, args...) }
func (z zapLogger) Info(msg string, args ...any)  { z.sugar.Infow(msg, args...) }
func (z zapLogger) Warn(msg string, args ...any)  { z.sugar.Warnw(msg, args...) }
func (z zapLogger) Error(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

// Fatal logs at error level; the auth layer never terminates the process.
func (z zapLogger) Fatal(msg string, args ...any) { z.sugar.Errorw(msg, args...) }

func (z zapLogger) WithContext(context.Context) Logger { return z }

func (z zapLogger) named(name string) Logger {
	return zapLogger{sugar: z.sugar.Named(name)}
}

type zapProvider struct {
	base zapLogger
}

// NewZapProvider returns a provider whose loggers are children of l.
func NewZapProvider(l *zap.Logger) LoggerProvider {
	return zapProvider{base: NewZapLogger(l).(zapLogger)}
}

func (p zapProvider) GetLogger(name string) Logger {
	if name == "" {
		return p.base
	}
	return p.base.named(name)
}

func defaultLogger() Logger {
	return NewZapLogger(defaultZap())
}

func defaultLoggerProvider() LoggerProvider {
	return NewZapProvider(defaultZap())
}

type nopLogger struct{}

// NopLogger discards everything
func NopLogger() Logger { return nopLogger{} }

func (nopLogger) Trace(string, ...any)               {}
func (nopLogger) Debug(string, ...any)               {}
func (nopLogger) Info(string, ...any)                {}
func (nopLogger) Warn(string, ...any)                {}
func (nopLogger) Error(string, ...any)               {}
func (nopLogger) Fatal(string, ...any)               {}
func (n nopLogger) WithContext(context.Context) Logger { return n }

type singleLoggerProvider struct {
	logger Logger
}

func (p singleLoggerProvider) GetLogger(string) Logger { return p.logger }

// ProviderFromLogger returns a provider that hands out logger for every name.
func ProviderFromLogger(logger Logger) LoggerProvider {
	return singleLoggerProvider{logger: logger}
}

// ResolveLogger picks the logger a component should use. An explicit
// provider wins when it yields a logger for name; otherwise the explicit
// logger is used; otherwise the zap default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if resolved := provider.GetLogger(name); resolved != nil {
			return provider, resolved
		}
	}

	if logger != nil {
		return ProviderFromLogger(logger), logger
	}

	provider = defaultLoggerProvider()
	return provider, provider.GetLogger(name)
}
