package logger

import (
    "sync"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// Package logger is a thin structured-logging facade over zap. Components
// log operation outcomes as one JSON record per event via InfoJ/ErrorJ;
// plain Info/Error exist for startup/shutdown lines.

var (
    mu  sync.RWMutex
    log *zap.Logger = newDefault()
)

func newDefault() *zap.Logger {
    cfg := zap.NewProductionConfig()
    cfg.EncoderConfig.TimeKey = "ts"
    cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    cfg.DisableStacktrace = true
    l, err := cfg.Build()
    if err != nil {
        return zap.NewNop()
    }
    return l
}

// Set replaces the process logger (tests, alternate sinks).
func Set(l *zap.Logger) {
    mu.Lock(); defer mu.Unlock()
    if l != nil { log = l }
}

// Sync flushes buffered records; best-effort on shutdown.
func Sync() { mu.RLock(); defer mu.RUnlock(); _ = log.Sync() }

func Info(msg string)  { mu.RLock(); defer mu.RUnlock(); log.Info(msg) }
func Error(msg string) { mu.RLock(); defer mu.RUnlock(); log.Error(msg) }

// InfoJ logs a named event with structured fields.
func InfoJ(event string, fields map[string]any) {
    mu.RLock(); defer mu.RUnlock()
    log.Info(event, toZap(fields)...)
}

// ErrorJ logs a named error event with structured fields.
func ErrorJ(event string, fields map[string]any) {
    mu.RLock(); defer mu.RUnlock()
    log.Error(event, toZap(fields)...)
}

func toZap(fields map[string]any) []zap.Field {
    out := make([]zap.Field, 0, len(fields))
    for k, v := range fields {
        out = append(out, zap.Any(k, v))
    }
    return out
}
