package logger

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[Logger]

func init() {
	defaultLogger.Store(New(slog.Default()))
}

// Logger wraps slog and also satisfies the logger interfaces of badger
// and tail, so one logger feeds every library the host uses.
type Logger struct {
	slogger *slog.Logger
}

func New(l *slog.Logger) *Logger {
	return &Logger{
		slogger: l,
	}
}

func Default() *Logger {
	return defaultLogger.Load()
}

func SetDefault(l *Logger) {
	defaultLogger.Store(l)
}

func SetLogLevel(level slog.Level) {
	slog.SetLogLoggerLevel(level)
}

// Slog exposes the underlying logger for code that takes *slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// slog wrapper

func Debug(msg string, args ...any) {
	defaultLogger.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	defaultLogger.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Load().Error(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.slogger.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.slogger.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.slogger.Warn(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.slogger.Error(msg, args...)
}

// badger.Logger

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.slogger.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.slogger.Debug(fmt.Sprintf(format, args...))
}

// tail logger; Fatal and Panic variants only log, they never exit.

func (l *Logger) Fatal(v ...interface{}) {
	l.slogger.Error("An error occurred", genericPairs(v...)...)
}

func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Fatalln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *Logger) Panic(v ...interface{}) {
	l.slogger.Error("", genericPairs(v...)...)
}

func (l *Logger) Panicf(format string, v ...interface{}) {
	l.slogger.Error(fmt.Sprintf(format, v...))
}

func (l *Logger) Panicln(v ...interface{}) {
	l.slogger.Error(fmt.Sprint(v...))
}

func (l *Logger) Print(v ...interface{}) {
	l.slogger.Info("", genericPairs(v...)...)
}

func (l *Logger) Printf(format string, v ...interface{}) {
	l.slogger.Info(fmt.Sprintf(format, v...))
}

func (l *Logger) Println(v ...interface{}) {
	l.slogger.Info(fmt.Sprint(v...))
}

func genericPairs(v ...interface{}) []any {
	pairs := make([]any, 0, len(v)/2)
	for i := 0; i < len(v)-1; i += 2 {
		key, ok := v[i].(string)
		if !ok {
			key = fmt.Sprintf("non_string_key_%d", i)
		}
		pairs = append(pairs, slog.Any(key, v[i+1]))
	}
	return pairs
}
