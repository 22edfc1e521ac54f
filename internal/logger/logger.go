package logger

import (
	"sync"
)

// Log levels accepted in configs/config.yml (log.level).
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call picks the level;
// later calls return the same instance regardless of level.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = newZapLogger(level)
	})
	return globalLogger
}

// New builds an independent logger, for components that must not share
// the global instance.
func New(level string) *Logger {
	return newZapLogger(level)
}
