// Package logger writes the run log (<logDir>/farm-runner.log) as zerolog JSON lines.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger = zerolog.Nop()
	logFile      *os.File
	level        = zerolog.InfoLevel
	mu           sync.RWMutex
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
		globalLogger = zerolog.Nop()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) //#nosec G304 -- log path from run config
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = zerolog.New(f).Level(level).With().Timestamp().Logger()

	return nil
}

// SetDebug switches between debug and info level.
func SetDebug(debug bool) {
	mu.Lock()
	defer mu.Unlock()

	level = zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	globalLogger = globalLogger.Level(level)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = zerolog.Nop()
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	globalLogger.Info().Msgf(format, v...)
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	globalLogger.Debug().Msgf(format, v...)
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	globalLogger.Error().Msgf(format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	globalLogger.Warn().Msgf(format, v...)
}

// WithComponent returns a child logger tagged with component, for packages that
// want structured fields instead of printf messages.
func WithComponent(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger.With().Str("component", component).Logger()
}

// GetWriter returns the underlying writer for subprocess output.
func GetWriter() io.Writer {
	mu.RLock()
	defer mu.RUnlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
