package logger

import "sync"

var (
	globalMu sync.RWMutex
	global   = NewDefault()
)

// Setup replaces the package-level logger. Called once from main after
// configuration is loaded; component loggers derive from it afterwards.
func Setup(level, format string) *Logger {
	l := New(Options{Level: ParseLevel(level), Format: ParseFormat(format)})
	globalMu.Lock()
	global = l
	globalMu.Unlock()
	return l
}

// Default returns the package-level logger.
func Default() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Component returns a child of the package-level logger tagged with the
// component name.
func Component(name string) *Logger {
	return Default().WithComponent(name)
}

// Debug logs at DEBUG on the package-level logger.
func Debug(msg string, fields ...map[string]any) { Default().Debug(msg, fields...) }

// Info logs at INFO on the package-level logger.
func Info(msg string, fields ...map[string]any) { Default().Info(msg, fields...) }

// Warn logs at WARN on the package-level logger.
func Warn(msg string, fields ...map[string]any) { Default().Warn(msg, fields...) }

// Error logs at ERROR on the package-level logger.
func Error(msg string, err error, fields ...map[string]any) { Default().Error(msg, err, fields...) }

// Fatal logs at FATAL on the package-level logger and exits.
func Fatal(msg string, err error, fields ...map[string]any) { Default().Fatal(msg, err, fields...) }

// Infof logs a formatted message at INFO on the package-level logger.
func Infof(format string, args ...any) { Default().Infof(format, args...) }

// Warnf logs a formatted message at WARN on the package-level logger.
func Warnf(format string, args ...any) { Default().Warnf(format, args...) }

// Errorf logs a formatted message at ERROR on the package-level logger.
func Errorf(format string, args ...any) { Default().Errorf(format, args...) }
