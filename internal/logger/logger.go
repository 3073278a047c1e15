// Package logger wires hclog as the process-wide structured logger.
package logger

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

var (
	mu   sync.RWMutex
	root = hclog.New(&hclog.LoggerOptions{
		Name:  "muxfetch",
		Level: hclog.Info,
	})
)

// New creates the root logger at the given level. Level strings follow
// hclog conventions (trace, debug, info, warn, error); unknown values fall
// back to info.
func New(name, level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: hclog.LevelFromString(level),
	})
}

// SetRoot replaces the logger backing the package-level helpers. Called once
// at startup after config is loaded.
func SetRoot(l hclog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = l
}

// Root returns the current process-wide logger.
func Root() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a sublogger of the process-wide logger.
func Named(name string) hclog.Logger {
	return Root().Named(name)
}

// Debug logs key-value pairs at debug level on the root logger.
func Debug(msg string, args ...interface{}) {
	Root().Debug(msg, args...)
}

// Info logs key-value pairs at info level on the root logger.
func Info(msg string, args ...interface{}) {
	Root().Info(msg, args...)
}

// Warn logs key-value pairs at warn level on the root logger.
func Warn(msg string, args ...interface{}) {
	Root().Warn(msg, args...)
}

// Error logs key-value pairs at error level on the root logger.
func Error(msg string, args ...interface{}) {
	Root().Error(msg, args...)
}
