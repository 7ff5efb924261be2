package logging

import (
	"bytes"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

// Logger is a wrapper around the log.Logger from the charmbracelet/log
// package. Buffer captures output when the logger was built for tests, and
// FatalFn is the exit hook invoked by Fatal (os.Exit outside of tests).
type Logger struct {
	*log.Logger
	Buffer  *bytes.Buffer
	FatalFn func(code int)
}

var (
	logger *Logger
	mu     sync.Mutex
)

// CreateLogger sets up the global logger. It must be called before using the
// package-level logging functions.
func CreateLogger() {
	mu.Lock()
	defer mu.Unlock()
	if logger != nil {
		return
	}
	logger = newStderrLogger()
}

func newStderrLogger() *Logger {
	// Create a logger with default settings
	baseLogger := log.New(os.Stderr)

	// Check if DEBUG environment variable is set to 1
	if os.Getenv("DEBUG") == "1" {
		// Set log options only when DEBUG is enabled
		baseLogger = log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          "snapforge",
		})

		baseLogger.SetLevel(log.DebugLevel)
	} else {
		// Use InfoLevel for normal operation without special logging options
		baseLogger.SetLevel(log.InfoLevel)
	}

	return &Logger{Logger: baseLogger, FatalFn: os.Exit}
}

// NewTestLogger returns a logger that records output in an in-memory buffer
// at debug level. Fatal still exits the process; use NewTestSafeLogger when a
// test needs to survive a fatal path.
func NewTestLogger() *Logger {
	buf := new(bytes.Buffer)
	baseLogger := log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})

	return &Logger{Logger: baseLogger, Buffer: buf, FatalFn: os.Exit}
}

// NewTestSafeLogger is NewTestLogger with a no-op exit hook.
func NewTestSafeLogger() *Logger {
	l := NewTestLogger()
	l.FatalFn = func(int) {}
	return l
}

// SetTestLogger replaces the global logger. Tests only.
func SetTestLogger(l *Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

// ResetForTest clears the global logger so the next use recreates it.
func ResetForTest() {
	mu.Lock()
	defer mu.Unlock()
	logger = nil
}

// Debug logs debug messages if debug logging is enabled.
func Debug(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Debug(msg, keyvals...)
}

// Info logs informational messages.
func Info(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Info(msg, keyvals...)
}

// Warn logs warning messages.
func Warn(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Warn(msg, keyvals...)
}

// Error logs error messages.
func Error(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Error(msg, keyvals...)
}

// Fatal logs a fatal message and exits the program.
func Fatal(msg interface{}, keyvals ...interface{}) {
	ensureInitialized()
	logger.Fatal(msg, keyvals...)
}

// GetLogger returns the Logger instance.
func GetLogger() *Logger {
	ensureInitialized()
	return logger
}

// EnsureInitialized ensures the global logger exists.
func EnsureInitialized() {
	ensureInitialized()
}

// With returns a child logger carrying the given key-value pairs. The child
// shares the parent's buffer and exit hook.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	return &Logger{Logger: l.Logger.With(keyvals...), Buffer: l.Buffer, FatalFn: l.FatalFn}
}

// Fatal logs at error level and then invokes the exit hook.
func (l *Logger) Fatal(msg interface{}, keyvals ...interface{}) {
	l.Logger.Error(msg, keyvals...)
	if l.FatalFn != nil {
		l.FatalFn(1)
	}
}

// Fatalf logs a formatted message at error level and then invokes the exit
// hook.
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Logger.Errorf(format, args...)
	if l.FatalFn != nil {
		l.FatalFn(1)
	}
}

// GetOutput returns everything captured by a test logger's buffer.
func (l *Logger) GetOutput() string {
	if l.Buffer == nil {
		return ""
	}
	return l.Buffer.String()
}

// BaseLogger returns the underlying *log.Logger from the custom Logger.
func (l *Logger) BaseLogger() *log.Logger {
	if l.Logger == nil {
		panic("logging: Logger has no base logger")
	}
	return l.Logger
}

// ensureInitialized ensures the logger is initialized before use.
func ensureInitialized() {
	if logger == nil {
		CreateLogger()
	}
}
