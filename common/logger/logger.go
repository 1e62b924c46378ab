// FILE: common/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log levels
const (
	FATAL = iota
	ERROR
	WARN
	INFO
	DEBUG
)

var (
	// Global logger instance
	globalLogger *Logger
	initMu       sync.Mutex

	// filename -> component cache
	componentCache = sync.Map{}
)

// Logger manages unified logging across the application
type Logger struct {
	mu sync.RWMutex

	appName    string
	logFile    *lumberjack.Logger
	fileLogger *log.Logger
	console    io.Writer
	debugMode  bool

	// Console colors
	colors map[int]string
}

// Options tune the rotating file sink. Zero values keep lumberjack's defaults
// except where noted.
type Options struct {
	Dir        string // defaults to the working directory
	MaxSizeMB  int    // defaults to 10
	MaxBackups int    // defaults to 5
	MaxAgeDays int
}

// Init initializes the global logger for the application. Calling it again
// replaces the previous sink.
func Init(appName string, opts Options) error {
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 5
	}
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return fmt.Errorf("failed to create log dir %s: %v", opts.Dir, err)
		}
	}

	logFileName := filepath.Join(opts.Dir, fmt.Sprintf("micctl-%s.log", appName))
	file := &lumberjack.Logger{
		Filename:   logFileName,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	l := &Logger{
		appName:    appName,
		logFile:    file,
		fileLogger: log.New(file, "", 0), // Custom formatting
		console:    os.Stdout,
		colors: map[int]string{
			FATAL: "\033[1;31m", // Bright red
			ERROR: "\033[0;31m", // Red
			WARN:  "\033[0;33m", // Yellow
			INFO:  "\033[0;32m", // Green
			DEBUG: "\033[0;37m", // Gray
		},
	}

	initMu.Lock()
	old := globalLogger
	globalLogger = l
	initMu.Unlock()
	if old != nil && old.logFile != nil {
		old.logFile.Close()
	}

	l.logToFile(INFO, "SYSTEM", fmt.Sprintf("=== MICCTL %s Started ===", appName))
	return nil
}

func current() *Logger {
	initMu.Lock()
	defer initMu.Unlock()
	return globalLogger
}

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.debugMode = enabled
		l.mu.Unlock()
	}
}

// SetConsole redirects console output; nil silences it. The terminal UI
// points this at its log pane.
func SetConsole(w io.Writer) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.console = w
		l.mu.Unlock()
	}
}

// GetLogPath returns the current log file path
func GetLogPath() string {
	if l := current(); l != nil && l.logFile != nil {
		return l.logFile.Filename
	}
	return ""
}

// Auto-context logging functions: the component is derived from the caller's file.
func Fatal(format string, args ...interface{}) {
	component := getComponent()
	logWithLevel(FATAL, component, format, args...)
	Close()
	os.Exit(1)
}

func Error(format string, args ...interface{}) {
	component := getComponent()
	logWithLevel(ERROR, component, format, args...)
}

func Warn(format string, args ...interface{}) {
	component := getComponent()
	logWithLevel(WARN, component, format, args...)
}

func Info(format string, args ...interface{}) {
	component := getComponent()
	logWithLevel(INFO, component, format, args...)
}

func Debug(format string, args ...interface{}) {
	component := getComponent()
	logWithLevel(DEBUG, component, format, args...)
}

func getComponent() string {
	_, file, _, ok := runtime.Caller(2) // Skip logger.Info() and getComponent()
	if !ok {
		return "UNKNOWN"
	}

	if cached, exists := componentCache.Load(file); exists {
		return cached.(string)
	}

	component := mapFileToComponent(file)
	componentCache.Store(file, component)
	return component
}

// mapFileToComponent names the subsystem a source file belongs to.
func mapFileToComponent(file string) string {
	file = strings.ToLower(filepath.ToSlash(file))

	switch {
	case strings.Contains(file, "/audio/"):
		return "AUDIO"
	case strings.Contains(file, "/engine/"):
		return "ENGINE"
	case strings.Contains(file, "/hotkey/"):
		return "HOTKEY"
	case strings.Contains(file, "/gate/"):
		return "GATE"
	case strings.Contains(file, "webserver"):
		return "INTERFACE"
	case strings.Contains(file, "tui"):
		return "INTERFACE"
	case strings.Contains(file, "tray"):
		return "INTERFACE"
	case strings.Contains(file, "/config/"):
		return "CONFIG"
	case strings.Contains(file, "appstate"):
		return "STATE"
	case strings.Contains(file, "client/main"):
		return "CLIENT"
	default:
		return "GENERAL"
	}
}

// logWithLevel handles the actual logging logic
func logWithLevel(level int, component, format string, args ...interface{}) {
	l := current()
	if l == nil {
		// Fallback to console if logger not initialized
		fmt.Printf("[UNINITIALIZED] "+format+"\n", args...)
		return
	}

	// Skip debug messages unless debug mode is enabled
	if level == DEBUG {
		l.mu.RLock()
		debugEnabled := l.debugMode
		l.mu.RUnlock()

		if !debugEnabled {
			return
		}
	}

	message := fmt.Sprintf(format, args...)

	// Always log to file
	l.logToFile(level, component, message)

	// Log to console for important messages (INFO and above)
	if level <= INFO {
		l.logToConsole(level, component, message)
	}
}

// logToFile writes structured logs to the file
func (l *Logger) logToFile(level int, component, message string) {
	if l.fileLogger == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	levelStr := getLevelString(level)

	// 2025-01-08 15:04:05.123 [INFO ] [AUDIO] message
	var logLine string
	if component != "" {
		logLine = fmt.Sprintf("%s [%-5s] [%s] %s", timestamp, levelStr, component, message)
	} else {
		logLine = fmt.Sprintf("%s [%-5s] %s", timestamp, levelStr, message)
	}

	l.fileLogger.Println(logLine)
}

// logToConsole writes colored logs to the console
func (l *Logger) logToConsole(level int, component, message string) {
	l.mu.RLock()
	w := l.console
	l.mu.RUnlock()
	if w == nil {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	levelStr := getLevelString(level)

	color := l.colors[level]
	reset := "\033[0m"

	// [15:04:05] INFO  [AUDIO] message
	if component != "" {
		fmt.Fprintf(w, "%s[%s] %-5s [%s] %s%s\n", color, timestamp, levelStr, component, message, reset)
	} else {
		fmt.Fprintf(w, "%s[%s] %-5s %s%s\n", color, timestamp, levelStr, message, reset)
	}
}

// getLevelString returns the string representation of a log level
func getLevelString(level int) string {
	switch level {
	case FATAL:
		return "FATAL"
	case ERROR:
		return "ERROR"
	case WARN:
		return "WARN"
	case INFO:
		return "INFO"
	case DEBUG:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Close closes the log file (call during shutdown)
func Close() {
	if l := current(); l != nil && l.logFile != nil {
		l.logToFile(INFO, "SYSTEM", fmt.Sprintf("=== MICCTL %s Ended ===", l.appName))
		l.logFile.Close()
	}
}

// Rotate starts a fresh log file, keeping the old one as a backup.
func Rotate() error {
	l := current()
	if l == nil || l.logFile == nil {
		return fmt.Errorf("logger not initialized")
	}

	l.mu.Lock()
	err := l.logFile.Rotate()
	l.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to rotate log file: %v", err)
	}

	l.logToFile(INFO, "SYSTEM", "Log file rotated")
	return nil
}
