package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Level is the severity of a log line.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	SILENT
)

var levelNames = map[Level]string{
	DEBUG:  "DEBUG",
	INFO:   "INFO",
	WARN:   "WARN",
	ERROR:  "ERROR",
	SILENT: "SILENT",
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m",
	INFO:  "\033[32m",
	WARN:  "\033[33m",
	ERROR: "\033[31m",
}

const resetColor = "\033[0m"

// Logger writes module-tagged lines at or above its level.
type Logger struct {
	mu       sync.Mutex
	level    Level
	useColor bool
	out      *log.Logger
}

// New creates a Logger. A nil writer means stderr.
func New(level Level, w io.Writer, useColor bool) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		level:    level,
		useColor: useColor,
		out:      log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) logf(level Level, module, format string, args ...any) {
	if level < l.Level() || level >= SILENT {
		return
	}

	prefix := "[" + levelNames[level] + "]"
	if l.useColor {
		prefix = levelColors[level] + prefix + resetColor
	}
	if module != "" {
		prefix += " [" + module + "]"
	}
	l.out.Printf("%s %s", prefix, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(module, format string, args ...any) { l.logf(DEBUG, module, format, args...) }
func (l *Logger) Info(module, format string, args ...any)  { l.logf(INFO, module, format, args...) }
func (l *Logger) Warn(module, format string, args ...any)  { l.logf(WARN, module, format, args...) }
func (l *Logger) Error(module, format string, args ...any) { l.logf(ERROR, module, format, args...) }

var (
	mu  sync.RWMutex
	std = New(WARN, os.Stderr, false)
)

// Init replaces the process-wide logger. Commands call it once from the root pre-run.
func Init(level Level, w io.Writer, useColor bool) {
	mu.Lock()
	std = New(level, w, useColor)
	mu.Unlock()
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

func Debug(module, format string, args ...any) { current().Debug(module, format, args...) }
func Info(module, format string, args ...any)  { current().Info(module, format, args...) }
func Warn(module, format string, args ...any)  { current().Warn(module, format, args...) }
func Error(module, format string, args ...any) { current().Error(module, format, args...) }

// ParseLevel maps a config string onto a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "info", "":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "silent", "none", "off":
		return SILENT, nil
	default:
		return INFO, fmt.Errorf("invalid log level: %s", s)
	}
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}
