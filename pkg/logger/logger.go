package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for console output
const (
	ColorReset        = "\033[0m"
	ColorGreen        = "\033[32m"
	ColorCyan         = "\033[36m"
	ColorBrightRed    = "\033[91m"
	ColorBrightYellow = "\033[93m"
	ColorBrightGray   = "\033[90m"
)

// Column widths for aligned console output
const (
	ComponentWidth = 16
	LevelWidth     = 7
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
	Fields    map[string]string
}

// Logger writes leveled console lines and fans entries out to subscribers.
// A nil *Logger discards everything, so components can hold an optional logger.
type Logger struct {
	component string

	mu           sync.RWMutex
	out          io.Writer
	minLevel     Level
	subscribers  []chan LogEntry
	colorEnabled bool
	quiet        bool
}

// New creates a logger for the named component writing to stderr.
func New(component string) *Logger {
	return &Logger{
		component:    component,
		out:          os.Stderr,
		minLevel:     LevelInfo,
		colorEnabled: isTerminal(os.Stderr),
	}
}

// NewWithWriter creates a logger writing uncolored lines to w.
func NewWithWriter(component string, w io.Writer) *Logger {
	return &Logger{
		component: component,
		out:       w,
		minLevel:  LevelInfo,
	}
}

func isTerminal(f *os.File) bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, err := f.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Named returns a logger for a sub-component sharing output settings but not subscribers.
func (l *Logger) Named(component string) *Logger {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		component:    l.component + "." + component,
		out:          l.out,
		minLevel:     l.minLevel,
		colorEnabled: l.colorEnabled,
		quiet:        l.quiet,
	}
}

// SetLevel sets the minimum level written to the console.
func (l *Logger) SetLevel(level Level) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.minLevel = level
	l.mu.Unlock()
}

// DisableConsoleOutput stops console writes; subscribers still receive entries.
func (l *Logger) DisableConsoleOutput() {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.quiet = true
	l.mu.Unlock()
}

// Subscribe returns a channel to receive log entries
func (l *Logger) Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, 100)
	if l == nil {
		return ch
	}

	l.mu.Lock()
	l.subscribers = append(l.subscribers, ch)
	l.mu.Unlock()

	return ch
}

func (l *Logger) colorFor(level Level) string {
	if !l.colorEnabled {
		return ""
	}
	switch level {
	case LevelDebug:
		return ColorBrightGray
	case LevelInfo:
		return ColorGreen
	case LevelWarn:
		return ColorBrightYellow
	case LevelError:
		return ColorBrightRed
	default:
		return ColorReset
	}
}

func formatComponent(name string) string {
	if len(name) > ComponentWidth {
		return name[:ComponentWidth-1] + "…"
	}
	return fmt.Sprintf("%-*s", ComponentWidth, name)
}

func formatFields(fields map[string]string) string {
	if len(fields) == 0 {
		return ""
	}
	var b strings.Builder
	for k, v := range fields {
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}

func (l *Logger) log(level Level, message string, fields map[string]string) {
	if l == nil {
		return
	}
	now := time.Now()
	entry := LogEntry{
		Time:      now,
		Level:     level,
		Component: l.component,
		Message:   message,
		Fields:    fields,
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.quiet && level >= l.minLevel && l.out != nil {
		color := l.colorFor(level)
		reset := ""
		prefix := ""
		if l.colorEnabled {
			reset = ColorReset
			prefix = ColorCyan
		}
		fmt.Fprintf(l.out, "%s[%s] [%s] [%s%-*s%s] %s%s\n",
			prefix, now.Format("2006-01-02 15:04:05.000"), formatComponent(l.component),
			color, LevelWidth, level.String(), reset, message, formatFields(fields))
	}

	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default:
			// Skip if channel is full
		}
	}
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.log(LevelDebug, format(message, args), nil)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.log(LevelInfo, format(message, args), nil)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.log(LevelWarn, format(message, args), nil)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.log(LevelError, format(message, args), nil)
}

func format(message string, args []interface{}) string {
	if len(args) == 0 {
		return message
	}
	return fmt.Sprintf(message, args...)
}

// WithFields returns a context that attaches fields to every line.
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{
		logger: l,
		fields: fields,
	}
}

// LogContext provides field-based logging
type LogContext struct {
	logger *Logger
	fields map[string]string
}

func (c *LogContext) Info(message string, args ...interface{}) {
	c.logger.log(LevelInfo, format(message, args), c.fields)
}

func (c *LogContext) Warn(message string, args ...interface{}) {
	c.logger.log(LevelWarn, format(message, args), c.fields)
}

func (c *LogContext) Error(message string, args ...interface{}) {
	c.logger.log(LevelError, format(message, args), c.fields)
}
