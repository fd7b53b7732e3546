package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel accepts the usual spellings, including WARNING. Unknown values
// yield INFO and ok=false.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, true
	case "INFO":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	default:
		return INFO, false
	}
}

const (
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorMagenta = "\033[35m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorGray    = "\033[90m"
)

// Logger is safe for concurrent use; analyses running in parallel share one.
type Logger struct {
	mu         *sync.Mutex
	out        *io.Writer
	level      *LogLevel
	prefix     string
	colorize   bool
	showCaller bool
	showTime   bool
	timeFormat string
}

var (
	defaultLogger *Logger
	once          sync.Once
)

type Config struct {
	Level      LogLevel
	Prefix     string
	Colorize   bool
	ShowCaller bool
	ShowTime   bool
	TimeFormat string
	Output     io.Writer
}

func DefaultConfig() Config {
	return Config{
		Level:      INFO,
		Colorize:   true,
		ShowTime:   true,
		TimeFormat: "2006-01-02 15:04:05",
		Output:     os.Stderr,
	}
}

func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "2006-01-02 15:04:05"
	}

	out := cfg.Output
	level := cfg.Level
	return &Logger{
		mu:         &sync.Mutex{},
		out:        &out,
		level:      &level,
		prefix:     cfg.Prefix,
		colorize:   cfg.Colorize,
		showCaller: cfg.ShowCaller,
		showTime:   cfg.ShowTime,
		timeFormat: cfg.TimeFormat,
	}
}

// GetLogger returns the process-wide logger, honoring LOG_LEVEL on first use.
func GetLogger() *Logger {
	once.Do(func() {
		cfg := DefaultConfig()
		if lvl, ok := ParseLevel(os.Getenv("LOG_LEVEL")); ok {
			cfg.Level = lvl
		}
		defaultLogger = New(cfg)
	})
	return defaultLogger
}

// WithPrefix returns a logger that shares output and level with l but tags
// every line with prefix, e.g. "[spectral]".
func (l *Logger) WithPrefix(prefix string) *Logger {
	child := *l
	if l.prefix != "" {
		prefix = l.prefix + " " + prefix
	}
	child.prefix = prefix
	return &child
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.level = level
}

func (l *Logger) Level() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.level
}

func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.out = w
}

func (l *Logger) SetColorize(colorize bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.colorize = colorize
}

func (l *Logger) SetShowCaller(show bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.showCaller = show
}

func (l *Logger) formatMessage(level LogLevel, msg string, args ...any) string {
	var parts []string

	if l.showTime {
		parts = append(parts, time.Now().Format(l.timeFormat))
	}

	levelStr := fmt.Sprintf("[%s]", level.String())
	if l.colorize {
		switch level {
		case DEBUG:
			levelStr = colorGray + levelStr + colorReset
		case INFO:
			levelStr = colorBlue + levelStr + colorReset
		case WARN:
			levelStr = colorYellow + levelStr + colorReset
		case ERROR:
			levelStr = colorMagenta + levelStr + colorReset
		case FATAL:
			levelStr = colorRed + levelStr + colorReset
		}
	}
	parts = append(parts, levelStr)

	if l.showCaller {
		if _, file, line, ok := runtime.Caller(3); ok {
			if idx := strings.LastIndex(file, "/"); idx >= 0 {
				file = file[idx+1:]
			}
			parts = append(parts, fmt.Sprintf("%s:%d", file, line))
		}
	}

	if l.prefix != "" {
		parts = append(parts, l.prefix)
	}

	if len(args) > 0 {
		parts = append(parts, fmt.Sprintf(msg, args...))
	} else {
		parts = append(parts, msg)
	}

	return strings.Join(parts, " ")
}

func (l *Logger) log(level LogLevel, msg string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < *l.level {
		return
	}

	fmt.Fprintln(*l.out, l.formatMessage(level, msg, args...))

	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Debug(msg string, args ...any) {
	l.log(DEBUG, msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.log(INFO, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.log(WARN, msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.log(ERROR, msg, args...)
}

// Fatal logs at FATAL level and exits the program
func (l *Logger) Fatal(msg string, args ...any) {
	l.log(FATAL, msg, args...)
}

func (l *Logger) Debugf(format string, args ...any) {
	l.Debug(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	l.Info(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	l.Warn(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Error(format, args...)
}

func (l *Logger) Fatalf(format string, args ...any) {
	l.Fatal(format, args...)
}

// Package-level helpers on the default logger

func Debugf(format string, args ...any) {
	GetLogger().Debugf(format, args...)
}

func Infof(format string, args ...any) {
	GetLogger().Infof(format, args...)
}

func Warnf(format string, args ...any) {
	GetLogger().Warnf(format, args...)
}

func Errorf(format string, args ...any) {
	GetLogger().Errorf(format, args...)
}

func Fatalf(format string, args ...any) {
	GetLogger().Fatalf(format, args...)
}

func SetLevel(level LogLevel) {
	GetLogger().SetLevel(level)
}

func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

func SetColorize(colorize bool) {
	GetLogger().SetColorize(colorize)
}
