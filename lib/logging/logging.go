package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/viper"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// String returns the string representation of the log level
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

// ParseLogLevel converts a string to LogLevel
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// state holds the output configuration shared by a Logger and every
// logger derived from it via With/WithRelay/WithConn. Derived loggers
// only ever add fields; they never get their own file handle or level.
type state struct {
	level      LogLevel
	output     string
	logDir     string
	currentLog *os.File
	mu         sync.RWMutex
	started    time.Time
}

// Logger is a leveled logger that carries a set of structured fields
// (relay id, connection id, ...) attached by With/WithRelay/WithConn.
// Every relay this process hosts, and every connection on it, logs
// through a Logger derived from the same shared state, so log lines
// from concurrent tenants and connections can be told apart without
// each carrying its own file handle.
type Logger struct {
	s      *state
	fields map[string]interface{}
}

var (
	globalLogger *Logger
	once         sync.Once
	connSeq      uint64
)

// InitLogger initializes the global logger with config
func InitLogger(dataPath string) error {
	var err error
	once.Do(func() {
		globalLogger, err = NewLogger(dataPath)
	})
	return err
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if globalLogger == nil {
		// Fallback to basic logger if not initialized
		globalLogger, _ = NewBasicLogger()
	}
	return globalLogger
}

// NewLogger creates a new logger instance using the global config
func NewLogger(dataPath string) (*Logger, error) {
	logger := &Logger{
		s: &state{
			level:   ParseLogLevel(viper.GetString("logging.level")),
			output:  viper.GetString("logging.output"),
			logDir:  filepath.Join(dataPath, "logs"),
			started: time.Now(),
		},
	}

	if err := logger.s.setupOutput(); err != nil {
		return nil, fmt.Errorf("failed to setup logger output: %w", err)
	}

	return logger, nil
}

// NewBasicLogger creates a basic logger for fallback
func NewBasicLogger() (*Logger, error) {
	return &Logger{
		s: &state{
			level:   INFO,
			output:  "stdout",
			started: time.Now(),
		},
	}, nil
}

// With returns a Logger that shares this Logger's output and level but
// annotates every message with fields, merged with any fields already
// attached (the fields passed here win on conflict).
func (l *Logger) With(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{s: l.s, fields: merged}
}

// WithRelay scopes a Logger to one tenant relay. lib/transport derives
// one of these per relay id resolved from the connection's URL path,
// and lib/connection derives its own one with a per-connection child
// (WithConn), so every
// log line from the relay core names the tenant and connection it came
// from.
func (l *Logger) WithRelay(relayID string) *Logger {
	return l.With(map[string]interface{}{"relay_id": relayID})
}

// WithConn scopes a Logger to one connection within a relay, assigning
// it the next sequence number so connections can be told apart even
// without a stable client-supplied identifier.
func (l *Logger) WithConn() *Logger {
	id := atomic.AddUint64(&connSeq, 1)
	return l.With(map[string]interface{}{"conn_id": id})
}

// setupOutput configures the output destination
func (s *state) setupOutput() error {
	if s.output == "stdout" {
		return nil
	}

	if s.output == "file" || s.output == "both" {
		if err := s.createLogFile(); err != nil {
			return err
		}
	}

	return nil
}

// createLogFile creates the log file with date/time structure
func (s *state) createLogFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.started
	dateDir := now.Format("2006-01-02")
	timeFile := now.Format("15-04-05") + ".log"

	fullDir := filepath.Join(s.logDir, dateDir)
	if err := os.MkdirAll(fullDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(fullDir, timeFile)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	if s.currentLog != nil {
		s.currentLog.Close()
	}

	s.currentLog = file
	return nil
}

// shouldLog determines if a message should be logged based on level
func (s *state) shouldLog(level LogLevel) bool {
	return level >= s.level
}

// getWriter returns the appropriate writer(s)
func (s *state) getWriter() io.Writer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch s.output {
	case "stdout":
		return os.Stdout
	case "file":
		if s.currentLog != nil {
			return s.currentLog
		}
		return os.Stdout
	case "both":
		if s.currentLog != nil {
			return io.MultiWriter(os.Stdout, s.currentLog)
		}
		return os.Stdout
	default:
		return os.Stdout
	}
}

// formatMessage formats the log message as plain text, with the
// logger's own attached fields (relay_id, conn_id, ...) first and any
// call-specific fields after.
func (l *Logger) formatMessage(level LogLevel, msg string, fields map[string]interface{}) string {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	result := fmt.Sprintf("%s [%s] %s", timestamp, level.String(), msg)

	if len(l.fields) > 0 {
		result += " |"
		for k, v := range l.fields {
			result += fmt.Sprintf(" %s=%v", k, v)
		}
	}
	if len(fields) > 0 {
		for k, v := range fields {
			result += fmt.Sprintf(" %s=%v", k, v)
		}
	}

	return result
}

// log is the core logging method
func (l *Logger) log(level LogLevel, msg string, fields map[string]interface{}) {
	if !l.s.shouldLog(level) {
		return
	}

	formatted := l.formatMessage(level, msg, fields)
	writer := l.s.getWriter()

	fmt.Fprintln(writer, formatted)

	if level == FATAL {
		os.Exit(1)
	}
}

// Public logging methods

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(DEBUG, msg, f)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(INFO, msg, f)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(WARN, msg, f)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(ERROR, msg, f)
}

func (l *Logger) Fatal(msg string, fields ...map[string]interface{}) {
	var f map[string]interface{}
	if len(fields) > 0 {
		f = fields[0]
	}
	l.log(FATAL, msg, f)
}

// Formatted logging methods

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Debug(fmt.Sprintf(format, args...))
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Warn(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.Fatal(fmt.Sprintf(format, args...))
}

// Close closes the logger and any open files
func (l *Logger) Close() error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()

	if l.s.currentLog != nil {
		return l.s.currentLog.Close()
	}
	return nil
}

// Global convenience functions

func Debug(msg string, fields ...map[string]interface{}) { GetLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { GetLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { GetLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { GetLogger().Error(msg, fields...) }
func Fatal(msg string, fields ...map[string]interface{}) { GetLogger().Fatal(msg, fields...) }

func Debugf(format string, args ...interface{}) { GetLogger().Debugf(format, args...) }
func Infof(format string, args ...interface{})  { GetLogger().Infof(format, args...) }
func Warnf(format string, args ...interface{})  { GetLogger().Warnf(format, args...) }
func Errorf(format string, args ...interface{}) { GetLogger().Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { GetLogger().Fatalf(format, args...) }
