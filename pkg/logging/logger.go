// Package logging provides the engine's structured logging surface.
//
// Levels mirror the graph-builder configuration's loggingLevel option:
// Debug=0, Config=100, Info=200, Warning=300, Severe=400. A graph
// builder may additionally register a logger callback that receives
// every LogMessage, independent of the default stderr/stdout sink.
package logging

import (
	"fmt"
	"log"
	"os"
	"time"
)

// Level is one of the five severities the graph builder configuration names.
type Level int

const (
	Debug   Level = 0
	Config  Level = 100
	Info    Level = 200
	Warning Level = 300
	Severe  Level = 400
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Config:
		return "CONFIG"
	case Info:
		return "INFO"
	case Warning:
		return "WARNING"
	case Severe:
		return "SEVERE"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// LogMessage is delivered to a registered logger callback (§6 `logger` option).
type LogMessage struct {
	Level  Level
	Source string
	Text   string
	Time   time.Time
	Err    error
}

// Callback receives every LogMessage, regardless of the sink's own level gate.
type Callback func(LogMessage)

// Logger is the logging capability used throughout the engine.
type Logger interface {
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})

	// Severe reports a vertex callback failure per §7: logged with the
	// throwable, never propagated, counters left untouched by the caller.
	Severe(err error, args ...interface{})
}

// defaultLogger implements Logger using the standard log package, with an
// optional level gate and callback fan-out.
type defaultLogger struct {
	source      string
	level       Level
	callback    Callback
	errorLogger *log.Logger
	warnLogger  *log.Logger
	infoLogger  *log.Logger
	debugLogger *log.Logger
}

// New creates a Logger that writes to stderr/stdout and, if cb is non-nil,
// also forwards every message to cb regardless of level.
func New(source string, level Level, cb Callback) Logger {
	return &defaultLogger{
		source:      source,
		level:       level,
		callback:    cb,
		errorLogger: log.New(os.Stderr, "[SEVERE] ", log.LstdFlags|log.Lshortfile),
		warnLogger:  log.New(os.Stderr, "[WARNING] ", log.LstdFlags|log.Lshortfile),
		infoLogger:  log.New(os.Stdout, "[INFO] ", log.LstdFlags|log.Lshortfile),
		debugLogger: log.New(os.Stdout, "[DEBUG] ", log.LstdFlags|log.Lshortfile),
	}
}

// NewDefaultLogger creates a Logger at Info level with no callback.
func NewDefaultLogger() Logger {
	return New("engine", Info, nil)
}

func (l *defaultLogger) emit(lvl Level, dest *log.Logger, err error, text string) {
	if lvl >= l.level {
		dest.Output(3, text)
	}
	if l.callback != nil {
		l.callback(LogMessage{Level: lvl, Source: l.source, Text: text, Time: time.Now(), Err: err})
	}
}

func (l *defaultLogger) Error(args ...interface{}) {
	l.emit(Severe, l.errorLogger, nil, fmt.Sprint(args...))
}

func (l *defaultLogger) Errorf(format string, args ...interface{}) {
	l.emit(Severe, l.errorLogger, nil, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Warn(args ...interface{}) {
	l.emit(Warning, l.warnLogger, nil, fmt.Sprint(args...))
}

func (l *defaultLogger) Warnf(format string, args ...interface{}) {
	l.emit(Warning, l.warnLogger, nil, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Info(args ...interface{}) {
	l.emit(Info, l.infoLogger, nil, fmt.Sprint(args...))
}

func (l *defaultLogger) Infof(format string, args ...interface{}) {
	l.emit(Info, l.infoLogger, nil, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Debug(args ...interface{}) {
	l.emit(Debug, l.debugLogger, nil, fmt.Sprint(args...))
}

func (l *defaultLogger) Debugf(format string, args ...interface{}) {
	l.emit(Debug, l.debugLogger, nil, fmt.Sprintf(format, args...))
}

func (l *defaultLogger) Severe(err error, args ...interface{}) {
	text := fmt.Sprint(args...)
	if err != nil {
		text = text + ": " + err.Error()
	}
	l.emit(Severe, l.errorLogger, err, text)
}
