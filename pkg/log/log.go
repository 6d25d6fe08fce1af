// Package log wraps the standard library logger with named, per-component
// loggers. Every line carries a "[name>]" prefix and an optional level tag.
//
//	l := log.ForService("backend")
//	l.Infof("fetched %d collections", n)
//	l.Debugf("GET %s", u) // only printed when debug is on for "backend" or globally
//
// Debug output is toggled globally with SetGlobalDebug or per component with
// EnableDebugFor. The package name shadows the standard library "log"; alias
// one of them when both are needed.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"sync/atomic"
)

// Level tags written in front of each line.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
	LevelDebug = "DEBUG"
)

// Logger is a named logger.
type Logger struct {
	name string
	std  *log.Logger
}

// writerHolder keeps the concrete type stored in atomic.Value stable across
// SetOutput calls with different writer types.
type writerHolder struct {
	w io.Writer
}

var (
	globalDebug  atomic.Bool
	serviceDebug sync.Map // name -> *atomic.Bool
	loggers      sync.Map // name -> *Logger
	output       atomic.Value
)

func init() {
	output.Store(writerHolder{w: os.Stderr})
}

// ForService returns the memoized logger for name. Names should be stable
// component identifiers ("backend", "session", "live"); per-request values
// belong in the message, not in the name.
func ForService(name string) *Logger {
	if name == "" {
		name = "unknown"
	}
	if l, ok := loggers.Load(name); ok {
		return l.(*Logger)
	}
	w := output.Load().(writerHolder).w
	l := &Logger{name: name, std: log.New(w, "", log.LstdFlags|log.Lmicroseconds)}
	actual, _ := loggers.LoadOrStore(name, l)
	return actual.(*Logger)
}

// Name returns the component name of the logger.
func (l *Logger) Name() string {
	return l.name
}

// SetGlobalDebug turns debug output on or off for every logger.
func SetGlobalDebug(enabled bool) {
	globalDebug.Store(enabled)
}

// GlobalDebug reports whether debug output is globally enabled.
func GlobalDebug() bool {
	return globalDebug.Load()
}

// EnableDebugFor turns on debug output for a single component.
func EnableDebugFor(name string) {
	if name == "" {
		return
	}
	v, _ := serviceDebug.LoadOrStore(name, &atomic.Bool{})
	v.(*atomic.Bool).Store(true)
}

// DisableDebugFor turns off component-level debug output. Global debug still
// applies.
func DisableDebugFor(name string) {
	if v, ok := serviceDebug.Load(name); ok {
		v.(*atomic.Bool).Store(false)
	}
}

// DebugEnabledFor reports whether debug lines for name would be printed.
func DebugEnabledFor(name string) bool {
	if globalDebug.Load() {
		return true
	}
	if v, ok := serviceDebug.Load(name); ok {
		return v.(*atomic.Bool).Load()
	}
	return false
}

// SetOutput redirects all loggers, existing and future, to w.
func SetOutput(w io.Writer) {
	if w == nil {
		return
	}
	output.Store(writerHolder{w: w})
	loggers.Range(func(_, v any) bool {
		v.(*Logger).std.SetOutput(w)
		return true
	})
}

func (l *Logger) emit(level, msg string) {
	l.std.Println(level + " [" + l.name + ">] " + msg)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.emit(LevelInfo, fmt.Sprintf(format, args...))
}

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) {
	l.emit(LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(LevelError, fmt.Sprintf(format, args...))
}

// Debugf logs at debug level when debug is enabled for this logger.
func (l *Logger) Debugf(format string, args ...any) {
	if !DebugEnabledFor(l.name) {
		return
	}
	l.emit(LevelDebug, fmt.Sprintf(format, args...))
}
