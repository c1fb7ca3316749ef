// Package monitoring holds the diagnostic logging hooks used by the replay
// engine and its adapters.
package monitoring

import (
	"log"
	"sync"
)

var mu sync.RWMutex

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	mu.Lock()
	defer mu.Unlock()
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger is a component logger that prefixes every line with a bracketed tag,
// e.g. "[Playback] paused at 42".
type Logger struct {
	prefix string
}

// Component returns a Logger tagged with name.
func Component(name string) Logger {
	return Logger{prefix: "[" + name + "] "}
}

// Printf writes a tagged line through the current package logger.
func (l Logger) Printf(format string, v ...interface{}) {
	mu.RLock()
	logf := Logf
	mu.RUnlock()
	logf(l.prefix+format, v...)
}
