// Package monitoring holds the diagnostic logger shared by the analysis
// packages. The numeric core stays silent apart from a handful of notices
// (for example when the beat detector falls back to its simpler strategy), and
// those go through Logf so that callers can redirect or mute them.
package monitoring

import (
	"fmt"
	"log"
	"sync"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Recorder collects formatted log lines. Install it with SetLogger(r.Logf).
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Logf formats and stores a line.
func (r *Recorder) Logf(format string, v ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprintf(format, v...))
}

// Lines returns a copy of the recorded lines.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.lines))
	copy(out, r.lines)
	return out
}

// Capture installs a fresh Recorder as the package logger and returns it along
// with a function restoring the previous logger.
func Capture() (*Recorder, func()) {
	prev := Logf
	r := &Recorder{}
	SetLogger(r.Logf)
	return r, func() { Logf = prev }
}
