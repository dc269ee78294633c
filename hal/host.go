//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type hostHAL struct {
	logger  *hostLogger
	led     *hostLED
	console Console
	keys    Keys
	t       *hostTime
	store   *fileTraceStore
}

// New returns a host HAL implementation: stdout logging, a virtual LED,
// and a trace store in the working directory. The console defaults to
// stdout; the window runner swaps in its panel.
func New() HAL {
	logger := &hostLogger{w: os.Stdout}
	return &hostHAL{
		logger:  logger,
		led:     &hostLED{logger: logger},
		console: &stdoutConsole{logger: logger},
		keys:    newTTYKeys(),
		t:       newHostTime(),
		store:   &fileTraceStore{path: "lark-trace.ltrc"},
	}
}

func (h *hostHAL) Logger() Logger         { return h.logger }
func (h *hostHAL) LED() LED               { return h.led }
func (h *hostHAL) Console() Console       { return h.console }
func (h *hostHAL) Keys() Keys             { return h.keys }
func (h *hostHAL) Time() Time             { return h.t }
func (h *hostHAL) TraceStore() TraceStore { return h.store }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	mu     sync.Mutex
	on     bool
	logger *hostLogger
}

func (l *hostLED) High() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.on {
		l.on = true
		l.logger.WriteLineString("led: HIGH")
	}
}

func (l *hostLED) Low() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.on {
		l.on = false
		l.logger.WriteLineString("led: LOW")
	}
}

type stdoutConsole struct {
	logger *hostLogger
}

func (c *stdoutConsole) WriteLine(s string) { c.logger.WriteLineString(s) }
func (c *stdoutConsole) Clear()             {}

type fileTraceStore struct {
	mu   sync.Mutex
	path string
}

func (s *fileTraceStore) Save(data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path, nil
	}
	return abs, nil
}
