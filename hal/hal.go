// Package hal is the only contact point between the kernel demos and the
// outside world. Host builds use a desktop window or a terminal; TinyGo
// builds use real pins, a UART, and an SPI display.
package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

// Console is a line-oriented text output for demo status, separate from
// the log stream: on hardware it is the LCD, on host it is the window
// panel or stdout.
type Console interface {
	WriteLine(s string)
	Clear()
}

// KeyEvent is a keyboard event. Only runes are reported; the demos need
// single-key commands, not a full keymap.
type KeyEvent struct {
	Rune rune
}

// Keys provides key events (best-effort on each platform).
type Keys interface {
	Events() <-chan KeyEvent
}

// Time provides the kernel tick stream. The channel carries a monotonic
// sequence number; a slow consumer loses ticks rather than blocking the
// producer.
type Time interface {
	Ticks() <-chan uint64
}

// TraceStore persists a trace capture to platform storage.
type TraceStore interface {
	Save(data []byte) (location string, err error)
}

var ErrNotImplemented = errors.New("not implemented")

// HAL aggregates the platform services.
type HAL interface {
	Logger() Logger
	LED() LED
	Console() Console
	Keys() Keys
	Time() Time
	TraceStore() TraceStore
}
