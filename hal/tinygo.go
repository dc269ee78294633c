//go:build tinygo && baremetal

package hal

import (
	"machine"
	"time"
)

type tinyGoHAL struct {
	logger  *uartLogger
	led     *pinLED
	console Console
	keys    Keys
	t       *tinyGoTime
	store   TraceStore
}

// New returns a Pico 2 (RP2350) HAL implementation.
//
// UART: UART0 on GP0 (TX) / GP1 (RX), 115200 8N1. The LCD console and the
// SD trace store are optional: absent hardware degrades to the UART.
func New() HAL {
	uart := machine.UART0
	uart.Configure(machine.UARTConfig{
		BaudRate: 115200,
		TX:       machine.GP0,
		RX:       machine.GP1,
	})

	ledPin := machine.LED
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	logger := &uartLogger{uart: uart}
	h := &tinyGoHAL{
		logger: logger,
		led:    &pinLED{pin: ledPin},
		keys:   &uartKeys{uart: uart, ch: make(chan KeyEvent, 16)},
		t:      newTinyGoTime(),
		store:  nullTraceStore{},
	}

	if c := initDisplayConsole(); c != nil {
		h.console = c
	} else {
		h.console = &uartConsole{logger: logger}
	}
	if s := initSDTraceStore(); s != nil {
		h.store = s
	}
	if k, ok := h.keys.(*uartKeys); ok {
		k.start()
	}
	return h
}

func (h *tinyGoHAL) Logger() Logger         { return h.logger }
func (h *tinyGoHAL) LED() LED               { return h.led }
func (h *tinyGoHAL) Console() Console       { return h.console }
func (h *tinyGoHAL) Keys() Keys             { return h.keys }
func (h *tinyGoHAL) Time() Time             { return h.t }
func (h *tinyGoHAL) TraceStore() TraceStore { return h.store }

type uartLogger struct {
	uart *machine.UART
}

func (l *uartLogger) WriteLineString(s string) {
	for i := 0; i < len(s); i++ {
		l.uart.WriteByte(s[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

func (l *uartLogger) WriteLineBytes(b []byte) {
	for i := 0; i < len(b); i++ {
		l.uart.WriteByte(b[i])
	}
	l.uart.WriteByte('\r')
	l.uart.WriteByte('\n')
}

type pinLED struct {
	pin machine.Pin
}

func (l *pinLED) High() { l.pin.High() }
func (l *pinLED) Low()  { l.pin.Low() }

// uartConsole mirrors console lines onto the log UART when no display is
// fitted.
type uartConsole struct {
	logger *uartLogger
}

func (c *uartConsole) WriteLine(s string) { c.logger.WriteLineString(s) }
func (c *uartConsole) Clear()             {}

// uartKeys turns received UART bytes into key events.
type uartKeys struct {
	uart *machine.UART
	ch   chan KeyEvent
}

func (k *uartKeys) Events() <-chan KeyEvent { return k.ch }

func (k *uartKeys) start() {
	go func() {
		for {
			b, err := k.uart.ReadByte()
			if err != nil {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			select {
			case k.ch <- KeyEvent{Rune: rune(b)}:
			default:
			}
		}
	}()
}

type tinyGoTime struct {
	ch  chan uint64
	seq uint64
}

func newTinyGoTime() *tinyGoTime {
	t := &tinyGoTime{ch: make(chan uint64, 16)}
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			t.seq++
			select {
			case t.ch <- t.seq:
			default:
			}
		}
	}()
	return t
}

func (t *tinyGoTime) Ticks() <-chan uint64 { return t.ch }

type nullTraceStore struct{}

func (nullTraceStore) Save([]byte) (string, error) { return "", ErrNotImplemented }
