//go:build !tinygo

package hal

import (
	"sync"

	"github.com/mattn/go-tty"
)

// ttyKeys reads single keystrokes from the controlling terminal without
// waiting for Enter. Used by the headless runner; the window runner has
// its own key source.
type ttyKeys struct {
	ch chan KeyEvent

	mu      sync.Mutex
	started bool
	t       *tty.TTY
}

func newTTYKeys() *ttyKeys {
	return &ttyKeys{ch: make(chan KeyEvent, 64)}
}

func (k *ttyKeys) Events() <-chan KeyEvent { return k.ch }

// start opens the terminal and begins delivering keystrokes. Not having a
// terminal (piped stdin, CI) is not an error; the key stream just stays
// silent.
func (k *ttyKeys) start() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.started {
		return
	}
	k.started = true

	t, err := tty.Open()
	if err != nil {
		return
	}
	k.t = t
	go func() {
		for {
			r, err := t.ReadRune()
			if err != nil {
				return
			}
			select {
			case k.ch <- KeyEvent{Rune: r}:
			default:
			}
		}
	}()
}

func (k *ttyKeys) stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.t != nil {
		k.t.Close()
		k.t = nil
	}
}
