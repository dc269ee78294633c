//go:build !tinygo

package hal

import "time"

// tickDur is the host tick period: 100 Hz to match the kernel's nominal
// rate.
const tickDur = 10 * time.Millisecond

type hostTime struct {
	ch  chan uint64
	seq uint64

	last time.Time
	acc  time.Duration
}

func newHostTime() *hostTime {
	return &hostTime{ch: make(chan uint64, 1024)}
}

func (t *hostTime) Ticks() <-chan uint64 { return t.ch }

// step converts elapsed wall time into tick events. The frame runners call
// it once per frame; accumulated remainder carries over so the average
// rate stays at 100 Hz regardless of frame timing.
func (t *hostTime) step() {
	now := time.Now()
	if t.last.IsZero() {
		t.last = now
		t.emit(1)
		return
	}

	t.acc += now.Sub(t.last)
	t.last = now

	n := uint64(t.acc / tickDur)
	if n == 0 {
		return
	}
	t.acc = t.acc % tickDur
	t.emit(n)
}

func (t *hostTime) emit(n uint64) {
	for i := uint64(0); i < n; i++ {
		t.seq++
		select {
		case t.ch <- t.seq:
		default:
		}
	}
}
