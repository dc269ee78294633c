// Package trace captures kernel scheduling events into a fixed ring and
// serializes them for offline inspection with tracefmt.
package trace

import (
	"sync"

	"lark/kernel"
)

// DefaultDepth is the ring capacity used by NewRing when depth is zero.
const DefaultDepth = 1024

// Ring is a bounded event recorder. When full it overwrites the oldest
// entry, so the ring always holds the most recent window of activity.
// Record never blocks and never allocates after construction; readers may
// snapshot concurrently.
type Ring struct {
	mu      sync.Mutex
	buf     []kernel.Event
	next    int
	wrapped bool
	dropped uint64
}

// NewRing returns a ring holding up to depth events.
func NewRing(depth int) *Ring {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Ring{buf: make([]kernel.Event, depth)}
}

// Record implements kernel.Recorder.
func (r *Ring) Record(ev kernel.Event) {
	r.mu.Lock()
	if r.wrapped {
		r.dropped++
	}
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.wrapped = true
	}
	r.mu.Unlock()
}

// Len returns the number of events currently held.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wrapped {
		return len(r.buf)
	}
	return r.next
}

// Dropped returns how many events have been overwritten.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Snapshot copies the held events in arrival order, oldest first.
func (r *Ring) Snapshot() []kernel.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.wrapped {
		out := make([]kernel.Event, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]kernel.Event, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
