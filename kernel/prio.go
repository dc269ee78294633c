package kernel

import "math/bits"

// Prio is a scheduling priority level. 0 is the most urgent, 63 the least.
type Prio uint8

// prioBitmap tracks which priority levels have at least one ready task.
//
// Two-level layout: bit g of groups is set when any bit of words[g] is set,
// so the highest (numerically lowest) ready priority is found with two
// trailing-zero counts regardless of population.
type prioBitmap struct {
	groups uint8
	words  [8]uint8
}

// set marks a priority level as having a ready task. Idempotent.
func (b *prioBitmap) set(p Prio) {
	b.words[p>>3] |= 1 << (p & 7)
	b.groups |= 1 << (p >> 3)
}

// clear marks a priority level as empty. Idempotent; clearing an already
// clear bit is a safe no-op since task and interrupt context may race to it.
func (b *prioBitmap) clear(p Prio) {
	g := p >> 3
	b.words[g] &^= 1 << (p & 7)
	if b.words[g] == 0 {
		b.groups &^= 1 << g
	}
}

// isSet reports whether priority p has a ready task.
func (b *prioBitmap) isSet(p Prio) bool {
	return b.words[p>>3]&(1<<(p&7)) != 0
}

// highest returns the numerically lowest set priority, or false if no bit
// is set. O(1): one trailing-zero count per level.
func (b *prioBitmap) highest() (Prio, bool) {
	if b.groups == 0 {
		return 0, false
	}
	g := uint8(bits.TrailingZeros8(b.groups))
	w := uint8(bits.TrailingZeros8(b.words[g]))
	return Prio(g<<3 | w), true
}

// empty reports whether no priority is marked ready.
func (b *prioBitmap) empty() bool {
	return b.groups == 0
}
