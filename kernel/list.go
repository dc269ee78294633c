package kernel

// taskList is an intrusive doubly-linked list threaded through the TCB
// arena. The same shape backs both ready queues (next/prev links, FIFO)
// and wait queues (pendNext/pendPrev links, priority order); the link
// accessors below select which pair a given list uses.
type taskList struct {
	head, tail int16
}

func (l *taskList) init() {
	l.head = none
	l.tail = none
}

func (l *taskList) empty() bool { return l.head == none }

// pushTail appends idx using the ready links. The slot must be unlinked.
func (k *Kernel) listPushTail(l *taskList, idx int16) {
	t := &k.tcbs[idx]
	if t.next != none || t.prev != none || l.head == idx {
		k.fault(FaultDoubleLink, idx, "ready list insert of linked task")
		return
	}
	t.next = none
	t.prev = l.tail
	if l.tail != none {
		k.tcbs[l.tail].next = idx
	} else {
		l.head = idx
	}
	l.tail = idx
}

// listRemove unlinks idx using the ready links.
func (k *Kernel) listRemove(l *taskList, idx int16) {
	t := &k.tcbs[idx]
	if t.prev != none {
		k.tcbs[t.prev].next = t.next
	} else if l.head == idx {
		l.head = t.next
	}
	if t.next != none {
		k.tcbs[t.next].prev = t.prev
	} else if l.tail == idx {
		l.tail = t.prev
	}
	t.next = none
	t.prev = none
}

// waitInsert inserts idx into a wait queue ordered by effective priority,
// FIFO among equal priorities (strictly-less comparison keeps arrival order).
func (k *Kernel) waitInsert(l *taskList, idx int16) {
	t := &k.tcbs[idx]
	if t.pendNext != none || t.pendPrev != none || l.head == idx {
		k.fault(FaultDoubleLink, idx, "wait list insert of linked task")
		return
	}

	cur := l.head
	var prev int16 = none
	for cur != none {
		if t.prio < k.tcbs[cur].prio {
			break
		}
		prev = cur
		cur = k.tcbs[cur].pendNext
	}

	t.pendPrev = prev
	t.pendNext = cur
	if prev != none {
		k.tcbs[prev].pendNext = idx
	} else {
		l.head = idx
	}
	if cur != none {
		k.tcbs[cur].pendPrev = idx
	} else {
		l.tail = idx
	}
}

// waitRemove unlinks idx from a wait queue.
func (k *Kernel) waitRemove(l *taskList, idx int16) {
	t := &k.tcbs[idx]
	if t.pendPrev != none {
		k.tcbs[t.pendPrev].pendNext = t.pendNext
	} else if l.head == idx {
		l.head = t.pendNext
	}
	if t.pendNext != none {
		k.tcbs[t.pendNext].pendPrev = t.pendPrev
	} else if l.tail == idx {
		l.tail = t.pendPrev
	}
	t.pendNext = none
	t.pendPrev = none
}
