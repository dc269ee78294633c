package kernel

// Ready queue maintenance and the scheduling decision. The bitmap and the
// per-priority FIFOs must agree at all times: a set bit with an empty queue
// is corruption, not a recoverable condition.

// rdyInsert queues a task at the tail of its priority's ready list and
// marks the bitmap. Requires the critical section.
func (k *Kernel) rdyInsert(idx int16) {
	p := k.tcbs[idx].prio
	k.listPushTail(&k.rdy[p], idx)
	k.prioTbl.set(p)
}

// rdyRemove unlinks a task from its priority's ready list, clearing the
// bitmap bit when the list drains. Requires the critical section.
func (k *Kernel) rdyRemove(idx int16) {
	p := k.tcbs[idx].prio
	k.listRemove(&k.rdy[p], idx)
	if k.rdy[p].empty() {
		k.prioTbl.clear(p)
	}
}

// rdyChangePrio moves a ready or running task between priority queues.
// The task re-enters at the tail of the destination queue. Requires the
// critical section.
func (k *Kernel) rdyChangePrio(idx int16, p Prio) {
	k.rdyRemove(idx)
	k.tcbs[idx].prio = p
	k.rdyInsert(idx)
}

// pickNext returns the TCB index that should own the CPU: the head of the
// highest marked priority queue. The idle task is always ready, so an
// empty bitmap or a marked-but-empty queue is corruption. Requires the
// critical section.
func (k *Kernel) pickNext() int16 {
	p, ok := k.prioTbl.highest()
	if !ok {
		k.fault(FaultBitmapMismatch, none, "no priority marked ready")
		return k.idle
	}
	head := k.rdy[p].head
	if head == none {
		k.fault(FaultBitmapMismatch, none, "marked priority has empty queue")
		return k.idle
	}
	return head
}

// schedule runs the scheduling decision from task context. It is a no-op
// before Start, inside an interrupt (the decision is deferred to
// InterruptExit), and under a scheduler lock. When a better task is ready
// the caller's context is parked inside the port until it is dispatched
// again; calling it when the current task is already the best ready task
// does nothing.
func (k *Kernel) schedule() {
	k.enterCritical()
	if !k.running || k.intNest > 0 || k.schedLockNest > 0 {
		k.exitCritical()
		return
	}
	next := k.pickNext()
	if next == k.cur {
		k.exitCritical()
		return
	}
	from := k.cur
	if from != none && k.tcbs[from].state == StateRunning {
		k.tcbs[from].state = StateReady
	}
	k.tcbs[next].state = StateRunning
	k.cur = next
	k.record(EvSwitch, uint8(from), uint16(next))
	k.exitCritical()

	k.port.Switch(int(from), int(next))

	// A racing interrupt may have re-dispatched someone else between the
	// decision and the switch, leaving a stale resume token. Park until
	// this task is genuinely current again.
	for {
		k.enterCritical()
		if k.cur == from {
			k.exitCritical()
			return
		}
		k.exitCritical()
		k.port.Park(int(from))
	}
}

// yieldCurrent rotates the current task to the tail of its priority queue
// and reschedules, giving same-priority peers a turn. With no peers it is
// a no-op.
func (k *Kernel) yieldCurrent() {
	k.enterCritical()
	cur := k.cur
	if cur == none {
		k.exitCritical()
		return
	}
	l := &k.rdy[k.tcbs[cur].prio]
	if l.head == cur && l.head != l.tail {
		k.listRemove(l, cur)
		k.listPushTail(l, cur)
		if t := &k.tcbs[cur]; t.slice != 0 {
			t.sliceCtr = t.slice
		}
	}
	k.exitCritical()
	k.schedule()
}
