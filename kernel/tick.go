package kernel

// Tick counts kernel time slices. It wraps; all comparisons in the kernel
// are on remaining counts, never absolute values, so wraparound is free.
type Tick uint32

// TicksPerSecond is the nominal tick rate assumed by DelayHMSM. Ports
// drive Tick at this rate on both host and TinyGo builds.
const TicksPerSecond = 100

// TickCount returns the number of ticks since Start.
func (k *Kernel) TickCount() Tick {
	k.enterCritical()
	v := k.tick
	k.exitCritical()
	return v
}

// Tick is the kernel tick interrupt handler: it advances time, expires
// delays and timeouts, charges the running task's slice, and performs the
// resulting context switch on the way out. Call it from the platform's
// timer interrupt (or the host tick loop); it brackets itself with
// InterruptEnter/InterruptExit.
func (k *Kernel) Tick() {
	k.InterruptEnter()
	k.enterCritical()
	k.tick++
	k.record(EvTick, 0xFF, 0)
	k.wheelExpire()
	if k.cfg.RoundRobin {
		k.sliceCharge()
	}
	k.exitCritical()
	k.InterruptExit()
}

// wheelInsert arms a task's delay or timeout. The bucket is the expiry
// tick modulo the wheel size, so a bucket is visited exactly once per
// wheel turn; entries with more than one turn remaining are decremented
// in place rather than moved. Requires the critical section.
func (k *Kernel) wheelInsert(idx int16, ticks Tick) {
	t := &k.tcbs[idx]
	slot := uint8((k.tick + ticks) % tickWheelSlots)
	t.tickRemain = ticks
	t.tickSlot = slot
	t.tickPrev = none
	t.tickNext = k.wheel[slot]
	if t.tickNext != none {
		k.tcbs[t.tickNext].tickPrev = idx
	}
	k.wheel[slot] = idx
	t.inWheel = true
}

// wheelRemove disarms a task's delay or timeout. Requires the critical
// section.
func (k *Kernel) wheelRemove(idx int16) {
	t := &k.tcbs[idx]
	if !t.inWheel {
		return
	}
	if t.tickPrev != none {
		k.tcbs[t.tickPrev].tickNext = t.tickNext
	} else {
		k.wheel[t.tickSlot] = t.tickNext
	}
	if t.tickNext != none {
		k.tcbs[t.tickNext].tickPrev = t.tickPrev
	}
	t.tickNext = none
	t.tickPrev = none
	t.tickRemain = 0
	t.inWheel = false
}

// wheelExpire walks the current tick's bucket. An entry within one wheel
// turn of expiry wakes now; anything further out pays down one turn and
// stays put. Requires the critical section.
func (k *Kernel) wheelExpire() {
	slot := uint8(k.tick % tickWheelSlots)
	idx := k.wheel[slot]
	for idx != none {
		next := k.tcbs[idx].tickNext
		if k.tcbs[idx].tickRemain <= tickWheelSlots {
			k.wheelRemove(idx)
			k.timeoutWake(idx)
		} else {
			k.tcbs[idx].tickRemain -= tickWheelSlots
		}
		idx = next
	}
}

// timeoutWake ends a wait because its time ran out: a completed delay, or
// a semaphore/mutex pend that expires with statusTimedOut. The task goes
// Ready unless a suspend is pending on it. Requires the critical section.
func (k *Kernel) timeoutWake(idx int16) {
	t := &k.tcbs[idx]
	switch t.pendOn {
	case pendDelay:
		t.pendStatus = statusNone
	case pendSem, pendMutex:
		if l := k.pendListOf(t); l != nil {
			k.waitRemove(l, idx)
		}
		t.pendStatus = statusTimedOut
	default:
		return
	}
	t.pendOn = pendNothing
	t.pendObj = none
	if t.suspendCtr > 0 {
		t.state = StateSuspended
		return
	}
	t.state = StateReady
	k.rdyInsert(idx)
	k.record(EvWake, uint8(idx), 0)
}

// sliceCharge burns one tick of the running task's quantum and rotates it
// behind same-priority peers when the quantum is spent. The actual switch
// happens in InterruptExit. Requires the critical section.
func (k *Kernel) sliceCharge() {
	cur := k.cur
	if cur == none || cur == k.idle {
		return
	}
	t := &k.tcbs[cur]
	if t.sliceCtr > 0 {
		t.sliceCtr--
	}
	if t.sliceCtr > 0 {
		return
	}
	t.sliceCtr = t.slice
	l := &k.rdy[t.prio]
	if l.head == cur && l.head != l.tail {
		k.listRemove(l, cur)
		k.listPushTail(l, cur)
	}
}

// delayCurrent blocks the calling task for the given number of ticks.
// Zero is a no-op. Requires task context; the idle task may not delay.
func (k *Kernel) delayCurrent(ticks Tick) error {
	if ticks == 0 {
		return nil
	}
	k.enterCritical()
	if k.intNest > 0 {
		k.exitCritical()
		return ErrISRContext
	}
	if k.schedLockNest > 0 {
		k.exitCritical()
		return ErrSchedulerLocked
	}
	if !k.running {
		k.exitCritical()
		return ErrNotRunning
	}
	me := k.cur
	if me == none || me == k.idle {
		k.exitCritical()
		return ErrInvalidState
	}
	t := &k.tcbs[me]
	k.rdyRemove(me)
	t.state = StateWaiting
	t.pendOn = pendDelay
	k.wheelInsert(me, ticks)
	k.record(EvDelay, uint8(me), uint16(ticks))
	k.exitCritical()

	k.schedule()
	return nil
}
