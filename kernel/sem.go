package kernel

import "math"

// sem is a counting semaphore slot in the fixed pool.
type sem struct {
	gen     uint8
	inUse   bool
	count   uint32
	max     uint32
	waiters taskList
}

// Sem is a semaphore handle: pool index plus generation, so a handle to a
// deleted semaphore is rejected rather than aliasing a recycled slot.
type Sem struct {
	idx int16
	gen uint8
}

// Valid reports whether the handle came from a successful NewSemaphore.
func (s Sem) Valid() bool { return s.idx >= 0 && s.gen != 0 }

// semAt resolves a semaphore handle. Requires the critical section.
func (k *Kernel) semAt(s Sem) (*sem, error) {
	if s.idx < 0 || int(s.idx) >= len(k.sems) {
		return nil, ErrInvalidHandle
	}
	sp := &k.sems[s.idx]
	if !sp.inUse || sp.gen != s.gen {
		return nil, ErrInvalidHandle
	}
	return sp, nil
}

// NewSemaphore allocates a counting semaphore with an initial count and an
// upper bound. A max of zero means effectively unbounded.
func (k *Kernel) NewSemaphore(initial, max uint32) (Sem, error) {
	if max == 0 {
		max = math.MaxUint32
	}
	if initial > max {
		return Sem{idx: none}, ErrOverflow
	}
	k.enterCritical()
	defer k.exitCritical()
	for i := range k.sems {
		sp := &k.sems[i]
		if sp.inUse {
			continue
		}
		sp.inUse = true
		sp.gen++
		if sp.gen == 0 {
			sp.gen = 1
		}
		sp.count = initial
		sp.max = max
		sp.waiters.init()
		return Sem{idx: int16(i), gen: sp.gen}, nil
	}
	return Sem{idx: none}, ErrResourceExhausted
}

// SemCount returns the semaphore's current count.
func (k *Kernel) SemCount(s Sem) (uint32, error) {
	k.enterCritical()
	defer k.exitCritical()
	sp, err := k.semAt(s)
	if err != nil {
		return 0, err
	}
	return sp.count, nil
}

// SemPost signals the semaphore: the best waiter is handed the signal
// directly, otherwise the count increments. At the configured maximum the
// signal is refused with ErrOverflow and no state changes.
//
// From task context only; interrupt handlers use SemPostISR.
func (k *Kernel) SemPost(s Sem) error {
	return k.SemPostOpts(s, 0)
}

// SemPostOpts signals with options: OptNoSchedule readies the waiter but
// leaves the dispatch decision for the caller's next kernel call.
func (k *Kernel) SemPostOpts(s Sem, opts Opt) error {
	err := k.semPost(s)
	if err != nil {
		return err
	}
	if opts&OptNoSchedule == 0 {
		k.schedule()
	}
	return nil
}

// SemPostISR signals the semaphore from an interrupt handler, bracketing
// the post with InterruptEnter/InterruptExit so the woken task is
// dispatched on the way out.
func (k *Kernel) SemPostISR(s Sem) error {
	k.InterruptEnter()
	err := k.semPost(s)
	k.InterruptExit()
	return err
}

func (k *Kernel) semPost(s Sem) error {
	k.enterCritical()
	defer k.exitCritical()
	sp, err := k.semAt(s)
	if err != nil {
		return err
	}
	if w := sp.waiters.head; w != none {
		// Direct handoff: the signal never touches the count.
		k.pendWake(w, statusOK)
		k.record(EvPost, uint8(w), uint16(s.idx))
		return nil
	}
	if sp.count >= sp.max {
		return ErrOverflow
	}
	sp.count++
	k.record(EvPost, 0xFF, uint16(s.idx))
	return nil
}

// pendWake ends a semaphore or mutex wait with the given outcome: unlink
// from the wait queue, disarm any timeout, and ready the task (or leave it
// Suspended if a suspend is pending). Requires the critical section.
func (k *Kernel) pendWake(idx int16, st pendStatus) {
	t := &k.tcbs[idx]
	if l := k.pendListOf(t); l != nil {
		k.waitRemove(l, idx)
	}
	if t.inWheel {
		k.wheelRemove(idx)
	}
	t.pendOn = pendNothing
	t.pendObj = none
	t.pendStatus = st
	if t.suspendCtr > 0 {
		t.state = StateSuspended
		return
	}
	t.state = StateReady
	k.rdyInsert(idx)
	k.record(EvWake, uint8(idx), 0)
}

// SemPend takes one count from the semaphore, blocking while it is zero.
// A timeout of zero waits forever; OptNonBlocking fails immediately with
// ErrWouldBlock instead of waiting. Waiters are served in effective
// priority order, FIFO among equals.
func (tc *TaskContext) SemPend(s Sem, timeout Tick, opts Opt) error {
	tc.checkpoint()
	k := tc.k

	k.enterCritical()
	sp, err := k.semAt(s)
	if err != nil {
		k.exitCritical()
		return err
	}
	if sp.count > 0 {
		sp.count--
		k.record(EvPend, uint8(tc.task.idx), uint16(s.idx))
		k.exitCritical()
		return nil
	}
	if opts&OptNonBlocking != 0 {
		k.exitCritical()
		return ErrWouldBlock
	}
	if k.schedLockNest > 0 {
		k.exitCritical()
		return ErrSchedulerLocked
	}
	if !k.running {
		k.exitCritical()
		return ErrNotRunning
	}

	me := tc.task.idx
	t := &k.tcbs[me]
	k.rdyRemove(me)
	t.state = StateWaiting
	t.pendOn = pendSem
	t.pendObj = s.idx
	t.pendObjGen = s.gen
	t.pendStatus = statusPending
	if timeout > 0 {
		k.wheelInsert(me, timeout)
	}
	k.waitInsert(&sp.waiters, me)
	k.record(EvPend, uint8(me), uint16(s.idx))
	k.exitCritical()

	k.schedule()
	return tc.pendFinish()
}

// DeleteSemaphore destroys the semaphore. Every waiter is woken with
// ErrDeleted; outstanding handles go stale.
func (k *Kernel) DeleteSemaphore(s Sem) error {
	k.enterCritical()
	sp, err := k.semAt(s)
	if err != nil {
		k.exitCritical()
		return err
	}
	for sp.waiters.head != none {
		k.pendWake(sp.waiters.head, statusDeleted)
	}
	sp.inUse = false
	sp.count = 0
	k.exitCritical()

	k.schedule()
	return nil
}
