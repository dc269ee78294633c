package kernel

// mutex is an ownership lock slot with priority inheritance. Slots live in
// a fixed pool; ownerNext threads the list of mutexes held by one task so
// unlock can recompute the owner's effective priority from the locks it
// still holds.
type mutex struct {
	gen       uint8
	inUse     bool
	owner     int16 // TCB index, none when free
	lockCount uint8
	ownerNext int16
	waiters   taskList
}

// Mutex is a mutex handle: pool index plus generation.
type Mutex struct {
	idx int16
	gen uint8
}

// Valid reports whether the handle came from a successful NewMutex.
func (m Mutex) Valid() bool { return m.idx >= 0 && m.gen != 0 }

// mutexAt resolves a mutex handle. Requires the critical section.
func (k *Kernel) mutexAt(m Mutex) (*mutex, error) {
	if m.idx < 0 || int(m.idx) >= len(k.mutexes) {
		return nil, ErrInvalidHandle
	}
	mp := &k.mutexes[m.idx]
	if !mp.inUse || mp.gen != m.gen {
		return nil, ErrInvalidHandle
	}
	return mp, nil
}

// NewMutex allocates an unlocked mutex from the pool.
func (k *Kernel) NewMutex() (Mutex, error) {
	k.enterCritical()
	defer k.exitCritical()
	for i := range k.mutexes {
		mp := &k.mutexes[i]
		if mp.inUse {
			continue
		}
		mp.inUse = true
		mp.gen++
		if mp.gen == 0 {
			mp.gen = 1
		}
		mp.owner = none
		mp.lockCount = 0
		mp.ownerNext = none
		mp.waiters.init()
		return Mutex{idx: int16(i), gen: mp.gen}, nil
	}
	return Mutex{idx: none}, ErrResourceExhausted
}

// MutexOwner returns the current owner, with ok false when unlocked.
func (k *Kernel) MutexOwner(m Mutex) (Task, bool, error) {
	k.enterCritical()
	defer k.exitCritical()
	mp, err := k.mutexAt(m)
	if err != nil {
		return Task{idx: none}, false, err
	}
	if mp.owner == none {
		return Task{idx: none}, false, nil
	}
	return Task{idx: mp.owner, gen: k.tcbs[mp.owner].gen}, true, nil
}

// ownedPush records the mutex in its owner's held-locks list. Requires the
// critical section.
func (k *Kernel) ownedPush(owner int16, midx int16) {
	k.mutexes[midx].ownerNext = k.tcbs[owner].ownedMutex
	k.tcbs[owner].ownedMutex = midx
}

// ownedRemove takes the mutex out of its owner's held-locks list. Requires
// the critical section.
func (k *Kernel) ownedRemove(owner int16, midx int16) {
	t := &k.tcbs[owner]
	if t.ownedMutex == midx {
		t.ownedMutex = k.mutexes[midx].ownerNext
	} else {
		for i := t.ownedMutex; i != none; i = k.mutexes[i].ownerNext {
			if k.mutexes[i].ownerNext == midx {
				k.mutexes[i].ownerNext = k.mutexes[midx].ownerNext
				break
			}
		}
	}
	k.mutexes[midx].ownerNext = none
}

// inheritedPrio computes a task's correct effective priority: its base,
// raised to the most urgent waiter across every mutex it still holds.
// Requires the critical section.
func (k *Kernel) inheritedPrio(idx int16) Prio {
	p := k.tcbs[idx].basePrio
	for mi := k.tcbs[idx].ownedMutex; mi != none; mi = k.mutexes[mi].ownerNext {
		if w := k.mutexes[mi].waiters.head; w != none && k.tcbs[w].prio < p {
			p = k.tcbs[w].prio
		}
	}
	return p
}

// setEffectivePrio applies a new effective priority, relocating the task
// between ready queues when it is queued. Requires the critical section.
func (k *Kernel) setEffectivePrio(idx int16, p Prio) {
	t := &k.tcbs[idx]
	if t.prio == p {
		return
	}
	if t.state == StateReady || t.state == StateRunning {
		k.rdyChangePrio(idx, p)
		return
	}
	// Waiting or suspended: no queue to fix up. A task blocked on another
	// mutex keeps its wait-queue position; the chain re-sorts when that
	// wait ends.
	t.prio = p
}

// invalidateOwnedLocked destroys every mutex the exiting task still
// holds. An abandoned critical section cannot be handed to a waiter
// safely, so waiters fail with ErrDeleted and the handles go stale, as if
// each lock had been deleted. Requires the critical section.
func (k *Kernel) invalidateOwnedLocked(idx int16) {
	t := &k.tcbs[idx]
	for t.ownedMutex != none {
		mi := t.ownedMutex
		mp := &k.mutexes[mi]
		for mp.waiters.head != none {
			k.pendWake(mp.waiters.head, statusDeleted)
		}
		t.ownedMutex = mp.ownerNext
		mp.owner = none
		mp.lockCount = 0
		mp.ownerNext = none
		mp.inUse = false
	}
	t.prio = t.basePrio
}

// MutexLock acquires the mutex, blocking while another task owns it. While
// a more urgent task waits, the owner runs at the waiter's priority so a
// middle-priority task cannot starve it. Re-locking by the owner either
// nests (MutexRecursion enabled) or fails with ErrSelfDeadlock.
func (tc *TaskContext) MutexLock(m Mutex, timeout Tick, opts Opt) error {
	tc.checkpoint()
	k := tc.k
	me := tc.task.idx

	k.enterCritical()
	mp, err := k.mutexAt(m)
	if err != nil {
		k.exitCritical()
		return err
	}

	if mp.owner == none {
		mp.owner = me
		mp.lockCount = 1
		k.ownedPush(me, m.idx)
		k.exitCritical()
		return nil
	}

	if mp.owner == me {
		defer k.exitCritical()
		if !k.cfg.MutexRecursion {
			return ErrSelfDeadlock
		}
		if mp.lockCount == 0xFF {
			return ErrOverflow
		}
		mp.lockCount++
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

	// Lend our priority to the owner before blocking behind it.
	t := &k.tcbs[me]
	if t.prio < k.tcbs[mp.owner].prio {
		k.setEffectivePrio(mp.owner, t.prio)
		k.record(EvBoost, uint8(mp.owner), uint16(t.prio))
	}

	k.rdyRemove(me)
	t.state = StateWaiting
	t.pendOn = pendMutex
	t.pendObj = m.idx
	t.pendObjGen = m.gen
	t.pendStatus = statusPending
	if timeout > 0 {
		k.wheelInsert(me, timeout)
	}
	k.waitInsert(&mp.waiters, me)
	k.record(EvPend, uint8(me), uint16(m.idx))
	k.exitCritical()

	k.schedule()
	return tc.pendFinish()
}

// MutexUnlock releases the mutex. Any inherited priority is shed down to
// what the remaining held locks justify, then ownership passes directly to
// the most urgent waiter.
func (tc *TaskContext) MutexUnlock(m Mutex) error {
	tc.checkpoint()
	k := tc.k
	me := tc.task.idx

	k.enterCritical()
	mp, err := k.mutexAt(m)
	if err != nil {
		k.exitCritical()
		return err
	}
	if mp.owner != me {
		k.exitCritical()
		return ErrNotOwner
	}
	if mp.lockCount > 1 {
		mp.lockCount--
		k.exitCritical()
		return nil
	}

	k.ownedRemove(me, m.idx)
	if p := k.inheritedPrio(me); p != k.tcbs[me].prio {
		k.setEffectivePrio(me, p)
		k.record(EvRestore, uint8(me), uint16(p))
	}

	if w := mp.waiters.head; w != none {
		// Hand the lock to the best waiter before it runs.
		mp.owner = w
		mp.lockCount = 1
		k.pendWake(w, statusOK)
		k.ownedPush(w, m.idx)
	} else {
		mp.owner = none
		mp.lockCount = 0
	}
	k.record(EvPost, uint8(me), uint16(m.idx))
	k.exitCritical()

	k.schedule()
	return nil
}

// DeleteMutex destroys the mutex. Waiters wake with ErrDeleted; a live
// owner sheds any priority inherited through this lock.
func (k *Kernel) DeleteMutex(m Mutex) error {
	k.enterCritical()
	mp, err := k.mutexAt(m)
	if err != nil {
		k.exitCritical()
		return err
	}

	for mp.waiters.head != none {
		k.pendWake(mp.waiters.head, statusDeleted)
	}
	if mp.owner != none {
		owner := mp.owner
		k.ownedRemove(owner, m.idx)
		if p := k.inheritedPrio(owner); p != k.tcbs[owner].prio {
			k.setEffectivePrio(owner, p)
			k.record(EvRestore, uint8(owner), uint16(p))
		}
	}
	mp.inUse = false
	mp.owner = none
	mp.lockCount = 0
	k.exitCritical()

	k.schedule()
	return nil
}
