package kernel

// TaskContext is the capability handed to a task's entry function. Every
// operation that only makes sense from the running task hangs off it, so
// "call from task context" is enforced by construction rather than by a
// runtime check.
type TaskContext struct {
	k    *Kernel
	task Task
}

// Task returns the handle of the task this context belongs to.
func (tc *TaskContext) Task() Task { return tc.task }

// Kernel returns the owning kernel, for ISR-safe calls like SemPost.
func (tc *TaskContext) Kernel() *Kernel { return tc.k }

// checkpoint parks the caller if an interrupt preempted it since its last
// kernel call. Every TaskContext operation passes through here, and a
// long-running task can call it directly to bound preemption latency.
func (tc *TaskContext) checkpoint() {
	k := tc.k
	for {
		k.enterCritical()
		if !k.running || k.cur == tc.task.idx {
			k.exitCritical()
			return
		}
		k.exitCritical()
		k.port.Park(int(tc.task.idx))
	}
}

// Checkpoint is the exported preemption point for tasks that compute for
// a long stretch without otherwise calling into the kernel.
func (tc *TaskContext) Checkpoint() { tc.checkpoint() }

// Yield offers the CPU to other tasks of the same priority. Without a
// same-priority peer it returns immediately.
func (tc *TaskContext) Yield() {
	tc.checkpoint()
	tc.k.yieldCurrent()
}

// Delay blocks the task for the given number of ticks. Delay(0) is a no-op.
func (tc *TaskContext) Delay(ticks Tick) error {
	tc.checkpoint()
	return tc.k.delayCurrent(ticks)
}

// DelayHMSM blocks for hours, minutes, seconds, and milliseconds, rounded
// to the tick rate. A zero total is a no-op.
func (tc *TaskContext) DelayHMSM(hours, minutes, seconds, millis int) error {
	if hours < 0 || minutes < 0 || seconds < 0 || millis < 0 {
		return ErrInvalidState
	}
	total := ((int64(hours)*60+int64(minutes))*60+int64(seconds))*1000 + int64(millis)
	ticks := Tick(total * TicksPerSecond / 1000)
	return tc.Delay(ticks)
}

// Suspend parks the calling task until another task resumes it.
func (tc *TaskContext) Suspend() error {
	tc.checkpoint()
	return tc.k.TaskSuspend(tc.task)
}

// Exit terminates the calling task. The TCB stays allocated in the Dormant
// state until DeleteTask reclaims it; returning from the entry function is
// equivalent. Any mutex the task still holds is invalidated, waking its
// waiters with ErrDeleted. Never returns.
func (tc *TaskContext) Exit() {
	tc.checkpoint()
	k := tc.k
	k.enterCritical()
	me := k.cur
	t := &k.tcbs[me]
	k.rdyRemove(me)
	k.invalidateOwnedLocked(me)
	t.state = StateDormant
	k.exitCritical()

	k.port.Retire(int(me))
	k.dispatchNext()
	panic(taskRetired{})
}

// pendFinish reads and clears the outcome a waker left for this task and
// maps it to the caller's return value. A task that resumes from a pend
// with no recorded outcome was woken by nothing, which is corruption.
func (tc *TaskContext) pendFinish() error {
	k := tc.k
	k.enterCritical()
	t := &k.tcbs[tc.task.idx]
	st := t.pendStatus
	t.pendStatus = statusNone
	k.exitCritical()

	switch st {
	case statusOK:
		return nil
	case statusTimedOut:
		return ErrTimedOut
	case statusDeleted:
		return ErrDeleted
	default:
		k.fault(FaultPhantomWake, tc.task.idx, "pend resumed without outcome")
		return ErrInvalidState
	}
}
