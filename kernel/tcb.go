package kernel

// TaskState is a task lifecycle state.
type TaskState uint8

const (
	// StateDormant marks an unused or exited TCB slot.
	StateDormant TaskState = iota
	// StateReady marks a task queued for execution.
	StateReady
	// StateRunning marks the single task that owns the CPU.
	StateRunning
	// StateWaiting marks a task blocked on a delay, semaphore, or mutex.
	StateWaiting
	// StateSuspended marks a task parked by an explicit suspend request.
	StateSuspended
)

func (s TaskState) String() string {
	switch s {
	case StateDormant:
		return "dormant"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// pendKind identifies what a waiting task is blocked on.
type pendKind uint8

const (
	pendNothing pendKind = iota
	pendDelay
	pendSem
	pendMutex
)

// pendStatus is the outcome slot a waker writes before readying a blocked
// task. statusPending means no waker has claimed the task yet; exactly one
// of post/unlock/timeout/delete may move it past statusPending.
type pendStatus uint8

const (
	statusNone pendStatus = iota
	statusPending
	statusOK
	statusTimedOut
	statusDeleted
)

// none terminates intrusive list links in the TCB arena.
const none int16 = -1

// Task is a handle to a task control block. Handles are plain values:
// an arena index plus a generation counter so a handle left behind in a
// wait list cannot alias a recycled slot.
type Task struct {
	idx int16
	gen uint8
}

// Valid reports whether the handle was produced by a successful CreateTask.
// It does not check liveness; a deleted task's handle stays structurally
// valid but is rejected by kernel calls.
func (t Task) Valid() bool { return t.idx >= 0 && t.gen != 0 }

// tcb is a task control block. All links are arena indices; the arena is
// fixed at construction and slots are recycled through a free list.
type tcb struct {
	name string
	gen  uint8

	state      TaskState
	basePrio   Prio
	prio       Prio // effective priority; numerically <= basePrio when boosted
	suspendCtr uint8

	// ready list links (per-priority FIFO)
	next, prev int16

	// wait list links (per-object, effective-priority order)
	pendNext, pendPrev int16
	pendOn             pendKind
	pendObj            int16
	pendObjGen         uint8
	pendStatus         pendStatus

	// tick wheel links
	tickNext, tickPrev int16
	tickRemain         Tick
	tickSlot           uint8
	inWheel            bool

	// round-robin accounting
	slice    Tick
	sliceCtr Tick

	// head of the list of mutexes this task currently owns
	ownedMutex int16

	entry func(*TaskContext)
}

// reset clears a TCB for reuse, preserving the generation counter.
func (t *tcb) reset() {
	gen := t.gen
	*t = tcb{
		gen:        gen,
		next:       none,
		prev:       none,
		pendNext:   none,
		pendPrev:   none,
		tickNext:   none,
		tickPrev:   none,
		pendObj:    none,
		ownedMutex: none,
	}
}

// taskAt resolves a handle against the arena. Requires the critical section.
func (k *Kernel) taskAt(t Task) (*tcb, error) {
	if t.idx < 0 || int(t.idx) >= len(k.tcbs) {
		return nil, ErrInvalidHandle
	}
	tc := &k.tcbs[t.idx]
	if tc.gen != t.gen {
		return nil, ErrInvalidHandle
	}
	return tc, nil
}

// allocTask pops a free TCB slot. Requires the critical section.
func (k *Kernel) allocTask() int16 {
	idx := k.freeTask
	if idx == none {
		return none
	}
	k.freeTask = k.tcbs[idx].next
	t := &k.tcbs[idx]
	t.reset()
	t.gen++
	if t.gen == 0 {
		t.gen = 1
	}
	return idx
}

// freeTaskSlot returns a Dormant TCB to the free list and bumps its
// generation so outstanding handles go stale. Requires the critical section.
func (k *Kernel) freeTaskSlot(idx int16) {
	t := &k.tcbs[idx]
	gen := t.gen + 1
	if gen == 0 {
		gen = 1
	}
	t.reset()
	t.gen = gen
	t.entry = nil
	t.next = k.freeTask
	k.freeTask = idx
}
