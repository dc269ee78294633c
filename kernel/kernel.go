package kernel

// Kernel is the whole scheduling core: priority bitmap, TCB arena, ready
// and wait queues, tick wheel, and object pools. All of it is one struct
// initialized once at startup and torn down never; every field is guarded
// by the critical section except where noted.
type Kernel struct {
	faultState

	port Port
	cfg  Config
	rec  Recorder

	running       bool
	guardDepth    uint8
	intNest       uint8
	schedLockNest uint8
	tick          Tick

	prioTbl prioBitmap
	rdy     [NumPriorities]taskList
	wheel   [tickWheelSlots]int16

	tcbs      [taskSlots]tcb
	freeTask  int16
	taskCount int

	cur  int16
	idle int16

	sems    [semSlots]sem
	mutexes [mutexSlots]mutex
}

// TaskConfig describes a task to create. The kernel allocates nothing for
// the task: the TCB comes from the fixed arena and the execution stack is
// owned by the port.
type TaskConfig struct {
	Name     string
	Priority Prio
	Entry    func(*TaskContext)

	// SliceTicks overrides the kernel round-robin quantum for this task.
	// Zero inherits the configured default.
	SliceTicks Tick
}

// New builds a kernel on the given port. The idle task is created
// immediately at the reserved priority; nothing runs until Start.
func New(port Port, cfg Config) *Kernel {
	cfg.normalize()

	k := &Kernel{
		port: port,
		cfg:  cfg,
		rec:  cfg.Recorder,
		cur:  none,
		idle: none,
	}

	for i := range k.rdy {
		k.rdy[i].init()
	}
	for i := range k.wheel {
		k.wheel[i] = none
	}

	// Chain the TCB free list.
	for i := range k.tcbs {
		k.tcbs[i].reset()
		if i+1 < len(k.tcbs) {
			k.tcbs[i].next = int16(i + 1)
		}
	}
	k.freeTask = 0

	k.idle = k.spawn(TaskConfig{Name: "idle", Priority: PrioIdle}, k.idleEntry)
	return k
}

// Start dispatches the highest-priority ready task and begins multitasking.
// The calling context becomes the boot context; it is never scheduled again
// but returns normally so it can drive ticks or a UI loop.
func (k *Kernel) Start() error {
	k.enterCritical()
	if k.running {
		k.exitCritical()
		return ErrInvalidState
	}
	first := k.pickNext()
	k.tcbs[first].state = StateRunning
	k.cur = first
	k.running = true
	k.record(EvSwitch, 0xFF, uint16(first))
	k.exitCritical()

	k.port.Switch(BootContext, int(first))
	return nil
}

// Running reports whether Start has been called.
func (k *Kernel) Running() bool {
	k.enterCritical()
	r := k.running
	k.exitCritical()
	return r
}

// CreateTask registers a task and makes it Ready. Priority 63 is reserved
// for the idle task. Safe before or after Start; not legal from interrupt
// context.
func (k *Kernel) CreateTask(cfg TaskConfig) (Task, error) {
	if cfg.Entry == nil {
		return Task{idx: none}, ErrInvalidHandle
	}
	if cfg.Priority >= PrioIdle {
		return Task{idx: none}, ErrInvalidPriority
	}

	k.enterCritical()
	if k.intNest > 0 {
		k.exitCritical()
		return Task{idx: none}, ErrISRContext
	}
	if k.taskCount >= k.cfg.MaxTasks {
		k.exitCritical()
		return Task{idx: none}, ErrResourceExhausted
	}
	idx := k.spawnLocked(cfg, cfg.Entry)
	if idx == none {
		k.exitCritical()
		return Task{idx: none}, ErrResourceExhausted
	}
	k.taskCount++
	h := Task{idx: idx, gen: k.tcbs[idx].gen}
	k.exitCritical()

	k.schedule()
	return h, nil
}

// spawn allocates and readies a task outside the running system (idle task
// construction). Takes the critical section itself.
func (k *Kernel) spawn(cfg TaskConfig, entry func(*TaskContext)) int16 {
	k.enterCritical()
	idx := k.spawnLocked(cfg, entry)
	k.exitCritical()
	return idx
}

// spawnLocked does the real work of task creation. Requires the critical
// section.
func (k *Kernel) spawnLocked(cfg TaskConfig, entry func(*TaskContext)) int16 {
	idx := k.allocTask()
	if idx == none {
		return none
	}
	t := &k.tcbs[idx]
	t.name = cfg.Name
	t.basePrio = cfg.Priority
	t.prio = cfg.Priority
	t.state = StateReady
	t.entry = entry
	t.slice = cfg.SliceTicks
	if t.slice == 0 {
		t.slice = k.cfg.SliceTicks
	}
	t.sliceCtr = t.slice

	h := Task{idx: idx, gen: t.gen}
	k.port.InitContext(int(idx), k.taskBody(h, entry))
	k.rdyInsert(idx)
	return idx
}

// taskBody wraps a task entry with the kernel prologue/epilogue: wait for
// first dispatch handled by the port, exit on return, unwind cleanly if
// the slot is retired while parked.
func (k *Kernel) taskBody(h Task, entry func(*TaskContext)) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(taskRetired); ok {
					return
				}
				panic(r)
			}
		}()
		tc := &TaskContext{k: k, task: h}
		entry(tc)
		tc.Exit()
	}
}

// DeleteTask removes a task from every kernel structure and recycles its
// TCB slot. A task holding a mutex cannot be deleted. Deleting the current
// task does not return.
func (k *Kernel) DeleteTask(h Task) error {
	k.enterCritical()
	if k.intNest > 0 {
		k.exitCritical()
		return ErrISRContext
	}
	t, err := k.taskAt(h)
	if err != nil {
		k.exitCritical()
		return err
	}
	if h.idx == k.idle {
		k.exitCritical()
		return ErrInvalidState
	}
	if t.ownedMutex != none {
		k.exitCritical()
		return ErrInvalidState
	}

	self := h.idx == k.cur
	k.detachLocked(h.idx)
	t.state = StateDormant
	k.taskCount--
	k.freeTaskSlot(h.idx)
	k.exitCritical()

	k.port.Retire(int(h.idx))
	if self {
		k.dispatchNext()
		panic(taskRetired{})
	}
	k.schedule()
	return nil
}

// detachLocked removes a task from the ready queue, any wait queue, and
// the tick wheel. Requires the critical section.
func (k *Kernel) detachLocked(idx int16) {
	t := &k.tcbs[idx]
	switch t.state {
	case StateReady, StateRunning:
		k.rdyRemove(idx)
	case StateWaiting:
		if t.inWheel {
			k.wheelRemove(idx)
		}
		if l := k.pendListOf(t); l != nil {
			k.waitRemove(l, idx)
		}
		t.pendOn = pendNothing
		t.pendObj = none
	}
}

// pendListOf returns the wait queue a task is blocked on, or nil for a
// plain delay. Requires the critical section.
func (k *Kernel) pendListOf(t *tcb) *taskList {
	switch t.pendOn {
	case pendSem:
		if t.pendObj != none && k.sems[t.pendObj].gen == t.pendObjGen {
			return &k.sems[t.pendObj].waiters
		}
	case pendMutex:
		if t.pendObj != none && k.mutexes[t.pendObj].gen == t.pendObjGen {
			return &k.mutexes[t.pendObj].waiters
		}
	}
	return nil
}

// dispatchNext hands the CPU to the best ready task without parking the
// caller. Used on the exit path, where the calling context is going away.
func (k *Kernel) dispatchNext() {
	k.enterCritical()
	next := k.pickNext()
	from := k.cur
	k.tcbs[next].state = StateRunning
	k.cur = next
	k.record(EvSwitch, uint8(from), uint16(next))
	k.exitCritical()
	k.port.SwitchFromInterrupt(int(next))
}

// InterruptEnter marks entry into interrupt context. Every interrupt
// handler that calls kernel services must bracket them with
// InterruptEnter/InterruptExit; Tick does so itself.
func (k *Kernel) InterruptEnter() {
	k.enterCritical()
	if k.intNest < 0xFF {
		k.intNest++
	}
	k.exitCritical()
}

// InterruptExit leaves interrupt context and performs the scheduling
// decision deferred during the handler.
func (k *Kernel) InterruptExit() {
	k.enterCritical()
	if k.intNest == 0 {
		k.exitCritical()
		k.fault(FaultGuardImbalance, none, "interrupt exit without enter")
		return
	}
	k.intNest--
	if k.intNest == 0 && k.schedLockNest == 0 && k.running {
		next := k.pickNext()
		if next != k.cur {
			from := k.cur
			if from != none && k.tcbs[from].state == StateRunning {
				k.tcbs[from].state = StateReady
			}
			k.tcbs[next].state = StateRunning
			k.cur = next
			k.record(EvSwitch, uint8(from), uint16(next))
			k.exitCritical()
			k.port.SwitchFromInterrupt(int(next))
			return
		}
	}
	k.exitCritical()
}

// SchedLock disables preemption for the calling task. Locks nest.
func (k *Kernel) SchedLock() error {
	k.enterCritical()
	defer k.exitCritical()
	if k.intNest > 0 {
		return ErrISRContext
	}
	if k.schedLockNest == 0xFF {
		return ErrOverflow
	}
	k.schedLockNest++
	return nil
}

// SchedUnlock re-enables preemption; the outermost unlock reschedules.
func (k *Kernel) SchedUnlock() error {
	k.enterCritical()
	if k.schedLockNest == 0 {
		k.exitCritical()
		return ErrInvalidState
	}
	k.schedLockNest--
	resched := k.schedLockNest == 0
	k.exitCritical()
	if resched {
		k.schedule()
	}
	return nil
}

// TaskSuspend parks a task until a matching TaskResume. Suspends nest.
// Suspending a Waiting task takes effect when its wait completes.
func (k *Kernel) TaskSuspend(h Task) error {
	k.enterCritical()
	if k.intNest > 0 {
		k.exitCritical()
		return ErrISRContext
	}
	t, err := k.taskAt(h)
	if err != nil {
		k.exitCritical()
		return err
	}
	if h.idx == k.idle || t.state == StateDormant {
		k.exitCritical()
		return ErrInvalidState
	}
	if t.suspendCtr != 0xFF {
		t.suspendCtr++
	}
	self := h.idx == k.cur
	if t.state == StateReady || t.state == StateRunning {
		k.rdyRemove(h.idx)
		t.state = StateSuspended
	}
	k.record(EvSuspend, uint8(h.idx), 0)
	k.exitCritical()
	if self {
		k.schedule()
	}
	return nil
}

// TaskResume undoes one TaskSuspend; the task runs again when the last
// nested suspend is released.
func (k *Kernel) TaskResume(h Task) error {
	k.enterCritical()
	t, err := k.taskAt(h)
	if err != nil {
		k.exitCritical()
		return err
	}
	if t.suspendCtr == 0 {
		k.exitCritical()
		return ErrInvalidState
	}
	t.suspendCtr--
	if t.suspendCtr == 0 && t.state == StateSuspended {
		t.state = StateReady
		k.rdyInsert(h.idx)
	}
	k.record(EvResume, uint8(h.idx), 0)
	k.exitCritical()
	k.schedule()
	return nil
}

// TaskInfo is a read-only view of one task for diagnostics and UIs.
type TaskInfo struct {
	Name              string
	State             TaskState
	BasePriority      Prio
	EffectivePriority Prio
}

// TaskInfoOf returns the current view of a task.
func (k *Kernel) TaskInfoOf(h Task) (TaskInfo, error) {
	k.enterCritical()
	defer k.exitCritical()
	t, err := k.taskAt(h)
	if err != nil {
		return TaskInfo{}, err
	}
	return TaskInfo{
		Name:              t.name,
		State:             t.state,
		BasePriority:      t.basePrio,
		EffectivePriority: t.prio,
	}, nil
}

// Snapshot returns a view of every live task, idle included. It allocates
// and is meant for UIs and tests, not kernel paths.
func (k *Kernel) Snapshot() []TaskInfo {
	k.enterCritical()
	defer k.exitCritical()
	out := make([]TaskInfo, 0, k.taskCount+1)
	for i := range k.tcbs {
		t := &k.tcbs[i]
		if t.entry == nil && int16(i) != k.idle {
			continue
		}
		if t.state == StateDormant && t.name == "" {
			continue
		}
		out = append(out, TaskInfo{
			Name:              t.name,
			State:             t.state,
			BasePriority:      t.basePrio,
			EffectivePriority: t.prio,
		})
	}
	return out
}

// idleEntry runs when no application task is Ready. It only naps and lets
// the port decide what "waiting for an interrupt" means.
func (k *Kernel) idleEntry(tc *TaskContext) {
	for {
		tc.checkpoint()
		k.port.WaitForInterrupt()
	}
}
