package kernel

// Port is the hardware layer the kernel schedules through. The kernel never
// saves or restores execution contexts itself: it decides which slot should
// run and tells the port, always after leaving the critical section.
//
// Slot numbers are TCB arena indices. A from/to value of BootContext names
// the startup context, which is never parked.
type Port interface {
	// DisableInterrupts masks the kernel's preemption source. Calls are
	// not nested: the kernel brackets each operation with exactly one
	// disable/enable pair and passes protection inward by convention.
	DisableInterrupts()

	// EnableInterrupts restores the preemption source.
	EnableInterrupts()

	// InitContext prepares an execution context for a task slot. entry is
	// the full task body including kernel prologue/epilogue; it runs the
	// first time the slot is switched to.
	InitContext(slot int, entry func())

	// Switch transfers the CPU from one task context to another. Called
	// from task context with interrupts enabled; it must not return until
	// the from slot is dispatched again.
	Switch(from, to int)

	// SwitchFromInterrupt dispatches a slot from interrupt context. It
	// must not block; the preempted task is parked at its next kernel
	// entry via Park.
	SwitchFromInterrupt(to int)

	// Park blocks the calling task context until its slot is dispatched.
	Park(slot int)

	// Retire tears down a slot's context after its task exits. A parked
	// context must unwind rather than resume.
	Retire(slot int)

	// WaitForInterrupt is the idle hint; it may block briefly.
	WaitForInterrupt()
}

// BootContext is the pseudo-slot for the startup context that calls Start.
const BootContext = -1
