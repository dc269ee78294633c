package kernel

const (
	// NumPriorities is the number of scheduling priority levels (0 = highest).
	NumPriorities = 64

	// PrioIdle is reserved for the kernel idle task and rejected for
	// application tasks.
	PrioIdle Prio = NumPriorities - 1

	taskSlots  = 32
	semSlots   = 16
	mutexSlots = 16

	// tickWheelSlots is the number of buckets in the delay wheel. Delays are
	// bucketed by expiry tick modulo this value; tasks whose remaining count
	// exceeds one wheel turn are decremented and left for a later pass.
	tickWheelSlots = 16

	defaultSliceTicks Tick = 10
)

// Opt is a bit set of per-call options for blocking operations.
type Opt uint8

const (
	// OptNonBlocking turns a pend that would block into an immediate
	// ErrWouldBlock.
	OptNonBlocking Opt = 1 << iota

	// OptNoSchedule defers the dispatch decision after a post to the
	// caller's next kernel call, so a batch of posts costs one reschedule.
	OptNoSchedule
)

// Config is the static option set recognized at kernel construction.
//
// RoundRobin and MutexRecursion are independent axes: enabling one has no
// effect on the other.
type Config struct {
	// MaxTasks caps the number of live application tasks. Zero means the
	// full capacity of the TCB table (minus the idle task).
	MaxTasks int

	// MutexRecursion allows the owner of a mutex to lock it again. When
	// disabled a re-lock by the owner fails with ErrSelfDeadlock.
	MutexRecursion bool

	// RoundRobin enables time slicing among tasks sharing a priority.
	RoundRobin bool

	// SliceTicks is the round-robin quantum. Zero selects the default.
	SliceTicks Tick

	// Recorder receives kernel trace events. Nil disables tracing.
	Recorder Recorder
}

func (c *Config) normalize() error {
	if c.MaxTasks <= 0 || c.MaxTasks > taskSlots-1 {
		c.MaxTasks = taskSlots - 1
	}
	if c.SliceTicks == 0 {
		c.SliceTicks = defaultSliceTicks
	}
	return nil
}
