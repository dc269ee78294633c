package kernel

// EventKind tags a kernel trace event.
type EventKind uint8

const (
	EvSwitch EventKind = iota + 1
	EvTick
	EvDelay
	EvPend
	EvPost
	EvWake
	EvBoost
	EvRestore
	EvSuspend
	EvResume
	EvFault
)

func (e EventKind) String() string {
	switch e {
	case EvSwitch:
		return "switch"
	case EvTick:
		return "tick"
	case EvDelay:
		return "delay"
	case EvPend:
		return "pend"
	case EvPost:
		return "post"
	case EvWake:
		return "wake"
	case EvBoost:
		return "boost"
	case EvRestore:
		return "restore"
	case EvSuspend:
		return "suspend"
	case EvResume:
		return "resume"
	case EvFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Event is one fixed-size kernel trace record. Task is a TCB index (0xFF
// for none) and Arg is event-specific: the dispatched task for EvSwitch,
// the priority for EvBoost/EvRestore, the fault code for EvFault.
type Event struct {
	Tick Tick
	Kind EventKind
	Task uint8
	Arg  uint16
}

// Recorder consumes kernel trace events. Implementations must be
// non-blocking and allocation-free: Record is called from interrupt
// context while the critical section is held.
type Recorder interface {
	Record(Event)
}

// record emits a trace event if a recorder is configured. Requires the
// critical section (the tick counter is read directly).
func (k *Kernel) record(kind EventKind, task uint8, arg uint16) {
	if k.rec == nil {
		return
	}
	k.rec.Record(Event{Tick: k.tick, Kind: kind, Task: task, Arg: arg})
}
