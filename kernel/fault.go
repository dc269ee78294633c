package kernel

import "sync/atomic"

// FaultCode classifies a detected kernel invariant violation.
type FaultCode uint8

const (
	// FaultDoubleLink means a task was inserted into a queue it was
	// already linked into.
	FaultDoubleLink FaultCode = iota + 1
	// FaultBitmapMismatch means the priority bitmap and ready queues
	// disagreed during a scheduling decision.
	FaultBitmapMismatch
	// FaultGuardImbalance means critical section enters and exits did
	// not pair up.
	FaultGuardImbalance
	// FaultPhantomWake means a blocked task resumed without any waker
	// recording an outcome.
	FaultPhantomWake
)

func (c FaultCode) String() string {
	switch c {
	case FaultDoubleLink:
		return "task linked twice"
	case FaultBitmapMismatch:
		return "bitmap/queue mismatch"
	case FaultGuardImbalance:
		return "critical section imbalance"
	case FaultPhantomWake:
		return "phantom wakeup"
	default:
		return "unknown"
	}
}

// FaultInfo describes a kernel corruption event. Scheduling cannot safely
// continue past one, so faults are reported through a handler rather than
// an error return.
type FaultInfo struct {
	Code   FaultCode
	Task   int
	Detail string
}

// SetFaultHandler installs a corruption handler for this kernel.
//
// The handler is invoked at most once (on the first fault) and must not
// call back into the kernel. Without a handler the kernel panics, since
// continuing to schedule over corrupt state is worse than stopping.
func (k *Kernel) SetFaultHandler(fn func(FaultInfo)) {
	k.faultFn.Store(fn)
}

// Faulted reports whether a kernel corruption has been detected.
func (k *Kernel) Faulted() bool {
	return k.faulted.Load()
}

// fault reports a corruption. Safe with or without the critical section;
// only the first report fires the handler.
func (k *Kernel) fault(code FaultCode, task int16, detail string) {
	k.record(EvFault, uint8(task), uint16(code))
	if k.faulted.Swap(true) {
		return
	}
	info := FaultInfo{Code: code, Task: int(task), Detail: detail}
	if v := k.faultFn.Load(); v != nil {
		if fn, ok := v.(func(FaultInfo)); ok && fn != nil {
			fn(info)
			return
		}
	}
	panic("kernel corruption: " + code.String() + ": " + detail)
}

// faulted/faultFn live here rather than in kernel.go so the corruption
// path is self-contained.
type faultState struct {
	faulted atomic.Bool
	faultFn atomic.Value // func(FaultInfo)
}
