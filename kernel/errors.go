package kernel

// Err is a kernel error code.
//
// Codes are values, not wrapped chains: kernel paths are allocation-free, so
// every failure is reported as one of the constants below. Err implements
// error and works with errors.Is.
type Err uint8

const (
	errNone Err = iota

	// ErrInvalidPriority reports a priority outside 0..62 (63 is reserved
	// for the idle task).
	ErrInvalidPriority

	// ErrOverflow reports a semaphore post that would exceed the maximum
	// configured count.
	ErrOverflow

	// ErrTimedOut reports that a blocking call's tick timeout elapsed.
	ErrTimedOut

	// ErrDeleted reports that the object being waited on was destroyed
	// while the caller was blocked on it.
	ErrDeleted

	// ErrNotOwner reports an unlock attempt by a task that does not own
	// the mutex.
	ErrNotOwner

	// ErrSelfDeadlock reports a re-lock by the owner of a non-recursive
	// mutex.
	ErrSelfDeadlock

	// ErrWouldBlock reports a non-blocking call that could not complete
	// immediately.
	ErrWouldBlock

	// ErrResourceExhausted reports a full task or object table.
	ErrResourceExhausted

	// ErrInvalidHandle reports a stale or malformed task/object handle.
	ErrInvalidHandle

	// ErrInvalidState reports an operation that is illegal in the target's
	// current lifecycle state.
	ErrInvalidState

	// ErrNotRunning reports a call that requires Start to have been called.
	ErrNotRunning

	// ErrISRContext reports a potentially-blocking call from interrupt
	// context.
	ErrISRContext

	// ErrSchedulerLocked reports a blocking call while the scheduler is
	// locked.
	ErrSchedulerLocked
)

func (e Err) Error() string { return e.String() }

func (e Err) String() string {
	switch e {
	case errNone:
		return "ok"
	case ErrInvalidPriority:
		return "invalid priority"
	case ErrOverflow:
		return "semaphore count overflow"
	case ErrTimedOut:
		return "timed out"
	case ErrDeleted:
		return "object deleted"
	case ErrNotOwner:
		return "not mutex owner"
	case ErrSelfDeadlock:
		return "mutex already owned by caller"
	case ErrWouldBlock:
		return "would block"
	case ErrResourceExhausted:
		return "resource table full"
	case ErrInvalidHandle:
		return "invalid handle"
	case ErrInvalidState:
		return "invalid state"
	case ErrNotRunning:
		return "kernel not running"
	case ErrISRContext:
		return "blocking call from interrupt context"
	case ErrSchedulerLocked:
		return "scheduler locked"
	default:
		return "unknown"
	}
}
