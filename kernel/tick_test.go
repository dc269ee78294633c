package kernel

import (
	"errors"
	"testing"
)

// sleepTask moves a ready task into a pure delay wait, as Delay would from
// task context.
func sleepTask(k *Kernel, idx int16, ticks Tick) {
	k.enterCritical()
	t := &k.tcbs[idx]
	k.rdyRemove(idx)
	t.state = StateWaiting
	t.pendOn = pendDelay
	k.wheelInsert(idx, ticks)
	k.exitCritical()
}

func TestTickAdvancesCounter(t *testing.T) {
	k := newStubKernel(Config{})

	for i := 0; i < 5; i++ {
		k.Tick()
	}
	if got := k.TickCount(); got != 5 {
		t.Fatalf("TickCount() = %d, want 5", got)
	}
}

func TestDelayExpiresExactly(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "sleeper", 5)

	sleepTask(k, h.idx, 5)
	for i := 0; i < 4; i++ {
		k.Tick()
		if got := stateOf(t, k, h); got != StateWaiting {
			t.Fatalf("state = %v after %d of 5 ticks, want %v", got, i+1, StateWaiting)
		}
	}
	k.Tick()
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after 5 ticks, want %v", got, StateReady)
	}
}

func TestDelayLongerThanWheelTurn(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "sleeper", 5)

	// 40 ticks spans two full wheel turns plus a remainder; the bucket is
	// visited at ticks 8, 24, and 40.
	sleepTask(k, h.idx, 40)
	for i := 0; i < 39; i++ {
		k.Tick()
		if got := stateOf(t, k, h); got != StateWaiting {
			t.Fatalf("state = %v after %d of 40 ticks, want %v", got, i+1, StateWaiting)
		}
	}
	k.Tick()
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after 40 ticks, want %v", got, StateReady)
	}
}

func TestDelayAcrossTickWraparound(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "sleeper", 5)

	k.enterCritical()
	k.tick = ^Tick(0) - 2
	k.exitCritical()

	sleepTask(k, h.idx, 6)
	for i := 0; i < 5; i++ {
		k.Tick()
		if got := stateOf(t, k, h); got != StateWaiting {
			t.Fatalf("state = %v after %d of 6 ticks across wrap, want %v", got, i+1, StateWaiting)
		}
	}
	k.Tick()
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after wrap, want %v", got, StateReady)
	}
}

func TestWheelRemoveCancelsDelay(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "sleeper", 5)

	sleepTask(k, h.idx, 3)
	k.enterCritical()
	k.wheelRemove(h.idx)
	k.tcbs[h.idx].pendOn = pendNothing
	k.tcbs[h.idx].state = StateReady
	k.rdyInsert(h.idx)
	k.exitCritical()

	for i := 0; i < 8; i++ {
		k.Tick()
	}
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after cancelled delay, want %v", got, StateReady)
	}
}

func TestSuspendedSleeperStaysSuspended(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "sleeper", 5)

	sleepTask(k, h.idx, 2)
	if err := k.TaskSuspend(h); err != nil {
		t.Fatalf("TaskSuspend() error = %v", err)
	}
	k.Tick()
	k.Tick()
	if got := stateOf(t, k, h); got != StateSuspended {
		t.Fatalf("state = %v after delay expired under suspend, want %v", got, StateSuspended)
	}
	if err := k.TaskResume(h); err != nil {
		t.Fatalf("TaskResume() error = %v", err)
	}
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after resume, want %v", got, StateReady)
	}
}

func TestDelayZeroIsNoOp(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "t", 5)

	tc := taskCtx(k, h)
	if err := tc.Delay(0); err != nil {
		t.Fatalf("Delay(0) error = %v, want nil", err)
	}
	if got := stateOf(t, k, h); got != StateReady {
		t.Fatalf("state = %v after Delay(0), want %v", got, StateReady)
	}
}

func TestDelayBeforeStartRejected(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "t", 5)

	tc := taskCtx(k, h)
	if err := tc.Delay(5); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("Delay() before Start error = %v, want %v", err, ErrNotRunning)
	}
}

func TestDelayHMSMRejectsNegative(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "t", 5)

	tc := taskCtx(k, h)
	if err := tc.DelayHMSM(0, -1, 0, 0); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("DelayHMSM(negative) error = %v, want %v", err, ErrInvalidState)
	}
}
