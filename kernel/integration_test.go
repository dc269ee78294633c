package kernel

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
)

func TestYieldAlternatesPeers(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	order := make(chan string, 6)

	spin := func(name string) func(*TaskContext) {
		return func(tc *TaskContext) {
			for i := 0; i < 3; i++ {
				order <- name
				tc.Yield()
			}
			tc.Suspend()
		}
	}
	if _, err := k.CreateTask(TaskConfig{Name: "a", Priority: 7, Entry: spin("a")}); err != nil {
		t.Fatalf("CreateTask(a) error = %v", err)
	}
	if _, err := k.CreateTask(TaskConfig{Name: "b", Priority: 7, Entry: spin("b")}); err != nil {
		t.Fatalf("CreateTask(b) error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	want := []string{"a", "b", "a", "b", "a", "b"}
	for i, w := range want {
		got := <-order
		if got != w {
			t.Fatalf("turn %d = %s, want %s", i, got, w)
		}
	}
}

func TestRoundRobinSharesCPU(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{RoundRobin: true, SliceTicks: 2})
	var counts [2]uint32
	var stop uint32

	body := func(slot int) func(*TaskContext) {
		return func(tc *TaskContext) {
			for atomic.LoadUint32(&stop) == 0 {
				atomic.AddUint32(&counts[slot], 1)
				tc.checkpoint()
			}
			tc.Suspend()
		}
	}
	defer atomic.StoreUint32(&stop, 1)
	if _, err := k.CreateTask(TaskConfig{Name: "r0", Priority: 7, Entry: body(0)}); err != nil {
		t.Fatalf("CreateTask(r0) error = %v", err)
	}
	if _, err := k.CreateTask(TaskConfig{Name: "r1", Priority: 7, Entry: body(1)}); err != nil {
		t.Fatalf("CreateTask(r1) error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	waitUntil(t, "first runner to make progress", func() bool {
		return atomic.LoadUint32(&counts[0]) > 0
	})
	// Without ticks the second runner must be starved: same priority,
	// FIFO, no quantum expiry yet.
	if got := atomic.LoadUint32(&counts[1]); got != 0 {
		t.Fatalf("runner 1 count = %d before any tick, want 0", got)
	}

	waitUntil(t, "both runners to share the CPU", func() bool {
		k.Tick()
		k.Tick()
		return atomic.LoadUint32(&counts[0]) > 0 && atomic.LoadUint32(&counts[1]) > 0
	})
}

func TestRoundRobinRotatesThreeTasks(t *testing.T) {
	rec := &memRecorder{}
	port := NewSimPort()
	k := New(port, Config{RoundRobin: true, SliceTicks: 2, Recorder: rec})
	var stop uint32

	body := func(tc *TaskContext) {
		for atomic.LoadUint32(&stop) == 0 {
			tc.Checkpoint()
		}
		tc.Suspend()
	}
	var hs [3]Task
	for i := range hs {
		h, err := k.CreateTask(TaskConfig{Name: fmt.Sprintf("r%d", i), Priority: 7, Entry: body})
		if err != nil {
			t.Fatalf("CreateTask(r%d) error = %v", i, err)
		}
		hs[i] = h
	}
	defer atomic.StoreUint32(&stop, 1)
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// Two-tick quantum: every second tick rotates to the next peer.
	for i := 0; i < 12; i++ {
		k.Tick()
	}

	var got []int16
	for _, ev := range rec.snapshot() {
		if ev.Kind == EvSwitch && ev.Tick > 0 {
			got = append(got, int16(ev.Arg))
		}
	}
	want := []int16{hs[1].idx, hs[2].idx, hs[0].idx, hs[1].idx, hs[2].idx, hs[0].idx}
	if len(got) < len(want) {
		t.Fatalf("saw %d slice switches after 12 ticks, want at least %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i] != w {
			t.Fatalf("switch %d dispatched task %d, want %d (strict rotation)", i, got[i], w)
		}
	}
}

func TestSingleRunningInvariant(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{RoundRobin: true, SliceTicks: 1})
	var stop uint32

	body := func(tc *TaskContext) {
		for atomic.LoadUint32(&stop) == 0 {
			tc.Checkpoint()
		}
		tc.Suspend()
	}
	defer atomic.StoreUint32(&stop, 1)
	for i := 0; i < 3; i++ {
		if _, err := k.CreateTask(TaskConfig{Name: fmt.Sprintf("s%d", i), Priority: 7, Entry: body}); err != nil {
			t.Fatalf("CreateTask(s%d) error = %v", i, err)
		}
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// One-tick quantum forces a dispatch per tick; at no point may the
	// registry show more than one task in the Running state.
	for i := 0; i < 500; i++ {
		k.Tick()
		running := 0
		for _, ti := range k.Snapshot() {
			if ti.State == StateRunning {
				running++
			}
		}
		if running > 1 {
			t.Fatalf("tick %d: %d tasks Running, want at most 1", i, running)
		}
	}
}

func TestDelayResumesAfterTicks(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	woke := make(chan Tick, 1)

	h, err := k.CreateTask(TaskConfig{Name: "sleeper", Priority: 5, Entry: func(tc *TaskContext) {
		if err := tc.Delay(3); err != nil {
			t.Errorf("Delay() error = %v", err)
		}
		woke <- tc.Kernel().TickCount()
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, h, StateWaiting)

	for i := 0; i < 3; i++ {
		k.Tick()
	}
	if at := <-woke; at != 3 {
		t.Fatalf("woke at tick %d, want 3", at)
	}
}

func TestTaskReturnGoesDormant(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})

	h, err := k.CreateTask(TaskConfig{Name: "oneshot", Priority: 5, Entry: func(tc *TaskContext) {}})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, h, StateDormant)

	// Dormant task is still addressable until deleted.
	if err := k.DeleteTask(h); err != nil {
		t.Fatalf("DeleteTask(dormant) error = %v", err)
	}
	if _, err := k.TaskInfoOf(h); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("TaskInfoOf(deleted) error = %v, want %v", err, ErrInvalidHandle)
	}
}

func TestSchedLockDefersPreemption(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	s, _ := k.NewSemaphore(0, 0)
	order := make(chan string, 3)

	hi, err := k.CreateTask(TaskConfig{Name: "hi", Priority: 3, Entry: func(tc *TaskContext) {
		if err := tc.SemPend(s, 0, 0); err != nil {
			t.Errorf("hi SemPend() error = %v", err)
		}
		order <- "hi"
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask(hi) error = %v", err)
	}
	if _, err := k.CreateTask(TaskConfig{Name: "lo", Priority: 10, Entry: func(tc *TaskContext) {
		if err := tc.Kernel().SchedLock(); err != nil {
			t.Errorf("SchedLock() error = %v", err)
		}
		// Waking hi must not preempt while the scheduler is locked.
		if err := tc.Kernel().SemPost(s); err != nil {
			t.Errorf("SemPost() error = %v", err)
		}
		order <- "lo-posted"
		order <- "lo-done"
		if err := tc.Kernel().SchedUnlock(); err != nil {
			t.Errorf("SchedUnlock() error = %v", err)
		}
		tc.Suspend()
	}}); err != nil {
		t.Fatalf("CreateTask(lo) error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, hi, StateWaiting)

	want := []string{"lo-posted", "lo-done", "hi"}
	for i, w := range want {
		got := <-order
		if got != w {
			t.Fatalf("event %d = %s, want %s", i, got, w)
		}
	}
}
