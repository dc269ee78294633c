package kernel

import (
	"errors"
	"testing"
)

func TestSemaphoreCountAccounting(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "t", 5)

	s, err := k.NewSemaphore(2, 10)
	if err != nil {
		t.Fatalf("NewSemaphore() error = %v", err)
	}

	// initial + 3 posts - 2 pends = 3
	for i := 0; i < 3; i++ {
		if err := k.SemPost(s); err != nil {
			t.Fatalf("SemPost() error = %v", err)
		}
	}
	tc := taskCtx(k, h)
	for i := 0; i < 2; i++ {
		if err := tc.SemPend(s, 0, 0); err != nil {
			t.Fatalf("SemPend() error = %v", err)
		}
	}
	if got, _ := k.SemCount(s); got != 3 {
		t.Fatalf("SemCount() = %d, want 3", got)
	}
}

func TestSemaphorePostAtMaxRefused(t *testing.T) {
	k := newStubKernel(Config{})

	s, err := k.NewSemaphore(2, 2)
	if err != nil {
		t.Fatalf("NewSemaphore() error = %v", err)
	}
	if err := k.SemPost(s); !errors.Is(err, ErrOverflow) {
		t.Fatalf("SemPost() at max error = %v, want %v", err, ErrOverflow)
	}
	if got, _ := k.SemCount(s); got != 2 {
		t.Fatalf("SemCount() = %d after refused post, want 2", got)
	}
}

func TestSemaphoreInitialAboveMax(t *testing.T) {
	k := newStubKernel(Config{})

	if _, err := k.NewSemaphore(5, 2); !errors.Is(err, ErrOverflow) {
		t.Fatalf("NewSemaphore(5, 2) error = %v, want %v", err, ErrOverflow)
	}
}

func TestSemaphoreNonBlockingEmpty(t *testing.T) {
	k := newStubKernel(Config{})
	h := mustCreate(t, k, "t", 5)

	s, _ := k.NewSemaphore(0, 0)
	tc := taskCtx(k, h)
	if err := tc.SemPend(s, 0, OptNonBlocking); !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("SemPend(OptNonBlocking) error = %v, want %v", err, ErrWouldBlock)
	}
}

func TestSemaphoreStaleHandle(t *testing.T) {
	k := newStubKernel(Config{})

	s, _ := k.NewSemaphore(1, 0)
	if err := k.DeleteSemaphore(s); err != nil {
		t.Fatalf("DeleteSemaphore() error = %v", err)
	}
	if err := k.SemPost(s); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("SemPost(deleted) error = %v, want %v", err, ErrInvalidHandle)
	}
	if _, err := k.SemCount(s); !errors.Is(err, ErrInvalidHandle) {
		t.Fatalf("SemCount(deleted) error = %v, want %v", err, ErrInvalidHandle)
	}
}

func TestSemaphorePoolExhaustion(t *testing.T) {
	k := newStubKernel(Config{})

	for i := 0; i < semSlots; i++ {
		if _, err := k.NewSemaphore(0, 0); err != nil {
			t.Fatalf("NewSemaphore() error = %v at slot %d", err, i)
		}
	}
	if _, err := k.NewSemaphore(0, 0); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("NewSemaphore() error = %v with full pool, want %v", err, ErrResourceExhausted)
	}
}

func TestSemaphoreWakesByPriority(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	s, _ := k.NewSemaphore(0, 0)
	order := make(chan string, 2)

	var hi, lo Task
	var err error
	lo, err = k.CreateTask(TaskConfig{Name: "lo", Priority: 10, Entry: func(tc *TaskContext) {
		if err := tc.SemPend(s, 0, 0); err != nil {
			t.Errorf("lo SemPend() error = %v", err)
		}
		order <- "lo"
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask(lo) error = %v", err)
	}
	hi, err = k.CreateTask(TaskConfig{Name: "hi", Priority: 5, Entry: func(tc *TaskContext) {
		if err := tc.SemPend(s, 0, 0); err != nil {
			t.Errorf("hi SemPend() error = %v", err)
		}
		order <- "hi"
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask(hi) error = %v", err)
	}

	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, hi, StateWaiting)
	waitForState(t, k, lo, StateWaiting)

	// lo pended first, but hi must be served first.
	if err := k.SemPostISR(s); err != nil {
		t.Fatalf("SemPostISR() error = %v", err)
	}
	if err := k.SemPostISR(s); err != nil {
		t.Fatalf("SemPostISR() error = %v", err)
	}

	for i, want := range []string{"hi", "lo"} {
		got := <-order
		if got != want {
			t.Fatalf("wake %d = %s, want %s", i, got, want)
		}
	}
}

func TestSemaphorePendTimeout(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	s, _ := k.NewSemaphore(0, 0)
	result := make(chan error, 1)

	h, err := k.CreateTask(TaskConfig{Name: "waiter", Priority: 5, Entry: func(tc *TaskContext) {
		result <- tc.SemPend(s, 5, 0)
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, h, StateWaiting)

	for i := 0; i < 4; i++ {
		k.Tick()
	}
	select {
	case err := <-result:
		t.Fatalf("SemPend() returned %v after 4 of 5 ticks", err)
	default:
	}
	k.Tick()

	if got := <-result; !errors.Is(got, ErrTimedOut) {
		t.Fatalf("SemPend() error = %v after timeout, want %v", got, ErrTimedOut)
	}
}

func TestSemaphorePostNoScheduleDefersDispatch(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	s, _ := k.NewSemaphore(0, 0)
	ctl, _ := k.NewSemaphore(0, 0)
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
		if err := tc.SemPend(ctl, 0, 0); err != nil {
			t.Errorf("lo SemPend(ctl) error = %v", err)
		}
		// hi is readied but must not run until lo's next kernel call.
		if err := tc.Kernel().SemPostOpts(s, OptNoSchedule); err != nil {
			t.Errorf("SemPostOpts() error = %v", err)
		}
		order <- "lo-posted"
		tc.Yield()
		order <- "lo-done"
		tc.Suspend()
	}}); err != nil {
		t.Fatalf("CreateTask(lo) error = %v", err)
	}
	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, hi, StateWaiting)
	if err := k.SemPostISR(ctl); err != nil {
		t.Fatalf("SemPostISR(ctl) error = %v", err)
	}

	want := []string{"lo-posted", "hi", "lo-done"}
	for i, w := range want {
		got := <-order
		if got != w {
			t.Fatalf("event %d = %s, want %s", i, got, w)
		}
	}
}

func TestSemaphoreDeleteWakesWaiters(t *testing.T) {
	port := NewSimPort()
	k := New(port, Config{})
	s, _ := k.NewSemaphore(0, 0)
	ctl, _ := k.NewSemaphore(0, 0)
	results := make(chan error, 2)

	newWaiter := func(name string, prio Prio) Task {
		h, err := k.CreateTask(TaskConfig{Name: name, Priority: prio, Entry: func(tc *TaskContext) {
			results <- tc.SemPend(s, 0, 0)
			tc.Suspend()
		}})
		if err != nil {
			t.Fatalf("CreateTask(%s) error = %v", name, err)
		}
		return h
	}
	w1 := newWaiter("w1", 10)
	w2 := newWaiter("w2", 11)

	_, err := k.CreateTask(TaskConfig{Name: "deleter", Priority: 5, Entry: func(tc *TaskContext) {
		if err := tc.SemPend(ctl, 0, 0); err != nil {
			t.Errorf("deleter SemPend(ctl) error = %v", err)
		}
		if err := tc.Kernel().DeleteSemaphore(s); err != nil {
			t.Errorf("DeleteSemaphore() error = %v", err)
		}
		tc.Suspend()
	}})
	if err != nil {
		t.Fatalf("CreateTask(deleter) error = %v", err)
	}

	if err := k.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitForState(t, k, w1, StateWaiting)
	waitForState(t, k, w2, StateWaiting)
	if err := k.SemPostISR(ctl); err != nil {
		t.Fatalf("SemPostISR(ctl) error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if got := <-results; !errors.Is(got, ErrDeleted) {
			t.Fatalf("SemPend() error = %v after delete, want %v", got, ErrDeleted)
		}
	}
}
