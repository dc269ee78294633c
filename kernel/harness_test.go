package kernel

import (
	"sync"
	"testing"
	"time"
)

// memRecorder collects trace events for assertions.
type memRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *memRecorder) Record(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *memRecorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// stubPort is a port for tests that never actually switch contexts: all
// scheduling state changes are observed directly on the kernel.
type stubPort struct {
	mu sync.Mutex
}

func (p *stubPort) DisableInterrupts()      { p.mu.Lock() }
func (p *stubPort) EnableInterrupts()       { p.mu.Unlock() }
func (p *stubPort) InitContext(int, func()) {}
func (p *stubPort) Switch(int, int)         {}
func (p *stubPort) SwitchFromInterrupt(int) {}
func (p *stubPort) Park(int)                { panic("stub port parked") }
func (p *stubPort) Retire(int)              {}
func (p *stubPort) WaitForInterrupt()       { time.Sleep(time.Millisecond) }

func newStubKernel(cfg Config) *Kernel {
	return New(&stubPort{}, cfg)
}

// taskCtx fabricates a TaskContext for white-box tests that exercise
// task-context operations without starting the scheduler.
func taskCtx(k *Kernel, h Task) *TaskContext {
	return &TaskContext{k: k, task: h}
}

// mustCreate adds a task whose entry blocks forever if ever dispatched.
func mustCreate(t *testing.T, k *Kernel, name string, prio Prio) Task {
	t.Helper()
	h, err := k.CreateTask(TaskConfig{
		Name:     name,
		Priority: prio,
		Entry:    func(tc *TaskContext) { tc.Suspend() },
	})
	if err != nil {
		t.Fatalf("CreateTask(%s, prio %d) error = %v", name, prio, err)
	}
	return h
}

// stateOf reads a task's lifecycle state.
func stateOf(t *testing.T, k *Kernel, h Task) TaskState {
	t.Helper()
	info, err := k.TaskInfoOf(h)
	if err != nil {
		t.Fatalf("TaskInfoOf() error = %v", err)
	}
	return info.State
}

// waitUntil polls cond until it holds or the deadline passes. Used to
// synchronize with task goroutines on the simulation port.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(200 * time.Microsecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// waitForState polls until a task reaches the wanted state.
func waitForState(t *testing.T, k *Kernel, h Task, want TaskState) {
	t.Helper()
	waitUntil(t, "task state "+want.String(), func() bool {
		info, err := k.TaskInfoOf(h)
		return err == nil && info.State == want
	})
}
