package kernel

import (
	"sync"
	"time"
)

// SimPort runs each task context on its own goroutine behind a one-token
// resume gate, with a mutex standing in for the interrupt mask. It is the
// port used on both host and TinyGo builds; a real silicon port would
// replace it with interrupt masking and stacked context switches.
//
// Fidelity note: a context switch initiated from interrupt context cannot
// stop a goroutine mid-flight, so a preempted task keeps executing until its
// next kernel call, where the prologue parks it. Kernel state itself (queues,
// states, current task) always transitions atomically under the mask; only
// the instruction stream of the displaced goroutine lags. Gate tokens stay
// balanced because a slot receives exactly one token per dispatch and
// consumes exactly one per park.
type SimPort struct {
	mask sync.Mutex

	gateMu sync.Mutex
	gates  [taskSlots]chan struct{}
}

// taskRetired unwinds a parked goroutine whose slot was retired. The task
// entry wrapper recovers it; it never escapes the kernel.
type taskRetired struct{}

// NewSimPort returns a goroutine-backed simulation port.
func NewSimPort() *SimPort {
	return &SimPort{}
}

func (p *SimPort) DisableInterrupts() { p.mask.Lock() }
func (p *SimPort) EnableInterrupts()  { p.mask.Unlock() }

func (p *SimPort) gate(slot int) chan struct{} {
	p.gateMu.Lock()
	g := p.gates[slot]
	p.gateMu.Unlock()
	return g
}

// InitContext starts the slot's goroutine. The goroutine waits for its
// first dispatch token before running the task body.
func (p *SimPort) InitContext(slot int, entry func()) {
	g := make(chan struct{}, 1)
	p.gateMu.Lock()
	p.gates[slot] = g
	p.gateMu.Unlock()

	go func() {
		if _, ok := <-g; !ok {
			return
		}
		entry()
	}()
}

func (p *SimPort) resume(slot int) {
	g := p.gate(slot)
	if g == nil {
		return
	}
	select {
	case g <- struct{}{}:
	default:
		// Token already pending; the slot will run when it parks.
	}
}

func (p *SimPort) Switch(from, to int) {
	if to >= 0 {
		p.resume(to)
	}
	if from >= 0 {
		p.Park(from)
	}
}

func (p *SimPort) SwitchFromInterrupt(to int) {
	if to >= 0 {
		p.resume(to)
	}
}

func (p *SimPort) Park(slot int) {
	g := p.gate(slot)
	if g == nil {
		panic(taskRetired{})
	}
	if _, ok := <-g; !ok {
		panic(taskRetired{})
	}
}

// Retire closes the slot's gate so a parked goroutine unwinds. The exiting
// task's own goroutine simply returns from entry.
func (p *SimPort) Retire(slot int) {
	p.gateMu.Lock()
	g := p.gates[slot]
	p.gates[slot] = nil
	p.gateMu.Unlock()
	if g != nil {
		close(g)
	}
}

// WaitForInterrupt naps the idle task so the simulation does not spin a
// host CPU at 100%.
func (p *SimPort) WaitForInterrupt() {
	time.Sleep(200 * time.Microsecond)
}
