// Package inversion stages the textbook priority-inversion scenario on a
// repeating schedule so the inheritance machinery is visible in the trace:
// a low task holds a mutex through its slow section, a high task contends
// for it, and a middle task tries to squeeze in between.
package inversion

import (
	"fmt"

	"lark/hal"
	"lark/kernel"
)

const (
	highPrio = kernel.Prio(8)
	midPrio  = kernel.Prio(16)
	lowPrio  = kernel.Prio(24)

	cyclePeriod = kernel.Tick(2 * kernel.TicksPerSecond)
	holdTicks   = kernel.Tick(kernel.TicksPerSecond / 2)
)

// Register creates the three-task scenario.
func Register(k *kernel.Kernel, console hal.Console) error {
	m, err := k.NewMutex()
	if err != nil {
		return err
	}
	cycle := 0

	_, err = k.CreateTask(kernel.TaskConfig{
		Name:     "inv-low",
		Priority: lowPrio,
		Entry: func(tc *kernel.TaskContext) {
			for {
				if err := tc.MutexLock(m, 0, 0); err != nil {
					return
				}
				// Slow critical section. The high task blocks partway
				// through, lending its priority until the unlock.
				if err := tc.Delay(holdTicks); err != nil {
					return
				}
				cycle++
				if err := tc.MutexUnlock(m); err != nil {
					return
				}
				if err := tc.Delay(cyclePeriod); err != nil {
					return
				}
			}
		},
	})
	if err != nil {
		return err
	}

	_, err = k.CreateTask(kernel.TaskConfig{
		Name:     "inv-high",
		Priority: highPrio,
		Entry: func(tc *kernel.TaskContext) {
			// Offset so the low task grabs the mutex first each cycle.
			if err := tc.Delay(holdTicks / 2); err != nil {
				return
			}
			for {
				if err := tc.MutexLock(m, 0, 0); err != nil {
					return
				}
				n := cycle
				if err := tc.MutexUnlock(m); err != nil {
					return
				}
				console.WriteLine(fmt.Sprintf("inversion: cycle %d, high got the lock", n))
				if err := tc.Delay(cyclePeriod); err != nil {
					return
				}
			}
		},
	})
	if err != nil {
		return err
	}

	_, err = k.CreateTask(kernel.TaskConfig{
		Name:     "inv-mid",
		Priority: midPrio,
		Entry: func(tc *kernel.TaskContext) {
			for {
				// Busy-ish middle load; without inheritance this would
				// starve the low task while high waits on the mutex.
				if err := tc.Delay(cyclePeriod / 4); err != nil {
					return
				}
				tc.Checkpoint()
			}
		},
	})
	return err
}
