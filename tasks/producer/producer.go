// Package producer is a semaphore demo: a periodic producer signals work,
// a higher-priority consumer drains it, and a shared counter is guarded by
// a mutex.
package producer

import (
	"fmt"

	"lark/hal"
	"lark/kernel"
)

const (
	producerPrio = kernel.Prio(15)
	consumerPrio = kernel.Prio(12)

	producePeriod = kernel.Tick(kernel.TicksPerSecond / 10)
	reportEvery   = 20
)

// Register creates the producer/consumer pair.
func Register(k *kernel.Kernel, console hal.Console) error {
	work, err := k.NewSemaphore(0, 64)
	if err != nil {
		return err
	}
	counterMu, err := k.NewMutex()
	if err != nil {
		return err
	}
	var produced, consumed int

	_, err = k.CreateTask(kernel.TaskConfig{
		Name:     "producer",
		Priority: producerPrio,
		Entry: func(tc *kernel.TaskContext) {
			for {
				if err := tc.Delay(producePeriod); err != nil {
					return
				}
				if err := tc.MutexLock(counterMu, 0, 0); err != nil {
					return
				}
				produced++
				if err := tc.MutexUnlock(counterMu); err != nil {
					return
				}
				// A full queue drops the signal; the consumer outruns the
				// producer so this stays theoretical.
				if err := k.SemPost(work); err != nil && err != kernel.ErrOverflow {
					return
				}
			}
		},
	})
	if err != nil {
		return err
	}

	_, err = k.CreateTask(kernel.TaskConfig{
		Name:     "consumer",
		Priority: consumerPrio,
		Entry: func(tc *kernel.TaskContext) {
			for {
				if err := tc.SemPend(work, 0, 0); err != nil {
					return
				}
				if err := tc.MutexLock(counterMu, 0, 0); err != nil {
					return
				}
				consumed++
				n, p := consumed, produced
				if err := tc.MutexUnlock(counterMu); err != nil {
					return
				}
				if n%reportEvery == 0 {
					console.WriteLine(fmt.Sprintf("producer: %d made, %d consumed", p, n))
				}
			}
		},
	})
	return err
}
