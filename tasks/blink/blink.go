// Package blink is the classic heartbeat demo: one task pulsing the LED
// with kernel delays.
package blink

import (
	"fmt"

	"lark/hal"
	"lark/kernel"
)

const (
	prio     = kernel.Prio(20)
	onTicks  = kernel.Tick(kernel.TicksPerSecond / 4)
	offTicks = kernel.Tick(3 * kernel.TicksPerSecond / 4)
)

// Register creates the blinker task.
func Register(k *kernel.Kernel, led hal.LED, console hal.Console) error {
	_, err := k.CreateTask(kernel.TaskConfig{
		Name:     "blink",
		Priority: prio,
		Entry: func(tc *kernel.TaskContext) {
			n := 0
			for {
				led.High()
				if err := tc.Delay(onTicks); err != nil {
					return
				}
				led.Low()
				if err := tc.Delay(offTicks); err != nil {
					return
				}
				n++
				if n%10 == 0 {
					console.WriteLine(fmt.Sprintf("blink: %d pulses", n))
				}
			}
		},
	})
	return err
}
