//go:build !tinygo

package hal

import (
	"context"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Hz is the frame rate driving tick generation. Defaults to 60.
	Hz int
	// Frames stops the runner after this many frames; zero runs forever.
	Frames uint64
}

// RunHeadless runs the system without opening a window: ticks are derived
// from wall time, keys come from the controlling terminal, console output
// goes to stdout. newApp receives the HAL and returns a per-frame step
// (nil to just idle); a step error stops the runner.
func RunHeadless(ctx context.Context, newApp func(HAL) func() error, cfg HeadlessConfig) error {
	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	d := time.Second / time.Duration(cfg.Hz)
	if d <= 0 {
		return fmt.Errorf("invalid headless hz: %d", cfg.Hz)
	}

	h := New().(*hostHAL)
	if k, ok := h.keys.(*ttyKeys); ok {
		k.start()
		defer k.stop()
	}
	step := newApp(h)

	t := time.NewTicker(d)
	defer t.Stop()

	var frame uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			h.t.step()
			if step != nil {
				if err := step(); err != nil {
					return err
				}
			}
			frame++
			if cfg.Frames > 0 && frame >= cfg.Frames {
				return nil
			}
		}
	}
}
