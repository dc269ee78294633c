//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"lark/app"
	"lark/hal"
)

func main() {
	var (
		headless   = flag.Bool("headless", false, "Run without a window.")
		hz         = flag.Int("hz", 60, "Frame rate in headless mode.")
		frames     = flag.Uint64("frames", 0, "Stop after N frames in headless mode (0 = run forever).")
		demo       = flag.String("demo", "all", "Demo set: blink|producer|inversion|all.")
		roundRobin = flag.Bool("rr", false, "Enable round-robin time slicing.")
	)
	flag.Parse()

	cfg := app.Config{Demo: *demo, RoundRobin: *roundRobin}
	newApp := func(h hal.HAL) func() error {
		step, err := app.New(h, cfg)
		if err != nil {
			return func() error { return err }
		}
		return step
	}

	if *headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{Hz: *hz, Frames: *frames})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, app.ErrQuit) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := hal.RunWindow(newApp); err != nil && !errors.Is(err, app.ErrQuit) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
