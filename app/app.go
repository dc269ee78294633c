// Package app wires the kernel to a HAL and runs the demo task sets.
package app

import (
	"bytes"
	"errors"
	"fmt"

	"lark/hal"
	"lark/kernel"
	"lark/tasks/blink"
	"lark/tasks/inversion"
	"lark/tasks/producer"
	"lark/trace"
)

// Config selects what runs on top of the kernel.
type Config struct {
	// Demo is one of "blink", "producer", "inversion", or "all" (default).
	Demo string

	// RoundRobin enables time slicing among equal-priority tasks.
	RoundRobin bool

	// TraceDepth overrides the trace ring capacity. Zero uses the default.
	TraceDepth int
}

// ErrQuit reports that the user pressed the quit key. Runners stop the
// frame loop; it is not a failure.
var ErrQuit = errors.New("quit requested")

type system struct {
	h    hal.HAL
	k    *kernel.Kernel
	ring *trace.Ring

	quit       bool
	lastStatus kernel.Tick
}

// New boots the kernel on h and returns a per-frame step function for the
// host runners. The step drains pending ticks and keys; returning an error
// stops the frame loop.
func New(h hal.HAL, cfg Config) (func() error, error) {
	s, err := newSystem(h, cfg)
	if err != nil {
		return nil, err
	}
	ticks := h.Time().Ticks()
	keys := h.Keys().Events()
	return func() error {
		for {
			select {
			case <-ticks:
				s.k.Tick()
			default:
				return s.frameTail(keys)
			}
		}
	}, nil
}

// Run boots the kernel on h and drives it from the tick stream, blocking
// forever. This is the TinyGo entrypoint.
func Run(h hal.HAL, cfg Config) error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return err
	}
	ticks := h.Time().Ticks()
	keys := h.Keys().Events()
	for {
		select {
		case <-ticks:
			s.k.Tick()
		case ev := <-keys:
			s.handleKey(ev)
		}
		if s.quit {
			return ErrQuit
		}
		if s.k.Faulted() {
			return fmt.Errorf("kernel fault")
		}
		s.status()
	}
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	ring := trace.NewRing(cfg.TraceDepth)
	k := kernel.New(kernel.NewSimPort(), kernel.Config{
		RoundRobin:     cfg.RoundRobin,
		MutexRecursion: true,
		Recorder:       ring,
	})
	s := &system{h: h, k: k, ring: ring}

	k.SetFaultHandler(func(fi kernel.FaultInfo) {
		h.Logger().WriteLineString(fmt.Sprintf("kernel fault: %s (task %d): %s", fi.Code, fi.Task, fi.Detail))
	})

	demo := cfg.Demo
	if demo == "" {
		demo = "all"
	}
	if demo == "blink" || demo == "all" {
		if err := blink.Register(k, h.LED(), h.Console()); err != nil {
			return nil, fmt.Errorf("blink: %w", err)
		}
	}
	if demo == "producer" || demo == "all" {
		if err := producer.Register(k, h.Console()); err != nil {
			return nil, fmt.Errorf("producer: %w", err)
		}
	}
	if demo == "inversion" || demo == "all" {
		if err := inversion.Register(k, h.Console()); err != nil {
			return nil, fmt.Errorf("inversion: %w", err)
		}
	}

	h.Logger().WriteLineString("lark: starting scheduler, demo=" + demo)
	if err := k.Start(); err != nil {
		return nil, err
	}
	return s, nil
}

// frameTail runs the non-tick part of a host frame: keys, status, fault
// check.
func (s *system) frameTail(keys <-chan hal.KeyEvent) error {
	for {
		select {
		case ev := <-keys:
			s.handleKey(ev)
		default:
			if s.quit {
				return ErrQuit
			}
			if s.k.Faulted() {
				return fmt.Errorf("kernel fault")
			}
			s.status()
			return nil
		}
	}
}

func (s *system) handleKey(ev hal.KeyEvent) {
	switch ev.Rune {
	case 't', 'T':
		s.saveTrace()
	case 's', 'S':
		s.printSnapshot()
	case 'q', 'Q':
		s.quit = true
	}
}

func (s *system) saveTrace() {
	var buf bytes.Buffer
	if err := trace.EncodeRing(&buf, s.ring); err != nil {
		s.h.Logger().WriteLineString("trace: encode: " + err.Error())
		return
	}
	loc, err := s.h.TraceStore().Save(buf.Bytes())
	if err != nil {
		s.h.Logger().WriteLineString("trace: save: " + err.Error())
		return
	}
	s.h.Logger().WriteLineString(fmt.Sprintf("trace: %d events -> %s", s.ring.Len(), loc))
}

func (s *system) printSnapshot() {
	c := s.h.Console()
	c.WriteLine(fmt.Sprintf("-- tick %d --", s.k.TickCount()))
	for _, info := range s.k.Snapshot() {
		line := fmt.Sprintf("%-10s %-9s prio %d", info.Name, info.State, info.BasePriority)
		if info.EffectivePriority != info.BasePriority {
			line += fmt.Sprintf(" (eff %d)", info.EffectivePriority)
		}
		c.WriteLine(line)
	}
}

// status emits a heartbeat line every 10 seconds of kernel time.
func (s *system) status() {
	const every = 10 * kernel.TicksPerSecond
	now := s.k.TickCount()
	if now-s.lastStatus < every {
		return
	}
	s.lastStatus = now
	s.h.Logger().WriteLineString(fmt.Sprintf("lark: tick %d, %d trace events", now, s.ring.Len()))
}
