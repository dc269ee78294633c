package main

import (
	"flag"
	"fmt"
	"os"

	"lark/internal/buildinfo"
	"lark/kernel"
	"lark/trace"
)

func main() {
	var (
		inPath  = flag.String("in", "", "Trace capture to decode (written by the kernel trace store).")
		since   = flag.Uint("since", 0, "Only print events at or after this tick.")
		version = flag.Bool("version", false, "Print version and exit.")
	)
	flag.Parse()

	if *version {
		fmt.Println("tracefmt", buildinfo.Long())
		return
	}
	if *inPath == "" {
		fatalf("usage: tracefmt -in capture.ltrc [-since tick]")
	}

	f, err := os.Open(*inPath)
	if err != nil {
		fatalf("open: %v", err)
	}
	defer f.Close()

	events, err := trace.Decode(f)
	if err != nil {
		fatalf("decode: %v", err)
	}

	for _, ev := range events {
		if uint(ev.Tick) < *since {
			continue
		}
		fmt.Println(formatEvent(ev))
	}
}

func formatEvent(ev kernel.Event) string {
	task := fmt.Sprintf("task %d", ev.Task)
	if ev.Task == 0xFF {
		task = "-"
	}
	switch ev.Kind {
	case kernel.EvSwitch:
		return fmt.Sprintf("%10d  switch   %s -> task %d", ev.Tick, task, ev.Arg)
	case kernel.EvDelay:
		return fmt.Sprintf("%10d  delay    %s for %d ticks", ev.Tick, task, ev.Arg)
	case kernel.EvPend, kernel.EvPost:
		return fmt.Sprintf("%10d  %-8s %s obj %d", ev.Tick, ev.Kind, task, ev.Arg)
	case kernel.EvBoost, kernel.EvRestore:
		return fmt.Sprintf("%10d  %-8s %s to prio %d", ev.Tick, ev.Kind, task, ev.Arg)
	case kernel.EvFault:
		return fmt.Sprintf("%10d  FAULT    %s code %d", ev.Tick, task, ev.Arg)
	default:
		return fmt.Sprintf("%10d  %-8s %s", ev.Tick, ev.Kind, task)
	}
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}
