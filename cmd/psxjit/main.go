// Command psxjit is a demo front end for the recompiler core: it loads a
// flat executable image into guest RAM, wires up a BIOS ROM map and a
// console peripheral, and drives Execute in a loop until the guest halts
// or a signal arrives.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"psxrec/internal/codegen"
	"psxrec/internal/recompiler"
)

const (
	ramBase   = 0x00000000
	biosBase  = 0x1fc00000
	biosSize  = 0x00080000
	consoleIO = 0x1f000000
)

func main() {
	verbose := flag.Bool("v", false, "enable verbose logging")
	memoryFlag := flag.Uint64("memory", 1<<21, "guest RAM size in bytes (max 4294967295)")
	biosPath := flag.String("bios", "", "path to a BIOS ROM image (optional)")
	exePath := flag.String("exe", "", "path to a flat executable image loaded at guest RAM base")
	cycles := flag.Uint64("cycles", 0, "cycle budget per Execute call (0 uses the core default)")
	useJIT := flag.Bool("jit", false, "use the real amd64 codegen backend instead of the portable one")
	flag.Parse()

	printIfVerbose(*verbose, "Starting psxjit...")

	if *memoryFlag > uint64(math.MaxUint32) {
		log.Fatalf("memory size %d exceeds max uint32 %d", *memoryFlag, math.MaxUint32)
	}
	if *exePath == "" {
		log.Fatal("psxjit: -exe is required")
	}

	ram := make([]byte, uint32(*memoryFlag))
	if err := loadFlat(*exePath, ram); err != nil {
		log.Fatalf("psxjit: loading %s: %v", *exePath, err)
	}

	bios := make([]byte, biosSize)
	if *biosPath != "" {
		if err := loadFlat(*biosPath, bios); err != nil {
			log.Fatalf("psxjit: loading bios %s: %v", *biosPath, err)
		}
	}

	con, err := newConsole()
	if err != nil {
		log.Fatalf("psxjit: console: %v", err)
	}
	defer con.restore()

	gen, err := codeGenFor(*useJIT, *verbose)
	if err != nil {
		log.Fatalf("psxjit: %v", err)
	}

	state, err := recompiler.Init(recompiler.Options{
		Maps: []recompiler.MemMap{
			{PC: ramBase, Length: uint32(len(ram)), Address: ram, Flags: recompiler.MapRWX, MirrorOf: -1},
			{PC: biosBase, Length: biosSize, Address: bios, Flags: recompiler.MapRWX, MirrorOf: -1},
			{PC: consoleIO, Length: 4, Ops: con, MirrorOf: -1},
		},
		CopOps:        noCop{},
		CodeGenerator: gen,
		Log:           verboseWriter(*verbose),
		CycleBudget:   uint32(*cycles),
	})
	if err != nil {
		log.Fatalf("psxjit: init: %v", err)
	}
	defer state.Destroy()

	done := make(chan struct{})
	start := time.Now()

	printIfVerbose(*verbose, "Running...")
	go func() {
		runUntilHalt(state)
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		printIfVerbose(*verbose, "Signal received, stopping...")
		state.SetExitFlags(recompiler.ExitHost0)
	case <-done:
	}

	printIfVerbose(*verbose, "Stopped after %s, %d guest cycles.", time.Since(start), state.CurrentCycleCount())
}

// runUntilHalt calls Execute repeatedly; it returns once the guest raises
// any host-reserved exit flag (ExitHost0/ExitHost1) or a segfault, since
// a plain cycle-budget exhaustion (ExitNormal resuming) is not terminal.
func runUntilHalt(state *recompiler.State) {
	for {
		flags, err := state.Execute(0)
		if err != nil {
			log.Printf("psxjit: execute: %v", err)
			return
		}
		if flags&(recompiler.ExitSegfault|recompiler.ExitHost0|recompiler.ExitHost1) != 0 {
			return
		}
		state.ClearExitFlags()
	}
}

func codeGenFor(useJIT, verbose bool) (recompiler.CodeGenerator, error) {
	if !useJIT {
		return nil, nil
	}
	gen, err := codegen.NewBackend()
	if err != nil {
		return nil, fmt.Errorf("jit backend unavailable: %w", err)
	}
	printIfVerbose(verbose, "Using amd64 codegen backend.")
	return gen, nil
}

func loadFlat(path string, dst []byte) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) > len(dst) {
		return fmt.Errorf("image is %d bytes, destination is %d bytes", len(data), len(dst))
	}
	copy(dst, data)
	return nil
}

func printIfVerbose(verbose bool, format string, v ...interface{}) {
	if verbose {
		log.Printf(format, v...)
	}
}

func verboseWriter(verbose bool) io.Writer {
	if verbose {
		return os.Stderr
	}
	return nil
}

// noCop is the default CopOps: COP0/COP2 transfers read back zero and
// discard writes, enough to keep guest code that merely probes a
// coprocessor register from faulting.
type noCop struct{}

func (noCop) MFC(state *recompiler.State, copIndex int, reg uint8) uint32 { return 0 }
func (noCop) MTC(state *recompiler.State, copIndex int, reg uint8, value uint32) {}
