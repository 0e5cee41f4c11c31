// Package main provides the entry point for NitroSim.
// NitroSim is a cycle-accurate dual-core handheld console simulator.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nitrosim/nitrosim/hw"
	"github.com/nitrosim/nitrosim/mem"
)

var (
	configPath = flag.String("config", "", "Path to bus wait-state configuration JSON file")
	steps      = flag.Uint64("n", 1000, "Number of instructions to run on each core")
	entry      = flag.Uint64("entry", 0, "Entry point address")
	memSize    = flag.Uint64("mem", 4<<20, "Memory size in bytes for each core")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: nitrosim [options] <program.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)
	image, err := os.ReadFile(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	var wait *mem.WaitConfig
	if *configPath != "" {
		wait, err = mem.LoadWaitConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading wait config: %v\n", err)
			os.Exit(1)
		}
		if err := wait.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid wait config: %v\n", err)
			os.Exit(1)
		}
	} else {
		wait = mem.DefaultWaitConfig()
	}

	bus7 := mem.NewFlatBus(0, uint32(*memSize), wait)
	bus9 := mem.NewFlatBus(0, uint32(*memSize), wait)
	bus7.Load(uint32(*entry), image)
	bus9.Load(uint32(*entry), image)

	if *verbose {
		fmt.Printf("Loaded: %s (%d bytes)\n", programPath, len(image))
		fmt.Printf("Entry point: 0x%X\n", *entry)
	}

	machine := hw.NewMachine(bus7, bus9)
	machine.Reset(uint32(*entry), uint32(*entry))

	for i := uint64(0); i < *steps; i++ {
		machine.Step()
	}

	fmt.Printf("\nProgram: %s\n", programPath)
	fmt.Printf("Instructions per core: %d\n", *steps)
	fmt.Printf("Total cycles: %d\n", machine.Sched.Cycle())
	names := [hw.NumCores]string{hw.Core7: "core7", hw.Core9: "core9"}
	for core, name := range names {
		regs := machine.CPUs[core].Regs()
		fmt.Printf("\n%s registers:\n", name)
		for r := 0; r < 16; r++ {
			fmt.Printf("  r%-2d = 0x%08X\n", r, regs.Reg(r))
		}
		fmt.Printf("  cpsr = 0x%08X\n", regs.CPSR())
		fmt.Printf("  pending irq = 0x%08X\n", machine.IRQ(core))
	}
}
