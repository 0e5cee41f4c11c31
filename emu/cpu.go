package emu

import (
	"github.com/nitrosim/nitrosim/insts"
	"github.com/nitrosim/nitrosim/mem"
	"github.com/nitrosim/nitrosim/timing/sched"
)

// CPU executes instructions against a register file, a bus, and the
// shared cycle scheduler. Every memory access and internal cycle a
// handler issues is charged to the scheduler in pipeline order; other
// components observe only the cumulative cycle count.
type CPU struct {
	regs  RegFile
	bus   mem.Bus
	sched *sched.Scheduler

	// buffer is the two-stage instruction prefetch pipeline: slot 0 is
	// the word about to execute, slot 1 the word fetched behind it.
	buffer [2]uint32
}

// New creates a CPU on the given bus and scheduler. The register state
// is undefined until Reset.
func New(bus mem.Bus, s *sched.Scheduler) *CPU {
	return &CPU{bus: bus, sched: s}
}

// Reset establishes the initial register and mode state and performs
// the first pipeline fill at the given entry point.
func (c *CPU) Reset(entry uint32) {
	c.regs = RegFile{cpsr: uint32(ModeSystem)}
	c.regs.r[15] = entry
	c.fillARMBuffer()
}

// Regs exposes the register file for debugging and for cross-component
// reads such as interrupt delivery.
func (c *CPU) Regs() *RegFile { return &c.regs }

// Cycle returns the global cycle count the CPU charges against.
func (c *CPU) Cycle() uint64 { return c.sched.Cycle() }

// Step executes exactly one instruction, or one skipped-condition fetch
// cycle, and returns control to the caller.
func (c *CPU) Step() {
	if c.regs.T() {
		c.stepThumb()
	} else {
		c.stepARM()
	}
}

func (c *CPU) stepARM() {
	instr := c.buffer[0]
	c.buffer[0] = c.buffer[1]
	c.regs.r[15] += 4

	if c.condPassed(Cond(instr >> 28)) {
		armTable[insts.KeyFromWord(instr)](c, instr)
	} else {
		// A failed condition still costs the fetch cycle.
		c.prefetchARM(mem.Sequential)
	}
}

// fillARMBuffer refetches both pipeline slots at the current program
// counter. Called after any control-flow discontinuity.
func (c *CPU) fillARMBuffer() {
	c.regs.r[15] &^= 3
	c.buffer[0] = c.read32(mem.Sequential, c.regs.r[15])
	c.regs.r[15] += 4
	c.buffer[1] = c.read32(mem.Sequential, c.regs.r[15])
}

// prefetchARM fetches the next instruction word into the back slot,
// charging the given access classification.
func (c *CPU) prefetchARM(at mem.AccessType) {
	c.buffer[1] = c.read32(at, c.regs.r[15]&^3)
}

// internal charges one internal cycle to the scheduler.
func (c *CPU) internal() {
	c.sched.Advance(1)
}

func (c *CPU) read8(at mem.AccessType, addr uint32) uint32 {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	return uint32(c.bus.Read8(at, addr))
}

func (c *CPU) read16(at mem.AccessType, addr uint32) uint32 {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	return uint32(c.bus.Read16(at, addr))
}

func (c *CPU) read32(at mem.AccessType, addr uint32) uint32 {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	return c.bus.Read32(at, addr)
}

func (c *CPU) write8(at mem.AccessType, addr uint32, value uint8) {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	c.bus.Write8(at, addr, value)
}

func (c *CPU) write16(at mem.AccessType, addr uint32, value uint16) {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	c.bus.Write16(at, addr, value)
}

func (c *CPU) write32(at mem.AccessType, addr uint32, value uint32) {
	c.sched.Advance(c.bus.AccessTime(at, addr))
	c.bus.Write32(at, addr, value)
}
