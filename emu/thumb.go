package emu

import (
	"fmt"

	"github.com/nitrosim/nitrosim/mem"
)

// fillThumbBuffer refetches both pipeline slots as halfwords at the
// current program counter. Called after a control-flow discontinuity
// while in the compact instruction set.
func (c *CPU) fillThumbBuffer() {
	c.regs.r[15] &^= 1
	c.buffer[0] = c.read16(mem.Sequential, c.regs.r[15])
	c.regs.r[15] += 2
	c.buffer[1] = c.read16(mem.Sequential, c.regs.r[15])
}

func (c *CPU) stepThumb() {
	instr := c.buffer[0]
	c.buffer[0] = c.buffer[1]
	c.regs.r[15] += 2

	// The compact set has no execution support yet. Aborting here is
	// deliberate: entering it via BX or an SPSR restore is legal state
	// management, silently running garbage is not.
	panic(fmt.Sprintf("emu: compact instruction set execution not implemented (instr %04X at %08X)",
		instr, c.regs.r[15]-4))
}
