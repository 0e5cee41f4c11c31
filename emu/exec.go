package emu

import (
	"fmt"
	"math/bits"

	"github.com/nitrosim/nitrosim/mem"
)

// branchAndExchange switches the instruction set width based on the low
// bit of the target address: an odd target selects the compact set with
// the address rounded down by one.
func (c *CPU) branchAndExchange(instr uint32) {
	c.prefetchARM(mem.NonSequential)
	c.regs.r[15] = c.regs.r[instr&0xF]
	if c.regs.r[15]&1 != 0 {
		c.regs.r[15]--
		c.regs.SetT(true)
		c.fillThumbBuffer()
	} else {
		c.fillARMBuffer()
	}
}

// branchLink covers B and BL: a sign-extended 24-bit word offset scaled
// by 4, with the return address saved to R14 for the link variant.
func branchLink(link bool) handlerFn {
	return func(c *CPU, instr uint32) {
		offset := instr & 0xFFFFFF
		if offset>>23 != 0 {
			offset |= 0xFF000000
		}

		c.prefetchARM(mem.NonSequential)
		if link {
			c.regs.r[14] = c.regs.r[15] - 4
		}
		c.regs.r[15] += offset << 2
		c.fillARMBuffer()
	}
}

// dataProcessing covers the sixteen ALU opcodes. Flag update is
// suppressed when the destination is R15 with the set-flags bit, in
// which case the full status register is restored from the SPSR.
func dataProcessing(immediateOp2, setFlags bool) handlerFn {
	return func(c *CPU, instr uint32) {
		changeStatus := setFlags
		specialChangeStatus := false
		tempIncPC := false
		opcode := instr >> 21 & 0xF
		destReg := instr >> 12 & 0xF
		if destReg == 15 && changeStatus {
			changeStatus = false
			specialChangeStatus = true
		}

		logical := opcode < 0x5 || opcode > 0x7

		var op2 uint32
		if immediateOp2 {
			rotate := instr >> 8 & 0xF
			operand := instr & 0xFF
			if logical && rotate != 0 {
				op2 = c.shift(shiftROR, operand, rotate*2, true, changeStatus)
			} else {
				op2 = ror(operand, rotate*2)
			}
		} else {
			shiftByReg := instr>>4&1 != 0
			var amount uint32
			if shiftByReg {
				if instr>>7&1 != 0 {
					panic("emu: data processing: reserved bit 7 set in register-shift form")
				}
				// The shift amount read happens one slot later in the
				// pipeline, so R15 reads 4 bytes further ahead.
				c.regs.r[15] += 4
				tempIncPC = true
				amount = c.regs.r[instr>>8&0xF] & 0xFF
				c.internal()
			} else {
				amount = instr >> 7 & 0x1F
			}
			shiftType := instr >> 5 & 0x3
			operand := c.regs.r[instr&0xF]
			op2 = c.shift(shiftType, operand, amount, !shiftByReg, changeStatus && logical)
		}

		op1 := c.regs.r[instr>>16&0xF]
		var result uint32
		switch opcode {
		case 0x0, 0x8: // AND, TST
			result = op1 & op2
		case 0x1, 0x9: // EOR, TEQ
			result = op1 ^ op2
		case 0x2, 0xA: // SUB, CMP
			result = c.sub(op1, op2, changeStatus)
		case 0x3: // RSB
			result = c.sub(op2, op1, changeStatus)
		case 0x4, 0xB: // ADD, CMN
			result = c.add(op1, op2, changeStatus)
		case 0x5: // ADC
			result = c.adc(op1, op2, changeStatus)
		case 0x6: // SBC
			result = c.sbc(op1, op2, changeStatus)
		case 0x7: // RSC
			result = c.sbc(op2, op1, changeStatus)
		case 0xC: // ORR
			result = op1 | op2
		case 0xD: // MOV
			result = op2
		case 0xE: // BIC
			result = op1 &^ op2
		case 0xF: // MVN
			result = ^op2
		}

		if changeStatus {
			c.regs.SetZ(result == 0)
			c.regs.SetN(result&0x80000000 != 0)
		} else if specialChangeStatus {
			c.regs.SetCPSR(c.regs.SPSR())
		} else if opcode&0xC == 0x8 {
			panic("emu: data processing: comparison opcode without set-flags bit")
		}

		clocked := false
		if opcode&0xC != 0x8 {
			if destReg == 15 {
				clocked = true
				c.prefetchARM(mem.NonSequential)
				c.regs.r[15] = result
				if c.regs.T() {
					c.fillThumbBuffer()
				} else {
					c.fillARMBuffer()
				}
			} else {
				c.regs.r[destReg] = result
			}
		}
		if !clocked {
			if tempIncPC {
				c.regs.r[15] -= 4
			}
			c.prefetchARM(mem.Sequential)
		}
	}
}

// statusTransfer covers MRS and MSR. MSR applies a nibble-granular field
// mask; the control byte cannot be modified outside privileged modes.
func statusTransfer(immediate, spsrSel, msr bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>26&0x3 != 0b00 {
			panic("emu: status transfer: reserved bits 26-27 set")
		}
		if instr>>23&0x3 != 0b10 {
			panic("emu: status transfer: reserved bits 23-24 malformed")
		}
		if instr>>20&0x1 != 0 {
			panic("emu: status transfer: reserved bit 20 set")
		}
		c.prefetchARM(mem.Sequential)

		if msr {
			var mask uint32
			if instr>>19&1 != 0 {
				mask |= 0xFF000000 // flags
			}
			if instr>>18&1 != 0 {
				mask |= 0x00FF0000 // status
			}
			if instr>>17&1 != 0 {
				mask |= 0x0000FF00 // extension
			}
			if c.regs.Mode() != ModeUser && instr>>16&1 != 0 {
				mask |= 0x000000FF // control
			}
			if instr>>12&0xF != 0xF {
				panic("emu: status transfer: reserved destination field malformed")
			}
			var operand uint32
			if immediate {
				rotate := instr >> 8 & 0xF
				operand = ror(instr&0xFF, rotate*2)
			} else {
				if instr>>4&0xFF != 0 {
					panic("emu: status transfer: reserved bits 4-11 set in register form")
				}
				operand = c.regs.r[instr&0xF]
			}
			if spsrSel {
				c.regs.SetSPSR(c.regs.SPSR()&^mask | operand&mask)
			} else {
				c.regs.SetCPSR(c.regs.CPSR()&^mask | operand&mask)
			}
		} else {
			if immediate {
				panic("emu: status transfer: immediate form is write-only")
			}
			if instr&0xFFF != 0 {
				panic("emu: status transfer: reserved low bits set in read form")
			}
			value := c.regs.CPSR()
			if spsrSel {
				value = c.regs.SPSR()
			}
			c.regs.r[instr>>12&0xF] = value
		}
	}
}

// multiply covers MUL and MLA: 32x32->32, with the accumulate variant
// adding the prior value of Rn for one extra internal cycle.
func multiply(accumulate, setFlags bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>22&0x3F != 0 {
			panic("emu: multiply: reserved bits 22-27 set")
		}
		destReg := instr >> 16 & 0xF
		op1Reg := instr >> 12 & 0xF
		op1 := c.regs.r[op1Reg]
		op2 := c.regs.r[instr>>8&0xF]
		if instr>>4&0xF != 0b1001 {
			panic("emu: multiply: bits 4-7 must be 1001")
		}
		op3 := c.regs.r[instr&0xF]

		c.prefetchARM(mem.Sequential)
		c.mulClocks(op2, true)
		var result uint32
		if accumulate {
			c.internal()
			result = op2*op3 + op1
		} else {
			if op1Reg != 0 {
				panic("emu: multiply: Rn must be 0 without accumulate")
			}
			result = op2 * op3
		}
		if setFlags {
			c.regs.SetN(result&0x80000000 != 0)
			c.regs.SetZ(result == 0)
		}
		c.regs.r[destReg] = result
	}
}

// multiplyLong covers MULL and MLAL: 32x32->64 signed or unsigned, with
// optional accumulate against the 64-bit value in RdHi:RdLo. Flags
// reflect the 64-bit result.
func multiplyLong(signed, accumulate, setFlags bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>23&0x1F != 0b00001 {
			panic("emu: multiply long: reserved bits 23-27 malformed")
		}
		hiReg := instr >> 16 & 0xF
		loReg := instr >> 12 & 0xF
		op1 := c.regs.r[instr>>8&0xF]
		if instr>>4&0xF != 0b1001 {
			panic("emu: multiply long: bits 4-7 must be 1001")
		}
		op2 := c.regs.r[instr&0xF]

		c.prefetchARM(mem.Sequential)
		c.internal()
		c.mulClocks(op1, signed)
		var result uint64
		if signed {
			result = uint64(int64(int32(op1)) * int64(int32(op2)))
		} else {
			result = uint64(op1) * uint64(op2)
		}
		if accumulate {
			c.internal()
			result += uint64(c.regs.r[hiReg])<<32 | uint64(c.regs.r[loReg])
		}
		if setFlags {
			c.regs.SetN(result&0x8000000000000000 != 0)
			c.regs.SetZ(result == 0)
		}
		c.regs.r[loReg] = uint32(result)
		c.regs.r[hiReg] = uint32(result >> 32)
	}
}

// singleDataTransfer covers LDR and STR with immediate or shifted
// register offsets. Misaligned word reads rotate the loaded value by
// the misalignment instead of faulting; write-back is suppressed when a
// load targets the base register.
func singleDataTransfer(shiftedRegOffset, preOffset, addOffset, transferByte,
	writeBackBit, load bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>26&0x3 != 0b01 {
			panic("emu: single data transfer: class bits malformed")
		}
		writeBack := writeBackBit || !preOffset
		baseReg := instr >> 16 & 0xF
		base := c.regs.r[baseReg]
		srcDestReg := instr >> 12 & 0xF
		c.prefetchARM(mem.NonSequential)

		var offset uint32
		if shiftedRegOffset {
			amount := instr >> 7 & 0x1F
			shiftType := instr >> 5 & 0x3
			if instr>>4&1 != 0 {
				panic("emu: single data transfer: register-specified shift amount is invalid here")
			}
			offsetReg := instr & 0xF
			if offsetReg == 15 {
				panic("emu: single data transfer: R15 offset register")
			}
			offset = c.shift(shiftType, c.regs.r[offsetReg], amount, true, false)
		} else {
			offset = instr & 0xFFF
		}

		exec := func(addr uint32) {
			if load {
				at := mem.Sequential
				if srcDestReg == 15 {
					at = mem.NonSequential
				}
				var value uint32
				if transferByte {
					value = c.read8(at, addr)
				} else {
					value = ror(c.read32(at, addr&^3), addr&3*8)
				}
				c.internal()
				c.regs.r[srcDestReg] = value
				if srcDestReg == baseReg {
					writeBack = false
				}
				if srcDestReg == 15 {
					c.fillARMBuffer()
				}
			} else {
				value := c.regs.r[srcDestReg]
				if srcDestReg == 15 {
					// The pipeline has moved on by the time the store
					// issues, so R15 stores 4 bytes ahead of its read.
					value += 4
				}
				if transferByte {
					c.write8(mem.NonSequential, addr, uint8(value))
				} else {
					c.write32(mem.NonSequential, addr&^3, value)
				}
			}
		}

		offsetApplied := base + offset
		if !addOffset {
			offsetApplied = base - offset
		}
		if preOffset {
			exec(offsetApplied)
			if writeBack {
				c.regs.r[baseReg] = offsetApplied
			}
		} else {
			// Privilege is not checked on forced non-privileged access;
			// the upstream behavior here is a known gap.
			if instr>>21&1 != 0 {
				panic("emu: single data transfer: forced non-privileged access not supported")
			}
			exec(base)
			if writeBack {
				c.regs.r[baseReg] = offsetApplied
			}
		}
	}
}

// halfwordSignedTransfer covers STRH, LDRH, LDRSB, and LDRSH. Halfword
// loads rotate on misalignment like word loads; a misaligned signed
// halfword load degrades to a signed byte load.
func halfwordSignedTransfer(preOffset, addOffset, immediateOffset, writeBackBit,
	load, signed, halfword bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>25&0x7 != 0b000 {
			panic("emu: halfword transfer: class bits malformed")
		}
		writeBack := writeBackBit || !preOffset
		baseReg := instr >> 16 & 0xF
		base := c.regs.r[baseReg]
		srcDestReg := instr >> 12 & 0xF
		offsetHi := instr >> 8 & 0xF
		if instr>>7&1 != 1 {
			panic("emu: halfword transfer: bit 7 must be set")
		}
		opcode := 0
		if signed {
			opcode |= 2
		}
		if halfword {
			opcode |= 1
		}
		if instr>>4&1 != 1 {
			panic("emu: halfword transfer: bit 4 must be set")
		}
		offsetLow := instr & 0xF
		c.prefetchARM(mem.NonSequential)

		var offset uint32
		if immediateOffset {
			offset = offsetHi<<4 | offsetLow
		} else {
			if offsetHi != 0 {
				panic("emu: halfword transfer: reserved offset bits set in register form")
			}
			offset = c.regs.r[offsetLow]
		}

		exec := func(addr uint32) {
			if load {
				if srcDestReg == baseReg {
					writeBack = false
				}
				at := mem.Sequential
				if srcDestReg == 15 {
					at = mem.NonSequential
				}
				var value uint32
				switch opcode {
				case 1: // LDRH
					value = ror(c.read16(at, addr&^1), addr&1*8)
				case 2: // LDRSB
					value = uint32(int32(int8(c.read8(at, addr))))
				case 3: // LDRSH
					if addr&1 == 1 {
						value = uint32(int32(int8(c.read8(at, addr))))
					} else {
						value = uint32(int32(int16(c.read16(at, addr))))
					}
				default:
					panic("emu: halfword transfer: swap encoding reached transfer handler")
				}
				c.internal()
				c.regs.r[srcDestReg] = value
				if srcDestReg == 15 {
					c.fillARMBuffer()
				}
			} else {
				if opcode != 1 {
					panic("emu: halfword transfer: only halfword stores exist")
				}
				c.write16(mem.NonSequential, addr&^1, uint16(c.regs.r[srcDestReg]))
			}
		}

		offsetApplied := base + offset
		if !addOffset {
			offsetApplied = base - offset
		}
		if preOffset {
			exec(offsetApplied)
			if writeBack {
				c.regs.r[baseReg] = offsetApplied
			}
		} else {
			exec(base)
			if instr>>24&1 != 0 {
				panic("emu: halfword transfer: post-index with pre-index bit set")
			}
			if writeBack {
				c.regs.r[baseReg] = offsetApplied
			}
		}
	}
}

// blockDataTransfer covers LDM and STM. Transfer order is always
// ascending register number; the direction bit only moves the base.
// An empty register list transfers R15 once at base +/- 0x40 and moves
// the base by the same amount.
func blockDataTransfer(p, u, s, w, l bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>25&0x7 != 0b100 {
			panic("emu: block data transfer: class bits malformed")
		}
		addOffset := u
		preOffset := p != !addOffset
		psrForceUsr := s
		load := l
		baseReg := instr >> 16 & 0xF
		if baseReg == 0xF {
			panic("emu: block data transfer: R15 base register")
		}
		base := c.regs.r[baseReg]
		baseOffset := base & 3
		base -= baseOffset
		rlist := instr & 0xFFFF
		writeBack := w && !(load && rlist&(1<<baseReg) != 0)

		actualMode := c.regs.Mode()
		forcedUsr := psrForceUsr && !(load && rlist&(1<<15) != 0)
		if forcedUsr {
			c.regs.SetMode(ModeUser)
		}

		c.prefetchARM(mem.NonSequential)
		numRegs := uint32(bits.OnesCount32(rlist))
		startAddr := base
		if !addOffset {
			startAddr = base - numRegs*4
		}
		addr := startAddr
		finalAddr := startAddr + baseOffset
		if addOffset {
			finalAddr = addr + 4*numRegs + baseOffset
		}
		if numRegs == 0 {
			if addOffset {
				startAddr = base + 0x40
				finalAddr = base + baseOffset + 0x40
			} else {
				startAddr = base - 0x40
				finalAddr = base + baseOffset - 0x40
			}
		}

		calcAddr := func() uint32 {
			if preOffset {
				addr += 4
				return addr
			}
			old := addr
			addr += 4
			return old
		}
		exec := func(addr, reg uint32, lastAccess bool) {
			if load {
				value := c.read32(mem.Sequential, addr)
				c.regs.r[reg] = value
				if writeBack {
					c.regs.r[baseReg] = finalAddr
				}
				if lastAccess {
					c.internal()
				}
				if reg == 15 {
					if psrForceUsr {
						c.regs.RestoreCPSR()
					}
					if c.regs.T() {
						c.fillThumbBuffer()
					} else {
						c.fillARMBuffer()
					}
				}
			} else {
				value := c.regs.r[reg]
				if reg == 15 {
					value += 4
				}
				at := mem.Sequential
				if lastAccess {
					at = mem.NonSequential
				}
				c.write32(at, addr, value)
				if writeBack {
					c.regs.r[baseReg] = finalAddr
				}
			}
		}

		if numRegs == 0 {
			exec(startAddr, 15, true)
		} else {
			reg := uint32(0)
			for rlist != 1 {
				if rlist&1 != 0 {
					exec(calcAddr(), reg, false)
				}
				reg++
				rlist >>= 1
			}
			exec(calcAddr(), reg, true)
		}

		if forcedUsr {
			c.regs.SetMode(actualMode)
		}
	}
}

// singleDataSwap covers SWP: an atomic-style read-then-write charging
// one non-sequential access, one sequential access, and one internal
// cycle, in that order.
func singleDataSwap(byteGranularity bool) handlerFn {
	return func(c *CPU, instr uint32) {
		if instr>>23&0x1F != 0b00010 {
			panic("emu: single data swap: reserved bits 23-27 malformed")
		}
		if instr>>20&0x3 != 0 {
			panic("emu: single data swap: reserved bits 20-21 set")
		}
		base := c.regs.r[instr>>16&0xF]
		destReg := instr >> 12 & 0xF
		if instr>>4&0xFF != 0b00001001 {
			panic("emu: single data swap: bits 4-11 malformed")
		}
		src := c.regs.r[instr&0xF]

		c.prefetchARM(mem.NonSequential)
		var value uint32
		if byteGranularity {
			value = c.read8(mem.NonSequential, base)
			c.write8(mem.Sequential, base, uint8(src))
		} else {
			value = ror(c.read32(mem.NonSequential, base&^3), base&3*8)
			c.write32(mem.Sequential, base&^3, src)
		}
		c.regs.r[destReg] = value
		c.internal()
	}
}

// softwareInterrupt enters supervisor mode, saves the return address,
// disables interrupts, and vectors to the fixed software-interrupt
// entry point.
func (c *CPU) softwareInterrupt(instr uint32) {
	if instr>>24&0xF != 0b1111 {
		panic("emu: software interrupt: class bits malformed")
	}
	c.prefetchARM(mem.NonSequential)
	c.regs.ChangeMode(ModeSupervisor)
	c.regs.r[14] = c.regs.r[15] - 4
	c.regs.SetI(true)
	c.regs.r[15] = 0x8
	c.fillARMBuffer()
}

// coprocessor aborts loudly: coprocessor instructions are intentionally
// unimplemented, and silently treating them as no-ops would hide
// coverage gaps.
func (c *CPU) coprocessor(instr uint32) {
	panic(fmt.Sprintf("emu: coprocessor instruction %08X not implemented", instr))
}

// undefined aborts loudly on the architectural undefined instruction
// pattern.
func (c *CPU) undefined(instr uint32) {
	panic(fmt.Sprintf("emu: undefined instruction %08X", instr))
}
