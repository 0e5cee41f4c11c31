package emu

import "math/bits"

// ror rotates v right by amount bits.
func ror(v, amount uint32) uint32 {
	return bits.RotateLeft32(v, -int(amount&31))
}

// Barrel shifter types (instruction bits 6..5).
const (
	shiftLSL = 0
	shiftLSR = 1
	shiftASR = 2
	shiftROR = 3
)

// shift runs the barrel shifter. immediate selects the immediate-amount
// encoding, where an amount of zero means LSR #32 / ASR #32 / RRX
// instead of no shift. When setFlags is set, the shifter carry-out is
// written to the carry flag.
func (c *CPU) shift(shiftType, operand, amount uint32, immediate, setFlags bool) uint32 {
	carry := c.regs.C()
	result := operand

	switch shiftType {
	case shiftLSL:
		switch {
		case amount == 0:
			// Carry unchanged.
		case amount < 32:
			carry = operand>>(32-amount)&1 != 0
			result = operand << amount
		case amount == 32:
			carry = operand&1 != 0
			result = 0
		default:
			carry = false
			result = 0
		}
	case shiftLSR:
		if immediate && amount == 0 {
			amount = 32
		}
		switch {
		case amount == 0:
		case amount < 32:
			carry = operand>>(amount-1)&1 != 0
			result = operand >> amount
		case amount == 32:
			carry = operand>>31 != 0
			result = 0
		default:
			carry = false
			result = 0
		}
	case shiftASR:
		if immediate && amount == 0 {
			amount = 32
		}
		switch {
		case amount == 0:
		case amount < 32:
			carry = operand>>(amount-1)&1 != 0
			result = uint32(int32(operand) >> amount)
		default:
			carry = operand>>31 != 0
			result = uint32(int32(operand) >> 31)
		}
	case shiftROR:
		if immediate && amount == 0 {
			// RRX: rotate right by one through the carry flag.
			result = operand >> 1
			if carry {
				result |= 1 << 31
			}
			carry = operand&1 != 0
		} else if amount != 0 {
			result = ror(operand, amount)
			if amount&31 == 0 {
				carry = operand>>31 != 0
			} else {
				carry = result>>31 != 0
			}
		}
	}

	if setFlags {
		c.regs.SetC(carry)
	}
	return result
}

// add computes op1+op2, writing carry and overflow when setFlags is set.
func (c *CPU) add(op1, op2 uint32, setFlags bool) uint32 {
	result64 := uint64(op1) + uint64(op2)
	result := uint32(result64)
	if setFlags {
		c.regs.SetC(result64 > 0xFFFFFFFF)
		c.regs.SetV((op1^result)&(op2^result)&0x80000000 != 0)
	}
	return result
}

// sub computes op1-op2. Carry is set when no borrow occurred.
func (c *CPU) sub(op1, op2 uint32, setFlags bool) uint32 {
	result := op1 - op2
	if setFlags {
		c.regs.SetC(op1 >= op2)
		c.regs.SetV((op1^op2)&(op1^result)&0x80000000 != 0)
	}
	return result
}

// adc computes op1+op2+C.
func (c *CPU) adc(op1, op2 uint32, setFlags bool) uint32 {
	var carryIn uint64
	if c.regs.C() {
		carryIn = 1
	}
	result64 := uint64(op1) + uint64(op2) + carryIn
	result := uint32(result64)
	if setFlags {
		c.regs.SetC(result64 > 0xFFFFFFFF)
		c.regs.SetV((op1^result)&(op2^result)&0x80000000 != 0)
	}
	return result
}

// sbc computes op1-op2-(1-C), i.e. op1 + ^op2 + C.
func (c *CPU) sbc(op1, op2 uint32, setFlags bool) uint32 {
	var carryIn uint64
	if c.regs.C() {
		carryIn = 1
	}
	result64 := uint64(op1) + uint64(^op2) + carryIn
	result := uint32(result64)
	if setFlags {
		c.regs.SetC(result64 > 0xFFFFFFFF)
		c.regs.SetV((op1^result)&(^op2^result)&0x80000000 != 0)
	}
	return result
}

// mulClocks charges the early-termination multiplier cycles for one
// operand: the multiplier stops as soon as the remaining bytes are all
// zero, or all ones for a signed operand.
func (c *CPU) mulClocks(op uint32, signed bool) {
	clocks := 4
	switch {
	case op&0xFFFFFF00 == 0 || (signed && op&0xFFFFFF00 == 0xFFFFFF00):
		clocks = 1
	case op&0xFFFF0000 == 0 || (signed && op&0xFFFF0000 == 0xFFFF0000):
		clocks = 2
	case op&0xFF000000 == 0 || (signed && op&0xFF000000 == 0xFF000000):
		clocks = 3
	}
	for i := 0; i < clocks; i++ {
		c.internal()
	}
}
