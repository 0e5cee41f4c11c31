package emu

// Cond is the 4-bit condition field prefixed to every instruction.
type Cond uint8

// Condition codes.
const (
	CondEQ Cond = 0b0000 // Equal (Z == 1)
	CondNE Cond = 0b0001 // Not Equal (Z == 0)
	CondCS Cond = 0b0010 // Carry Set / Unsigned higher or same (C == 1)
	CondCC Cond = 0b0011 // Carry Clear / Unsigned lower (C == 0)
	CondMI Cond = 0b0100 // Minus / Negative (N == 1)
	CondPL Cond = 0b0101 // Plus / Positive or zero (N == 0)
	CondVS Cond = 0b0110 // Overflow (V == 1)
	CondVC Cond = 0b0111 // No overflow (V == 0)
	CondHI Cond = 0b1000 // Unsigned higher (C == 1 && Z == 0)
	CondLS Cond = 0b1001 // Unsigned lower or same (C == 0 || Z == 1)
	CondGE Cond = 0b1010 // Signed greater than or equal (N == V)
	CondLT Cond = 0b1011 // Signed less than (N != V)
	CondGT Cond = 0b1100 // Signed greater than (Z == 0 && N == V)
	CondLE Cond = 0b1101 // Signed less than or equal (Z == 1 || N != V)
	CondAL Cond = 0b1110 // Always
	CondNV Cond = 0b1111 // Never (reserved on this architecture)
)

// condPassed evaluates a condition code against the current flags.
func (c *CPU) condPassed(cond Cond) bool {
	rf := &c.regs

	switch cond {
	case CondEQ:
		return rf.Z()
	case CondNE:
		return !rf.Z()
	case CondCS:
		return rf.C()
	case CondCC:
		return !rf.C()
	case CondMI:
		return rf.N()
	case CondPL:
		return !rf.N()
	case CondVS:
		return rf.V()
	case CondVC:
		return !rf.V()
	case CondHI:
		return rf.C() && !rf.Z()
	case CondLS:
		return !rf.C() || rf.Z()
	case CondGE:
		return rf.N() == rf.V()
	case CondLT:
		return rf.N() != rf.V()
	case CondGT:
		return !rf.Z() && rf.N() == rf.V()
	case CondLE:
		return rf.Z() || rf.N() != rf.V()
	case CondAL:
		return true
	default:
		// CondNV never executes.
		return false
	}
}
