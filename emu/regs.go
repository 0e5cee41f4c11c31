// Package emu provides the instruction execution core: register file,
// prefetch pipeline, and one specialized handler per instruction variant.
package emu

import "fmt"

// Mode is the privilege mode field of the current status register.
type Mode uint8

// Processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1B
	ModeSystem     Mode = 0x1F
)

// Status register bit positions.
const (
	flagN = 1 << 31
	flagZ = 1 << 30
	flagC = 1 << 29
	flagV = 1 << 28
	flagI = 1 << 7
	flagF = 1 << 6
	flagT = 1 << 5

	modeMask = 0x1F
)

// bankIndex maps a mode to its banked register set. User and System
// share bank 0; each exception mode has its own.
func bankIndex(m Mode) int {
	switch m {
	case ModeUser, ModeSystem, 0:
		// Mode 0 is the zero value of a register file that has not been
		// given a status word yet; it shares the unbanked set.
		return 0
	case ModeFIQ:
		return 1
	case ModeIRQ:
		return 2
	case ModeSupervisor:
		return 3
	case ModeAbort:
		return 4
	case ModeUndefined:
		return 5
	default:
		panic(fmt.Sprintf("emu: invalid processor mode %#02x", uint8(m)))
	}
}

// RegFile holds the 16 general-purpose registers, the current status
// register, and the banked copies of R13/R14 (R8-R14 for FIQ) plus the
// saved status register of each privileged mode. r[15] is the program
// counter and always holds the address of the next fetch target.
type RegFile struct {
	r    [16]uint32
	cpsr uint32

	// bank[i] stores R8-R14 of the register set that is currently not
	// visible. Non-FIQ modes share R8-R12 through bank 0.
	bank [6][7]uint32
	spsr [6]uint32
}

// Reg returns register i of the currently visible bank.
func (rf *RegFile) Reg(i int) uint32 { return rf.r[i] }

// SetReg writes register i of the currently visible bank. Writing R15
// through this accessor does not refill the pipeline; the execution
// engine owns that side effect.
func (rf *RegFile) SetReg(i int, value uint32) { rf.r[i] = value }

// PC returns the program counter.
func (rf *RegFile) PC() uint32 { return rf.r[15] }

// CPSR returns the packed current status register.
func (rf *RegFile) CPSR() uint32 { return rf.cpsr }

// SetCPSR replaces the full status register, switching register banks
// if the mode field changed.
func (rf *RegFile) SetCPSR(value uint32) {
	rf.SetMode(Mode(value & modeMask))
	rf.cpsr = value
}

// SPSR returns the saved status register of the current mode. User and
// System have no saved status; reading it yields the current status
// register so that a stray mode-return in an unbanked mode is a no-op.
func (rf *RegFile) SPSR() uint32 {
	idx := bankIndex(rf.Mode())
	if idx == 0 {
		return rf.cpsr
	}
	return rf.spsr[idx]
}

// SetSPSR writes the saved status register of the current mode.
func (rf *RegFile) SetSPSR(value uint32) {
	idx := bankIndex(rf.Mode())
	if idx != 0 {
		rf.spsr[idx] = value
	}
}

// Mode returns the current processor mode.
func (rf *RegFile) Mode() Mode { return Mode(rf.cpsr & modeMask) }

// SetMode switches the visible register bank to the given mode and
// updates the mode field. Mode changes are the only way banked
// registers become visible.
func (rf *RegFile) SetMode(m Mode) {
	old := rf.Mode()
	oldIdx, newIdx := bankIndex(old), bankIndex(m)
	if oldIdx == newIdx {
		rf.cpsr = rf.cpsr&^modeMask | uint32(m)
		return
	}

	if old == ModeFIQ {
		copy(rf.bank[1][:], rf.r[8:15])
	} else {
		copy(rf.bank[0][0:5], rf.r[8:13])
		rf.bank[oldIdx][5] = rf.r[13]
		rf.bank[oldIdx][6] = rf.r[14]
	}

	if m == ModeFIQ {
		copy(rf.r[8:15], rf.bank[1][:])
	} else {
		copy(rf.r[8:13], rf.bank[0][0:5])
		rf.r[13] = rf.bank[newIdx][5]
		rf.r[14] = rf.bank[newIdx][6]
	}

	rf.cpsr = rf.cpsr&^modeMask | uint32(m)
}

// ChangeMode performs exception-style entry into the given mode: the
// current status register is saved into the new mode's SPSR before the
// bank switch takes effect.
func (rf *RegFile) ChangeMode(m Mode) {
	old := rf.cpsr
	rf.SetMode(m)
	rf.spsr[bankIndex(m)] = old
}

// RestoreCPSR reloads the full status register from the current mode's
// SPSR, re-exposing the bank the saved mode selects.
func (rf *RegFile) RestoreCPSR() {
	rf.SetCPSR(rf.SPSR())
}

// N reports the negative flag.
func (rf *RegFile) N() bool { return rf.cpsr&flagN != 0 }

// Z reports the zero flag.
func (rf *RegFile) Z() bool { return rf.cpsr&flagZ != 0 }

// C reports the carry flag.
func (rf *RegFile) C() bool { return rf.cpsr&flagC != 0 }

// V reports the overflow flag.
func (rf *RegFile) V() bool { return rf.cpsr&flagV != 0 }

// I reports the interrupt-disable flag.
func (rf *RegFile) I() bool { return rf.cpsr&flagI != 0 }

// T reports whether the compact (Thumb) instruction set is selected.
func (rf *RegFile) T() bool { return rf.cpsr&flagT != 0 }

// SetN sets the negative flag.
func (rf *RegFile) SetN(v bool) { rf.setFlag(flagN, v) }

// SetZ sets the zero flag.
func (rf *RegFile) SetZ(v bool) { rf.setFlag(flagZ, v) }

// SetC sets the carry flag.
func (rf *RegFile) SetC(v bool) { rf.setFlag(flagC, v) }

// SetV sets the overflow flag.
func (rf *RegFile) SetV(v bool) { rf.setFlag(flagV, v) }

// SetI sets the interrupt-disable flag.
func (rf *RegFile) SetI(v bool) { rf.setFlag(flagI, v) }

// SetT selects between the 32-bit and compact instruction sets.
func (rf *RegFile) SetT(v bool) { rf.setFlag(flagT, v) }

func (rf *RegFile) setFlag(bit uint32, v bool) {
	if v {
		rf.cpsr |= bit
	} else {
		rf.cpsr &^= bit
	}
}
