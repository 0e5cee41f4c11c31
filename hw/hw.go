// Package hw assembles a full machine: two CPU cores on their own
// buses, their timer blocks, and the pending-interrupt lines, all
// sharing one cycle scheduler.
package hw

import (
	"github.com/nitrosim/nitrosim/emu"
	"github.com/nitrosim/nitrosim/mem"
	"github.com/nitrosim/nitrosim/timing/sched"
	"github.com/nitrosim/nitrosim/timing/timer"
)

// Core indices.
const (
	Core7 = 0
	Core9 = 1

	NumCores = 2
)

// Interrupt request bits, one line per source.
const (
	IRQTimer0 uint32 = 1 << (3 + iota)
	IRQTimer1
	IRQTimer2
	IRQTimer3
)

// Machine is one dual-core console: both CPUs, both timer blocks, and
// the per-core pending interrupt lines.
type Machine struct {
	Sched  *sched.Scheduler
	CPUs   [NumCores]*emu.CPU
	Timers [NumCores]*timer.Block

	irq [NumCores]uint32
}

// NewMachine builds a machine with each core on its own bus. The cores
// are not reset; call Reset before stepping.
func NewMachine(bus7, bus9 mem.Bus) *Machine {
	m := &Machine{Sched: sched.New()}
	m.CPUs[Core7] = emu.New(bus7, m.Sched)
	m.CPUs[Core9] = emu.New(bus9, m.Sched)
	for core := 0; core < NumCores; core++ {
		core := core
		m.Timers[core] = timer.NewBlock(m.Sched, core, func(index int) {
			m.irq[core] |= IRQTimer0 << index
		})
	}
	return m
}

// Reset resets both cores to their entry points. The reset pipeline
// fills charge cycles in core order.
func (m *Machine) Reset(entry7, entry9 uint32) {
	m.CPUs[Core9].Reset(entry9)
	m.CPUs[Core7].Reset(entry7)
}

// Step runs one instruction on each core, the faster core first.
func (m *Machine) Step() {
	m.CPUs[Core9].Step()
	m.CPUs[Core7].Step()
}

// IRQ returns the pending interrupt lines of one core.
func (m *Machine) IRQ(core int) uint32 { return m.irq[core] }

// AckIRQ clears the given pending interrupt lines of one core.
func (m *Machine) AckIRQ(core int, lines uint32) { m.irq[core] &^= lines }
