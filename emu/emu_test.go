package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nitrosim/nitrosim/emu"
	"github.com/nitrosim/nitrosim/mem"
	"github.com/nitrosim/nitrosim/timing/sched"
)

var _ = Describe("CPU", func() {
	var (
		bus *mem.FlatBus
		s   *sched.Scheduler
		c   *emu.CPU
	)

	BeforeEach(func() {
		bus = mem.NewFlatBus(0, 0x10000, nil)
		s = sched.New()
		c = emu.New(bus, s)
	})

	// loadProgram writes instruction words starting at addr.
	loadProgram := func(addr uint32, words ...uint32) {
		for i, w := range words {
			bus.Write32(mem.Sequential, addr+uint32(i)*4, w)
		}
	}

	Describe("Reset", func() {
		It("should fill the pipeline and charge two fetch cycles", func() {
			loadProgram(0, 0xE3A0100A, 0xE0812001)
			c.Reset(0)

			Expect(c.Regs().PC()).To(Equal(uint32(4)))
			Expect(c.Cycle()).To(Equal(uint64(2)))
			Expect(c.Regs().Mode()).To(Equal(emu.ModeSystem))
		})
	})

	Describe("pipeline offset", func() {
		It("should expose the program counter 8 bytes ahead", func() {
			for _, entry := range []uint32{0, 0x200, 0x8000} {
				bus = mem.NewFlatBus(0, 0x10000, nil)
				c = emu.New(bus, sched.New())
				loadProgram(entry, 0xE1A0000F) // MOV R0, R15
				c.Reset(entry)
				c.Step()

				Expect(c.Regs().Reg(0)).To(Equal(entry+8), "entry %X", entry)
			}
		})

		It("should read 12 bytes ahead under a register-specified shift", func() {
			loadProgram(0, 0xE1A0021F) // MOV R0, R15, LSL R2
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(12)))
		})
	})

	Describe("data processing", func() {
		It("should move immediates", func() {
			loadProgram(0, 0xE3A0100A) // MOV R1, #10
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(10)))
			Expect(c.Cycle()).To(Equal(uint64(3)))
		})

		It("should set Z on a zero result", func() {
			loadProgram(0, 0xE3B00000) // MOVS R0, #0
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Z()).To(BeTrue())
			Expect(c.Regs().N()).To(BeFalse())
		})

		It("should set N and V on signed overflow", func() {
			loadProgram(0, 0xE2910001) // ADDS R0, R1, #1
			c.Reset(0)
			c.Regs().SetReg(1, 0x7FFFFFFF)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(0x80000000)))
			Expect(c.Regs().N()).To(BeTrue())
			Expect(c.Regs().V()).To(BeTrue())
			Expect(c.Regs().C()).To(BeFalse())
			Expect(c.Regs().Z()).To(BeFalse())
		})

		It("should set C when subtraction does not borrow", func() {
			loadProgram(0, 0xE0510002) // SUBS R0, R1, R2
			c.Reset(0)
			c.Regs().SetReg(1, 5)
			c.Regs().SetReg(2, 3)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(2)))
			Expect(c.Regs().C()).To(BeTrue())
		})

		It("should clear C when subtraction borrows", func() {
			loadProgram(0, 0xE0510002) // SUBS R0, R1, R2
			c.Reset(0)
			c.Regs().SetReg(1, 3)
			c.Regs().SetReg(2, 5)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(0xFFFFFFFE)))
			Expect(c.Regs().C()).To(BeFalse())
			Expect(c.Regs().N()).To(BeTrue())
		})

		It("should compare equal values as equal", func() {
			loadProgram(0, 0xE1500000) // CMP R0, R0
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Z()).To(BeTrue())
			Expect(c.Regs().C()).To(BeTrue())
		})

		It("should restore the saved status register on MOVS PC", func() {
			loadProgram(0, 0xEF000000)   // SWI #0
			loadProgram(8, 0xE1B0F00E)   // MOVS PC, R14
			c.Reset(0)
			c.Step() // SWI: now in supervisor mode at the vector
			Expect(c.Regs().Mode()).To(Equal(emu.ModeSupervisor))

			c.Step() // return
			Expect(c.Regs().Mode()).To(Equal(emu.ModeSystem))
			Expect(c.Regs().PC()).To(Equal(uint32(8)))
		})
	})

	Describe("condition codes", func() {
		It("should skip a failed condition in one cycle", func() {
			loadProgram(0, 0x03A00005) // MOVEQ R0, #5
			c.Reset(0)
			start := c.Cycle()
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(0)))
			Expect(c.Cycle() - start).To(Equal(uint64(1)))
		})
	})

	Describe("branches", func() {
		It("should link the return address", func() {
			loadProgram(0, 0xEB000000) // BL +0
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Reg(14)).To(Equal(uint32(4)))
			Expect(c.Regs().PC()).To(Equal(uint32(12)))
		})

		It("should switch to the compact set on an odd BX target", func() {
			loadProgram(0, 0xE12FFF10) // BX R0
			c.Reset(0)
			c.Regs().SetReg(0, 0x201)
			c.Step()

			Expect(c.Regs().T()).To(BeTrue())
			Expect(c.Regs().PC()).To(Equal(uint32(0x202)))
		})
	})

	Describe("single data transfer", func() {
		It("should rotate misaligned word loads for every alignment", func() {
			wants := []uint32{0x11223344, 0x44112233, 0x33441122, 0x22334411}
			for align, want := range wants {
				bus = mem.NewFlatBus(0, 0x10000, nil)
				c = emu.New(bus, sched.New())
				loadProgram(0, 0xE5901000) // LDR R1, [R0]
				bus.Write32(mem.Sequential, 0x100, 0x11223344)
				c.Reset(0)
				c.Regs().SetReg(0, 0x100+uint32(align))
				c.Step()

				Expect(c.Regs().Reg(1)).To(Equal(want), "alignment %d", align)
			}
		})

		It("should charge fetch, load, and internal cycles", func() {
			loadProgram(0, 0xE5901000) // LDR R1, [R0]
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			start := c.Cycle()
			c.Step()

			Expect(c.Cycle() - start).To(Equal(uint64(3)))
		})

		It("should suppress write-back when a load targets the base", func() {
			loadProgram(0, 0xE5B00004) // LDR R0, [R0, #4]!
			bus.Write32(mem.Sequential, 0x104, 0xDEADBEEF)
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(0xDEADBEEF)))
		})

		It("should store the program counter 12 bytes ahead", func() {
			loadProgram(0, 0xE580F000) // STR R15, [R0]
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(bus.Read32(mem.Sequential, 0x100)).To(Equal(uint32(12)))
		})
	})

	Describe("halfword transfer", func() {
		It("should rotate misaligned halfword loads", func() {
			loadProgram(0, 0xE1D010B0) // LDRH R1, [R0]
			bus.Write16(mem.Sequential, 0x102, 0xAABB)
			c.Reset(0)
			c.Regs().SetReg(0, 0x103)
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(0xBB0000AA)))
		})

		It("should sign-extend byte loads", func() {
			loadProgram(0, 0xE1D010D0) // LDRSB R1, [R0]
			bus.Write8(mem.Sequential, 0x100, 0x80)
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(0xFFFFFF80)))
		})

		It("should degrade a misaligned signed halfword load to a byte", func() {
			loadProgram(0, 0xE1D010F0) // LDRSH R1, [R0]
			bus.Write8(mem.Sequential, 0x103, 0x80)
			c.Reset(0)
			c.Regs().SetReg(0, 0x103)
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(0xFFFFFF80)))
		})

		It("should store halfwords", func() {
			loadProgram(0, 0xE1C010B0) // STRH R1, [R0]
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Regs().SetReg(1, 0x1234ABCD)
			c.Step()

			Expect(bus.Read16(mem.Sequential, 0x100)).To(Equal(uint16(0xABCD)))
		})
	})

	Describe("block data transfer", func() {
		It("should store ascending registers and write back", func() {
			loadProgram(0, 0xE8A00006) // STMIA R0!, {R1, R2}
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Regs().SetReg(1, 0x11)
			c.Regs().SetReg(2, 0x22)
			c.Step()

			Expect(bus.Read32(mem.Sequential, 0x100)).To(Equal(uint32(0x11)))
			Expect(bus.Read32(mem.Sequential, 0x104)).To(Equal(uint32(0x22)))
			Expect(c.Regs().Reg(0)).To(Equal(uint32(0x108)))
		})

		It("should load descending-before blocks", func() {
			loadProgram(0, 0xE9300006) // LDMDB R0!, {R1, R2}
			bus.Write32(mem.Sequential, 0x100, 0x11)
			bus.Write32(mem.Sequential, 0x104, 0x22)
			c.Reset(0)
			c.Regs().SetReg(0, 0x108)
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(0x11)))
			Expect(c.Regs().Reg(2)).To(Equal(uint32(0x22)))
			Expect(c.Regs().Reg(0)).To(Equal(uint32(0x100)))
		})

		It("should transfer R15 once for an empty register list", func() {
			loadProgram(0, 0xE8A00000) // STMIA R0!, {}
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(bus.Read32(mem.Sequential, 0x140)).To(Equal(uint32(12)))
			Expect(c.Regs().Reg(0)).To(Equal(uint32(0x140)))
		})

		It("should suppress write-back when a load includes the base", func() {
			loadProgram(0, 0xE8B00003) // LDMIA R0!, {R0, R1}
			bus.Write32(mem.Sequential, 0x100, 0xAA)
			bus.Write32(mem.Sequential, 0x104, 0xBB)
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(0xAA)))
			Expect(c.Regs().Reg(1)).To(Equal(uint32(0xBB)))
		})

		It("should resume in the compact set when the saved status selects it", func() {
			loadProgram(0, 0xE8D08000) // LDMIA R0, {PC}^
			bus.Write32(mem.Sequential, 0x100, 0x200)
			c.Reset(0)
			c.Regs().ChangeMode(emu.ModeIRQ)
			c.Regs().SetSPSR(uint32(emu.ModeSystem) | 1<<5)
			c.Regs().SetReg(0, 0x100)
			c.Step()

			Expect(c.Regs().Mode()).To(Equal(emu.ModeSystem))
			Expect(c.Regs().T()).To(BeTrue())
			Expect(c.Regs().PC()).To(Equal(uint32(0x202)))
		})
	})

	Describe("multiply", func() {
		It("should multiply", func() {
			loadProgram(0, 0xE0000291) // MUL R0, R1, R2
			c.Reset(0)
			c.Regs().SetReg(1, 7)
			c.Regs().SetReg(2, 6)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(42)))
		})

		It("should accumulate", func() {
			loadProgram(0, 0xE0203291) // MLA R0, R1, R2, R3
			c.Reset(0)
			c.Regs().SetReg(1, 7)
			c.Regs().SetReg(2, 6)
			c.Regs().SetReg(3, 100)
			c.Step()

			Expect(c.Regs().Reg(0)).To(Equal(uint32(142)))
		})

		It("should produce 64-bit unsigned products", func() {
			loadProgram(0, 0xE0932190) // UMULLS R2, R3, R0, R1
			c.Reset(0)
			c.Regs().SetReg(0, 0x80000000)
			c.Regs().SetReg(1, 2)
			c.Step()

			Expect(c.Regs().Reg(2)).To(Equal(uint32(0)))
			Expect(c.Regs().Reg(3)).To(Equal(uint32(1)))
			Expect(c.Regs().N()).To(BeFalse())
			Expect(c.Regs().Z()).To(BeFalse())
		})

		It("should produce 64-bit signed products", func() {
			loadProgram(0, 0xE0D32190) // SMULLS R2, R3, R0, R1
			c.Reset(0)
			c.Regs().SetReg(0, 0xFFFFFFFE) // -2
			c.Regs().SetReg(1, 3)
			c.Step()

			Expect(c.Regs().Reg(2)).To(Equal(uint32(0xFFFFFFFA)))
			Expect(c.Regs().Reg(3)).To(Equal(uint32(0xFFFFFFFF)))
			Expect(c.Regs().N()).To(BeTrue())
		})
	})

	Describe("single data swap", func() {
		It("should swap a word atomically", func() {
			loadProgram(0, 0xE1001092) // SWP R1, R2, [R0]
			bus.Write32(mem.Sequential, 0x100, 0xCAFEBABE)
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			c.Regs().SetReg(2, 0x12345678)
			start := c.Cycle()
			c.Step()

			Expect(c.Regs().Reg(1)).To(Equal(uint32(0xCAFEBABE)))
			Expect(bus.Read32(mem.Sequential, 0x100)).To(Equal(uint32(0x12345678)))
			Expect(c.Cycle() - start).To(Equal(uint64(4)))
		})
	})

	Describe("status transfer", func() {
		It("should write the flag byte through MSR", func() {
			loadProgram(0, 0xE328F20F) // MSR CPSR_f, #0xF0000000
			c.Reset(0)
			c.Step()

			Expect(c.Regs().N()).To(BeTrue())
			Expect(c.Regs().Z()).To(BeTrue())
			Expect(c.Regs().C()).To(BeTrue())
			Expect(c.Regs().V()).To(BeTrue())
			Expect(c.Regs().Mode()).To(Equal(emu.ModeSystem))
		})

		It("should read the status register through MRS", func() {
			loadProgram(0, 0xE10F3000) // MRS R3, CPSR
			c.Reset(0)
			c.Step()

			Expect(c.Regs().Reg(3)).To(Equal(c.Regs().CPSR()))
		})

		It("should protect the control byte in user mode", func() {
			loadProgram(0,
				0xE321F010, // MSR CPSR_c, #0x10
				0xE129F001, // MSR CPSR_fc, R1
			)
			c.Reset(0)
			c.Regs().SetReg(1, 0xF0000000|uint32(emu.ModeSupervisor))
			c.Step()
			Expect(c.Regs().Mode()).To(Equal(emu.ModeUser))

			// The second write asks for flags and control; only the
			// flag byte may take effect in user mode.
			c.Step()
			Expect(c.Regs().N()).To(BeTrue())
			Expect(c.Regs().Z()).To(BeTrue())
			Expect(c.Regs().C()).To(BeTrue())
			Expect(c.Regs().V()).To(BeTrue())
			Expect(c.Regs().Mode()).To(Equal(emu.ModeUser))
		})
	})

	Describe("software interrupt", func() {
		It("should enter supervisor mode at the vector", func() {
			loadProgram(0, 0xEF000000) // SWI #0
			c.Reset(0)
			oldCPSR := c.Regs().CPSR()
			c.Step()

			Expect(c.Regs().Mode()).To(Equal(emu.ModeSupervisor))
			Expect(c.Regs().Reg(14)).To(Equal(uint32(4)))
			Expect(c.Regs().I()).To(BeTrue())
			Expect(c.Regs().PC()).To(Equal(uint32(0xC)))
			Expect(c.Regs().SPSR()).To(Equal(oldCPSR))
		})
	})

	Describe("end-to-end", func() {
		It("should run a short program with exact cycle accounting", func() {
			loadProgram(0,
				0xE3A0100A, // MOV R1, #10
				0xE0812001, // ADD R2, R1, R1
				0xE5802000, // STR R2, [R0]
				0xEAFFFFFE, // B .
			)
			c.Reset(0)
			c.Regs().SetReg(0, 0x100)
			for i := 0; i < 4; i++ {
				c.Step()
			}

			Expect(c.Regs().Reg(1)).To(Equal(uint32(10)))
			Expect(c.Regs().Reg(2)).To(Equal(uint32(20)))
			Expect(bus.Read32(mem.Sequential, 0x100)).To(Equal(uint32(20)))
			Expect(c.Regs().PC()).To(Equal(uint32(16)))
			Expect(c.Cycle()).To(Equal(uint64(9)))
		})
	})
})

var _ = Describe("RegFile", func() {
	It("should bank from the zero value without a status word", func() {
		var rf emu.RegFile
		rf.SetReg(13, 0x1000)
		rf.SetCPSR(uint32(emu.ModeSupervisor))
		rf.SetReg(13, 0x2000)

		rf.SetMode(emu.ModeUser)
		Expect(rf.Reg(13)).To(Equal(uint32(0x1000)))
	})

	It("should bank R13 and R14 per mode", func() {
		rf := &emu.RegFile{}
		rf.SetCPSR(uint32(emu.ModeSystem))
		rf.SetReg(13, 0x1000)
		rf.SetReg(14, 0x2000)

		rf.SetMode(emu.ModeSupervisor)
		rf.SetReg(13, 0x3000)
		Expect(rf.Reg(14)).NotTo(Equal(uint32(0x2000)))

		rf.SetMode(emu.ModeSystem)
		Expect(rf.Reg(13)).To(Equal(uint32(0x1000)))
		Expect(rf.Reg(14)).To(Equal(uint32(0x2000)))
	})

	It("should bank R8 through R14 for FIQ", func() {
		rf := &emu.RegFile{}
		rf.SetCPSR(uint32(emu.ModeSystem))
		for i := 8; i <= 14; i++ {
			rf.SetReg(i, uint32(i))
		}

		rf.SetMode(emu.ModeFIQ)
		for i := 8; i <= 14; i++ {
			rf.SetReg(i, 0xF00+uint32(i))
		}

		rf.SetMode(emu.ModeIRQ)
		for i := 8; i <= 12; i++ {
			Expect(rf.Reg(i)).To(Equal(uint32(i)), "r%d", i)
		}

		rf.SetMode(emu.ModeFIQ)
		for i := 8; i <= 14; i++ {
			Expect(rf.Reg(i)).To(Equal(0xF00+uint32(i)), "r%d", i)
		}
	})

	It("should save the old status on exception entry", func() {
		rf := &emu.RegFile{}
		rf.SetCPSR(uint32(emu.ModeSystem))
		rf.SetC(true)
		old := rf.CPSR()

		rf.ChangeMode(emu.ModeIRQ)
		Expect(rf.Mode()).To(Equal(emu.ModeIRQ))
		Expect(rf.SPSR()).To(Equal(old))

		rf.RestoreCPSR()
		Expect(rf.Mode()).To(Equal(emu.ModeSystem))
		Expect(rf.C()).To(BeTrue())
	})
})
