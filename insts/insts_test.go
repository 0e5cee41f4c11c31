package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nitrosim/nitrosim/insts"
)

var _ = Describe("Classification", func() {
	It("should classify every dispatch key", func() {
		for key := 0; key < insts.NumKeys; key++ {
			Expect(func() { insts.Classify(uint16(key)) }).NotTo(Panic(),
				"key %03X", key)
		}
	})

	It("should round-trip key and skeleton", func() {
		for key := 0; key < insts.NumKeys; key++ {
			skel := insts.SkeletonFromKey(uint16(key))
			Expect(insts.KeyFromWord(skel)).To(Equal(uint16(key)))
		}
	})

	It("should classify representative encodings", func() {
		cases := []struct {
			word  uint32
			class insts.Class
		}{
			{0xE12FFF10, insts.ClassBranchExchange},   // BX R0
			{0xE0000291, insts.ClassMultiply},         // MUL R0, R1, R2
			{0xE0203291, insts.ClassMultiply},         // MLA R0, R1, R2, R3
			{0xE0932190, insts.ClassMultiplyLong},     // UMULLS R2, R3, R0, R1
			{0xE0D32190, insts.ClassMultiplyLong},     // SMULLS R2, R3, R0, R1
			{0xE1001092, insts.ClassSingleDataSwap},   // SWP R1, R2, [R0]
			{0xE1D010B0, insts.ClassHalfwordTransfer}, // LDRH R1, [R0]
			{0xE1C010B0, insts.ClassHalfwordTransfer}, // STRH R1, [R0]
			{0xE10F3000, insts.ClassStatusTransfer},   // MRS R3, CPSR
			{0xE328F20F, insts.ClassStatusTransfer},   // MSR CPSR_f, #0xF0000000
			{0xE3A0100A, insts.ClassDataProcessing},   // MOV R1, #10
			{0xE0812001, insts.ClassDataProcessing},   // ADD R2, R1, R1
			{0xE1500000, insts.ClassDataProcessing},   // CMP R0, R0
			{0xE5901000, insts.ClassSingleDataTransfer}, // LDR R1, [R0]
			{0xE5802000, insts.ClassSingleDataTransfer}, // STR R2, [R0]
			{0xE8A00006, insts.ClassBlockDataTransfer},  // STMIA R0!, {R1, R2}
			{0xE9300006, insts.ClassBlockDataTransfer},  // LDMDB R0!, {R1, R2}
			{0xEAFFFFFE, insts.ClassBranch},             // B .
			{0xEB000000, insts.ClassBranch},             // BL +0
			{0xEF000000, insts.ClassSoftwareInterrupt},  // SWI #0
			{0xEE000000, insts.ClassCoprocessor},        // CDP
		}

		for _, tc := range cases {
			key := insts.KeyFromWord(tc.word)
			Expect(insts.Classify(key)).To(Equal(tc.class),
				"word %08X", tc.word)
		}
	})

	It("should keep the status transfer rules ahead of data processing", func() {
		// TST/TEQ/CMP/CMN without the set-flags bit occupy the same
		// prefix space as MRS/MSR; those keys must resolve to status
		// transfer, never to data processing.
		Expect(insts.Classify(insts.KeyFromWord(0xE10F3000))).
			To(Equal(insts.ClassStatusTransfer))
		Expect(insts.Classify(insts.KeyFromWord(0xE129F000))).
			To(Equal(insts.ClassStatusTransfer))
	})

	It("should name every class", func() {
		for c := insts.ClassUndefined; c <= insts.ClassCoprocessor; c++ {
			Expect(c.String()).NotTo(BeEmpty())
		}
	})
})

var _ = Describe("Bit", func() {
	It("should read single bits", func() {
		Expect(insts.Bit(1<<25, 25)).To(BeTrue())
		Expect(insts.Bit(1<<25, 24)).To(BeFalse())
	})
})
