package emu

import "github.com/nitrosim/nitrosim/insts"

// handlerFn executes one fully-resolved instruction variant. The table
// stores one handler per variant bit combination; decode cost is paid
// once at build time, not per execution.
type handlerFn func(c *CPU, instr uint32)

// armTable is built once per process and never mutated.
var armTable = buildARMTable()

// buildARMTable resolves every 12-bit dispatch key to a handler. Boolean
// sub-variants (immediate operand, set-flags, pre/post index, and so on)
// are read from the key's skeleton here, so each entry is specialized at
// build time.
func buildARMTable() *[insts.NumKeys]handlerFn {
	var table [insts.NumKeys]handlerFn

	for key := 0; key < insts.NumKeys; key++ {
		skel := insts.SkeletonFromKey(uint16(key))

		switch insts.Classify(uint16(key)) {
		case insts.ClassBranchExchange:
			table[key] = (*CPU).branchAndExchange
		case insts.ClassMultiply:
			table[key] = multiply(
				insts.Bit(skel, 21), insts.Bit(skel, 20))
		case insts.ClassMultiplyLong:
			table[key] = multiplyLong(
				insts.Bit(skel, 22), insts.Bit(skel, 21), insts.Bit(skel, 20))
		case insts.ClassSingleDataSwap:
			table[key] = singleDataSwap(insts.Bit(skel, 22))
		case insts.ClassHalfwordTransfer:
			table[key] = halfwordSignedTransfer(
				insts.Bit(skel, 24), insts.Bit(skel, 23), insts.Bit(skel, 22),
				insts.Bit(skel, 21), insts.Bit(skel, 20),
				insts.Bit(skel, 6), insts.Bit(skel, 5))
		case insts.ClassStatusTransfer:
			table[key] = statusTransfer(
				insts.Bit(skel, 25), insts.Bit(skel, 22), insts.Bit(skel, 21))
		case insts.ClassDataProcessing:
			table[key] = dataProcessing(
				insts.Bit(skel, 25), insts.Bit(skel, 20))
		case insts.ClassSingleDataTransfer:
			table[key] = singleDataTransfer(
				insts.Bit(skel, 25), insts.Bit(skel, 24), insts.Bit(skel, 23),
				insts.Bit(skel, 22), insts.Bit(skel, 21), insts.Bit(skel, 20))
		case insts.ClassBlockDataTransfer:
			table[key] = blockDataTransfer(
				insts.Bit(skel, 24), insts.Bit(skel, 23), insts.Bit(skel, 22),
				insts.Bit(skel, 21), insts.Bit(skel, 20))
		case insts.ClassBranch:
			table[key] = branchLink(insts.Bit(skel, 24))
		case insts.ClassSoftwareInterrupt:
			table[key] = (*CPU).softwareInterrupt
		case insts.ClassCoprocessor:
			table[key] = (*CPU).coprocessor
		default:
			table[key] = (*CPU).undefined
		}
	}

	return &table
}
