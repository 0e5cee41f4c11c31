// Package insts provides ARM instruction classification for the 32-bit
// instruction set.
//
// Dispatch works through a 12-bit key synthesized from the two bit fields
// that determine an ARM instruction's class: bits 27..20 and bits 7..4.
// For each key a skeleton word is reconstructed with only those bits set
// and tested against an ordered list of (mask, pattern) rules. Several
// classes share prefix bits, so the specific-before-general rule order is
// mandatory, not a convenience.
package insts

import "fmt"

// NumKeys is the number of distinct dispatch keys for the 32-bit
// instruction set.
const NumKeys = 4096

// Class identifies an ARM instruction class.
type Class uint8

// ARM instruction classes.
const (
	ClassUndefined Class = iota
	ClassBranchExchange
	ClassMultiply
	ClassMultiplyLong
	ClassSingleDataSwap
	ClassHalfwordTransfer
	ClassStatusTransfer
	ClassDataProcessing
	ClassSingleDataTransfer
	ClassBlockDataTransfer
	ClassBranch
	ClassSoftwareInterrupt
	ClassCoprocessor
)

// String returns a short name for the class.
func (c Class) String() string {
	switch c {
	case ClassBranchExchange:
		return "BranchExchange"
	case ClassMultiply:
		return "Multiply"
	case ClassMultiplyLong:
		return "MultiplyLong"
	case ClassSingleDataSwap:
		return "SingleDataSwap"
	case ClassHalfwordTransfer:
		return "HalfwordTransfer"
	case ClassStatusTransfer:
		return "StatusTransfer"
	case ClassDataProcessing:
		return "DataProcessing"
	case ClassSingleDataTransfer:
		return "SingleDataTransfer"
	case ClassBlockDataTransfer:
		return "BlockDataTransfer"
	case ClassBranch:
		return "Branch"
	case ClassSoftwareInterrupt:
		return "SoftwareInterrupt"
	case ClassCoprocessor:
		return "Coprocessor"
	default:
		return "Undefined"
	}
}

// KeyFromWord extracts the 12-bit dispatch key from an instruction word.
// Key bits 11..4 come from instruction bits 27..20, key bits 3..0 from
// instruction bits 7..4.
func KeyFromWord(word uint32) uint16 {
	return uint16(word>>16&0xFF0 | word>>4&0xF)
}

// SkeletonFromKey reconstructs an instruction word with only the
// class-determining bit fields populated.
func SkeletonFromKey(key uint16) uint32 {
	return uint32(key&0xFF0)<<16 | uint32(key&0xF)<<4
}

// rule matches a class when skeleton&mask == pattern. Rules are tried in
// order; the first match wins.
type rule struct {
	mask    uint32
	pattern uint32
	class   Class
}

// rules lists the class patterns in decode precedence order. Coprocessor
// appears twice because its two encodings overlap differently with the
// software-interrupt space.
var rules = []rule{
	{0x0FF000F0, 0x01200010, ClassBranchExchange},
	{0x0FC000F0, 0x00000090, ClassMultiply},
	{0x0F8000F0, 0x00800090, ClassMultiplyLong},
	{0x0F800FF0, 0x01000090, ClassSingleDataSwap},
	{0x0E000090, 0x00000090, ClassHalfwordTransfer},
	{0x0D900000, 0x01000000, ClassStatusTransfer},
	{0x0C000000, 0x00000000, ClassDataProcessing},
	{0x0C000000, 0x04000000, ClassSingleDataTransfer},
	{0x0E000000, 0x08000000, ClassBlockDataTransfer},
	{0x0E000000, 0x0A000000, ClassBranch},
	{0x0F000000, 0x0F000000, ClassSoftwareInterrupt},
	{0x0E000000, 0x0C000000, ClassCoprocessor},
	{0x0F000000, 0x0E000000, ClassCoprocessor},
}

// Classify resolves a dispatch key to its instruction class. Keys that
// match no rule must carry the known undefined-instruction bit pattern
// (bits 25-27 = 011 and bit 4 = 1); anything else indicates a malformed
// rule list and panics.
func Classify(key uint16) Class {
	skeleton := SkeletonFromKey(key)
	for _, r := range rules {
		if skeleton&r.mask == r.pattern {
			return r.class
		}
	}
	if skeleton&0x0E000010 != 0x06000010 {
		panic(fmt.Sprintf(
			"insts: key %03X (skeleton %08X) matches no class and is not the undefined pattern",
			key, skeleton))
	}
	return ClassUndefined
}

// Bit reports whether the given bit of word is set. Handler
// specialization at table-build time reads variant bits through this.
func Bit(word uint32, n uint) bool {
	return word>>n&1 != 0
}
