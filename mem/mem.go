// Package mem defines the byte-addressed bus the CPU cores issue their
// accesses through, and a flat little-endian memory behind it.
package mem

// AccessType classifies a bus access for wait-state purposes. A
// sequential access follows the previous access at the next address; a
// non-sequential access starts a new burst.
type AccessType int

const (
	NonSequential AccessType = iota
	Sequential
)

func (a AccessType) String() string {
	if a == Sequential {
		return "S"
	}
	return "N"
}

// Bus is the memory interface a CPU core drives. Accesses are
// little-endian. The core charges AccessTime to the cycle budget before
// each access; the data methods themselves carry no timing.
type Bus interface {
	Read8(at AccessType, addr uint32) uint8
	Read16(at AccessType, addr uint32) uint16
	Read32(at AccessType, addr uint32) uint32
	Write8(at AccessType, addr uint32, value uint8)
	Write16(at AccessType, addr uint32, value uint16)
	Write32(at AccessType, addr uint32, value uint32)

	// AccessTime returns the cycle cost of one access of the given
	// classification at the given address.
	AccessTime(at AccessType, addr uint32) uint64
}
