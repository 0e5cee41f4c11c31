package mem

import "encoding/binary"

// FlatBus is a single contiguous RAM region on the bus. Reads outside
// the region return zero and writes outside it are dropped, so a core
// can run against a partially-populated address map.
type FlatBus struct {
	base uint32
	data []byte
	wait *WaitConfig
}

// NewFlatBus creates a FlatBus covering [base, base+size) with the
// given wait-state configuration. A nil config means every access
// costs one cycle.
func NewFlatBus(base, size uint32, wait *WaitConfig) *FlatBus {
	if wait == nil {
		wait = DefaultWaitConfig()
	}
	return &FlatBus{
		base: base,
		data: make([]byte, size),
		wait: wait,
	}
}

// Load copies a program image into memory starting at addr. Bytes that
// fall outside the region are dropped.
func (b *FlatBus) Load(addr uint32, image []byte) {
	for i, v := range image {
		off := addr + uint32(i)
		if b.contains(off) {
			b.data[off-b.base] = v
		}
	}
}

// Size returns the size of the backed region in bytes.
func (b *FlatBus) Size() uint32 { return uint32(len(b.data)) }

func (b *FlatBus) contains(addr uint32) bool {
	return addr >= b.base && addr-b.base < uint32(len(b.data))
}

func (b *FlatBus) Read8(at AccessType, addr uint32) uint8 {
	if !b.contains(addr) {
		return 0
	}
	return b.data[addr-b.base]
}

func (b *FlatBus) Read16(at AccessType, addr uint32) uint16 {
	if !b.contains(addr) || !b.contains(addr+1) {
		return 0
	}
	return binary.LittleEndian.Uint16(b.data[addr-b.base:])
}

func (b *FlatBus) Read32(at AccessType, addr uint32) uint32 {
	if !b.contains(addr) || !b.contains(addr+3) {
		return 0
	}
	return binary.LittleEndian.Uint32(b.data[addr-b.base:])
}

func (b *FlatBus) Write8(at AccessType, addr uint32, value uint8) {
	if !b.contains(addr) {
		return
	}
	b.data[addr-b.base] = value
}

func (b *FlatBus) Write16(at AccessType, addr uint32, value uint16) {
	if !b.contains(addr) || !b.contains(addr+1) {
		return
	}
	binary.LittleEndian.PutUint16(b.data[addr-b.base:], value)
}

func (b *FlatBus) Write32(at AccessType, addr uint32, value uint32) {
	if !b.contains(addr) || !b.contains(addr+3) {
		return
	}
	binary.LittleEndian.PutUint32(b.data[addr-b.base:], value)
}

func (b *FlatBus) AccessTime(at AccessType, addr uint32) uint64 {
	if at == Sequential {
		return b.wait.SequentialAccess
	}
	return b.wait.NonSequentialAccess
}
