package emu

import (
	"encoding/binary"

	"github.com/sarchlab/rv32sim/insts"
)

// DefaultInstructionMemorySize is the default instruction memory size (4 KiB).
const DefaultInstructionMemorySize = 4 * 1024

// DefaultDataMemorySize is the default data memory size (1 KiB).
const DefaultDataMemorySize = 1024

// InstructionMemory is a byte-addressable, read-only (from the core) program
// store. Addresses wrap modulo the memory size.
type InstructionMemory struct {
	data []byte
}

// NewInstructionMemory creates an instruction memory of size bytes.
func NewInstructionMemory(size int) *InstructionMemory {
	if size <= 0 {
		size = DefaultInstructionMemorySize
	}
	return &InstructionMemory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *InstructionMemory) Size() int {
	return len(m.data)
}

// LoadProgram copies a program image to addr. This is the external startup
// path; the core itself never writes instruction memory.
func (m *InstructionMemory) LoadProgram(addr uint32, program []byte) {
	for i, b := range program {
		m.data[m.index(addr+uint32(i))] = b
	}
}

// Fetch returns the four bytes at addr as a little-endian word.
func (m *InstructionMemory) Fetch(addr uint32) insts.Word {
	var buf [4]byte
	for i := range buf {
		buf[i] = m.data[m.index(addr+uint32(i))]
	}
	return insts.Word(binary.LittleEndian.Uint32(buf[:]))
}

// Clear zeroes the whole memory.
func (m *InstructionMemory) Clear() {
	clear(m.data)
}

func (m *InstructionMemory) index(addr uint32) int {
	return int(addr % uint32(len(m.data)))
}

// DataPort is the width-aware load/store contract the memory stage drives.
// Loads return the value already sign- or zero-extended to 32 bits.
type DataPort interface {
	Load(kind insts.MemAccessKind, addr uint32) uint32
	Store(kind insts.MemAccessKind, addr uint32, value uint32)
}

// DataMemory is the byte-addressable data store. Addresses wrap modulo the
// memory size.
type DataMemory struct {
	data []byte
}

// NewDataMemory creates a data memory of size bytes.
func NewDataMemory(size int) *DataMemory {
	if size <= 0 {
		size = DefaultDataMemorySize
	}
	return &DataMemory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *DataMemory) Size() int {
	return len(m.data)
}

// Normalize maps addr onto its backing byte offset.
func (m *DataMemory) Normalize(addr uint32) uint32 {
	return addr % uint32(len(m.data))
}

// Read8 reads a byte.
func (m *DataMemory) Read8(addr uint32) uint8 {
	return m.data[m.Normalize(addr)]
}

// Write8 writes a byte.
func (m *DataMemory) Write8(addr uint32, value uint8) {
	m.data[m.Normalize(addr)] = value
}

// Read16 reads a little-endian halfword.
func (m *DataMemory) Read16(addr uint32) uint16 {
	return uint16(m.Read8(addr)) | uint16(m.Read8(addr+1))<<8
}

// Write16 writes a little-endian halfword.
func (m *DataMemory) Write16(addr uint32, value uint16) {
	m.Write8(addr, uint8(value))
	m.Write8(addr+1, uint8(value>>8))
}

// Read32 reads a little-endian word.
func (m *DataMemory) Read32(addr uint32) uint32 {
	return uint32(m.Read16(addr)) | uint32(m.Read16(addr+2))<<16
}

// Write32 writes a little-endian word.
func (m *DataMemory) Write32(addr uint32, value uint32) {
	m.Write16(addr, uint16(value))
	m.Write16(addr+2, uint16(value>>16))
}

// ReadN reads size bytes (1, 2 or 4) little-endian without extension.
// Other sizes read as zero.
func (m *DataMemory) ReadN(addr uint32, size int) uint32 {
	switch size {
	case 1:
		return uint32(m.Read8(addr))
	case 2:
		return uint32(m.Read16(addr))
	case 4:
		return m.Read32(addr)
	}
	return 0
}

// WriteN writes the low size bytes (1, 2 or 4) of value little-endian.
// Other sizes are dropped.
func (m *DataMemory) WriteN(addr uint32, size int, value uint32) {
	switch size {
	case 1:
		m.Write8(addr, uint8(value))
	case 2:
		m.Write16(addr, uint16(value))
	case 4:
		m.Write32(addr, value)
	}
}

// Load performs a width-aware load. Undefined kinds read as zero.
func (m *DataMemory) Load(kind insts.MemAccessKind, addr uint32) uint32 {
	size := kind.Size()
	if size == 0 {
		return 0
	}
	return ExtendLoad(kind, m.ReadN(addr, size))
}

// Store performs a width-aware store. Undefined kinds are dropped.
func (m *DataMemory) Store(kind insts.MemAccessKind, addr uint32, value uint32) {
	size := StoreSize(kind)
	if size == 0 {
		return
	}
	m.WriteN(addr, size, value)
}

// Bytes returns a copy of the memory contents.
func (m *DataMemory) Bytes() []byte {
	return append([]byte(nil), m.data...)
}

// Clear zeroes the whole memory.
func (m *DataMemory) Clear() {
	clear(m.data)
}

// ExtendLoad sign- or zero-extends raw loaded bits per the access kind.
func ExtendLoad(kind insts.MemAccessKind, raw uint32) uint32 {
	switch kind {
	case insts.MemByte:
		return uint32(int32(int8(raw)))
	case insts.MemHalf:
		return uint32(int32(int16(raw)))
	case insts.MemWord:
		return raw
	case insts.MemByteUnsigned:
		return raw & 0xFF
	case insts.MemHalfUnsigned:
		return raw & 0xFFFF
	default:
		return 0
	}
}

// StoreSize returns the store width for kind. Unsigned kinds are not valid
// store encodings and return 0.
func StoreSize(kind insts.MemAccessKind) int {
	switch kind {
	case insts.MemByte:
		return 1
	case insts.MemHalf:
		return 2
	case insts.MemWord:
		return 4
	default:
		return 0
	}
}
