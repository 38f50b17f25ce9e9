package cache

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// MemoryBacking wraps emu.DataMemory as a BackingStore.
type MemoryBacking struct {
	memory *emu.DataMemory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.DataMemory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// Read fetches data from the backing memory.
func (m *MemoryBacking) Read(addr uint32, size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = m.memory.Read8(addr + uint32(i))
	}
	return data
}

// Write stores data to the backing memory.
func (m *MemoryBacking) Write(addr uint32, data []byte) {
	for i, b := range data {
		m.memory.Write8(addr+uint32(i), b)
	}
}

// DataPort puts a cache in front of data memory on the memory-stage path.
// It implements emu.DataPort.
type DataPort struct {
	cache  *Cache
	memory *emu.DataMemory
}

// NewDataPort creates a cache of the given geometry over memory. The
// memory size must be a multiple of the block size.
func NewDataPort(config Config, memory *emu.DataMemory) *DataPort {
	return &DataPort{
		cache:  New(config, NewMemoryBacking(memory)),
		memory: memory,
	}
}

// Cache returns the underlying cache.
func (p *DataPort) Cache() *Cache {
	return p.cache
}

// Load implements emu.DataPort.
func (p *DataPort) Load(kind insts.MemAccessKind, addr uint32) uint32 {
	size := kind.Size()
	if size == 0 {
		return 0
	}
	return emu.ExtendLoad(kind, p.read(addr, size))
}

// Store implements emu.DataPort.
func (p *DataPort) Store(kind insts.MemAccessKind, addr uint32, value uint32) {
	size := emu.StoreSize(kind)
	if size == 0 {
		return
	}
	p.write(addr, size, value)
}

// Flush writes every dirty line back to data memory.
func (p *DataPort) Flush() {
	p.cache.Flush()
}

func (p *DataPort) read(addr uint32, size int) uint32 {
	addr = p.memory.Normalize(addr)
	if p.fits(addr, size) {
		return p.cache.Read(addr, size).Data
	}

	// Split accesses that straddle a line or the end of memory.
	var v uint32
	for i := 0; i < size; i++ {
		b := p.cache.Read(p.memory.Normalize(addr+uint32(i)), 1).Data
		v |= b << (8 * i)
	}
	return v
}

func (p *DataPort) write(addr uint32, size int, value uint32) {
	addr = p.memory.Normalize(addr)
	if p.fits(addr, size) {
		p.cache.Write(addr, size, value)
		return
	}

	for i := 0; i < size; i++ {
		p.cache.Write(p.memory.Normalize(addr+uint32(i)), 1, value>>(8*i))
	}
}

func (p *DataPort) fits(addr uint32, size int) bool {
	blockSize := uint32(p.cache.config.BlockSize)
	return addr%blockSize+uint32(size) <= blockSize
}
