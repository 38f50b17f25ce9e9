// Package cache provides a data cache model using Akita cache components.
//
// The core has single-cycle memory, so the cache never stalls the
// pipeline. It is a functional write-back, write-allocate model that
// keeps its own copy of cached blocks and gathers hit/miss statistics.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config is the cache geometry. All sizes are in bytes.
type Config struct {
	Size          int `json:"size" yaml:"size"`
	Associativity int `json:"associativity" yaml:"associativity"`
	BlockSize     int `json:"block_size" yaml:"block_size"`
}

// DefaultConfig returns a 256B, 2-way cache with 16B lines, sized for the
// default 1 KiB data memory.
func DefaultConfig() Config {
	return Config{
		Size:          256,
		Associativity: 2,
		BlockSize:     16,
	}
}

// Validate checks the geometry.
func (c Config) Validate() error {
	if !isPowerOfTwo(c.Size) {
		return fmt.Errorf("cache size must be a positive power of two, got %d", c.Size)
	}
	if !isPowerOfTwo(c.BlockSize) || c.BlockSize < 4 {
		return fmt.Errorf("block size must be a power of two >= 4, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be positive, got %d", c.Associativity)
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of associativity*block size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	return nil
}

func isPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

// AccessResult describes one cache access.
type AccessResult struct {
	Hit bool

	// Data holds the loaded bytes, little-endian, for reads.
	Data uint32

	// Evicted is set when the access displaced a valid line; EvictedAddr is
	// that line's base address.
	Evicted     bool
	EvictedAddr uint32
}

// Statistics counts cache events.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// HitRate returns hits over all accesses.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// BackingStore is the memory behind the cache. Transfers are always whole,
// line-aligned blocks.
type BackingStore interface {
	Read(addr uint32, size int) []byte
	Write(addr uint32, data []byte)
}

// Cache is a write-back, write-allocate set-associative cache. Tags, valid
// and dirty bits and LRU order live in an akita directory; line contents
// live in one flat array owned by the cache.
type Cache struct {
	config  Config
	dir     *akitacache.DirectoryImpl
	lines   []byte
	backing BackingStore
	stats   Statistics
}

// New builds a cache. config must pass Validate. backing may be nil, in
// which case lines fill with zeros and evictions are dropped.
func New(config Config, backing BackingStore) *Cache {
	sets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		dir: akitacache.NewDirectory(
			sets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		lines:   make([]byte, config.Size),
		backing: backing,
	}
}

// Config returns the cache geometry.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns the event counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats zeroes the event counters and keeps the contents.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

// line returns the storage backing a directory block.
func (c *Cache) line(block *akitacache.Block) []byte {
	start := (block.SetID*c.config.Associativity + block.WayID) * c.config.BlockSize
	return c.lines[start : start+c.config.BlockSize]
}

func (c *Cache) split(addr uint32) (base, offset uint32) {
	mask := uint32(c.config.BlockSize - 1)
	return addr &^ mask, addr & mask
}

func (c *Cache) lookup(base uint32) *akitacache.Block {
	block := c.dir.Lookup(0, uint64(base))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint32) bool {
	base, _ := c.split(addr)
	return c.lookup(base) != nil
}

// Read loads size bytes at addr. The access must stay within one line.
func (c *Cache) Read(addr uint32, size int) AccessResult {
	c.stats.Reads++
	return c.access(addr, size, false, 0)
}

// Write stores the low size bytes of value at addr. The access must stay
// within one line.
func (c *Cache) Write(addr uint32, size int, value uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, size, true, value)
}

func (c *Cache) access(addr uint32, size int, write bool, value uint32) AccessResult {
	base, offset := c.split(addr)

	var result AccessResult
	block := c.lookup(base)
	if block != nil {
		c.stats.Hits++
		result.Hit = true
	} else {
		c.stats.Misses++
		block = c.allocate(base, &result)
		if block == nil {
			return result
		}
	}
	c.dir.Visit(block)

	data := c.line(block)
	if int(offset)+size > len(data) {
		return result
	}
	if write {
		for i := 0; i < size; i++ {
			data[int(offset)+i] = byte(value >> (8 * i))
		}
		block.IsDirty = true
	} else {
		for i := 0; i < size; i++ {
			result.Data |= uint32(data[int(offset)+i]) << (8 * i)
		}
	}

	return result
}

// allocate picks the LRU way for base, writes it back if dirty and fills
// it from the backing store.
func (c *Cache) allocate(base uint32, result *AccessResult) *akitacache.Block {
	victim := c.dir.FindVictim(uint64(base))
	if victim == nil {
		return nil
	}

	data := c.line(victim)
	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)
		c.writeBack(victim)
	}

	if c.backing != nil {
		copy(data, c.backing.Read(base, c.config.BlockSize))
	} else {
		clear(data)
	}

	victim.Tag = uint64(base)
	victim.IsValid = true
	victim.IsDirty = false

	return victim
}

func (c *Cache) writeBack(block *akitacache.Block) {
	if !block.IsDirty || c.backing == nil {
		return
	}
	c.stats.Writebacks++
	c.backing.Write(uint32(block.Tag), c.line(block))
}

// Invalidate drops the line holding addr without writing it back.
func (c *Cache) Invalidate(addr uint32) {
	base, _ := c.split(addr)
	if block := c.lookup(base); block != nil {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes every dirty line back and empties the cache.
func (c *Cache) Flush() {
	for _, set := range c.dir.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid {
				c.writeBack(block)
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset empties the cache without writeback and zeroes the counters.
func (c *Cache) Reset() {
	c.dir.Reset()
	c.stats = Statistics{}
}
