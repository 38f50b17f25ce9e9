// Package emu provides functional RV32I emulation: the register file,
// execution units, memories and the memory-mapped I/O bus shared by the
// functional emulator and the timing pipeline.
package emu

// NumRegs is the number of integer registers.
const NumRegs = 32

// RegSP is the ABI stack pointer register (x2).
const RegSP = 2

// DefaultStackPointer is the value x2 holds after reset.
const DefaultStackPointer uint32 = 0x3FC

// RegFile represents the RV32I integer register file.
// x0 always reads as zero and ignores writes.
type RegFile struct {
	x [NumRegs]uint32

	resetSP uint32
}

// NewRegFile creates a register file whose stack pointer resets to sp.
func NewRegFile(sp uint32) *RegFile {
	r := &RegFile{resetSP: sp}
	r.Reset()
	return r
}

// Reset clears every register and reloads the stack pointer.
func (r *RegFile) Reset() {
	r.x = [NumRegs]uint32{}
	r.x[RegSP] = r.resetSP
}

// Read returns the current value of a register. The index is taken modulo 32.
func (r *RegFile) Read(reg uint8) uint32 {
	reg &= NumRegs - 1
	if reg == 0 {
		return 0
	}
	return r.x[reg]
}

// Write commits value to reg when enable is set. Writes to x0 are dropped.
func (r *RegFile) Write(reg uint8, value uint32, enable bool) {
	reg &= NumRegs - 1
	if !enable || reg == 0 {
		return
	}
	r.x[reg] = value
}

// Snapshot returns a copy of all register values.
func (r *RegFile) Snapshot() [NumRegs]uint32 {
	return r.x
}
