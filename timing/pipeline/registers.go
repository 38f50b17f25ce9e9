// Package pipeline models the five-stage RV32I core: the stage registers,
// the per-stage datapath, the hazard unit and the cycle sequencer.
package pipeline

import "github.com/sarchlab/rv32sim/insts"

// IFIDRegister is the Fetch/Decode boundary. A bubble has Valid false and
// a zero word.
type IFIDRegister struct {
	Valid bool
	PC    uint32
	Word  insts.Word
}

// Clear turns the register into a bubble.
func (r *IFIDRegister) Clear() {
	*r = IFIDRegister{}
}

// IDEXRegister is the Decode/Execute boundary.
type IDEXRegister struct {
	Valid   bool
	PC      uint32
	Word    insts.Word
	Control insts.Control

	// Raw register fields of Word, used by the hazard unit.
	Rd, Rs1, Rs2 uint8

	// Operands as read at Decode, before forwarding.
	Rs1Value, Rs2Value uint32

	Imm uint32
}

// Clear zeroes every field.
func (r *IDEXRegister) Clear() {
	*r = IDEXRegister{}
}

// Bubble drops the control bundle but keeps the data fields, so the slot
// flows on with no side effect while a trace still shows what was killed.
func (r *IDEXRegister) Bubble() {
	r.Valid = false
	r.Control = insts.Control{}
}

// EXMEMRegister is the Execute/Memory boundary.
type EXMEMRegister struct {
	Valid   bool
	PC      uint32
	Word    insts.Word
	Control insts.Control

	// ALUResult is the effective address for loads and stores.
	ALUResult uint32

	// StoreValue is the forwarded rs2.
	StoreValue uint32

	Rd uint8

	// Halt marks a taken jump to its own address.
	Halt bool
}

// Clear zeroes every field.
func (r *EXMEMRegister) Clear() {
	*r = EXMEMRegister{}
}

// ForwardValue is the value this stage offers to Execute. Link
// instructions offer PC+4; everything else offers the ALU result, so a
// load in this stage never forwards its data.
func (r *EXMEMRegister) ForwardValue() uint32 {
	if r.Control.RegWriteSource == insts.WBFromPCPlus4 {
		return r.PC + 4
	}
	return r.ALUResult
}

// MEMWBRegister is the Memory/Writeback boundary.
type MEMWBRegister struct {
	Valid   bool
	PC      uint32
	Word    insts.Word
	Control insts.Control

	ALUResult uint32
	MemData   uint32
	Rd        uint8

	// Halt marks a taken jump to its own address.
	Halt bool
}

// Clear zeroes every field.
func (r *MEMWBRegister) Clear() {
	*r = MEMWBRegister{}
}

// Result returns the value selected by the write-back source.
func (r *MEMWBRegister) Result() uint32 {
	switch r.Control.RegWriteSource {
	case insts.WBFromMemory:
		return r.MemData
	case insts.WBFromPCPlus4:
		return r.PC + 4
	default:
		return r.ALUResult
	}
}
