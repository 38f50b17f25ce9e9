package pipeline

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// FetchStage reads instruction words.
type FetchStage struct {
	memory *emu.InstructionMemory
}

// NewFetchStage creates a fetch stage over memory.
func NewFetchStage(memory *emu.InstructionMemory) *FetchStage {
	return &FetchStage{
		memory: memory,
	}
}

// Fetch returns the little-endian word at pc.
func (s *FetchStage) Fetch(pc uint32) insts.Word {
	return s.memory.Fetch(pc)
}

// DecodeStage generates control and reads the register file.
type DecodeStage struct {
	regFile *emu.RegFile
}

// NewDecodeStage creates a decode stage reading regFile.
func NewDecodeStage(regFile *emu.RegFile) *DecodeStage {
	return &DecodeStage{
		regFile: regFile,
	}
}

// DecodeResult is everything Decode latches into ID/EX.
type DecodeResult struct {
	Control            insts.Control
	Rd, Rs1, Rs2       uint8
	Rs1Value, Rs2Value uint32
	Imm                uint32
}

// Decode decodes the instruction and reads register values. It must run
// after writeback in the same cycle so that it observes that write.
func (s *DecodeStage) Decode(word insts.Word) DecodeResult {
	ctrl := insts.DecodeWord(word)

	return DecodeResult{
		Control:  ctrl,
		Rd:       word.Rd(),
		Rs1:      word.Rs1(),
		Rs2:      word.Rs2(),
		Rs1Value: s.regFile.Read(word.Rs1()),
		Rs2Value: s.regFile.Read(word.Rs2()),
		Imm:      insts.ExtendImmediate(word.ImmField(), ctrl.ImmFormat),
	}
}

// ExecuteStage selects ALU operands, computes the result and resolves
// branches and jumps.
type ExecuteStage struct{}

// NewExecuteStage creates an execute stage.
func NewExecuteStage() *ExecuteStage {
	return &ExecuteStage{}
}

// ExecuteResult is the Execute output for one cycle.
type ExecuteResult struct {
	ALUResult  uint32
	StoreValue uint32

	BranchTaken  bool
	BranchTarget uint32

	// SelfLoop is set for a taken jump whose target is its own PC.
	SelfLoop bool
}

// Execute runs the ALU on the forwarded operands rs1 and rs2.
func (s *ExecuteStage) Execute(idex *IDEXRegister, rs1, rs2 uint32) ExecuteResult {
	ctrl := idex.Control

	a := rs1
	if ctrl.ALUASrc == insts.ASrcPC {
		a = idex.PC
	}
	b := rs2
	if ctrl.ALUBSrc == insts.BSrcImm {
		b = idex.Imm
	}

	result := ExecuteResult{
		ALUResult:  emu.ALU(ctrl.ALUOp, a, b),
		StoreValue: rs2,
	}

	if emu.ResolveBranch(ctrl.BranchOp, rs1, rs2) {
		result.BranchTaken = true
		result.BranchTarget = emu.JumpTarget(ctrl, result.ALUResult)
		result.SelfLoop = ctrl.BranchOp.IsJump() && result.BranchTarget == idex.PC
	}

	return result
}

// MemoryStage drives the data port.
type MemoryStage struct {
	port emu.DataPort
}

// NewMemoryStage creates a new memory stage over port, normally an
// *emu.Bus so that peripheral addresses are intercepted.
func NewMemoryStage(port emu.DataPort) *MemoryStage {
	return &MemoryStage{
		port: port,
	}
}

// MemoryResult carries the loaded value, already extended.
type MemoryResult struct {
	MemData uint32
}

// Access performs the load or store named by the EX/MEM control bundle.
// Bubbles touch nothing.
func (s *MemoryStage) Access(exmem *EXMEMRegister) MemoryResult {
	ctrl := exmem.Control

	switch {
	case ctrl.MemRead:
		return MemoryResult{MemData: s.port.Load(ctrl.MemAccessKind, exmem.ALUResult)}
	case ctrl.MemWrite:
		s.port.Store(ctrl.MemAccessKind, exmem.ALUResult, exmem.StoreValue)
	}

	return MemoryResult{}
}

// WritebackStage owns the only register-file write port.
type WritebackStage struct {
	regFile *emu.RegFile
}

// NewWritebackStage creates a writeback stage writing regFile.
func NewWritebackStage(regFile *emu.RegFile) *WritebackStage {
	return &WritebackStage{
		regFile: regFile,
	}
}

// Writeback commits the selected result when RegWrite is set.
func (s *WritebackStage) Writeback(memwb *MEMWBRegister) {
	s.regFile.Write(memwb.Rd, memwb.Result(), memwb.Control.RegWrite)
}
