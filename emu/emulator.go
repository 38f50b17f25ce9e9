package emu

import (
	"fmt"

	"github.com/sarchlab/rv32sim/insts"
)

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// PC is the address of the executed instruction.
	PC uint32

	// Word is the executed instruction word.
	Word insts.Word

	// Halted is true if the instruction was a jump to itself.
	Halted bool
}

// ErrMaxInstructions is returned by Run when the instruction limit is hit.
var ErrMaxInstructions = fmt.Errorf("max instructions reached")

// Emulator executes RV32I instructions one at a time with no pipelining.
// It shares the decoder and execution units with the timing pipeline and
// serves as its architectural reference.
type Emulator struct {
	regFile *RegFile
	imem    *InstructionMemory
	bus     *Bus

	pc uint32

	instructionCount uint64
	maxInstructions  uint64 // 0 means no limit
	halted           bool
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// WithEntryPoint sets the initial program counter.
func WithEntryPoint(pc uint32) EmulatorOption {
	return func(e *Emulator) {
		e.pc = pc
	}
}

// NewEmulator creates an emulator over the given state.
func NewEmulator(regFile *RegFile, imem *InstructionMemory, bus *Bus, opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile: regFile,
		imem:    imem,
		bus:     bus,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// PC returns the address of the next instruction.
func (e *Emulator) PC() uint32 {
	return e.pc
}

// SetPC sets the program counter.
func (e *Emulator) SetPC(pc uint32) {
	e.pc = pc
}

// InstructionCount returns the number of instructions executed.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// Halted returns true once a jump-to-self has executed.
func (e *Emulator) Halted() bool {
	return e.halted
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	pc := e.pc
	word := e.imem.Fetch(pc)
	ctrl := insts.DecodeWord(word)
	imm := insts.ExtendImmediate(word.ImmField(), ctrl.ImmFormat)

	rs1 := e.regFile.Read(word.Rs1())
	rs2 := e.regFile.Read(word.Rs2())

	a := rs1
	if ctrl.ALUASrc == insts.ASrcPC {
		a = pc
	}
	b := rs2
	if ctrl.ALUBSrc == insts.BSrcImm {
		b = imm
	}
	aluResult := ALU(ctrl.ALUOp, a, b)

	var memData uint32
	if ctrl.MemRead {
		memData = e.bus.Load(ctrl.MemAccessKind, aluResult)
	} else if ctrl.MemWrite {
		e.bus.Store(ctrl.MemAccessKind, aluResult, rs2)
	}

	var value uint32
	switch ctrl.RegWriteSource {
	case insts.WBFromMemory:
		value = memData
	case insts.WBFromPCPlus4:
		value = pc + 4
	default:
		value = aluResult
	}
	e.regFile.Write(word.Rd(), value, ctrl.RegWrite)

	result := StepResult{PC: pc, Word: word}
	e.pc = pc + 4
	if ResolveBranch(ctrl.BranchOp, rs1, rs2) {
		e.pc = JumpTarget(ctrl, aluResult)
		if e.pc == pc && ctrl.BranchOp.IsJump() {
			result.Halted = true
			e.halted = true
		}
	}

	e.instructionCount++

	return result
}

// Run executes instructions until the program halts or the limit is hit.
func (e *Emulator) Run() error {
	for !e.halted {
		if e.maxInstructions > 0 && e.instructionCount >= e.maxInstructions {
			return ErrMaxInstructions
		}
		e.Step()
	}
	return nil
}
