// Package insts provides RV32I instruction definitions, decoding and encoding.
//
// This package turns raw 32-bit RISC-V instruction words into the control
// bundle that drives the pipeline datapath. It supports:
//   - Register-register and register-immediate ALU operations
//   - Loads (LB, LH, LW, LBU, LHU) and stores (SB, SH, SW)
//   - Conditional branches (BEQ, BNE, BLT, BGE, BLTU, BGEU)
//   - JAL, JALR, LUI and AUIPC
//
// Usage:
//
//	w := insts.Word(0x00500093) // ADDI x1, x0, 5
//	ctrl := insts.Decode(w.Opcode(), w.Funct3(), w.Funct7())
//	imm := insts.ExtendImmediate(w.ImmField(), ctrl.ImmFormat)
//	fmt.Printf("rd=%d rs1=%d imm=%d op=%v\n", w.Rd(), w.Rs1(), int32(imm), ctrl.ALUOp)
package insts

// Word is a raw 32-bit RISC-V instruction word. It is never modified once
// fetched; every stage only reinterprets it.
type Word uint32

// Major opcodes (instruction bits [6:0]).
const (
	OpcodeLoad   uint8 = 0b0000011
	OpcodeOpImm  uint8 = 0b0010011
	OpcodeAUIPC  uint8 = 0b0010111
	OpcodeStore  uint8 = 0b0100011
	OpcodeOp     uint8 = 0b0110011
	OpcodeLUI    uint8 = 0b0110111
	OpcodeBranch uint8 = 0b1100011
	OpcodeJALR   uint8 = 0b1100111
	OpcodeJAL    uint8 = 0b1101111
)

// Opcode returns bits [6:0].
func (w Word) Opcode() uint8 { return uint8(w & 0x7F) }

// Rd returns the destination register, bits [11:7].
func (w Word) Rd() uint8 { return uint8((w >> 7) & 0x1F) }

// Funct3 returns bits [14:12].
func (w Word) Funct3() uint8 { return uint8((w >> 12) & 0x7) }

// Rs1 returns the first source register, bits [19:15].
func (w Word) Rs1() uint8 { return uint8((w >> 15) & 0x1F) }

// Rs2 returns the second source register, bits [24:20].
func (w Word) Rs2() uint8 { return uint8((w >> 20) & 0x1F) }

// Funct7 returns bits [31:25].
func (w Word) Funct7() uint8 { return uint8((w >> 25) & 0x7F) }

// ImmField returns the 25-bit raw immediate field, bits [31:7]. The
// format-specific bit selection happens in ExtendImmediate.
func (w Word) ImmField() uint32 { return uint32(w>>7) & 0x1FFFFFF }
