package insts

// ALUOp selects the ALU operation. Values follow the {funct7[5], funct3}
// composite used by register-register instructions.
type ALUOp uint8

// ALU operations.
const (
	ALUAdd   ALUOp = 0b0000
	ALUSll   ALUOp = 0b0001
	ALUSlt   ALUOp = 0b0010
	ALUSltu  ALUOp = 0b0011
	ALUXor   ALUOp = 0b0100
	ALUSrl   ALUOp = 0b0101
	ALUOr    ALUOp = 0b0110
	ALUAnd   ALUOp = 0b0111
	ALUSub   ALUOp = 0b1000
	ALUSra   ALUOp = 0b1101
	ALUPassB ALUOp = 0b1111 // Result is operand B (LUI)
)

var aluOpNames = map[ALUOp]string{
	ALUAdd:   "add",
	ALUSll:   "sll",
	ALUSlt:   "slt",
	ALUSltu:  "sltu",
	ALUXor:   "xor",
	ALUSrl:   "srl",
	ALUOr:    "or",
	ALUAnd:   "and",
	ALUSub:   "sub",
	ALUSra:   "sra",
	ALUPassB: "passb",
}

func (op ALUOp) String() string {
	if name, ok := aluOpNames[op]; ok {
		return name
	}
	return "undef"
}

// OperandASource selects the first ALU operand.
type OperandASource uint8

// Operand A sources.
const (
	ASrcRs1 OperandASource = iota
	ASrcPC
)

// OperandBSource selects the second ALU operand.
type OperandBSource uint8

// Operand B sources.
const (
	BSrcRs2 OperandBSource = iota
	BSrcImm
)

// MemAccessKind is the width/signedness of a load or store. It is the
// instruction's funct3 field.
type MemAccessKind uint8

// Memory access kinds.
const (
	MemByte         MemAccessKind = 0b000
	MemHalf         MemAccessKind = 0b001
	MemWord         MemAccessKind = 0b010
	MemByteUnsigned MemAccessKind = 0b100
	MemHalfUnsigned MemAccessKind = 0b101
)

// Size returns the access width in bytes, or 0 for an undefined kind.
func (k MemAccessKind) Size() int {
	switch k {
	case MemByte, MemByteUnsigned:
		return 1
	case MemHalf, MemHalfUnsigned:
		return 2
	case MemWord:
		return 4
	default:
		return 0
	}
}

// WriteSource selects the value written back to the register file.
type WriteSource uint8

// Writeback sources.
const (
	WBFromALU WriteSource = iota
	WBFromMemory
	WBFromPCPlus4
)

// ImmFormat is the immediate format tag consumed by ExtendImmediate.
type ImmFormat uint8

// Immediate formats. ImmNone (and any other undefined tag) extends to zero.
const (
	ImmNone ImmFormat = iota
	ImmI
	ImmS
	ImmB
	ImmU
	ImmJ
)

// BranchOp is the 5-bit branch code. Bit 4 flags an unconditional jump.
// Conditional branches set bit 3 and carry funct3 in bits [2:0].
type BranchOp uint8

// Branch codes.
const (
	BranchNone BranchOp = 0b00000
	BranchEQ   BranchOp = 0b01000
	BranchNE   BranchOp = 0b01001
	BranchLT   BranchOp = 0b01100
	BranchGE   BranchOp = 0b01101
	BranchLTU  BranchOp = 0b01110
	BranchGEU  BranchOp = 0b01111
	BranchJump BranchOp = 0b10000

	branchCondFlag BranchOp = 0b01000
)

// IsJump reports whether the code is an unconditional jump.
func (b BranchOp) IsJump() bool { return b&BranchJump != 0 }

// Control is the control bundle produced by Decode. The zero value is the
// all-disabled bundle carried by a pipeline bubble.
type Control struct {
	ALUASrc        OperandASource
	ALUBSrc        OperandBSource
	ALUOp          ALUOp
	MemWrite       bool
	MemRead        bool
	MemAccessKind  MemAccessKind
	RegWrite       bool
	RegWriteSource WriteSource
	ImmFormat      ImmFormat
	BranchOp       BranchOp
}

// IsBubble reports whether the bundle has no architectural effect.
func (c Control) IsBubble() bool {
	return !c.RegWrite && !c.MemWrite && !c.MemRead && c.BranchOp == BranchNone
}
