package insts

import "fmt"

var (
	regOpNames = map[ALUOp]string{
		ALUAdd: "add", ALUSub: "sub", ALUSll: "sll", ALUSlt: "slt",
		ALUSltu: "sltu", ALUXor: "xor", ALUSrl: "srl", ALUSra: "sra",
		ALUOr: "or", ALUAnd: "and",
	}
	immOpNames = map[ALUOp]string{
		ALUAdd: "addi", ALUSll: "slli", ALUSlt: "slti", ALUSltu: "sltiu",
		ALUXor: "xori", ALUSrl: "srli", ALUSra: "srai", ALUOr: "ori",
		ALUAnd: "andi",
	}
	loadNames = map[MemAccessKind]string{
		MemByte: "lb", MemHalf: "lh", MemWord: "lw",
		MemByteUnsigned: "lbu", MemHalfUnsigned: "lhu",
	}
	storeNames = map[MemAccessKind]string{
		MemByte: "sb", MemHalf: "sh", MemWord: "sw",
	}
	branchNames = map[BranchOp]string{
		BranchEQ: "beq", BranchNE: "bne", BranchLT: "blt",
		BranchGE: "bge", BranchLTU: "bltu", BranchGEU: "bgeu",
	}
)

// Disassemble renders an instruction word in assembler syntax. Words the
// decoder does not recognize render as ".word 0x...".
func Disassemble(w Word) string {
	if w == 0 {
		return "bubble"
	}

	ctrl := DecodeWord(w)
	imm := int32(ExtendImmediate(w.ImmField(), ctrl.ImmFormat))
	unknown := fmt.Sprintf(".word 0x%08x", uint32(w))

	switch w.Opcode() {
	case OpcodeOp:
		name, ok := regOpNames[ctrl.ALUOp]
		if !ok {
			return unknown
		}
		return fmt.Sprintf("%s x%d, x%d, x%d", name, w.Rd(), w.Rs1(), w.Rs2())

	case OpcodeOpImm:
		name, ok := immOpNames[ctrl.ALUOp]
		if !ok {
			return unknown
		}
		if ctrl.ALUOp == ALUSll || ctrl.ALUOp == ALUSrl || ctrl.ALUOp == ALUSra {
			return fmt.Sprintf("%s x%d, x%d, %d", name, w.Rd(), w.Rs1(), imm&0x1F)
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, w.Rd(), w.Rs1(), imm)

	case OpcodeLoad:
		name, ok := loadNames[ctrl.MemAccessKind]
		if !ok {
			return unknown
		}
		return fmt.Sprintf("%s x%d, %d(x%d)", name, w.Rd(), imm, w.Rs1())

	case OpcodeStore:
		name, ok := storeNames[ctrl.MemAccessKind]
		if !ok {
			return unknown
		}
		return fmt.Sprintf("%s x%d, %d(x%d)", name, w.Rs2(), imm, w.Rs1())

	case OpcodeBranch:
		name, ok := branchNames[ctrl.BranchOp]
		if !ok {
			return unknown
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, w.Rs1(), w.Rs2(), imm)

	case OpcodeJAL:
		return fmt.Sprintf("jal x%d, %d", w.Rd(), imm)

	case OpcodeJALR:
		return fmt.Sprintf("jalr x%d, %d(x%d)", w.Rd(), imm, w.Rs1())

	case OpcodeLUI:
		return fmt.Sprintf("lui x%d, 0x%x", w.Rd(), uint32(imm)>>12)

	case OpcodeAUIPC:
		return fmt.Sprintf("auipc x%d, 0x%x", w.Rd(), uint32(imm)>>12)
	}

	return unknown
}
