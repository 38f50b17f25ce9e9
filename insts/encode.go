package insts

import "encoding/binary"

// Encoding helpers, used to build test programs and benchmarks.

// EncodeR encodes an R-type instruction.
func EncodeR(opcode, rd, funct3, rs1, rs2, funct7 uint8) Word {
	return Word(uint32(funct7&0x7F)<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(opcode&0x7F))
}

// EncodeI encodes an I-type instruction with a 12-bit signed immediate.
func EncodeI(opcode, rd, funct3, rs1 uint8, imm int32) Word {
	return Word(uint32(imm)&0xFFF<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(opcode&0x7F))
}

// EncodeS encodes an S-type instruction with a 12-bit signed offset.
func EncodeS(opcode, funct3, rs1, rs2 uint8, imm int32) Word {
	u := uint32(imm)
	return Word((u>>5)&0x7F<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		(u&0x1F)<<7 |
		uint32(opcode&0x7F))
}

// EncodeB encodes a B-type instruction with a 13-bit signed, even offset.
func EncodeB(opcode, funct3, rs1, rs2 uint8, offset int32) Word {
	u := uint32(offset)
	return Word((u>>12)&0x1<<31 |
		(u>>5)&0x3F<<25 |
		uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 |
		(u>>1)&0xF<<8 |
		(u>>11)&0x1<<7 |
		uint32(opcode&0x7F))
}

// EncodeU encodes a U-type instruction. Only bits [31:12] of imm are used.
func EncodeU(opcode, rd uint8, imm uint32) Word {
	return Word(imm&0xFFFFF000 | uint32(rd&0x1F)<<7 | uint32(opcode&0x7F))
}

// EncodeJ encodes a J-type instruction with a 21-bit signed, even offset.
func EncodeJ(opcode, rd uint8, offset int32) Word {
	u := uint32(offset)
	return Word((u>>20)&0x1<<31 |
		(u>>1)&0x3FF<<21 |
		(u>>11)&0x1<<20 |
		(u>>12)&0xFF<<12 |
		uint32(rd&0x1F)<<7 |
		uint32(opcode&0x7F))
}

const funct7Alt uint8 = 0b0100000

// ADD rd = rs1 + rs2
func ADD(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b000, rs1, rs2, 0) }

// SUB rd = rs1 - rs2
func SUB(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b000, rs1, rs2, funct7Alt) }

// SLL rd = rs1 << rs2[4:0]
func SLL(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b001, rs1, rs2, 0) }

// SLT rd = rs1 < rs2 (signed)
func SLT(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b010, rs1, rs2, 0) }

// SLTU rd = rs1 < rs2 (unsigned)
func SLTU(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b011, rs1, rs2, 0) }

// XOR rd = rs1 ^ rs2
func XOR(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b100, rs1, rs2, 0) }

// SRL rd = rs1 >> rs2[4:0] (logical)
func SRL(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b101, rs1, rs2, 0) }

// SRA rd = rs1 >> rs2[4:0] (arithmetic)
func SRA(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b101, rs1, rs2, funct7Alt) }

// OR rd = rs1 | rs2
func OR(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b110, rs1, rs2, 0) }

// AND rd = rs1 & rs2
func AND(rd, rs1, rs2 uint8) Word { return EncodeR(OpcodeOp, rd, 0b111, rs1, rs2, 0) }

// ADDI rd = rs1 + imm
func ADDI(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b000, rs1, imm) }

// SLTI rd = rs1 < imm (signed)
func SLTI(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b010, rs1, imm) }

// SLTIU rd = rs1 < imm (unsigned)
func SLTIU(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b011, rs1, imm) }

// XORI rd = rs1 ^ imm
func XORI(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b100, rs1, imm) }

// ORI rd = rs1 | imm
func ORI(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b110, rs1, imm) }

// ANDI rd = rs1 & imm
func ANDI(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeOpImm, rd, 0b111, rs1, imm) }

// SLLI rd = rs1 << shamt
func SLLI(rd, rs1, shamt uint8) Word {
	return EncodeI(OpcodeOpImm, rd, 0b001, rs1, int32(shamt&0x1F))
}

// SRLI rd = rs1 >> shamt (logical)
func SRLI(rd, rs1, shamt uint8) Word {
	return EncodeI(OpcodeOpImm, rd, 0b101, rs1, int32(shamt&0x1F))
}

// SRAI rd = rs1 >> shamt (arithmetic)
func SRAI(rd, rs1, shamt uint8) Word {
	return EncodeI(OpcodeOpImm, rd, 0b101, rs1, int32(shamt&0x1F)|0x400)
}

// LB rd = sext(mem8[rs1+imm])
func LB(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeLoad, rd, 0b000, rs1, imm) }

// LH rd = sext(mem16[rs1+imm])
func LH(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeLoad, rd, 0b001, rs1, imm) }

// LW rd = mem32[rs1+imm]
func LW(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeLoad, rd, 0b010, rs1, imm) }

// LBU rd = zext(mem8[rs1+imm])
func LBU(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeLoad, rd, 0b100, rs1, imm) }

// LHU rd = zext(mem16[rs1+imm])
func LHU(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeLoad, rd, 0b101, rs1, imm) }

// SB mem8[rs1+imm] = rs2
func SB(rs2, rs1 uint8, imm int32) Word { return EncodeS(OpcodeStore, 0b000, rs1, rs2, imm) }

// SH mem16[rs1+imm] = rs2
func SH(rs2, rs1 uint8, imm int32) Word { return EncodeS(OpcodeStore, 0b001, rs1, rs2, imm) }

// SW mem32[rs1+imm] = rs2
func SW(rs2, rs1 uint8, imm int32) Word { return EncodeS(OpcodeStore, 0b010, rs1, rs2, imm) }

// BEQ branches to pc+offset if rs1 == rs2.
func BEQ(rs1, rs2 uint8, offset int32) Word { return EncodeB(OpcodeBranch, 0b000, rs1, rs2, offset) }

// BNE branches to pc+offset if rs1 != rs2.
func BNE(rs1, rs2 uint8, offset int32) Word { return EncodeB(OpcodeBranch, 0b001, rs1, rs2, offset) }

// BLT branches to pc+offset if rs1 < rs2 (signed).
func BLT(rs1, rs2 uint8, offset int32) Word { return EncodeB(OpcodeBranch, 0b100, rs1, rs2, offset) }

// BGE branches to pc+offset if rs1 >= rs2 (signed).
func BGE(rs1, rs2 uint8, offset int32) Word { return EncodeB(OpcodeBranch, 0b101, rs1, rs2, offset) }

// BLTU branches to pc+offset if rs1 < rs2 (unsigned).
func BLTU(rs1, rs2 uint8, offset int32) Word {
	return EncodeB(OpcodeBranch, 0b110, rs1, rs2, offset)
}

// BGEU branches to pc+offset if rs1 >= rs2 (unsigned).
func BGEU(rs1, rs2 uint8, offset int32) Word {
	return EncodeB(OpcodeBranch, 0b111, rs1, rs2, offset)
}

// JAL rd = pc+4; pc += offset
func JAL(rd uint8, offset int32) Word { return EncodeJ(OpcodeJAL, rd, offset) }

// JALR rd = pc+4; pc = (rs1+imm) &^ 1
func JALR(rd, rs1 uint8, imm int32) Word { return EncodeI(OpcodeJALR, rd, 0b000, rs1, imm) }

// LUI rd = imm & 0xFFFFF000
func LUI(rd uint8, imm uint32) Word { return EncodeU(OpcodeLUI, rd, imm) }

// AUIPC rd = pc + (imm & 0xFFFFF000)
func AUIPC(rd uint8, imm uint32) Word { return EncodeU(OpcodeAUIPC, rd, imm) }

// NOP is ADDI x0, x0, 0.
func NOP() Word { return ADDI(0, 0, 0) }

// Halt is the bare-metal spin idiom `jal x0, 0`.
func Halt() Word { return JAL(0, 0) }

// BuildProgram concatenates instruction words into a little-endian image.
func BuildProgram(words ...Word) []byte {
	program := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(program[4*i:], uint32(w))
	}
	return program
}
