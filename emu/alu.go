package emu

import "github.com/sarchlab/rv32sim/insts"

// ALU computes op over operands a and b. Shift amounts use b[4:0].
// Undefined operations return zero.
func ALU(op insts.ALUOp, a, b uint32) uint32 {
	shamt := b & 0x1F

	switch op {
	case insts.ALUAdd:
		return a + b
	case insts.ALUSub:
		return a - b
	case insts.ALUSll:
		return a << shamt
	case insts.ALUSlt:
		if int32(a) < int32(b) {
			return 1
		}
		return 0
	case insts.ALUSltu:
		if a < b {
			return 1
		}
		return 0
	case insts.ALUXor:
		return a ^ b
	case insts.ALUSrl:
		return a >> shamt
	case insts.ALUSra:
		return uint32(int32(a) >> shamt)
	case insts.ALUOr:
		return a | b
	case insts.ALUAnd:
		return a & b
	case insts.ALUPassB:
		return b
	default:
		return 0
	}
}
