package emu

import "github.com/sarchlab/rv32sim/insts"

// ResolveBranch decides whether the next PC comes from the computed target
// instead of PC+4. a and b are the forwarded rs1/rs2 values.
func ResolveBranch(op insts.BranchOp, a, b uint32) bool {
	op &= 0x1F

	if op.IsJump() {
		return true
	}

	// Bits [3:2] clear: not a branch.
	if op&0b01100 == 0 {
		return false
	}

	switch op & 0xF {
	case 0b1000:
		return a == b
	case 0b1001:
		return a != b
	case 0b1100:
		return int32(a) < int32(b)
	case 0b1101:
		return int32(a) >= int32(b)
	case 0b1110:
		return a < b
	case 0b1111:
		return a >= b
	default:
		return false
	}
}

// JumpTarget returns the architectural target for a taken branch or jump
// whose ALU output is aluResult. JALR clears bit 0 of the sum.
func JumpTarget(ctrl insts.Control, aluResult uint32) uint32 {
	if ctrl.BranchOp.IsJump() && ctrl.ALUASrc == insts.ASrcRs1 {
		return aluResult &^ 1
	}
	return aluResult
}
