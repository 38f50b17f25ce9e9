package insts

// ExtendImmediate rebuilds the 32-bit immediate from the 25-bit raw field
// (instruction bits [31:7], so raw bit k is instruction bit k+7). Branch and
// jump offsets always have bit 0 clear. Undefined formats yield zero.
func ExtendImmediate(raw uint32, format ImmFormat) uint32 {
	raw &= 0x1FFFFFF

	switch format {
	case ImmI:
		// imm[11:0] = inst[31:20]
		return signExtend(raw>>13, 12)

	case ImmS:
		// imm[11:5] = inst[31:25], imm[4:0] = inst[11:7]
		imm := (raw>>18)<<5 | raw&0x1F
		return signExtend(imm, 12)

	case ImmB:
		// imm[12|10:5] = inst[31:25], imm[4:1|11] = inst[11:7]
		imm := (raw>>24&0x1)<<12 |
			(raw&0x1)<<11 |
			(raw>>18&0x3F)<<5 |
			(raw>>1&0xF)<<1
		return signExtend(imm, 13)

	case ImmU:
		// imm[31:12] = inst[31:12]
		return (raw >> 5) << 12

	case ImmJ:
		// imm[20|10:1|11|19:12] = inst[31:12]
		imm := (raw>>24&0x1)<<20 |
			(raw>>5&0xFF)<<12 |
			(raw>>13&0x1)<<11 |
			(raw>>14&0x3FF)<<1
		return signExtend(imm, 21)

	default:
		return 0
	}
}

// signExtend extends the low `bits` bits of v to 32 bits.
func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}
