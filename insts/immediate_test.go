package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/insts"
)

func extend(w insts.Word) int32 {
	ctrl := insts.DecodeWord(w)
	return int32(insts.ExtendImmediate(w.ImmField(), ctrl.ImmFormat))
}

var _ = Describe("Immediate Extender", func() {
	DescribeTable("I-type",
		func(imm int32) {
			Expect(extend(insts.ADDI(1, 2, imm))).To(Equal(imm))
		},
		Entry("zero", int32(0)),
		Entry("positive", int32(5)),
		Entry("max", int32(2047)),
		Entry("minus one", int32(-1)),
		Entry("min", int32(-2048)),
	)

	DescribeTable("S-type",
		func(imm int32) {
			Expect(extend(insts.SW(1, 2, imm))).To(Equal(imm))
		},
		Entry("positive", int32(0x10)),
		Entry("max", int32(2047)),
		Entry("negative", int32(-4)),
		Entry("min", int32(-2048)),
	)

	DescribeTable("B-type",
		func(offset int32) {
			Expect(extend(insts.BEQ(1, 2, offset))).To(Equal(offset))
		},
		Entry("forward", int32(8)),
		Entry("backward", int32(-8)),
		Entry("max", int32(4094)),
		Entry("min", int32(-4096)),
		Entry("bit 11", int32(2048)),
	)

	DescribeTable("J-type",
		func(offset int32) {
			Expect(extend(insts.JAL(1, offset))).To(Equal(offset))
		},
		Entry("forward", int32(16)),
		Entry("backward", int32(-16)),
		Entry("bit 11", int32(2048)),
		Entry("max", int32(1048574)),
		Entry("min", int32(-1048576)),
	)

	It("should place U-type immediates in the upper 20 bits", func() {
		Expect(uint32(extend(insts.LUI(1, 0xDEADB000)))).To(Equal(uint32(0xDEADB000)))
		Expect(uint32(extend(insts.AUIPC(1, 0x00001000)))).To(Equal(uint32(0x1000)))
	})

	It("should force bit 0 of branch and jump offsets to zero", func() {
		// All ones in the raw field.
		raw := uint32(0x1FFFFFF)
		Expect(insts.ExtendImmediate(raw, insts.ImmB) & 1).To(BeZero())
		Expect(insts.ExtendImmediate(raw, insts.ImmJ) & 1).To(BeZero())
		Expect(insts.ExtendImmediate(raw, insts.ImmB)).To(Equal(uint32(0xFFFFFFFE)))
	})

	It("should return zero for undefined format tags", func() {
		raw := uint32(0x1FFFFFF)
		Expect(insts.ExtendImmediate(raw, insts.ImmNone)).To(BeZero())
		for tag := insts.ImmJ + 1; tag < 8; tag++ {
			Expect(insts.ExtendImmediate(raw, tag)).To(BeZero())
		}
	})

	It("should ignore bits above the 25-bit field", func() {
		Expect(insts.ExtendImmediate(0xFE000000|5<<13, insts.ImmI)).To(Equal(uint32(5)))
	})
})
