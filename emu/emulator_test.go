package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

var _ = Describe("Emulator", func() {
	var (
		regFile  *emu.RegFile
		imem     *emu.InstructionMemory
		dmem     *emu.DataMemory
		keyboard *emu.KeyLatch
		bus      *emu.Bus
	)

	BeforeEach(func() {
		regFile = emu.NewRegFile(emu.DefaultStackPointer)
		imem = emu.NewInstructionMemory(emu.DefaultInstructionMemorySize)
		dmem = emu.NewDataMemory(emu.DefaultDataMemorySize)
		keyboard = &emu.KeyLatch{}
		bus = emu.NewBus(dmem, emu.WithKeyboard(keyboard))
	})

	load := func(words ...insts.Word) {
		imem.LoadProgram(0, insts.BuildProgram(words...))
	}

	It("should execute a counted loop", func() {
		load(
			insts.ADDI(1, 0, 5),
			insts.ADDI(3, 0, 0),
			insts.ADD(3, 3, 1),
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
			insts.SW(3, 0, 0x10),
			insts.Halt(),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		Expect(e.Run()).To(Succeed())
		Expect(e.Halted()).To(BeTrue())
		Expect(e.PC()).To(Equal(uint32(24)))
		Expect(regFile.Read(3)).To(Equal(uint32(15)))
		Expect(dmem.Load(insts.MemWord, 0x10)).To(Equal(uint32(15)))
		Expect(e.InstructionCount()).To(Equal(uint64(19)))
	})

	It("should link and return", func() {
		load(
			insts.JAL(1, 12),
			insts.ADDI(5, 0, 7),
			insts.Halt(),
			insts.ADDI(6, 0, 2),
			insts.JALR(0, 1, 0),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		Expect(e.Run()).To(Succeed())
		Expect(regFile.Read(1)).To(Equal(uint32(4)))
		Expect(regFile.Read(5)).To(Equal(uint32(7)))
		Expect(regFile.Read(6)).To(Equal(uint32(2)))
		Expect(e.InstructionCount()).To(Equal(uint64(5)))
	})

	It("should clear bit 0 of a JALR target", func() {
		load(
			insts.ADDI(1, 0, 9),
			insts.JALR(0, 1, 0),
			insts.ADDI(5, 0, 1),
			insts.Halt(),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		e.Step()
		e.Step()
		Expect(e.PC()).To(Equal(uint32(8)))
	})

	It("should compute LUI and AUIPC", func() {
		load(
			insts.NOP(),
			insts.LUI(1, 0x12345000),
			insts.AUIPC(2, 0x1000),
			insts.Halt(),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		Expect(e.Run()).To(Succeed())
		Expect(regFile.Read(1)).To(Equal(uint32(0x12345000)))
		Expect(regFile.Read(2)).To(Equal(uint32(0x1008)))
	})

	It("should echo the keyboard to the colour register", func() {
		keyboard.Press(0x1C)
		load(
			insts.LUI(1, 0xFFFF0000),
			insts.LW(4, 1, 0),
			insts.SW(4, 1, 4),
			insts.Halt(),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		Expect(e.Run()).To(Succeed())
		Expect(regFile.Read(4)).To(Equal(uint32(0x1C)))
		Expect(bus.Color()).To(Equal(uint8(0x1C)))
	})

	It("should sign-extend byte loads", func() {
		load(
			insts.ADDI(1, 0, -1),
			insts.SB(1, 0, 0x13),
			insts.LB(2, 0, 0x13),
			insts.LBU(3, 0, 0x13),
			insts.Halt(),
		)
		e := emu.NewEmulator(regFile, imem, bus)

		Expect(e.Run()).To(Succeed())
		Expect(regFile.Read(2)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(regFile.Read(3)).To(Equal(uint32(0xFF)))
	})

	It("should stop at the instruction limit", func() {
		load(
			insts.ADDI(1, 1, 1),
			insts.JAL(0, -4),
		)
		e := emu.NewEmulator(regFile, imem, bus, emu.WithMaxInstructions(10))

		Expect(e.Run()).To(MatchError(emu.ErrMaxInstructions))
		Expect(e.InstructionCount()).To(Equal(uint64(10)))
		Expect(regFile.Read(1)).To(Equal(uint32(5)))
	})

	It("should start at the entry point", func() {
		imem.LoadProgram(0x100, insts.BuildProgram(insts.ADDI(1, 0, 3), insts.Halt()))
		e := emu.NewEmulator(regFile, imem, bus, emu.WithEntryPoint(0x100))

		Expect(e.Run()).To(Succeed())
		Expect(e.PC()).To(Equal(uint32(0x104)))
		Expect(regFile.Read(1)).To(Equal(uint32(3)))
	})

	It("should report the step result", func() {
		load(insts.ADDI(1, 0, 1), insts.Halt())
		e := emu.NewEmulator(regFile, imem, bus)

		first := e.Step()
		Expect(first).To(Equal(emu.StepResult{PC: 0, Word: insts.ADDI(1, 0, 1)}))
		second := e.Step()
		Expect(second.Halted).To(BeTrue())
		Expect(second.PC).To(Equal(uint32(4)))
	})
})
