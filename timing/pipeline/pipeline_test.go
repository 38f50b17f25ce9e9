package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var _ = Describe("Pipeline", func() {
	var (
		regFile  *emu.RegFile
		imem     *emu.InstructionMemory
		dmem     *emu.DataMemory
		keyboard *emu.KeyLatch
		bus      *emu.Bus
		pipe     *pipeline.Pipeline
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

	build := func(opts ...pipeline.PipelineOption) {
		opts = append([]pipeline.PipelineOption{pipeline.WithHaltOnSpin(true)}, opts...)
		pipe = pipeline.NewPipeline(regFile, imem, bus, opts...)
	}

	Describe("NewPipeline", func() {
		It("should start empty at the reset address", func() {
			build(pipeline.WithResetPC(0x100))

			Expect(pipe.PC()).To(Equal(uint32(0x100)))
			Expect(pipe.GetIFID().Valid).To(BeFalse())
			Expect(pipe.GetIDEX().Valid).To(BeFalse())
			Expect(pipe.GetEXMEM().Valid).To(BeFalse())
			Expect(pipe.GetMEMWB().Valid).To(BeFalse())
			Expect(pipe.Halted()).To(BeFalse())
		})
	})

	Describe("Tick", func() {
		It("should commit the first instruction after five ticks", func() {
			load(insts.ADDI(1, 0, 5))
			build()

			pipe.RunCycles(4)
			Expect(regFile.Read(1)).To(BeZero())
			Expect(pipe.GetMEMWB().Valid).To(BeTrue())

			pipe.Tick()
			Expect(regFile.Read(1)).To(Equal(uint32(5)))
			Expect(pipe.Stats().Instructions).To(Equal(uint64(1)))
		})

		It("should advance the PC by 4 per cycle without hazards", func() {
			build()
			pipe.RunCycles(3)
			Expect(pipe.PC()).To(Equal(uint32(12)))
		})

		It("should forward back-to-back results with no stalls", func() {
			load(
				insts.ADDI(1, 0, 5),
				insts.ADDI(2, 0, 7),
				insts.ADD(3, 1, 2),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())

			Expect(regFile.Read(3)).To(Equal(uint32(12)))
			stats := pipe.Stats()
			Expect(stats.Stalls).To(BeZero())
			Expect(stats.ForwardsEXMEM).To(Equal(uint64(1)))
			Expect(stats.ForwardsMEMWB).To(Equal(uint64(1)))
			Expect(stats.Instructions).To(Equal(uint64(4)))
			Expect(stats.Cycles).To(Equal(uint64(8)))
		})

		It("should stall exactly once on a load-use dependency", func() {
			dmem.Store(insts.MemWord, 0, 21)
			load(
				insts.LW(1, 0, 0),
				insts.ADD(3, 1, 1),
				insts.Halt(),
			)
			build()

			pipe.RunCycles(3)
			Expect(pipe.Stats().Stalls).To(Equal(uint64(1)))
			Expect(pipe.PC()).To(Equal(uint32(8)))
			Expect(pipe.GetIFID().Word).To(Equal(insts.ADD(3, 1, 1)))
			Expect(pipe.GetIDEX().Control.IsBubble()).To(BeTrue())

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(3)).To(Equal(uint32(42)))
			stats := pipe.Stats()
			Expect(stats.Stalls).To(Equal(uint64(1)))
			Expect(stats.ForwardsMEMWB).To(Equal(uint64(2)))
			Expect(stats.Cycles).To(Equal(uint64(8)))
			Expect(stats.Loads).To(Equal(uint64(1)))
		})

		It("should stall on a raw field match even when the operand is unused", func() {
			// ADDI's immediate of 1 lands in the rs2 field.
			load(
				insts.LW(1, 0, 0),
				insts.ADDI(6, 0, 1),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(pipe.Stats().Stalls).To(Equal(uint64(1)))
			Expect(regFile.Read(6)).To(Equal(uint32(1)))
		})

		It("should compare a branch against a just-loaded value", func() {
			dmem.Store(insts.MemWord, 0, 3)
			load(
				insts.LW(1, 0, 0),
				insts.BNE(1, 0, 8),
				insts.ADDI(5, 0, 1),
				insts.ADDI(6, 0, 2),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(5)).To(BeZero())
			Expect(regFile.Read(6)).To(Equal(uint32(2)))

			stats := pipe.Stats()
			Expect(stats.Stalls).To(Equal(uint64(1)))
			Expect(stats.Instructions).To(Equal(uint64(4)))
			Expect(stats.Cycles).To(Equal(uint64(11)))
		})

		It("should flush two instructions behind a taken branch", func() {
			load(
				insts.BEQ(0, 0, 8),
				insts.ADDI(1, 0, 1),
				insts.ADDI(2, 0, 2),
				insts.Halt(),
			)
			build()

			pipe.RunCycles(3)
			Expect(pipe.PC()).To(Equal(uint32(8)))
			Expect(pipe.GetIFID().Valid).To(BeFalse())
			Expect(pipe.GetIFID().Word).To(Equal(insts.Word(0)))
			Expect(pipe.GetIDEX().Valid).To(BeFalse())
			Expect(pipe.GetIDEX().PC).To(Equal(uint32(4)))
			Expect(pipe.GetIDEX().Control.IsBubble()).To(BeTrue())

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(1)).To(BeZero())
			Expect(regFile.Read(2)).To(Equal(uint32(2)))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(2)))
		})

		It("should see a write three instructions back through the register file", func() {
			load(
				insts.ADDI(1, 0, 5),
				insts.NOP(),
				insts.NOP(),
				insts.ADD(3, 1, 1),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(3)).To(Equal(uint32(10)))
		})

		It("should keep x0 at zero", func() {
			load(
				insts.ADDI(0, 0, 5),
				insts.ADD(1, 0, 0),
				insts.NOP(),
				insts.ADD(2, 0, 0),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(0)).To(BeZero())
			Expect(regFile.Read(1)).To(BeZero())
			Expect(regFile.Read(2)).To(BeZero())
		})

		It("should round-trip a word through data memory", func() {
			load(
				insts.LUI(1, 0xCAFEC000),
				insts.ADDI(1, 1, -0x542),
				insts.SW(1, 0, 0x10),
				insts.LW(2, 0, 0x10),
				insts.SB(1, 0, 0x13),
				insts.LBU(3, 0, 0x13),
				insts.LB(4, 0, 0x13),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(2)).To(Equal(uint32(0xCAFEBABE)))
			Expect(regFile.Read(3)).To(Equal(uint32(0xBE)))
			Expect(regFile.Read(4)).To(Equal(uint32(0xFFFFFFBE)))
			Expect(dmem.Load(insts.MemWord, 0x10)).To(Equal(uint32(0xBEFEBABE)))
		})

		It("should link and return", func() {
			load(
				insts.JAL(1, 12),
				insts.ADDI(5, 0, 7),
				insts.Halt(),
				insts.ADDI(6, 1, 0),
				insts.JALR(0, 1, 0),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(1)).To(Equal(uint32(4)))
			Expect(regFile.Read(5)).To(Equal(uint32(7)))
			Expect(regFile.Read(6)).To(Equal(uint32(4)))
		})

		It("should echo the keyboard to the colour register", func() {
			keyboard.Press(0x1C)
			load(
				insts.LUI(1, 0xFFFF0000),
				insts.LW(4, 1, 0),
				insts.SW(4, 1, 4),
				insts.Halt(),
			)
			build()

			Expect(pipe.Run(100)).To(Succeed())
			Expect(bus.Color()).To(Equal(uint8(0x1C)))
			stats := pipe.Stats()
			Expect(stats.MMIOReads).To(Equal(uint64(1)))
			Expect(stats.MMIOWrites).To(Equal(uint64(1)))
			Expect(stats.Loads).To(BeZero())
			Expect(stats.Stores).To(BeZero())
			Expect(stats.Stalls).To(Equal(uint64(1)))
		})
	})

	Describe("Run", func() {
		It("should report the cycle limit", func() {
			load(insts.ADDI(1, 1, 1), insts.JAL(0, -4))
			build()

			Expect(pipe.Run(50)).To(MatchError(pipeline.ErrCycleLimit))
			Expect(pipe.Stats().Cycles).To(Equal(uint64(50)))
			Expect(pipe.Halted()).To(BeFalse())
		})

		It("should keep spinning when halt-on-spin is off", func() {
			load(insts.Halt())
			pipe = pipeline.NewPipeline(regFile, imem, bus)

			Expect(pipe.RunCycles(20)).To(BeTrue())
			Expect(pipe.Halted()).To(BeFalse())
		})

		It("should stop ticking once halted", func() {
			load(insts.Halt())
			build()

			Expect(pipe.RunCycles(100)).To(BeFalse())
			cycles := pipe.Stats().Cycles
			pipe.Tick()
			Expect(pipe.Stats().Cycles).To(Equal(cycles))
		})
	})

	Describe("Reset", func() {
		It("should return to the power-on state", func() {
			load(insts.ADDI(1, 0, 5), insts.Halt())
			build(pipeline.WithResetPC(0))
			Expect(pipe.Run(100)).To(Succeed())

			pipe.Reset()

			Expect(pipe.Halted()).To(BeFalse())
			Expect(pipe.PC()).To(BeZero())
			Expect(pipe.Stats()).To(Equal(pipeline.Statistics{}))
			Expect(regFile.Read(1)).To(BeZero())
			Expect(regFile.Read(emu.RegSP)).To(Equal(emu.DefaultStackPointer))

			Expect(pipe.Run(100)).To(Succeed())
			Expect(regFile.Read(1)).To(Equal(uint32(5)))
		})
	})

	Describe("Statistics", func() {
		It("should compute CPI", func() {
			Expect(pipeline.Statistics{Cycles: 10, Instructions: 4}.CPI()).To(Equal(2.5))
			Expect(pipeline.Statistics{Cycles: 10}.CPI()).To(BeZero())
		})
	})

	Describe("Tracing", func() {
		It("should deliver a snapshot per cycle", func() {
			var snaps []pipeline.Snapshot
			load(insts.BEQ(0, 0, 8), insts.NOP(), insts.Halt())
			build(pipeline.WithObserver(func(s pipeline.Snapshot) {
				snaps = append(snaps, s)
			}))

			Expect(pipe.Run(100)).To(Succeed())
			Expect(snaps).To(HaveLen(int(pipe.Stats().Cycles)))
			Expect(snaps[0].Cycle).To(Equal(uint64(1)))
			Expect(snaps[2].Flushed).To(BeTrue())
			Expect(snaps[2].PC).To(Equal(uint32(8)))
		})

		It("should log each cycle at debug level", func() {
			logger, hook := logtest.NewNullLogger()
			logger.SetLevel(logrus.DebugLevel)
			load(insts.ADDI(1, 0, 1), insts.Halt())
			build(pipeline.WithLogger(logger))

			Expect(pipe.Run(100)).To(Succeed())
			entries := hook.AllEntries()
			Expect(entries).To(HaveLen(int(pipe.Stats().Cycles)))
			Expect(entries[0].Level).To(Equal(logrus.DebugLevel))
			Expect(entries[0].Data).To(HaveKeyWithValue("if_id", "0000: addi x1, x0, 1"))
		})
	})
})
