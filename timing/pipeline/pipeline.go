package pipeline

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32sim/emu"
)

// ErrCycleLimit is returned by Run when the cycle budget is exhausted
// before the program halts.
var ErrCycleLimit = errors.New("cycle limit reached")

// Statistics holds pipeline performance statistics.
type Statistics struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions completed (retired).
	Instructions uint64
	// Stalls is the number of load-use stall cycles.
	Stalls uint64
	// Flushes is the number of taken branches and jumps.
	Flushes uint64
	// ForwardsEXMEM counts operands forwarded from EX/MEM.
	ForwardsEXMEM uint64
	// ForwardsMEMWB counts operands forwarded from MEM/WB.
	ForwardsMEMWB uint64
	// Loads is the number of data memory reads.
	Loads uint64
	// Stores is the number of data memory writes.
	Stores uint64
	// MMIOReads is the number of peripheral register reads.
	MMIOReads uint64
	// MMIOWrites is the number of peripheral register writes.
	MMIOWrites uint64
}

// CPI returns the cycles per instruction.
func (s Statistics) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// PipelineOption is a functional option for configuring the Pipeline.
type PipelineOption func(*Pipeline)

// WithResetPC sets the address fetched after reset.
func WithResetPC(pc uint32) PipelineOption {
	return func(p *Pipeline) {
		p.resetPC = pc
		p.pc = pc
	}
}

// WithHaltOnSpin makes the pipeline halt when a jump to itself retires.
func WithHaltOnSpin(enabled bool) PipelineOption {
	return func(p *Pipeline) {
		p.haltOnSpin = enabled
	}
}

// WithLogger emits a per-cycle snapshot at debug level.
func WithLogger(logger logrus.FieldLogger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver registers a callback invoked with the snapshot of every
// cycle.
func WithObserver(observer Observer) PipelineOption {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// Pipeline implements a 5-stage pipelined RV32I core.
// Stages: Fetch (IF) -> Decode (ID) -> Execute (EX) -> Memory (MEM) -> Writeback (WB)
type Pipeline struct {
	// Pipeline registers
	ifid  IFIDRegister
	idex  IDEXRegister
	exmem EXMEMRegister
	memwb MEMWBRegister

	// Pipeline stages
	fetchStage     *FetchStage
	decodeStage    *DecodeStage
	executeStage   *ExecuteStage
	memoryStage    *MemoryStage
	writebackStage *WritebackStage

	// Hazard detection
	hazardUnit *HazardUnit

	// Shared resources
	regFile *emu.RegFile

	// Program counter
	pc      uint32
	resetPC uint32

	haltOnSpin bool
	logger     logrus.FieldLogger
	observer   Observer

	// Statistics
	stats Statistics

	halted bool
}

// NewPipeline creates a new 5-stage pipeline. Memory-stage accesses go
// through port.
func NewPipeline(
	regFile *emu.RegFile,
	imem *emu.InstructionMemory,
	port emu.DataPort,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		fetchStage:     NewFetchStage(imem),
		decodeStage:    NewDecodeStage(regFile),
		executeStage:   NewExecuteStage(),
		memoryStage:    NewMemoryStage(port),
		writebackStage: NewWritebackStage(regFile),
		hazardUnit:     NewHazardUnit(),
		regFile:        regFile,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PC returns the current program counter.
func (p *Pipeline) PC() uint32 {
	return p.pc
}

// SetPC sets the program counter.
func (p *Pipeline) SetPC(pc uint32) {
	p.pc = pc
}

// RegFile returns the architectural register file.
func (p *Pipeline) RegFile() *emu.RegFile {
	return p.regFile
}

// GetIFID returns a copy of the IF/ID pipeline register.
func (p *Pipeline) GetIFID() IFIDRegister {
	return p.ifid
}

// GetIDEX returns a copy of the ID/EX pipeline register.
func (p *Pipeline) GetIDEX() IDEXRegister {
	return p.idex
}

// GetEXMEM returns a copy of the EX/MEM pipeline register.
func (p *Pipeline) GetEXMEM() EXMEMRegister {
	return p.exmem
}

// GetMEMWB returns a copy of the MEM/WB pipeline register.
func (p *Pipeline) GetMEMWB() MEMWBRegister {
	return p.memwb
}

// Stats returns pipeline statistics.
func (p *Pipeline) Stats() Statistics {
	return p.stats
}

// Halted returns true if the pipeline has halted.
func (p *Pipeline) Halted() bool {
	return p.halted
}

// Reset returns the pipeline and register file to the power-on state:
// every stage register is a bubble and the PC is the reset address.
// Memories are not touched.
func (p *Pipeline) Reset() {
	p.ifid.Clear()
	p.idex.Clear()
	p.exmem.Clear()
	p.memwb.Clear()
	p.regFile.Reset()
	p.pc = p.resetPC
	p.stats = Statistics{}
	p.halted = false
}

// Run ticks until the pipeline halts. A maxCycles of 0 means no limit.
func (p *Pipeline) Run(maxCycles uint64) error {
	for !p.halted {
		if maxCycles > 0 && p.stats.Cycles >= maxCycles {
			return ErrCycleLimit
		}
		p.Tick()
	}
	return nil
}

// RunCycles executes the pipeline for the specified number of cycles.
// Returns true if still running, false if halted.
func (p *Pipeline) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !p.halted; i++ {
		p.Tick()
	}
	return !p.halted
}

// Tick executes one pipeline cycle.
//
// Every stage reads only the stage registers as they stood at the start
// of the cycle, and all next-state values are latched together at the
// end. Writeback is the exception: it commits in the first half of the
// cycle so that Decode sees the write.
//
// Hazard handling:
//   - Forwarding from EX/MEM, then MEM/WB, into Execute
//   - One-cycle load-use stall: PC and IF/ID hold, ID/EX gets a bubble
//   - Branches and jumps resolve in Execute; when taken, IF/ID and ID/EX
//     are replaced by bubbles (2-cycle penalty)
func (p *Pipeline) Tick() {
	if p.halted {
		return
	}

	p.stats.Cycles++

	// Stage 5: Writeback
	savedMEMWB := p.memwb
	p.writebackStage.Writeback(&p.memwb)
	if p.memwb.Valid {
		p.stats.Instructions++
		if p.memwb.Halt && p.haltOnSpin {
			p.halted = true
		}
	}

	forwarding := p.hazardUnit.DetectForwarding(&p.idex, &p.exmem, &savedMEMWB)
	p.countForwarding(forwarding)

	// Stage 4: Memory
	memResult := p.memoryStage.Access(&p.exmem)
	p.countMemoryAccess(&p.exmem)
	nextMEMWB := MEMWBRegister{
		Valid:     p.exmem.Valid,
		PC:        p.exmem.PC,
		Word:      p.exmem.Word,
		Control:   p.exmem.Control,
		ALUResult: p.exmem.ALUResult,
		MemData:   memResult.MemData,
		Rd:        p.exmem.Rd,
		Halt:      p.exmem.Halt,
	}

	// Stage 3: Execute
	rs1Value := p.hazardUnit.GetForwardedValue(
		forwarding.ForwardRs1, p.idex.Rs1Value, &p.exmem, &savedMEMWB)
	rs2Value := p.hazardUnit.GetForwardedValue(
		forwarding.ForwardRs2, p.idex.Rs2Value, &p.exmem, &savedMEMWB)

	execResult := p.executeStage.Execute(&p.idex, rs1Value, rs2Value)
	nextEXMEM := EXMEMRegister{
		Valid:      p.idex.Valid,
		PC:         p.idex.PC,
		Word:       p.idex.Word,
		Control:    p.idex.Control,
		ALUResult:  execResult.ALUResult,
		StoreValue: execResult.StoreValue,
		Rd:         p.idex.Rd,
		Halt:       execResult.SelfLoop,
	}

	loadUseHazard := p.hazardUnit.DetectLoadUseHazard(
		&p.idex, p.ifid.Word.Rs1(), p.ifid.Word.Rs2())
	stallResult := p.hazardUnit.ComputeStalls(loadUseHazard, execResult.BranchTaken)

	// Stage 2: Decode
	decResult := p.decodeStage.Decode(p.ifid.Word)
	nextIDEX := IDEXRegister{
		Valid:    p.ifid.Valid,
		PC:       p.ifid.PC,
		Word:     p.ifid.Word,
		Control:  decResult.Control,
		Rd:       decResult.Rd,
		Rs1:      decResult.Rs1,
		Rs2:      decResult.Rs2,
		Rs1Value: decResult.Rs1Value,
		Rs2Value: decResult.Rs2Value,
		Imm:      decResult.Imm,
	}
	if stallResult.FlushID || stallResult.InsertBubbleEX {
		nextIDEX.Bubble()
	}

	// Stage 1: Fetch
	nextIFID := IFIDRegister{
		Valid: true,
		PC:    p.pc,
		Word:  p.fetchStage.Fetch(p.pc),
	}
	nextPC := p.pc + 4

	switch {
	case stallResult.FlushIF:
		nextIFID.Clear()
		nextPC = execResult.BranchTarget
		p.stats.Flushes++
	case stallResult.StallIF:
		nextIFID = p.ifid
		nextPC = p.pc
		p.stats.Stalls++
	}

	// Latch
	p.pc = nextPC
	p.ifid = nextIFID
	p.idex = nextIDEX
	p.exmem = nextEXMEM
	p.memwb = nextMEMWB

	p.trace(forwarding, stallResult)
}

func (p *Pipeline) countForwarding(f ForwardingResult) {
	for _, src := range []ForwardSource{f.ForwardRs1, f.ForwardRs2} {
		switch src {
		case ForwardFromEXMEM:
			p.stats.ForwardsEXMEM++
		case ForwardFromMEMWB:
			p.stats.ForwardsMEMWB++
		}
	}
}

func (p *Pipeline) countMemoryAccess(exmem *EXMEMRegister) {
	mmio := emu.IsMMIO(exmem.ALUResult)

	switch {
	case exmem.Control.MemRead && mmio:
		p.stats.MMIOReads++
	case exmem.Control.MemRead:
		p.stats.Loads++
	case exmem.Control.MemWrite && mmio:
		p.stats.MMIOWrites++
	case exmem.Control.MemWrite:
		p.stats.Stores++
	}
}
