// Package core provides the cycle-accurate CPU core model.
// It wraps the pipeline implementation to provide a high-level interface.
package core

import (
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

// Stats holds performance statistics for the core.
type Stats struct {
	pipeline.Statistics

	// DCache is zero when the cache model is disabled.
	DCache cache.Statistics
}

// Core represents a cycle-accurate CPU core model together with its
// memories and peripherals.
type Core struct {
	// Pipeline is the underlying 5-stage pipeline.
	Pipeline *pipeline.Pipeline

	config *config.MachineConfig

	regFile  *emu.RegFile
	imem     *emu.InstructionMemory
	dmem     *emu.DataMemory
	bus      *emu.Bus
	keyboard *emu.KeyLatch
	display  *emu.ColorLatch
	dcache   *cache.DataPort
}

// NewCore builds a core from cfg. Extra pipeline options (logger,
// observer) are applied after the ones derived from cfg.
func NewCore(cfg *config.MachineConfig, opts ...pipeline.PipelineOption) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid machine config: %w", err)
	}

	c := &Core{
		config:   cfg.Clone(),
		regFile:  emu.NewRegFile(cfg.StackPointer),
		imem:     emu.NewInstructionMemory(cfg.InstructionMemorySize),
		dmem:     emu.NewDataMemory(cfg.DataMemorySize),
		keyboard: &emu.KeyLatch{},
		display:  &emu.ColorLatch{},
	}

	var port emu.DataPort = c.dmem
	if cfg.DCache.Enabled {
		c.dcache = cache.NewDataPort(cfg.DCache.Config, c.dmem)
		port = c.dcache
	}
	c.bus = emu.NewBus(port, emu.WithKeyboard(c.keyboard), emu.WithDisplay(c.display))

	pipeOpts := []pipeline.PipelineOption{
		pipeline.WithResetPC(cfg.ResetPC),
		pipeline.WithHaltOnSpin(cfg.HaltOnSpin),
	}
	c.Pipeline = pipeline.NewPipeline(c.regFile, c.imem, c.bus, append(pipeOpts, opts...)...)

	return c, nil
}

// Config returns a copy of the configuration the core was built from.
func (c *Core) Config() *config.MachineConfig {
	return c.config.Clone()
}

// LoadProgram copies a program image into instruction memory at addr.
func (c *Core) LoadProgram(addr uint32, program []byte) {
	c.imem.LoadProgram(addr, program)
}

// LoadData copies initial contents into data memory at addr, bypassing
// the cache.
func (c *Core) LoadData(addr uint32, data []byte) {
	for i, b := range data {
		c.dmem.Write8(addr+uint32(i), b)
	}
}

// RegFile returns the architectural register file.
func (c *Core) RegFile() *emu.RegFile {
	return c.regFile
}

// DataMemory returns data memory with any dirty cache lines written back.
func (c *Core) DataMemory() *emu.DataMemory {
	if c.dcache != nil {
		c.dcache.Flush()
	}
	return c.dmem
}

// PressKey latches a keystroke code for the keyboard register.
func (c *Core) PressKey(code uint8) {
	c.keyboard.Press(code)
}

// Color returns the colour register.
func (c *Core) Color() uint8 {
	return c.bus.Color()
}

// ColorHistory returns every colour the program has written.
func (c *Core) ColorHistory() []uint8 {
	return c.display.History()
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.Pipeline.SetPC(pc)
}

// Tick executes one pipeline cycle.
func (c *Core) Tick() {
	c.Pipeline.Tick()
}

// Halted returns true once a jump to itself has retired.
func (c *Core) Halted() bool {
	return c.Pipeline.Halted()
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	stats := Stats{Statistics: c.Pipeline.Stats()}
	if c.dcache != nil {
		stats.DCache = c.dcache.Cache().Stats()
	}
	return stats
}

// Frequency returns the configured core clock.
func (c *Core) Frequency() sim.Freq {
	return sim.Freq(c.config.ClockMHz) * sim.MHz
}

// SimulatedSeconds converts the cycles run so far into wall time on the
// modelled hardware. It is zero when no clock is configured.
func (c *Core) SimulatedSeconds() float64 {
	freq := c.Frequency()
	if freq == 0 {
		return 0
	}
	return float64(c.Pipeline.Stats().Cycles) / float64(freq)
}

// NewEmulator returns a functional model over the same registers, memories
// and peripherals as the pipeline, starting at the reset PC. The pipeline
// and the emulator must not be stepped on the same core interchangeably.
func (c *Core) NewEmulator(opts ...emu.EmulatorOption) *emu.Emulator {
	emuOpts := []emu.EmulatorOption{emu.WithEntryPoint(c.config.ResetPC)}
	return emu.NewEmulator(c.regFile, c.imem, c.bus, append(emuOpts, opts...)...)
}

// Run executes the core until it halts or the configured cycle limit is
// reached.
func (c *Core) Run() error {
	return c.Pipeline.Run(c.config.MaxCycles)
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	return c.Pipeline.RunCycles(cycles)
}

// Reset returns the core to its power-on state. Memory contents survive;
// dirty cache lines are written back first.
func (c *Core) Reset() {
	if c.dcache != nil {
		c.dcache.Flush()
		c.dcache.Cache().Reset()
	}
	c.bus.Reset()
	c.Pipeline.Reset()
}
