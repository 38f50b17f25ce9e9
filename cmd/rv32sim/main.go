// Command rv32sim runs an RV32I program on the 5-stage pipeline model or,
// with -emu, on the functional emulator.
//
// Usage:
//
//	rv32sim [options] <program.elf|program.hex|program.bin>
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/core"
	"github.com/sarchlab/rv32sim/timing/pipeline"
)

var (
	emuMode    = flag.Bool("emu", false, "Run on the functional emulator instead of the pipeline")
	trace      = flag.Bool("trace", false, "Log every pipeline cycle")
	configPath = flag.String("config", "", "Path to machine configuration (JSON or YAML)")
	maxCycles  = flag.Uint64("cycles", 0, "Cycle (or instruction) limit, overrides the config")
	keyCode    = flag.String("key", "", "Keystroke code latched before the run, e.g. 0x1c")
	verbose    = flag.Bool("v", false, "Verbose output")
	color      = flag.Bool("color", false, "Highlight changed registers with ANSI colours")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rv32sim [options] <program>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	log := logrus.New()
	log.SetOutput(os.Stderr)
	if *trace {
		log.SetLevel(logrus.DebugLevel)
	}

	if err := run(flag.Arg(0), log); err != nil {
		log.WithError(err).Error("simulation failed")
		os.Exit(1)
	}
}

func run(programPath string, log *logrus.Logger) error {
	prog, err := loader.LoadFile(programPath)
	if err != nil {
		return err
	}

	cfg, err := machineConfig(prog)
	if err != nil {
		return err
	}

	var opts []pipeline.PipelineOption
	if *trace {
		opts = append(opts, pipeline.WithLogger(log))
	}

	c, err := core.NewCore(cfg, opts...)
	if err != nil {
		return err
	}
	prog.LoadInto(c)

	if *keyCode != "" {
		code, err := strconv.ParseUint(*keyCode, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid -key %q: %w", *keyCode, err)
		}
		c.PressKey(uint8(code))
	}

	if *verbose {
		log.WithFields(logrus.Fields{
			"program":  programPath,
			"entry":    fmt.Sprintf("0x%x", prog.EntryPoint),
			"segments": len(prog.Segments),
			"mode":     modeName(),
		}).Info("loaded program")
	}

	before := c.RegFile().Snapshot()

	if *emuMode {
		err = runEmulation(c, cfg)
	} else {
		err = runTiming(c, programPath)
	}

	fmt.Printf("\nRegisters:\n%s", formatRegisters(before, c.RegFile().Snapshot(), *color))
	if history := c.ColorHistory(); len(history) > 0 {
		fmt.Printf("Colour writes: % x\n", history)
	}

	return err
}

func modeName() string {
	if *emuMode {
		return "emulation"
	}
	return "timing"
}

func machineConfig(prog *loader.Program) (*config.MachineConfig, error) {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	cfg.ResetPC = prog.EntryPoint
	if *maxCycles > 0 {
		cfg.MaxCycles = *maxCycles
	}
	return cfg, nil
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(c *core.Core, cfg *config.MachineConfig) error {
	emulator := c.NewEmulator(emu.WithMaxInstructions(cfg.MaxCycles))
	err := emulator.Run()

	fmt.Printf("Instructions executed: %d\n", emulator.InstructionCount())
	fmt.Printf("Final PC: 0x%08x\n", emulator.PC())

	if errors.Is(err, emu.ErrMaxInstructions) {
		return fmt.Errorf("program did not halt within %d instructions: %w", cfg.MaxCycles, err)
	}
	return err
}

// runTiming runs the program on the pipeline and prints a timing report.
func runTiming(c *core.Core, programPath string) error {
	err := c.Run()
	stats := c.Stats()

	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}

	fmt.Printf("\n")
	fmt.Printf("Program: %s\n", programPath)
	fmt.Printf("Total Instructions: %d\n", stats.Instructions)
	fmt.Printf("Total Cycles: %d\n", stats.Cycles)
	fmt.Printf("CPI: %.2f\n", stats.CPI())
	if secs := c.SimulatedSeconds(); secs > 0 {
		fmt.Printf("Simulated Time: %.3gs at %.0f MHz\n", secs, c.Config().ClockMHz)
	}
	fmt.Printf("\n")
	fmt.Printf("Pipeline Events:\n")
	fmt.Printf("  Load-use stalls: %4d cycles (%5.1f%%)\n",
		stats.Stalls, 100.0*float64(stats.Stalls)/float64(totalCycles))
	fmt.Printf("  Flush bubbles:   %4d cycles (%5.1f%%)\n",
		2*stats.Flushes, 100.0*float64(2*stats.Flushes)/float64(totalCycles))
	fmt.Printf("  Forwards:        %d from EX/MEM, %d from MEM/WB\n",
		stats.ForwardsEXMEM, stats.ForwardsMEMWB)
	fmt.Printf("  Memory:          %d loads, %d stores\n", stats.Loads, stats.Stores)
	fmt.Printf("  MMIO:            %d reads, %d writes\n", stats.MMIOReads, stats.MMIOWrites)

	if c.Config().DCache.Enabled {
		fmt.Printf("\nD-Cache:\n")
		fmt.Printf("  Hits:     %d\n", stats.DCache.Hits)
		fmt.Printf("  Misses:   %d\n", stats.DCache.Misses)
		fmt.Printf("  Hit rate: %.1f%%\n", 100*stats.DCache.HitRate())
	}

	if errors.Is(err, pipeline.ErrCycleLimit) {
		return fmt.Errorf("program did not halt within %d cycles: %w", c.Config().MaxCycles, err)
	}
	return err
}
