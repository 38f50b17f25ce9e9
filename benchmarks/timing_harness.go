// Package benchmarks provides the microbenchmark programs and the harness
// that runs them on the timing core.
package benchmarks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/core"
)

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// StallCycles is the number of load-use stall cycles
	StallCycles uint64 `json:"stall_cycles"`

	// PipelineFlushes is the number of taken branches and jumps
	PipelineFlushes uint64 `json:"pipeline_flushes"`

	ForwardsEXMEM uint64 `json:"forwards_exmem"`
	ForwardsMEMWB uint64 `json:"forwards_memwb"`

	Loads      uint64 `json:"loads"`
	Stores     uint64 `json:"stores"`
	MMIOReads  uint64 `json:"mmio_reads"`
	MMIOWrites uint64 `json:"mmio_writes"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Result is a0 after the run; Passed compares it with the expectation
	Result uint32 `json:"result"`
	Passed bool   `json:"passed"`

	// MatchesGolden is set when the functional model ended in the same
	// architectural state; GoldenDiff explains any difference
	MatchesGolden bool   `json:"matches_golden"`
	GoldenDiff    string `json:"golden_diff,omitempty"`

	// SimulatedSeconds is the cycle count at the configured clock
	SimulatedSeconds float64 `json:"simulated_seconds"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the core (data memory, keyboard) before the run
	Setup func(c *core.Core)

	// Program is the RV32I machine code, loaded at the reset PC
	Program []byte

	// Expected is the value a0 must hold when the program halts
	Expected uint32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// Machine is the core configuration; nil means config.DefaultConfig()
	Machine *config.MachineConfig

	// EnableDCache turns on the data cache model
	EnableDCache bool

	// CheckGolden replays every benchmark on the functional model
	CheckGolden bool

	// Parallelism bounds concurrently running benchmarks; 0 means no limit
	Parallelism int

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives one entry per finished benchmark when Verbose is set
	Logger logrus.FieldLogger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		Machine:     config.DefaultConfig(),
		CheckGolden: true,
		Output:      os.Stdout,
		Logger:      logrus.StandardLogger(),
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks concurrently, one core each, and returns
// the results in the order the benchmarks were added.
func (h *Harness) RunAll(ctx context.Context) ([]BenchmarkResult, error) {
	results := make([]BenchmarkResult, len(h.benchmarks))

	g, ctx := errgroup.WithContext(ctx)
	if h.config.Parallelism > 0 {
		g.SetLimit(h.config.Parallelism)
	}

	for i, bench := range h.benchmarks {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result, err := h.runBenchmark(bench)
			if err != nil {
				return fmt.Errorf("benchmark %s: %w", bench.Name, err)
			}
			results[i] = result

			if h.config.Verbose {
				h.config.Logger.WithFields(logrus.Fields{
					"benchmark": result.Name,
					"cycles":    result.SimulatedCycles,
					"cpi":       result.CPI,
					"passed":    result.Passed,
				}).Info("benchmark finished")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (h *Harness) machineConfig() *config.MachineConfig {
	cfg := config.DefaultConfig()
	if h.config.Machine != nil {
		cfg = h.config.Machine.Clone()
	}
	if h.config.EnableDCache {
		cfg.DCache.Enabled = true
	}
	return cfg
}

func (h *Harness) newCore(bench Benchmark) (*core.Core, error) {
	cfg := h.machineConfig()
	c, err := core.NewCore(cfg)
	if err != nil {
		return nil, err
	}

	if bench.Setup != nil {
		bench.Setup(c)
	}
	c.LoadProgram(cfg.ResetPC, bench.Program)

	return c, nil
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) (BenchmarkResult, error) {
	c, err := h.newCore(bench)
	if err != nil {
		return BenchmarkResult{}, err
	}

	start := time.Now()
	err = c.Run()
	wallTime := time.Since(start)
	if err != nil {
		return BenchmarkResult{}, err
	}

	stats := c.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		CPI:                 stats.CPI(),
		StallCycles:         stats.Stalls,
		PipelineFlushes:     stats.Flushes,
		ForwardsEXMEM:       stats.ForwardsEXMEM,
		ForwardsMEMWB:       stats.ForwardsMEMWB,
		Loads:               stats.Loads,
		Stores:              stats.Stores,
		MMIOReads:           stats.MMIOReads,
		MMIOWrites:          stats.MMIOWrites,
		DCacheHits:          stats.DCache.Hits,
		DCacheMisses:        stats.DCache.Misses,
		Result:              c.RegFile().Read(resultReg),
		SimulatedSeconds:    c.SimulatedSeconds(),
		WallTime:            wallTime,
	}
	result.Passed = result.Result == bench.Expected

	if h.config.CheckGolden {
		diff, err := h.compareGolden(bench, c)
		if err != nil {
			return BenchmarkResult{}, err
		}
		result.MatchesGolden = diff == ""
		result.GoldenDiff = diff
	}

	return result, nil
}

// architecturalState is what the timing core and the functional model
// must agree on after a run.
type architecturalState struct {
	Registers [emu.NumRegs]uint32
	Memory    []byte
	Colors    []uint8
}

func captureState(c *core.Core) architecturalState {
	return architecturalState{
		Registers: c.RegFile().Snapshot(),
		Memory:    c.DataMemory().Bytes(),
		Colors:    c.ColorHistory(),
	}
}

// compareGolden replays bench on the functional model and returns a diff
// against the timing core's final state, empty when they agree.
func (h *Harness) compareGolden(bench Benchmark, timed *core.Core) (string, error) {
	ref, err := h.newCore(bench)
	if err != nil {
		return "", err
	}

	emulator := ref.NewEmulator(emu.WithMaxInstructions(ref.Config().MaxCycles))
	if err := emulator.Run(); err != nil {
		return "", fmt.Errorf("functional model: %w", err)
	}

	return cmp.Diff(captureState(ref), captureState(timed)), nil
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== RV32 Pipeline Benchmark Results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(out, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(out, "  Result (a0): %d (passed: %v)\n", r.Result, r.Passed)
		_, _ = fmt.Fprintln(out, "  --- Timing ---")
		_, _ = fmt.Fprintf(out, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(out, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(out, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(out, "  Stall Cycles:         %d\n", r.StallCycles)
		_, _ = fmt.Fprintf(out, "  Pipeline Flushes:     %d\n", r.PipelineFlushes)
		_, _ = fmt.Fprintf(out, "  Forwards EX/MEM:      %d\n", r.ForwardsEXMEM)
		_, _ = fmt.Fprintf(out, "  Forwards MEM/WB:      %d\n", r.ForwardsMEMWB)
		_, _ = fmt.Fprintln(out, "  --- Memory ---")
		_, _ = fmt.Fprintf(out, "  Loads/Stores:         %d/%d\n", r.Loads, r.Stores)
		_, _ = fmt.Fprintf(out, "  MMIO Reads/Writes:    %d/%d\n", r.MMIOReads, r.MMIOWrites)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(out, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(out, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(out, "  Misses: %d\n", r.DCacheMisses)
		}

		if r.GoldenDiff != "" {
			_, _ = fmt.Fprintf(out, "  Functional model mismatch (-golden +timing):\n%s", r.GoldenDiff)
		}

		_, _ = fmt.Fprintf(out, "  Simulated Time: %.3gs\n", r.SimulatedSeconds)
		_, _ = fmt.Fprintf(out, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(out, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,stalls,flushes,fwd_exmem,fwd_memwb,dcache_hits,dcache_misses,result,passed")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%v\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.StallCycles,
			r.PipelineFlushes,
			r.ForwardsEXMEM,
			r.ForwardsMEMWB,
			r.DCacheHits,
			r.DCacheMisses,
			r.Result,
			r.Passed,
		)
	}
}

// PrintJSON outputs benchmark results as an indented JSON array.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	enc := json.NewEncoder(h.config.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to encode benchmark results: %w", err)
	}
	return nil
}
