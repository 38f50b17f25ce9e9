// Command benchmark runs the RV32 pipeline microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results as JSON
//	-dcache     Enable the data cache model
//	-core       Run only the core benchmark subset
//	-parallel   Maximum number of benchmarks running at once
//	-no-golden  Skip the functional model comparison
//	-config     Machine configuration file (JSON or YAML)
//
// Example:
//
//	# Output JSON for later comparison
//	go run ./cmd/benchmark -json > results.json
//
// The command exits non-zero if any benchmark produces the wrong result or
// disagrees with the functional model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32sim/benchmarks"
	"github.com/sarchlab/rv32sim/config"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	dcache := flag.Bool("dcache", false, "Enable the data cache model")
	coreOnly := flag.Bool("core", false, "Run only the core benchmark subset")
	parallel := flag.Int("parallel", 0, "Maximum concurrent benchmarks (0 = unlimited)")
	noGolden := flag.Bool("no-golden", false, "Skip the functional model comparison")
	configPath := flag.String("config", "", "Machine configuration file")
	verbose := flag.Bool("v", false, "Log each finished benchmark")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stderr)

	harnessConfig := benchmarks.DefaultConfig()
	harnessConfig.EnableDCache = *dcache
	harnessConfig.CheckGolden = !*noGolden
	harnessConfig.Parallelism = *parallel
	harnessConfig.Output = os.Stdout
	harnessConfig.Logger = log
	harnessConfig.Verbose = *verbose

	if *configPath != "" {
		machine, err := config.LoadConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatal("cannot load machine config")
		}
		harnessConfig.Machine = machine
	}

	harness := benchmarks.NewHarness(harnessConfig)
	if *coreOnly {
		harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
	} else {
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
	}

	if !*csvOutput && !*jsonOutput {
		fmt.Println("RV32 Pipeline Benchmark Harness")
		fmt.Println("===============================")
		fmt.Printf("D-Cache: %v\n", harnessConfig.EnableDCache)
		fmt.Printf("Golden check: %v\n", harnessConfig.CheckGolden)
		fmt.Println("")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := harness.RunAll(ctx)
	if err != nil {
		log.WithError(err).Fatal("benchmark run failed")
	}

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			log.WithError(err).Fatal("cannot write results")
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for _, r := range results {
		if !r.Passed || (harnessConfig.CheckGolden && !r.MatchesGolden) {
			log.WithField("benchmark", r.Name).Warn("benchmark failed")
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
