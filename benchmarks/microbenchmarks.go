package benchmarks

import (
	"encoding/binary"

	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/core"
)

// Register conventionally holding a benchmark's result (a0).
const resultReg uint8 = 10

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each one
// targets a single pipeline behaviour.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		independentALU(),
		dependencyChain(),
		loadUseChain(),
		branchLoop(),
		memoryCopy(),
		functionCalls(),
		mmioEcho(),
	}
}

// GetCoreBenchmarks returns a minimal set covering forwarding, load-use
// stalls and branch flushes.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		dependencyChain(),
		loadUseChain(),
		branchLoop(),
	}
}

// 1. Independent ALU - no operand is produced fewer than 5 instructions earlier
func independentALU() Benchmark {
	words := make([]insts.Word, 0, 22)
	for i := 0; i < 20; i++ {
		rd := uint8(10 + i%5)
		words = append(words, insts.ADDI(rd, rd, 1))
	}
	words = append(words, insts.Halt())

	return Benchmark{
		Name:        "independent_alu",
		Description: "20 ADDIs over 5 registers - no forwarding, CPI approaches 1",
		Program:     insts.BuildProgram(words...),
		Expected:    4,
	}
}

// 2. Dependency Chain - every instruction consumes the previous result
func dependencyChain() Benchmark {
	words := make([]insts.Word, 0, 21)
	for i := 0; i < 20; i++ {
		words = append(words, insts.ADDI(resultReg, resultReg, 1))
	}
	words = append(words, insts.Halt())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs - EX/MEM forwarding hides the latency",
		Program:     insts.BuildProgram(words...),
		Expected:    20,
	}
}

// 3. Load-Use Chain - a counter in memory incremented in place
func loadUseChain() Benchmark {
	words := make([]insts.Word, 0, 16)
	for i := 0; i < 5; i++ {
		words = append(words,
			insts.LW(resultReg, 0, 0x100),
			insts.ADDI(resultReg, resultReg, 1),
			insts.SW(resultReg, 0, 0x100),
		)
	}
	words = append(words, insts.Halt())

	return Benchmark{
		Name:        "load_use_chain",
		Description: "5 load/increment/store triples - one load-use stall each",
		Setup: func(c *core.Core) {
			c.LoadData(0x100, wordBytes(10))
		},
		Program:  insts.BuildProgram(words...),
		Expected: 15,
	}
}

// 4. Branch Loop - a counted loop taken 9 times
func branchLoop() Benchmark {
	return Benchmark{
		Name:        "branch_loop",
		Description: "10-iteration counted loop - two bubbles per taken branch",
		Program: insts.BuildProgram(
			insts.ADDI(1, 0, 10),
			// loop:
			insts.ADDI(resultReg, resultReg, 3),
			insts.ADDI(1, 1, -1),
			insts.BNE(1, 0, -8),
			insts.Halt(),
		),
		Expected: 30,
	}
}

// 5. Memory Copy - copies 8 words and sums them on the way
func memoryCopy() Benchmark {
	return Benchmark{
		Name:        "memory_copy",
		Description: "8-word copy loop with the load consumed two slots later",
		Setup: func(c *core.Core) {
			c.LoadData(0x100, wordBytes(1, 2, 3, 4, 5, 6, 7, 8))
		},
		Program: insts.BuildProgram(
			insts.ADDI(1, 0, 0x100),
			insts.ADDI(2, 0, 0x200),
			insts.ADDI(3, 0, 8),
			// loop:
			insts.LW(5, 1, 0),
			insts.ADDI(1, 1, 4),
			insts.ADD(resultReg, resultReg, 5),
			insts.SW(5, 2, 0),
			insts.ADDI(2, 2, 4),
			insts.ADDI(3, 3, -1),
			insts.BNE(3, 0, -24),
			insts.Halt(),
		),
		Expected: 36,
	}
}

// 6. Function Calls - JAL/JALR pairs
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 calls to a leaf function - link forwarding and two flushes per call",
		Program: insts.BuildProgram(
			insts.JAL(1, 24),
			insts.JAL(1, 20),
			insts.JAL(1, 16),
			insts.JAL(1, 12),
			insts.JAL(1, 8),
			insts.Halt(),
			// add3:
			insts.ADDI(resultReg, resultReg, 3),
			insts.JALR(0, 1, 0),
		),
		Expected: 15,
	}
}

// 7. MMIO Echo - keyboard code to the colour register and its successor
func mmioEcho() Benchmark {
	return Benchmark{
		Name:        "mmio_echo",
		Description: "keyboard read echoed to the colour register - load-use stall on MMIO",
		Setup: func(c *core.Core) {
			c.PressKey(0x1C)
		},
		Program: insts.BuildProgram(
			insts.LUI(1, 0xFFFF0000),
			insts.LW(resultReg, 1, 0),
			insts.SW(resultReg, 1, 4),
			insts.ADDI(11, resultReg, 1),
			insts.SW(11, 1, 4),
			insts.Halt(),
		),
		Expected: 0x1C,
	}
}

func wordBytes(words ...uint32) []byte {
	data := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(data[4*i:], w)
	}
	return data
}
