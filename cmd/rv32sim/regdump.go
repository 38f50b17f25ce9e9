package main

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/sarchlab/rv32sim/emu"
)

var (
	chSame = ansi.ColorCode("default:default")
	chNew  = ansi.ColorCode("default+bu:default")
)

const dumpColumns = 4

// regChange is one register's value before and after a run.
type regChange struct {
	reg      int
	old, new uint32
}

func (c regChange) changed() bool {
	return c.old != c.new
}

// String renders the register as " x10 0x0000001c". Changed registers are
// marked with a leading "+" or, in colour mode, the differing hex digits
// are underlined.
func (c regChange) String(color bool) string {
	name := fmt.Sprintf("x%d", c.reg)
	newHex := fmt.Sprintf("%08x", c.new)

	if !c.changed() {
		return fmt.Sprintf("  %3s 0x%s", name, newHex)
	}
	if !color {
		return fmt.Sprintf("+ %3s 0x%s", name, newHex)
	}

	oldHex := fmt.Sprintf("%08x", c.old)
	var sb strings.Builder
	sb.WriteString("  " + chNew + fmt.Sprintf("%3s", name) + ansi.Reset + " 0x")
	for i := range newHex {
		col := chSame
		if newHex[i] != oldHex[i] {
			col = chNew
		}
		sb.WriteString(col + newHex[i:i+1])
	}
	sb.WriteString(ansi.Reset)
	return sb.String()
}

// formatRegisters lays the register file out column-wise, four per row.
func formatRegisters(before, after [emu.NumRegs]uint32, color bool) string {
	rows := emu.NumRegs / dumpColumns

	var sb strings.Builder
	for row := 0; row < rows; row++ {
		cells := make([]string, 0, dumpColumns)
		for col := 0; col < dumpColumns; col++ {
			reg := col*rows + row
			cells = append(cells, regChange{reg: reg, old: before[reg], new: after[reg]}.String(color))
		}
		sb.WriteString(strings.Join(cells, "  "))
		sb.WriteString("\n")
	}
	return sb.String()
}
