package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rv32sim/insts"
)

// Snapshot is the pipeline state latched at the end of one cycle, along
// with the control decisions taken during it.
type Snapshot struct {
	Cycle uint64
	PC    uint32

	IFID  IFIDRegister
	IDEX  IDEXRegister
	EXMEM EXMEMRegister
	MEMWB MEMWBRegister

	Forwarding ForwardingResult
	Stalled    bool
	Flushed    bool
}

// Observer receives a snapshot after every cycle.
type Observer func(Snapshot)

// Fields renders the snapshot as structured log fields.
func (s Snapshot) Fields() logrus.Fields {
	return logrus.Fields{
		"cycle":   s.Cycle,
		"pc":      fmt.Sprintf("0x%08x", s.PC),
		"if_id":   stageText(s.IFID.Valid, s.IFID.PC, s.IFID.Word),
		"id_ex":   stageText(s.IDEX.Valid, s.IDEX.PC, s.IDEX.Word),
		"ex_mem":  stageText(s.EXMEM.Valid, s.EXMEM.PC, s.EXMEM.Word),
		"mem_wb":  stageText(s.MEMWB.Valid, s.MEMWB.PC, s.MEMWB.Word),
		"fwd_rs1": s.Forwarding.ForwardRs1.String(),
		"fwd_rs2": s.Forwarding.ForwardRs2.String(),
		"stall":   s.Stalled,
		"flush":   s.Flushed,
	}
}

func stageText(valid bool, pc uint32, word insts.Word) string {
	if !valid {
		return "bubble"
	}
	return fmt.Sprintf("%04x: %s", pc, insts.Disassemble(word))
}

// Snapshot returns the current pipeline state.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Cycle: p.stats.Cycles,
		PC:    p.pc,
		IFID:  p.ifid,
		IDEX:  p.idex,
		EXMEM: p.exmem,
		MEMWB: p.memwb,
	}
}

func (p *Pipeline) trace(forwarding ForwardingResult, stalls StallResult) {
	if p.logger == nil && p.observer == nil {
		return
	}

	snap := p.Snapshot()
	snap.Forwarding = forwarding
	snap.Stalled = stalls.StallIF
	snap.Flushed = stalls.FlushIF

	if p.logger != nil {
		p.logger.WithFields(snap.Fields()).Debug("cycle")
	}
	if p.observer != nil {
		p.observer(snap)
	}
}
