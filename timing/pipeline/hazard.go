package pipeline

import "github.com/sarchlab/rv32sim/insts"

// ForwardSource selects where an Execute-stage operand comes from.
type ForwardSource int

const (
	// ForwardNone uses the value read from the register file at Decode.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM bypasses the instruction now in the Memory stage.
	ForwardFromEXMEM
	// ForwardFromMEMWB bypasses the instruction now in the Writeback stage.
	ForwardFromMEMWB
)

// String returns a short name for the source.
func (f ForwardSource) String() string {
	switch f {
	case ForwardFromEXMEM:
		return "exmem"
	case ForwardFromMEMWB:
		return "memwb"
	default:
		return "none"
	}
}

// ForwardingResult holds the operand muxes for one Execute cycle. Rs2 also
// feeds the store data.
type ForwardingResult struct {
	ForwardRs1 ForwardSource
	ForwardRs2 ForwardSource
}

// StallResult is the set of hold and kill signals for one cycle.
type StallResult struct {
	// StallIF holds the PC and IF/ID.
	StallIF bool
	// StallID keeps the decoded instruction out of Execute.
	StallID bool
	// InsertBubbleEX clears the control of the next ID/EX.
	InsertBubbleEX bool
	// FlushIF discards the instruction being fetched.
	FlushIF bool
	// FlushID discards the instruction being decoded.
	FlushID bool
}

// HazardUnit holds the load-use detector and the forwarding resolver. It is
// purely combinational.
type HazardUnit struct{}

// NewHazardUnit creates a new hazard detection unit.
func NewHazardUnit() *HazardUnit {
	return &HazardUnit{}
}

// producesReg reports whether a stage slot will write reg. x0 never
// matches.
func producesReg(valid bool, ctrl insts.Control, rd, reg uint8) bool {
	return reg != 0 && valid && ctrl.RegWrite && rd == reg
}

// DetectForwarding picks a source for each operand of the instruction in
// ID/EX. EX/MEM wins over MEM/WB because it holds the younger write. A
// bubble in ID/EX needs no forwarding.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	if !idex.Valid {
		return ForwardingResult{}
	}

	source := func(reg uint8) ForwardSource {
		switch {
		case producesReg(exmem.Valid, exmem.Control, exmem.Rd, reg):
			return ForwardFromEXMEM
		case producesReg(memwb.Valid, memwb.Control, memwb.Rd, reg):
			return ForwardFromMEMWB
		}
		return ForwardNone
	}

	return ForwardingResult{
		ForwardRs1: source(idex.Rs1),
		ForwardRs2: source(idex.Rs2),
	}
}

// DetectLoadUseHazard reports whether the load in ID/EX writes a register
// named by the rs1 or rs2 field of the word in IF/ID. The fields are
// compared raw, whether or not the next instruction reads them.
func (h *HazardUnit) DetectLoadUseHazard(idex *IDEXRegister, nextRs1, nextRs2 uint8) bool {
	return idex.Control.MemRead && (idex.Rd == nextRs1 || idex.Rd == nextRs2)
}

// ComputeStalls turns the two hazard conditions into control signals. A
// load-use hazard holds IF and ID for one cycle and bubbles EX; a taken
// branch kills whatever IF and ID hold. When both fire the flush wins and
// the stall signals stay low, since the instruction that would have waited
// is discarded.
func (h *HazardUnit) ComputeStalls(loadUseHazard bool, branchTaken bool) StallResult {
	stall := loadUseHazard && !branchTaken
	return StallResult{
		StallIF:        stall,
		StallID:        stall,
		InsertBubbleEX: stall,
		FlushIF:        branchTaken,
		FlushID:        branchTaken,
	}
}

// GetForwardedValue applies a forwarding decision to the value read at
// Decode.
func (h *HazardUnit) GetForwardedValue(
	forward ForwardSource,
	decoded uint32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint32 {
	switch forward {
	case ForwardFromEXMEM:
		return exmem.ForwardValue()
	case ForwardFromMEMWB:
		return memwb.Result()
	default:
		return decoded
	}
}
