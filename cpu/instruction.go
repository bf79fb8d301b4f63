package cpu

// Instruction is an assembled instruction. It is immutable once assembled.
type Instruction struct {
	LineNo   int      // Source line number.
	Address  uint64   // Byte address, a multiple of INSTRUCTION_SIZE.
	Mnemonic Mnemonic // Operation.
	Cond     Cond     // Condition, for B.cond.
	Rd       Register // Destination, or Rt for loads, stores and CBZ/CBNZ.
	Rn       Register // First source.
	Rm       Register // Second source.
	Imm      int64    // Immediate, memory offset, shift amount, or branch offset in words.
	Shift    uint     // MOVZ/MOVK left shift of Imm.
	Label    string   // Branch target label, if any.
	Text     string   // Source text.
	Word     uint32   // Encoded form.
}

func (inst *Instruction) String() string {
	return inst.Text
}

// Signals returns the control signals of the instruction.
func (inst *Instruction) Signals() ControlSignals {
	return Decode(inst.Mnemonic)
}

// Immediate returns the extended immediate presented to the datapath.
func (inst *Instruction) Immediate() uint64 {
	if inst.Mnemonic.Class() == CLASS_IW {
		return uint64(inst.Imm) << inst.Shift
	}
	return uint64(inst.Imm)
}

// Target returns the branch target address.
func (inst *Instruction) Target() uint64 {
	return inst.Address + uint64(inst.Imm*INSTRUCTION_SIZE)
}

// Branches returns true if the instruction may change the PC.
func (inst *Instruction) Branches() bool {
	cs := inst.Signals()
	return cs.Branch || cs.UncondBranch
}
