package emulator

import (
	"github.com/ezrec/legv8/cpu"
)

// Latch holds the values in flight between stages of one instruction.
type Latch struct {
	ReadData1    uint64      // Register file read port 1 (Rn).
	ReadData2    uint64      // Register file read port 2 (Rm, or Rt when Reg2Loc).
	Immediate    uint64      // Sign extended immediate.
	AluFunc      cpu.AluFunc // ALU function selected by ALU control.
	AluResult    uint64
	Zero         bool
	BranchTarget uint64
	BranchTaken  bool
	MemData      uint64 // Data memory read result.
	WriteData    uint64 // Register file write port.
	NextPc       uint64
}

// Report describes a completed micro-step.
type Report struct {
	Stage       cpu.Stage
	Index       int              // Position of Stage within the stages the instruction visits.
	Instruction *cpu.Instruction // Instruction in flight.
	Signals     cpu.ControlSignals
	Latch       Latch
	Log         string   // Narration of the micro-step.
	Boundary    bool     // Set if the instruction retired on this micro-step.
	End         bool     // Set if the program finished on this micro-step.
	Warnings    []string //
}
