// Package datapath names the single-cycle datapath components and wires
// that are live for an instruction class during a micro-step.
package datapath

import (
	"slices"

	"github.com/ezrec/legv8/cpu"
)

// Block identifiers.
const (
	BLOCK_PC         = "block-pc"
	BLOCK_IMEM       = "block-imem"
	BLOCK_ADDER1     = "block-adder1"
	BLOCK_CONTROL    = "block-control"
	BLOCK_REGS       = "block-regs"
	BLOCK_SIGNEXT    = "block-signext"
	BLOCK_MUX2       = "block-mux2"
	BLOCK_ALU        = "block-alu"
	BLOCK_ALUCONTROL = "block-alucontrol"
	BLOCK_ADDER2     = "block-adder2"
	BLOCK_DATAMEM    = "block-datamem"
	BLOCK_MUX3       = "block-mux3"
	BLOCK_MUX4       = "block-mux4"
	BLOCK_AND_GATE   = "block-and-gate"
	BLOCK_OR_GATE    = "block-or-gate"
)

// Path identifiers.
const (
	PATH_PC_IMEM          = "path-pc-imem"
	PATH_PC_ADDER1        = "path-pc-adder1"
	PATH_4_ADDER          = "path-4-adder"
	PATH_ADDER1_MUX4_IN0  = "path-adder1-mux4-in0"
	PATH_IMEM_OUT         = "path-imem-out"
	PATH_INSTR_CONTROL    = "path-instr-control"
	PATH_INSTR_REGS       = "path-instr-regs"
	PATH_INSTR_REGWRITE   = "path-instr-regwriteaddr"
	PATH_INSTR_ALUCONTROL = "path-instr-alucontrol"
	PATH_INSTR_REG2LOC_0  = "path-instr-reg2loc-0"
	PATH_INSTR_REG2LOC_1  = "path-instr-reg2loc-1"
	PATH_REG2LOC_OUT      = "path-reg2loc-out"
	PATH_REGS_RDATA1      = "path-regs-rdata1"
	PATH_REGS_RDATA2      = "path-regs-rdata2"
	PATH_INSTR_SIGNEXT    = "path-instr-signext"
	PATH_SIGNEXT_OUT_MUX2 = "path-signext-out-mux2"
	PATH_MUX2_ALU         = "path-mux2-alu"
	PATH_ALU_MUX3         = "path-alu-mux3"
	PATH_ALU_ZERO         = "path-alu-zero"
	PATH_PC_ADDER2        = "path-pc-adder2"
	PATH_SIGNEXT_BR_SHIFT = "path-signext-br-shift"
	PATH_SHIFT_ADDER2     = "path-shift-adder2"
	PATH_ADDER2_OR        = "path-adder2-or"
	PATH_ALU_RESULT       = "path-alu-result"
	PATH_MEM_READDATA     = "path-mem-readdata"
	PATH_RDATA2_MEMWRITE  = "path-rdata2-memwrite"
	PATH_MUX3_WB          = "path-mux3-wb"
	PATH_MUX4_PC          = "path-mux4-pc"
	PATH_AND_OR           = "path-and-or"
	PATH_OR_MUX4          = "path-or-mux4"
)

// Activity is the set of live blocks and paths.
type Activity struct {
	Blocks []string `json:"active_blocks"`
	Paths  []string `json:"active_paths"`
}

func (act *Activity) block(ids ...string) {
	act.Blocks = append(act.Blocks, ids...)
}

func (act *Activity) path(ids ...string) {
	act.Paths = append(act.Paths, ids...)
}

// readsRn is true for the classes that use register read port 1.
func readsRn(class cpu.Class) bool {
	switch class {
	case cpu.CLASS_R, cpu.CLASS_I, cpu.CLASS_LOAD, cpu.CLASS_STORE:
		return true
	}
	return false
}

// Lookup returns the activity of an instruction class during a stage.
// The stage that retires the instruction also drives the PC select logic.
func Lookup(class cpu.Class, stage cpu.Stage) (act Activity) {
	cs := class.Signals()
	stages := cs.Stages()
	if !slices.Contains(stages, stage) {
		return
	}

	branches := cs.Branch || cs.UncondBranch
	reads2 := !cs.ALUSrc || cs.MemWrite || cs.Reg2Loc
	if class == cpu.CLASS_BCOND || class == cpu.CLASS_B || class == cpu.CLASS_NOP {
		reads2 = false
	}

	switch stage {
	case cpu.STAGE_FETCH:
		act.block(BLOCK_PC, BLOCK_IMEM, BLOCK_ADDER1)
		act.path(PATH_PC_IMEM, PATH_PC_ADDER1, PATH_4_ADDER, PATH_ADDER1_MUX4_IN0)
	case cpu.STAGE_DECODE:
		act.block(BLOCK_CONTROL, BLOCK_REGS)
		act.path(PATH_IMEM_OUT, PATH_INSTR_CONTROL, PATH_INSTR_REGS, PATH_INSTR_ALUCONTROL)
		if cs.RegWrite {
			act.path(PATH_INSTR_REGWRITE)
		}
		if reads2 {
			if cs.Reg2Loc {
				act.path(PATH_INSTR_REG2LOC_1)
			} else {
				act.path(PATH_INSTR_REG2LOC_0)
			}
			act.path(PATH_REG2LOC_OUT)
		}
		if readsRn(class) {
			act.path(PATH_REGS_RDATA1)
		}
		if reads2 {
			act.path(PATH_REGS_RDATA2)
		}
		if cs.ALUSrc || branches {
			act.block(BLOCK_SIGNEXT)
			act.path(PATH_INSTR_SIGNEXT)
		}
		switch cs.ALUOp {
		case cpu.ALUOP_PASS, cpu.ALUOP_UNUSED:
		default:
			act.block(BLOCK_MUX2)
			if cs.ALUSrc {
				act.path(PATH_SIGNEXT_OUT_MUX2)
			}
			act.path(PATH_MUX2_ALU)
		}
	case cpu.STAGE_EXECUTE:
		act.block(BLOCK_ALU, BLOCK_ALUCONTROL)
		if cs.ALUOp != cpu.ALUOP_UNUSED {
			if !cs.MemToReg {
				act.path(PATH_ALU_MUX3)
			}
			act.path(PATH_ALU_ZERO)
		}
		if branches {
			act.block(BLOCK_ADDER2)
			act.path(PATH_PC_ADDER2, PATH_SIGNEXT_BR_SHIFT, PATH_SHIFT_ADDER2, PATH_ADDER2_OR)
		}
	case cpu.STAGE_MEMORY:
		act.block(BLOCK_DATAMEM)
		act.path(PATH_ALU_RESULT)
		if cs.MemRead {
			act.path(PATH_MEM_READDATA)
		}
		if cs.MemWrite {
			act.path(PATH_RDATA2_MEMWRITE)
		}
	case cpu.STAGE_WRITEBACK:
		act.block(BLOCK_MUX3)
		act.path(PATH_MUX3_WB)
	}

	if stage == stages[len(stages)-1] {
		act.block(BLOCK_MUX4, BLOCK_AND_GATE, BLOCK_OR_GATE)
		act.path(PATH_MUX4_PC, PATH_AND_OR, PATH_OR_MUX4)
	}

	return
}
