package cpu

// ControlSignals are the main control unit outputs for an instruction.
type ControlSignals struct {
	Reg2Loc      bool  `json:"Reg2Loc"`
	ALUSrc       bool  `json:"ALUSrc"`
	MemToReg     bool  `json:"MemToReg"`
	RegWrite     bool  `json:"RegWrite"`
	MemRead      bool  `json:"MemRead"`
	MemWrite     bool  `json:"MemWrite"`
	Branch       bool  `json:"Branch"`
	UncondBranch bool  `json:"UncondBranch"`
	ALUOp        AluOp `json:"ALUOp"`
}

var classSignals = map[Class]ControlSignals{
	CLASS_R:     {RegWrite: true, ALUOp: ALUOP_FUNC},
	CLASS_I:     {ALUSrc: true, RegWrite: true, ALUOp: ALUOP_FUNC},
	CLASS_LOAD:  {ALUSrc: true, MemToReg: true, RegWrite: true, MemRead: true, ALUOp: ALUOP_ADD},
	CLASS_STORE: {Reg2Loc: true, ALUSrc: true, MemWrite: true, ALUOp: ALUOP_ADD},
	CLASS_CB:    {Reg2Loc: true, Branch: true, ALUOp: ALUOP_PASS},
	CLASS_BCOND: {Branch: true, ALUOp: ALUOP_UNUSED},
	CLASS_B:     {UncondBranch: true, ALUOp: ALUOP_UNUSED},
	CLASS_IW:    {Reg2Loc: true, ALUSrc: true, RegWrite: true, ALUOp: ALUOP_FUNC},
	CLASS_NOP:   {ALUOp: ALUOP_UNUSED},
}

// Signals returns the control signals shared by every mnemonic in the class.
func (class Class) Signals() ControlSignals {
	return classSignals[class]
}

// Decode is the main control unit: it maps a mnemonic to its control signals.
func Decode(op Mnemonic) ControlSignals {
	return op.Class().Signals()
}

// Stages returns the micro-steps visited by an instruction with these signals.
func (cs ControlSignals) Stages() (stages []Stage) {
	stages = []Stage{STAGE_FETCH, STAGE_DECODE, STAGE_EXECUTE}
	if cs.MemRead || cs.MemWrite {
		stages = append(stages, STAGE_MEMORY)
	}
	if cs.RegWrite {
		stages = append(stages, STAGE_WRITEBACK)
	}
	return
}

var funcMap = map[Mnemonic]AluFunc{
	OP_ADD:  ALU_ADD,
	OP_SUB:  ALU_SUB,
	OP_AND:  ALU_AND,
	OP_ORR:  ALU_ORR,
	OP_EOR:  ALU_EOR,
	OP_LSL:  ALU_LSL,
	OP_LSR:  ALU_LSR,
	OP_ASR:  ALU_ASR,
	OP_ADDI: ALU_ADD,
	OP_SUBI: ALU_SUB,
	OP_ANDI: ALU_AND,
	OP_ORRI: ALU_ORR,
	OP_EORI: ALU_EOR,
	OP_MOVZ: ALU_PASS,
	OP_MOVK: ALU_ORR,
}

// AluControl selects the ALU function from ALUOp and the opcode field.
func AluControl(aluop AluOp, op Mnemonic) AluFunc {
	switch aluop {
	case ALUOP_ADD:
		return ALU_ADD
	case ALUOP_PASS:
		return ALU_PASS
	case ALUOP_FUNC:
		if fn, ok := funcMap[op]; ok {
			return fn
		}
	}
	return ALU_NONE
}
