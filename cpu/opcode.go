package cpu

import (
	"strings"
)

// Mnemonic is an instruction mnemonic.
type Mnemonic int

const (
	OP_ADD    = Mnemonic(0)  // ADD
	OP_SUB    = Mnemonic(1)  // SUB
	OP_AND    = Mnemonic(2)  // AND
	OP_ORR    = Mnemonic(3)  // ORR
	OP_EOR    = Mnemonic(4)  // EOR
	OP_LSL    = Mnemonic(5)  // LSL
	OP_LSR    = Mnemonic(6)  // LSR
	OP_ASR    = Mnemonic(7)  // ASR
	OP_ADDI   = Mnemonic(8)  // ADDI
	OP_SUBI   = Mnemonic(9)  // SUBI
	OP_ANDI   = Mnemonic(10) // ANDI
	OP_ORRI   = Mnemonic(11) // ORRI
	OP_EORI   = Mnemonic(12) // EORI
	OP_LDUR   = Mnemonic(13) // LDUR
	OP_STUR   = Mnemonic(14) // STUR
	OP_CBZ    = Mnemonic(15) // CBZ
	OP_CBNZ   = Mnemonic(16) // CBNZ
	OP_B      = Mnemonic(17) // B
	OP_B_COND = Mnemonic(18) // B.cond
	OP_MOVZ   = Mnemonic(19) // MOVZ
	OP_MOVK   = Mnemonic(20) // MOVK
	OP_NOP    = Mnemonic(21) // NOP
)

var mnemonicName = [...]string{
	"ADD", "SUB", "AND", "ORR", "EOR", "LSL", "LSR", "ASR",
	"ADDI", "SUBI", "ANDI", "ORRI", "EORI",
	"LDUR", "STUR", "CBZ", "CBNZ", "B", "B.cond",
	"MOVZ", "MOVK", "NOP",
}

func (op Mnemonic) String() string {
	if op < 0 || int(op) >= len(mnemonicName) {
		return "???"
	}
	return mnemonicName[op]
}

// ParseMnemonic looks up a mnemonic, case-insensitively.
// Conditional branches are returned with their condition.
func ParseMnemonic(word string) (op Mnemonic, cond Cond, ok bool) {
	word = strings.ToUpper(word)
	if suffix, found := strings.CutPrefix(word, "B."); found {
		cond, ok = ParseCond(suffix)
		op = OP_B_COND
		return
	}
	for n, name := range mnemonicName {
		if op := Mnemonic(n); op != OP_B_COND && name == word {
			return op, COND_AL, true
		}
	}
	return
}

// Class is the instruction format class of a mnemonic.
type Class int

const (
	CLASS_R     = Class(0) // R
	CLASS_I     = Class(1) // I
	CLASS_LOAD  = Class(2) // D-load
	CLASS_STORE = Class(3) // D-store
	CLASS_CB    = Class(4) // CB
	CLASS_BCOND = Class(5) // CB-cond
	CLASS_B     = Class(6) // B
	CLASS_IW    = Class(7) // IW
	CLASS_NOP   = Class(8) // NOP
)

var className = [...]string{
	"R", "I", "D-load", "D-store", "CB", "CB-cond", "B", "IW", "NOP",
}

func (class Class) String() string {
	if class < 0 || int(class) >= len(className) {
		return "?"
	}
	return className[class]
}

// Class returns the format class of the mnemonic.
func (op Mnemonic) Class() Class {
	switch op {
	case OP_ADD, OP_SUB, OP_AND, OP_ORR, OP_EOR, OP_LSL, OP_LSR, OP_ASR:
		return CLASS_R
	case OP_ADDI, OP_SUBI, OP_ANDI, OP_ORRI, OP_EORI:
		return CLASS_I
	case OP_LDUR:
		return CLASS_LOAD
	case OP_STUR:
		return CLASS_STORE
	case OP_CBZ, OP_CBNZ:
		return CLASS_CB
	case OP_B_COND:
		return CLASS_BCOND
	case OP_B:
		return CLASS_B
	case OP_MOVZ, OP_MOVK:
		return CLASS_IW
	}
	return CLASS_NOP
}

// Shift returns true for the shift mnemonics.
func (op Mnemonic) Shift() bool {
	return op == OP_LSL || op == OP_LSR || op == OP_ASR
}

// Native returns true if the encoding of the mnemonic is also a valid
// ARM64 encoding with the same meaning.
func (op Mnemonic) Native() bool {
	switch op {
	case OP_ANDI, OP_ORRI, OP_EORI:
		return false
	}
	return true
}

// Stage is a micro-step of instruction execution.
type Stage int

const (
	STAGE_FETCH     = Stage(0) // Fetch
	STAGE_DECODE    = Stage(1) // Decode
	STAGE_EXECUTE   = Stage(2) // Execute
	STAGE_MEMORY    = Stage(3) // Memory
	STAGE_WRITEBACK = Stage(4) // Writeback
)

var stageName = [...]string{"Fetch", "Decode", "Execute", "Memory", "Writeback"}

func (stage Stage) String() string {
	if stage < 0 || int(stage) >= len(stageName) {
		return "?"
	}
	return stageName[stage]
}

// AluOp is the 2-bit ALUOp control field from the main control unit.
type AluOp int

const (
	ALUOP_ADD    = AluOp(0) // 00
	ALUOP_PASS   = AluOp(1) // 01
	ALUOP_FUNC   = AluOp(2) // 10
	ALUOP_UNUSED = AluOp(3) // XX
)

func (op AluOp) String() string {
	switch op {
	case ALUOP_ADD:
		return "00"
	case ALUOP_PASS:
		return "01"
	case ALUOP_FUNC:
		return "10"
	}
	return "XX"
}

func (op AluOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// AluFunc is the 4-bit ALU control input.
type AluFunc int

const (
	ALU_AND  = AluFunc(0b0000) // and
	ALU_ORR  = AluFunc(0b0001) // orr
	ALU_ADD  = AluFunc(0b0010) // add
	ALU_EOR  = AluFunc(0b0100) // eor
	ALU_SUB  = AluFunc(0b0110) // sub
	ALU_PASS = AluFunc(0b0111) // pass
	ALU_LSL  = AluFunc(0b1010) // lsl
	ALU_LSR  = AluFunc(0b1011) // lsr
	ALU_ASR  = AluFunc(0b1100) // asr
	ALU_NONE = AluFunc(-1)     // none
)

var aluFuncName = map[AluFunc]string{
	ALU_AND:  "and",
	ALU_ORR:  "orr",
	ALU_ADD:  "add",
	ALU_EOR:  "eor",
	ALU_SUB:  "sub",
	ALU_PASS: "pass",
	ALU_LSL:  "lsl",
	ALU_LSR:  "lsr",
	ALU_ASR:  "asr",
	ALU_NONE: "none",
}

func (fn AluFunc) String() string {
	return aluFuncName[fn]
}

// Bits returns the ALU control lines as a 4 character binary string.
func (fn AluFunc) Bits() string {
	if fn == ALU_NONE {
		return "XXXX"
	}
	const digits = "01"
	bits := make([]byte, 4)
	for n := range bits {
		bits[n] = digits[(fn>>(3-n))&1]
	}
	return string(bits)
}
