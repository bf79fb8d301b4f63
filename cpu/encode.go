package cpu

// Encoding bases. Register fields and immediates are or-ed in.
const (
	ENC_ADD  = 0x8B000000 // 10001011000 Rm shamt Rn Rd
	ENC_SUB  = 0xCB000000 // 11001011000
	ENC_AND  = 0x8A000000 // 10001010000
	ENC_ORR  = 0xAA000000 // 10101010000
	ENC_EOR  = 0xCA000000 // 11001010000
	ENC_UBFM = 0xD3400000 // LSL/LSR by immediate
	ENC_SBFM = 0x93400000 // ASR by immediate
	ENC_LSLV = 0x9AC02000 // LSL by register
	ENC_LSRV = 0x9AC02400 // LSR by register
	ENC_ASRV = 0x9AC02800 // ASR by register
	ENC_ADDI = 0x91000000 // 1001000100 imm12 Rn Rd
	ENC_SUBI = 0xD1000000 // 1101000100
	ENC_ANDI = 0x92000000 // 1001001000
	ENC_ORRI = 0xB2000000 // 1011001000
	ENC_EORI = 0xD2000000 // 1101001000
	ENC_LDUR = 0xF8400000 // 11111000010 dt9 00 Rn Rt
	ENC_STUR = 0xF8000000 // 11111000000
	ENC_CBZ  = 0xB4000000 // 10110100 imm19 Rt
	ENC_CBNZ = 0xB5000000 // 10110101
	ENC_BC   = 0x54000000 // 01010100 imm19 0 cond
	ENC_B    = 0x14000000 // 000101 imm26
	ENC_MOVZ = 0xD2800000 // 110100101 hw imm16 Rd
	ENC_MOVK = 0xF2800000 // 111100101
	ENC_NOP  = 0xD503201F
)

var encBase = map[Mnemonic]uint32{
	OP_ADD:  ENC_ADD,
	OP_SUB:  ENC_SUB,
	OP_AND:  ENC_AND,
	OP_ORR:  ENC_ORR,
	OP_EOR:  ENC_EOR,
	OP_ADDI: ENC_ADDI,
	OP_SUBI: ENC_SUBI,
	OP_ANDI: ENC_ANDI,
	OP_ORRI: ENC_ORRI,
	OP_EORI: ENC_EORI,
	OP_LDUR: ENC_LDUR,
	OP_STUR: ENC_STUR,
	OP_CBZ:  ENC_CBZ,
	OP_CBNZ: ENC_CBNZ,
	OP_MOVZ: ENC_MOVZ,
	OP_MOVK: ENC_MOVK,
}

var encShiftReg = map[Mnemonic]uint32{
	OP_LSL: ENC_LSLV,
	OP_LSR: ENC_LSRV,
	OP_ASR: ENC_ASRV,
}

// field encodes a register number, using 31 for absent registers.
func field(reg Register) uint32 {
	if !reg.Valid() {
		return 31
	}
	return uint32(reg)
}

// Encode returns the 32-bit encoded form of an instruction.
func (inst *Instruction) Encode() (word uint32) {
	rd := field(inst.Rd)
	rn := field(inst.Rn) << 5
	rm := field(inst.Rm) << 16
	imm := uint32(inst.Imm)

	switch op := inst.Mnemonic; op {
	case OP_ADD, OP_SUB, OP_AND, OP_ORR, OP_EOR:
		word = encBase[op] | rm | rn | rd
	case OP_LSL, OP_LSR, OP_ASR:
		if inst.Rm.Valid() {
			word = encShiftReg[op] | rm | rn | rd
			break
		}
		shamt := imm & 63
		switch op {
		case OP_LSL:
			word = ENC_UBFM | ((64-shamt)&63)<<16 | (63-shamt)<<10
		case OP_LSR:
			word = ENC_UBFM | shamt<<16 | 63<<10
		case OP_ASR:
			word = ENC_SBFM | shamt<<16 | 63<<10
		}
		word |= rn | rd
	case OP_ADDI, OP_SUBI:
		base := encBase[op]
		if inst.Imm < 0 {
			// Negative immediates swap ADDI and SUBI.
			base ^= ENC_ADDI ^ ENC_SUBI
			imm = uint32(-inst.Imm)
		}
		word = base | (imm&0xfff)<<10 | rn | rd
	case OP_ANDI, OP_ORRI, OP_EORI:
		word = encBase[op] | (imm&0xfff)<<10 | rn | rd
	case OP_LDUR, OP_STUR:
		word = encBase[op] | (imm&0x1ff)<<12 | rn | rd
	case OP_CBZ, OP_CBNZ:
		word = encBase[op] | (imm&0x7ffff)<<5 | rd
	case OP_B_COND:
		word = ENC_BC | (imm&0x7ffff)<<5 | uint32(inst.Cond)&0xf
	case OP_B:
		word = ENC_B | imm&0x3ffffff
	case OP_MOVZ, OP_MOVK:
		word = encBase[op] | uint32(inst.Shift/16)<<21 | (imm&0xffff)<<5 | rd
	case OP_NOP:
		word = ENC_NOP
	}

	return
}
