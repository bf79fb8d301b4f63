package cpu

import (
	"math/bits"
)

// AluResult is the output of the ALU.
type AluResult struct {
	Value uint64 // Result, modulo 2^64.
	Zero  bool   // Set if Value is zero.
	Flags Flags  // NZCV for the operation.
}

// Alu performs an ALU function on two operands. Shift distances use
// the low 6 bits of value.
func Alu(fn AluFunc, input uint64, value uint64) (out AluResult) {
	var carry uint64
	var overflow bool

	switch fn {
	case ALU_AND:
		out.Value = input & value
	case ALU_ORR:
		out.Value = input | value
	case ALU_EOR:
		out.Value = input ^ value
	case ALU_ADD:
		out.Value, carry = bits.Add64(input, value, 0)
		overflow = ((input^out.Value)&(value^out.Value))>>63 == 1
	case ALU_SUB:
		out.Value, carry = bits.Add64(input, ^value, 1)
		overflow = ((input^value)&(input^out.Value))>>63 == 1
	case ALU_PASS:
		out.Value = value
	case ALU_LSL:
		out.Value = input << (value & 63)
	case ALU_LSR:
		out.Value = input >> (value & 63)
	case ALU_ASR:
		out.Value = uint64(int64(input) >> (value & 63))
	}

	out.Zero = out.Value == 0
	out.Flags = Flags{
		N: out.Value>>63 == 1,
		Z: out.Zero,
		C: carry == 1,
		V: overflow,
	}

	return
}
