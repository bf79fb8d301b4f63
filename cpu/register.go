package cpu

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/ezrec/legv8/internal"
)

// Register is a register number, 0 through 31.
type Register int

const (
	REGISTER_COUNT = 32 // Number of architectural registers.
	GENERAL_COUNT  = 28 // Number of X0.. general-purpose registers.
)

const (
	REG_NONE = Register(-1) // No register operand.
	REG_SP   = Register(28) // SP
	REG_FP   = Register(29) // FP
	REG_LR   = Register(30) // LR
	REG_XZR  = Register(31) // XZR
)

var specialName = map[Register]string{
	REG_SP:  "SP",
	REG_FP:  "FP",
	REG_LR:  "LR",
	REG_XZR: "XZR",
}

func (reg Register) String() string {
	if name, ok := specialName[reg]; ok {
		return name
	}
	if reg >= 0 && reg < GENERAL_COUNT {
		return fmt.Sprintf("X%d", int(reg))
	}
	return "-"
}

// Valid returns true if the register names an architectural register.
func (reg Register) Valid() bool {
	return reg >= 0 && reg < REGISTER_COUNT
}

// ParseRegister parses a register name, case-insensitively.
// X28 through X31 are accepted as aliases of SP, FP, LR and XZR.
func ParseRegister(name string) (reg Register, ok bool) {
	name = strings.ToUpper(name)
	for reg, special := range specialName {
		if name == special {
			return reg, true
		}
	}
	if name == "WZR" {
		return REG_XZR, true
	}
	if len(name) < 2 || name[0] != 'X' {
		return REG_NONE, false
	}
	n, err := strconv.ParseUint(name[1:], 10, 8)
	if err != nil || n >= REGISTER_COUNT || (len(name) > 2 && name[1] == '0') {
		return REG_NONE, false
	}
	return Register(n), true
}

// Registers yields every register in display order: X0-X27, then SP, FP, LR, XZR.
func Registers() iter.Seq[Register] {
	general := func(yield func(Register) bool) {
		for reg := range Register(GENERAL_COUNT) {
			if !yield(reg) {
				return
			}
		}
	}
	special := func(yield func(Register) bool) {
		for _, reg := range []Register{REG_SP, REG_FP, REG_LR, REG_XZR} {
			if !yield(reg) {
				return
			}
		}
	}
	return internal.IterSeqConcat(general, special)
}

// RegisterFile holds the 64-bit register values.
// XZR always reads as zero, and writes to it are discarded.
type RegisterFile [REGISTER_COUNT]uint64

// Read returns the value of a register.
func (rf *RegisterFile) Read(reg Register) uint64 {
	if reg == REG_XZR || !reg.Valid() {
		return 0
	}
	return rf[reg]
}

// Write replaces the value of a register.
func (rf *RegisterFile) Write(reg Register, value uint64) {
	if reg == REG_XZR || !reg.Valid() {
		return
	}
	rf[reg] = value
}

// Reset zeros all registers, and sets SP to STACK_TOP.
func (rf *RegisterFile) Reset() {
	clear(rf[:])
	rf[REG_SP] = STACK_TOP
}

// All yields the register values in display order.
func (rf *RegisterFile) All() iter.Seq2[Register, uint64] {
	return func(yield func(Register, uint64) bool) {
		for reg := range Registers() {
			if !yield(reg, rf.Read(reg)) {
				return
			}
		}
	}
}
