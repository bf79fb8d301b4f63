package cpu

import (
	"strings"
)

// Flags are the NZCV condition flags.
type Flags struct {
	N bool // Negative
	Z bool // Zero
	C bool // Carry
	V bool // Overflow
}

// String shows set flags by letter, and clear flags as '-'.
func (fl Flags) String() string {
	var sb strings.Builder
	for n, set := range []bool{fl.N, fl.Z, fl.C, fl.V} {
		if set {
			sb.WriteByte("NZCV"[n])
		} else {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Cond is a B.cond condition code, numbered by its 4-bit encoding.
type Cond int

const (
	COND_EQ = Cond(0x0) // EQ
	COND_NE = Cond(0x1) // NE
	COND_HS = Cond(0x2) // HS
	COND_LO = Cond(0x3) // LO
	COND_MI = Cond(0x4) // MI
	COND_PL = Cond(0x5) // PL
	COND_VS = Cond(0x6) // VS
	COND_VC = Cond(0x7) // VC
	COND_HI = Cond(0x8) // HI
	COND_LS = Cond(0x9) // LS
	COND_GE = Cond(0xa) // GE
	COND_LT = Cond(0xb) // LT
	COND_GT = Cond(0xc) // GT
	COND_LE = Cond(0xd) // LE
	COND_AL = Cond(0xe) // AL
)

var condName = [...]string{
	"EQ", "NE", "HS", "LO", "MI", "PL", "VS", "VC",
	"HI", "LS", "GE", "LT", "GT", "LE", "AL",
}

func (cond Cond) String() string {
	if cond < 0 || int(cond) >= len(condName) {
		return "??"
	}
	return condName[cond]
}

// ParseCond parses a condition suffix. CS and CC are aliases of HS and LO.
func ParseCond(name string) (cond Cond, ok bool) {
	name = strings.ToUpper(name)
	switch name {
	case "CS":
		return COND_HS, true
	case "CC":
		return COND_LO, true
	}
	for n, str := range condName {
		if str == name {
			return Cond(n), true
		}
	}
	return
}

// Holds evaluates a condition against the flags.
func (fl Flags) Holds(cond Cond) bool {
	switch cond {
	case COND_EQ:
		return fl.Z
	case COND_NE:
		return !fl.Z
	case COND_HS:
		return fl.C
	case COND_LO:
		return !fl.C
	case COND_MI:
		return fl.N
	case COND_PL:
		return !fl.N
	case COND_VS:
		return fl.V
	case COND_VC:
		return !fl.V
	case COND_HI:
		return fl.C && !fl.Z
	case COND_LS:
		return !fl.C || fl.Z
	case COND_GE:
		return fl.N == fl.V
	case COND_LT:
		return fl.N != fl.V
	case COND_GT:
		return !fl.Z && fl.N == fl.V
	case COND_LE:
		return fl.Z || fl.N != fl.V
	case COND_AL:
		return true
	}
	return false
}
