// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ezrec/legv8/internal"
)

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":           "0",
	"TEXT_BASE":        fmt.Sprintf("%#x", TEXT_BASE),
	"INSTRUCTION_SIZE": fmt.Sprintf("%d", INSTRUCTION_SIZE),
	"DOUBLEWORD":       fmt.Sprintf("%d", DOUBLEWORD),
	"STACK_TOP":        fmt.Sprintf("%#x", STACK_TOP),
}

var (
	labelRe = regexp.MustCompile(`^([a-zA-Z_][a-zA-Z0-9_]*):\s*(.*)$`)
	identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
	tokenRe = regexp.MustCompile(`[,\s()\[\]]+`)
	exprRe  = regexp.MustCompile(`\$\([^\$]*\)`)
)

// Immediate ranges, inclusive.
const (
	ARITH_IMM_MAX = 1<<12 - 1  // ADDI/SUBI magnitude
	LOGIC_IMM_MAX = 1<<12 - 1  // ANDI/ORRI/EORI
	DT_MIN        = -(1 << 8)  // LDUR/STUR offset
	DT_MAX        = 1<<8 - 1   //
	MOV_IMM_MAX   = 1<<16 - 1  // MOVZ/MOVK
	SHAMT_MAX     = 63         // LSL/LSR/ASR
	COND_BR_MIN   = -(1 << 18) // CBZ/CBNZ/B.cond, in words
	COND_BR_MAX   = 1<<18 - 1  //
	BR_MIN        = -(1 << 25) // B, in words
	BR_MAX        = 1<<25 - 1  //
)

// Assembler is a two pass assembler for LEGv8 assembly.
type Assembler struct {
	Verbose     bool          // If set, verbosely logs the assembler actions.
	Instruction []Instruction // List of assembled instructions.

	predefine map[string]string // Predefines
	Label     map[string]uint64 // Map of labels to addresses.
	Equate    map[string]string // Map of equates.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// equate replaces a word with its equate, if it has one.
func (asm *Assembler) equate(word string) string {
	value, ok := asm.Equate[word]
	if ok {
		return value
	}
	return word
}

// currentAddress is the address of the next assembled instruction.
func (asm *Assembler) currentAddress() uint64 {
	return TEXT_BASE + uint64(len(asm.Instruction))*INSTRUCTION_SIZE
}

// parseNumber parses a decimal, hex, octal or binary integer.
func parseNumber(word string) (value int64, err error) {
	value, err = strconv.ParseInt(word, 0, 64)
	if err != nil {
		var uvalue uint64
		uvalue, err = strconv.ParseUint(word, 0, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
		value = int64(uvalue)
	}
	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		value, err := parseNumber(strings.TrimPrefix(str, "#"))
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			continue
		}
		pred[key] = starlark.MakeInt64(value)
	}
	for label, address := range asm.Label {
		pred[label] = starlark.MakeUint64(address)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value, ok = st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// register parses a register operand.
func (asm *Assembler) register(word string) (reg Register, err error) {
	reg, ok := ParseRegister(asm.equate(word))
	if !ok {
		err = ErrRegisterInvalid
	}
	return
}

// immediate parses an immediate operand, with or without '#', and checks its range.
func (asm *Assembler) immediate(word string, min, max int64) (value int64, err error) {
	word = strings.TrimPrefix(asm.equate(strings.TrimPrefix(word, "#")), "#")
	if len(word) == 0 {
		err = ErrImmediateMissing
		return
	}
	value, err = parseNumber(word)
	if err != nil {
		return
	}
	if value < min || value > max {
		err = ErrImmediateRange
	}
	return
}

// target parses a branch target: a label, or a word offset.
func (asm *Assembler) target(inst *Instruction, word string) (err error) {
	if identRe.MatchString(word) {
		if _, is_reg := ParseRegister(word); !is_reg {
			inst.Label = word
			return
		}
	}
	inst.Imm, err = asm.immediate(word, BR_MIN, BR_MAX)
	return
}

// define binds a label to the next instruction address.
func (asm *Assembler) define(label string) (err error) {
	if _, ok := lookupLabel(asm.Label, label); ok {
		err = ErrLabelDuplicate
		return
	}
	asm.Label[label] = asm.currentAddress()
	return
}

// directive handles a '.' line. Only .equ has an effect.
func (asm *Assembler) directive(line string) (err error) {
	words := slices.DeleteFunc(tokenRe.Split(line, -1), func(a string) bool { return len(a) == 0 })
	if strings.ToLower(words[0]) != ".equ" {
		if asm.Verbose {
			log.Printf("asm: ignoring directive %v", words[0])
		}
		return
	}
	if len(words) != 3 {
		err = ErrEquateSyntax
		return
	}
	_, ok := asm.Equate[words[1]]
	if ok {
		err = ErrEquateDuplicate
		return
	}
	asm.Equate[words[1]] = words[2]
	return
}

// parseInstruction assembles an instruction line, without resolving labels.
func (asm *Assembler) parseInstruction(line string, lineno int) (inst *Instruction, err error) {
	words := slices.DeleteFunc(tokenRe.Split(line, -1), func(a string) bool { return len(a) == 0 })
	if len(words) == 0 {
		err = ErrMnemonicUnknown
		return
	}

	op, cond, ok := ParseMnemonic(words[0])
	if !ok {
		if strings.HasPrefix(strings.ToUpper(words[0]), "B.") {
			err = ErrConditionInvalid
		} else {
			err = ErrMnemonicUnknown
		}
		return
	}

	inst = &Instruction{
		LineNo:   lineno,
		Address:  asm.currentAddress(),
		Mnemonic: op,
		Cond:     cond,
		Rd:       REG_NONE,
		Rn:       REG_NONE,
		Rm:       REG_NONE,
		Text:     strings.Join(strings.Fields(line), " "),
	}

	args := words[1:]
	arity := func(counts ...int) bool {
		if !slices.Contains(counts, len(args)) {
			err = ErrOperandCount
			return false
		}
		return true
	}
	// regs parses leading register operands, in order.
	regs := func(dst ...*Register) bool {
		for n, reg := range dst {
			*reg, err = asm.register(args[n])
			if err != nil {
				return false
			}
		}
		return true
	}

	switch op.Class() {
	case CLASS_R:
		if !arity(3) || !regs(&inst.Rd, &inst.Rn) {
			return
		}
		rm, reg_err := asm.register(args[2])
		switch {
		case reg_err == nil:
			inst.Rm = rm
		case op.Shift():
			inst.Imm, err = asm.immediate(args[2], 0, SHAMT_MAX)
			if errors.Is(err, ErrImmediateRange) {
				err = ErrShiftInvalid
			}
		default:
			err = reg_err
		}
	case CLASS_I:
		if !arity(3) || !regs(&inst.Rd, &inst.Rn) {
			return
		}
		if op == OP_ADDI || op == OP_SUBI {
			inst.Imm, err = asm.immediate(args[2], -ARITH_IMM_MAX, ARITH_IMM_MAX)
		} else {
			inst.Imm, err = asm.immediate(args[2], 0, LOGIC_IMM_MAX)
		}
	case CLASS_LOAD, CLASS_STORE:
		if !strings.Contains(line, "[") || !strings.Contains(line, "]") {
			err = ErrMemoryOperand
			return
		}
		if !arity(2, 3) || !regs(&inst.Rd, &inst.Rn) {
			return
		}
		if len(args) == 3 {
			inst.Imm, err = asm.immediate(args[2], DT_MIN, DT_MAX)
		}
	case CLASS_CB:
		if !arity(2) || !regs(&inst.Rd) {
			return
		}
		err = asm.target(inst, args[1])
	case CLASS_BCOND, CLASS_B:
		if !arity(1) {
			return
		}
		err = asm.target(inst, args[0])
	case CLASS_IW:
		if !arity(2, 4) || !regs(&inst.Rd) {
			return
		}
		inst.Imm, err = asm.immediate(args[1], 0, MOV_IMM_MAX)
		if err != nil || len(args) == 2 {
			return
		}
		if strings.ToUpper(args[2]) != "LSL" {
			err = ErrShiftInvalid
			return
		}
		var shift int64
		shift, err = asm.immediate(args[3], 0, 48)
		if err != nil || shift%16 != 0 {
			err = ErrShiftInvalid
			return
		}
		inst.Shift = uint(shift)
	case CLASS_NOP:
		arity(0)
	}

	return
}

// branchFits checks a resolved branch offset against its encoding.
func branchFits(inst *Instruction) bool {
	switch inst.Mnemonic.Class() {
	case CLASS_CB, CLASS_BCOND:
		return inst.Imm >= COND_BR_MIN && inst.Imm <= COND_BR_MAX
	case CLASS_B:
		return inst.Imm >= BR_MIN && inst.Imm <= BR_MAX
	}
	return true
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int

	defer func() {
		var syntax_err *ErrSyntax
		if err != nil && !errors.Is(err, ErrProgramEmpty) && !errors.As(err, &syntax_err) {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Instruction = asm.Instruction[:0]
	asm.Label = make(map[string]uint64)
	asm.Equate = make(map[string]string)
	for key, value := range internal.IterSeq2Concat(maps.All(sysEquate), maps.All(asm.predefine)) {
		asm.Equate[key] = value
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1
		line = strings.TrimSpace(text)

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		asm.Equate["LINENO"] = strconv.Itoa(lineno)

		code, _, _ := strings.Cut(text, "//")
		code = strings.TrimSpace(code)

		for {
			match := labelRe.FindStringSubmatch(code)
			if match == nil {
				break
			}
			err = asm.define(match[1])
			if err != nil {
				return
			}
			code = match[2]
		}

		// Do $() evaluations
		code = exprRe.ReplaceAllStringFunc(code, func(str string) string {
			value, _err := asm.parenEval(str[2 : len(str)-1])
			if _err != nil {
				err = _err
			}
			return strconv.FormatInt(value, 10)
		})
		if err != nil {
			return
		}

		if len(code) == 0 || code[0] == '#' {
			continue
		}

		if code[0] == '.' {
			err = asm.directive(code)
			if err != nil {
				return
			}
			continue
		}

		var inst *Instruction
		inst, err = asm.parseInstruction(code, lineno)
		if err != nil {
			return
		}
		asm.Instruction = append(asm.Instruction, *inst)
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if len(asm.Instruction) == 0 {
		err = ErrProgramEmpty
		return
	}

	// Final linking of branch labels.
	for n := range asm.Instruction {
		inst := &asm.Instruction[n]

		if len(inst.Label) > 0 {
			address, ok := lookupLabel(asm.Label, inst.Label)
			if !ok {
				err = &ErrSyntax{LineNo: inst.LineNo, Line: inst.Text, Err: ErrLabelMissing(inst.Label)}
				return
			}
			inst.Imm = (int64(address) - int64(inst.Address)) / INSTRUCTION_SIZE
		}

		if !branchFits(inst) {
			err = &ErrSyntax{LineNo: inst.LineNo, Line: inst.Text, Err: ErrBranchRange}
			return
		}

		inst.Word = inst.Encode()
	}

	prog = &Program{
		Instructions: slices.Clone(asm.Instruction),
		Labels:       maps.Clone(asm.Label),
		Entry:        TEXT_BASE,
	}

	return
}
