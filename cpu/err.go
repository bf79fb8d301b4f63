package cpu

import (
	"errors"

	"github.com/ezrec/legv8/translate"
)

var f = translate.From

var (
	// Architectural state errors
	ErrMisaligned      = errors.New(f("misaligned access"))
	ErrMemoryWidth     = errors.New(f("unsupported access width"))
	ErrRegisterUnknown = errors.New(f("register unknown"))

	// Assembler errors
	ErrProgramEmpty     = errors.New(f("program has no instructions"))
	ErrMnemonicUnknown  = errors.New(f("mnemonic unknown"))
	ErrOperandCount     = errors.New(f("operand count"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrImmediateMissing = errors.New(f("immediate missing"))
	ErrImmediateRange   = errors.New(f("immediate out of range"))
	ErrMemoryOperand    = errors.New(f("memory operand invalid"))
	ErrShiftInvalid     = errors.New(f("shift invalid"))
	ErrConditionInvalid = errors.New(f("condition invalid"))
	ErrBranchRange      = errors.New(f("branch target out of range"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
)

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

// ErrMemory locates a failed data memory access.
type ErrMemory struct {
	Address uint64
	Err     error
}

func (err ErrMemory) Error() string {
	return f("address 0x%X %v", err.Address, err.Err)
}

func (err ErrMemory) Unwrap() error {
	return err.Err
}
