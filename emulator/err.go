package emulator

import (
	"errors"

	"github.com/ezrec/legv8/cpu"
	"github.com/ezrec/legv8/translate"
)

var f = translate.From

var (
	ErrNotLoaded       = errors.New(f("no program loaded"))
	ErrProgramFinished = errors.New(f("program finished"))
	ErrNothingToUndo   = errors.New(f("nothing to undo"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Address uint64
	LineNo  int
	Stage   cpu.Stage
	Err     error
}

func (err *ErrRuntime) Error() string {
	return f("0x%X line %d %v: %v", err.Address, err.LineNo, err.Stage, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
