package cpu

import (
	"encoding/binary"

	"golang.org/x/arch/arm64/arm64asm"
)

// ErrDisassemble reports a word the ARM64 decoder rejected.
type ErrDisassemble struct {
	Word uint32
	Err  error
}

func (err ErrDisassemble) Error() string {
	return f("0x%08X %v", err.Word, err.Err)
}

func (err ErrDisassemble) Unwrap() error {
	return err.Err
}

// Disassemble decodes an encoded word as ARM64.
func Disassemble(word uint32) (text string, err error) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], word)

	inst, err := arm64asm.Decode(buf[:])
	if err != nil {
		err = &ErrDisassemble{Word: word, Err: err}
		return
	}

	text = inst.String()
	return
}

// Disassembly returns the ARM64 reading of the encoded instruction, or the
// empty string if the encoding has no ARM64 equivalent.
func (inst *Instruction) Disassembly() string {
	if !inst.Mnemonic.Native() {
		return ""
	}
	text, err := Disassemble(inst.Word)
	if err != nil {
		return ""
	}
	return text
}
