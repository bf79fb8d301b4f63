package cpu

import (
	"encoding/binary"
	"iter"
	"slices"
	"strings"
)

// Program is an assembled instruction stream with its label table.
type Program struct {
	Instructions []Instruction
	Labels       map[string]uint64 // Label, as written, to address.
	Entry        uint64            // Address of the first instruction.
}

// At returns the instruction at an address.
func (prog *Program) At(address uint64) (inst *Instruction, ok bool) {
	if prog == nil || address < TEXT_BASE || address%INSTRUCTION_SIZE != 0 {
		return
	}
	index := (address - TEXT_BASE) / INSTRUCTION_SIZE
	if index >= uint64(len(prog.Instructions)) {
		return
	}
	return &prog.Instructions[index], true
}

// lookupLabel finds a label, ignoring case.
func lookupLabel(labels map[string]uint64, name string) (address uint64, ok bool) {
	address, ok = labels[name]
	if ok {
		return
	}
	for label, value := range labels {
		if strings.EqualFold(label, name) {
			return value, true
		}
	}
	return
}

// Label returns the address of a label, ignoring case.
func (prog *Program) Label(name string) (address uint64, ok bool) {
	return lookupLabel(prog.Labels, name)
}

// LabelsAt returns the sorted labels bound to an address.
func (prog *Program) LabelsAt(address uint64) (names []string) {
	for name, value := range prog.Labels {
		if value == address {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return
}

// Words yields the address and encoded form of every instruction.
func (prog *Program) Words() iter.Seq2[uint64, uint32] {
	return func(yield func(uint64, uint32) bool) {
		for _, inst := range prog.Instructions {
			if !yield(inst.Address, inst.Word) {
				return
			}
		}
	}
}

// Binary returns the little-endian image of the instruction memory.
func (prog *Program) Binary() (bin []byte) {
	for _, word := range prog.Words() {
		bin = binary.LittleEndian.AppendUint32(bin, word)
	}
	return
}
