package cpu

import (
	"fmt"
	"log"
	"strings"
)

// Cpu is the architectural state of the processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Pc       uint64       // Program counter.
	Register RegisterFile // Register bank.
	Memory   Memory       // Data memory.
	Flags    Flags        // Condition flags.
}

// NewCpu creates a CPU in its reset state.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.Reset(TEXT_BASE)
	return
}

// Reset the CPU state.
// - Zeros the registers, except SP.
// - Unmaps all data memory.
// - Clears the flags.
// - Sets the PC to the entry address.
func (cpu *Cpu) Reset(entry uint64) {
	if cpu.Verbose {
		log.Printf("cpu: reset, entry 0x%X", entry)
	}

	cpu.Register.Reset()
	cpu.Memory.Reset()
	cpu.Flags = Flags{}
	cpu.Pc = entry
}

// ReadRegister reads a register by name.
func (cpu *Cpu) ReadRegister(name string) (value uint64, err error) {
	reg, ok := ParseRegister(name)
	if !ok {
		err = ErrRegisterUnknown
		return
	}
	value = cpu.Register.Read(reg)
	return
}

// WriteRegister writes a register by name. Writes to XZR are discarded.
func (cpu *Cpu) WriteRegister(name string, value uint64) (err error) {
	reg, ok := ParseRegister(name)
	if !ok {
		err = ErrRegisterUnknown
		return
	}
	cpu.Register.Write(reg, value)
	return
}

// ReadMemory reads data memory.
func (cpu *Cpu) ReadMemory(address uint64, width int) (value uint64, err error) {
	return cpu.Memory.Read(address, width)
}

// WriteMemory writes data memory.
func (cpu *Cpu) WriteMemory(address uint64, width int, value uint64) (err error) {
	return cpu.Memory.Write(address, width, value)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s: 0x%016X\n", "pc", cpu.Pc)
	fmt.Fprintf(&sb, "%5s: %v\n", "nzcv", cpu.Flags)
	for reg, value := range cpu.Register.All() {
		fmt.Fprintf(&sb, "%5s: 0x%016X\n", reg, value)
	}
	for address, value := range cpu.Memory.All() {
		fmt.Fprintf(&sb, "[0x%X]: 0x%016X\n", address, value)
	}
	return sb.String()
}
