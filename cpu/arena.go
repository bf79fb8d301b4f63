package cpu

const (
	TEXT_BASE        = 0x0            // Address of the first instruction.
	INSTRUCTION_SIZE = 4              // Bytes per encoded instruction.
	DOUBLEWORD       = 8              // Bytes per data memory access.
	STACK_TOP        = 0x7F_FFFF_FF00 // Reset value of SP.
)
