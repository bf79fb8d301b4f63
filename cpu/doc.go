// Package cpu implements the architectural model and assembler for a
// simplified 64-bit LEGv8 processor.
//
// The processor has 32 64-bit registers (X0-X27, SP, FP, LR and the
// hard-wired XZR), a sparse doubleword-addressed data memory, a program
// counter, and NZCV condition flags. A control unit maps every mnemonic
// to its datapath control signals, and the ALU computes results modulo
// 2^64.
//
// The assembler accepts LEGv8 assembly with labels, `//` comments,
// `.equ` equates, and compile-time `$(...)` expression evaluation.
package cpu
