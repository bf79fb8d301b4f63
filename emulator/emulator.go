// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/legv8/cpu"
	"github.com/ezrec/legv8/internal"
)

const (
	MICRO_STEP_LIMIT = 10 // Micro-steps allowed per instruction before a forced boundary.
)

var _emulator_defines = map[string]string{
	"HISTORY_LIMIT":    fmt.Sprintf("%v", HISTORY_LIMIT),
	"MICRO_STEP_LIMIT": fmt.Sprintf("%v", MICRO_STEP_LIMIT),
}

// Config of the emulator.
type Config struct {
	HistoryLimit   int    // Maximum undo depth, in micro-steps.
	MemoryDefault  uint64 // Value read from unmapped data memory.
	MicroStepLimit int    // Safety bound for FullInstruction.
	Verbose        bool   // If set, enables verbose logging.
}

// DefaultConfig returns the default emulator configuration.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:   HISTORY_LIMIT,
		MicroStepLimit: MICRO_STEP_LIMIT,
	}
}

// Emulator state. CPU + program + micro-step cursor + undo history.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Currently loaded program, or nil.
	Config   Config

	defines map[string]string

	history  History
	inst     *cpu.Instruction // Instruction in flight, or nil between instructions.
	signals  cpu.ControlSignals
	stages   []cpu.Stage
	index    int // Stages of inst already done.
	latch    Latch
	finished bool
	retired  int
}

// NewEmulator creates a new emulator, with no program loaded.
func NewEmulator(config Config) (emu *Emulator) {
	if config.MicroStepLimit <= 0 {
		config.MicroStepLimit = MICRO_STEP_LIMIT
	}

	emu = &Emulator{
		Verbose: config.Verbose,
		Cpu:     cpu.NewCpu(),
		Config:  config,
	}
	emu.history.Limit = config.HistoryLimit
	emu.Cpu.Memory.Default = config.MemoryDefault

	return
}

// Define adds an assembler predefine used by subsequent loads.
func (emu *Emulator) Define(name string, value string) {
	if emu.defines == nil {
		emu.defines = map[string]string{}
	}
	emu.defines[name] = value
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines), maps.All(emu.defines))
}

// Load assembles a program, and restarts the emulator with it.
// On an assembly error, the emulator state is untouched.
func (emu *Emulator) Load(input io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.Restart()

	return
}

// Restart the loaded program from its entry point.
func (emu *Emulator) Restart() {
	entry := uint64(cpu.TEXT_BASE)
	if emu.Program != nil {
		entry = emu.Program.Entry
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(entry)
	emu.Cpu.Memory.Default = emu.Config.MemoryDefault

	emu.history.Reset()
	emu.retire()
	emu.finished = false
	emu.retired = 0
}

// Reset unloads the program, and clears all state and history.
func (emu *Emulator) Reset() {
	emu.Program = nil
	emu.Restart()
}

// Loaded returns true if a program is loaded.
func (emu *Emulator) Loaded() bool {
	return emu.Program != nil
}

// Finished returns true if the program has run off its end.
func (emu *Emulator) Finished() bool {
	return emu.finished
}

// Retired returns the number of instructions completed since the load.
func (emu *Emulator) Retired() int {
	return emu.retired
}

// Current returns the instruction in flight, or the next one to fetch.
func (emu *Emulator) Current() (inst *cpu.Instruction) {
	if emu.inst != nil {
		return emu.inst
	}
	inst, _ = emu.Program.At(emu.Pc)
	return
}

// MicroStepIndex returns the number of stages of the current instruction
// already done.
func (emu *Emulator) MicroStepIndex() int {
	return emu.index
}

// NextStage returns the stage the next micro-step will perform.
func (emu *Emulator) NextStage() cpu.Stage {
	if emu.inst == nil {
		return cpu.STAGE_FETCH
	}
	return emu.stages[emu.index]
}

// Latch returns the values in flight.
func (emu *Emulator) Latch() Latch {
	return emu.latch
}

// CanReturnBack returns true if there is history to undo.
func (emu *Emulator) CanReturnBack() bool {
	return !emu.history.Empty()
}

// HistoryLen returns the undo depth available.
func (emu *Emulator) HistoryLen() int {
	return emu.history.Len()
}

func (emu *Emulator) snapshot() (snap Snapshot) {
	snap = Snapshot{
		Register:       emu.Cpu.Register,
		Pc:             emu.Cpu.Pc,
		Flags:          emu.Cpu.Flags,
		MicroStepIndex: emu.index,
		Latch:          emu.latch,
		Finished:       emu.finished,
		Retired:        emu.retired,
	}
	if emu.inst != nil {
		snap.InFlight = true
		snap.Address = emu.inst.Address
	}
	return
}

func (emu *Emulator) restore(snap Snapshot) {
	if snap.memory != nil {
		emu.Cpu.Memory.Restore(snap.memory.Address, snap.memory.Value, snap.memory.Mapped)
	}

	emu.Cpu.Register = snap.Register
	emu.Cpu.Pc = snap.Pc
	emu.Cpu.Flags = snap.Flags
	emu.latch = snap.Latch
	emu.finished = snap.Finished
	emu.retired = snap.Retired

	emu.inst = nil
	emu.signals = cpu.ControlSignals{}
	emu.stages = nil
	emu.index = 0
	if snap.InFlight {
		emu.inst, _ = emu.Program.At(snap.Address)
		emu.signals = emu.inst.Signals()
		emu.stages = emu.signals.Stages()
		emu.index = snap.MicroStepIndex
	}
}

// retire clears the instruction in flight.
func (emu *Emulator) retire() {
	emu.inst = nil
	emu.signals = cpu.ControlSignals{}
	emu.stages = nil
	emu.index = 0
	emu.latch = Latch{}
}

// ReturnBack restores the state before the most recent micro-step.
func (emu *Emulator) ReturnBack() (err error) {
	snap, ok := emu.history.Pop()
	if !ok {
		err = ErrNothingToUndo
		return
	}

	emu.restore(snap)

	if emu.Verbose {
		log.Printf("emulator: return back to 0x%X, micro-step %d", emu.Pc, emu.index)
	}

	return
}

// MicroStep performs a single micro-step. On error, the state is left as
// it was before the call.
func (emu *Emulator) MicroStep() (report Report, err error) {
	if emu.Program == nil {
		err = ErrNotLoaded
		return
	}
	if emu.finished {
		err = ErrProgramFinished
		return
	}

	emu.history.Push(emu.snapshot())

	stage := emu.NextStage()
	address := emu.Pc
	lineno := 0
	defer func() {
		if err != nil {
			snap, _ := emu.history.Pop()
			emu.restore(snap)
			err = &ErrRuntime{Address: address, LineNo: lineno, Stage: stage, Err: err}
		}
	}()

	if stage == cpu.STAGE_FETCH {
		inst, ok := emu.Program.At(emu.Pc)
		if !ok {
			err = ErrProgramFinished
			return
		}
		emu.inst = inst
		emu.signals = inst.Signals()
		emu.stages = emu.signals.Stages()
		emu.index = 0
		emu.latch = Latch{NextPc: emu.Pc + cpu.INSTRUCTION_SIZE}
	}

	inst := emu.inst
	lineno = inst.LineNo

	report.Stage = stage
	report.Index = emu.index
	report.Instruction = inst
	report.Signals = emu.signals

	switch stage {
	case cpu.STAGE_FETCH:
		report.Log = f("IF  0x%X: %v", inst.Address, inst)
	case cpu.STAGE_DECODE:
		report.Log = emu.decode()
	case cpu.STAGE_EXECUTE:
		report.Log = emu.execute()
	case cpu.STAGE_MEMORY:
		report.Log, err = emu.memory()
	case cpu.STAGE_WRITEBACK:
		report.Log = emu.writeback()
	}
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: %s", report.Log)
	}

	emu.index++
	report.Latch = emu.latch

	if emu.index == len(emu.stages) {
		emu.complete(&report)
	}

	return
}

// complete retires the instruction in flight, updating the PC.
func (emu *Emulator) complete(report *Report) {
	if emu.latch.BranchTaken {
		emu.latch.NextPc = emu.latch.BranchTarget
	}
	emu.Cpu.Pc = emu.latch.NextPc
	emu.retired++
	report.Latch = emu.latch
	report.Boundary = true

	emu.retire()

	if _, ok := emu.Program.At(emu.Cpu.Pc); !ok {
		emu.finished = true
		report.End = true
		if emu.Verbose {
			log.Printf("emulator: finished at 0x%X after %d instructions", emu.Cpu.Pc, emu.retired)
		}
	}
}

func (emu *Emulator) decode() string {
	inst := emu.inst

	reg2 := inst.Rm
	if emu.signals.Reg2Loc {
		reg2 = inst.Rd
	}

	emu.latch.ReadData1 = emu.Cpu.Register.Read(inst.Rn)
	emu.latch.ReadData2 = emu.Cpu.Register.Read(reg2)
	emu.latch.Immediate = inst.Immediate()

	return f("ID  read1=0x%X read2=0x%X imm=0x%X", emu.latch.ReadData1, emu.latch.ReadData2, emu.latch.Immediate)
}

func (emu *Emulator) execute() string {
	inst := emu.inst
	latch := &emu.latch

	fn := cpu.AluControl(emu.signals.ALUOp, inst.Mnemonic)
	input, value := latch.ReadData1, latch.ReadData2
	if emu.signals.ALUSrc {
		value = latch.Immediate
	}

	switch {
	case inst.Mnemonic.Shift() && inst.Rm == cpu.REG_NONE:
		value = latch.Immediate
	case inst.Mnemonic == cpu.OP_MOVK:
		input = latch.ReadData2 &^ (0xFFFF << inst.Shift)
	}

	latch.AluFunc = fn
	if fn != cpu.ALU_NONE {
		out := cpu.Alu(fn, input, value)
		latch.AluResult = out.Value
		latch.Zero = out.Zero
		switch inst.Mnemonic.Class() {
		case cpu.CLASS_R, cpu.CLASS_I:
			emu.Cpu.Flags = out.Flags
		}
	}

	if !inst.Branches() {
		return f("EX  %v 0x%X, 0x%X = 0x%X", fn, input, value, latch.AluResult)
	}

	latch.BranchTarget = inst.Target()
	switch inst.Mnemonic {
	case cpu.OP_CBZ:
		latch.BranchTaken = latch.Zero
	case cpu.OP_CBNZ:
		latch.BranchTaken = !latch.Zero
	case cpu.OP_B_COND:
		latch.BranchTaken = emu.Cpu.Flags.Holds(inst.Cond)
	case cpu.OP_B:
		latch.BranchTaken = true
	}

	if latch.BranchTaken {
		return f("EX  branch to 0x%X taken", latch.BranchTarget)
	}
	return f("EX  branch to 0x%X not taken", latch.BranchTarget)
}

func (emu *Emulator) memory() (text string, err error) {
	latch := &emu.latch
	address := latch.AluResult

	if emu.signals.MemRead {
		latch.MemData, err = emu.Cpu.Memory.Read(address, cpu.DOUBLEWORD)
		if err != nil {
			return
		}
		text = f("MEM load [0x%X] = 0x%X", address, latch.MemData)
		return
	}

	value, mapped := emu.Cpu.Memory.Peek(address)
	err = emu.Cpu.Memory.Write(address, cpu.DOUBLEWORD, latch.ReadData2)
	if err != nil {
		return
	}
	if top := emu.history.top(); top != nil {
		top.memory = &memoryUndo{Address: address, Value: value, Mapped: mapped}
	}
	text = f("MEM store [0x%X] = 0x%X", address, latch.ReadData2)

	return
}

func (emu *Emulator) writeback() string {
	latch := &emu.latch

	latch.WriteData = latch.AluResult
	if emu.signals.MemToReg {
		latch.WriteData = latch.MemData
	}
	emu.Cpu.Register.Write(emu.inst.Rd, latch.WriteData)

	return f("WB  %v = 0x%X", emu.inst.Rd, latch.WriteData)
}

// FullInstruction performs micro-steps until the instruction in flight
// retires. If the micro-step limit is reached first, the boundary is forced
// and a warning is added to the final report.
func (emu *Emulator) FullInstruction() (reports []Report, err error) {
	limit := emu.Config.MicroStepLimit
	if limit <= 0 {
		limit = MICRO_STEP_LIMIT
	}

	for len(reports) < limit {
		var report Report
		report, err = emu.MicroStep()
		if err != nil {
			return
		}
		reports = append(reports, report)
		if report.Boundary {
			return
		}
	}

	last := &reports[len(reports)-1]
	warning := f("micro-step limit %d reached at 0x%X, forcing instruction boundary", limit, last.Instruction.Address)
	log.Printf("emulator: warning: %s", warning)

	emu.complete(last)
	last.Warnings = append(last.Warnings, warning)

	return
}

// RunToCompletion performs full instructions until the program finishes,
// or the context is done. It returns the number of instructions completed.
func (emu *Emulator) RunToCompletion(ctx context.Context) (count int, err error) {
	if emu.Program == nil {
		err = ErrNotLoaded
		return
	}
	if emu.finished {
		err = ErrProgramFinished
		return
	}

	for !emu.finished {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		default:
		}

		_, err = emu.FullInstruction()
		if err != nil {
			return
		}
		count++
	}

	return
}
