package emulator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/legv8/cpu"
)

func load(t *testing.T, program ...string) (emu *Emulator) {
	emu = NewEmulator(DefaultConfig())
	err := emu.Load(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatalf("%v", err)
	}
	return
}

func reg(emu *Emulator, name string) uint64 {
	value, _ := emu.ReadRegister(name)
	return value
}

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(DefaultConfig())

	assert.False(emu.Verbose)
	assert.False(emu.Loaded())
	assert.False(emu.CanReturnBack())
	assert.Nil(emu.Current())

	_, err := emu.MicroStep()
	assert.ErrorIs(err, ErrNotLoaded)
	_, err = emu.FullInstruction()
	assert.ErrorIs(err, ErrNotLoaded)
	_, err = emu.RunToCompletion(context.Background())
	assert.ErrorIs(err, ErrNotLoaded)
	assert.ErrorIs(emu.ReturnBack(), ErrNothingToUndo)
}

func TestEmulator_Defines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator(DefaultConfig())
	emu.Define("COUNT", "7")

	defines := map[string]string{}
	for name, value := range emu.Defines() {
		defines[name] = value
	}
	assert.Equal("7", defines["COUNT"])
	assert.Equal("10", defines["MICRO_STEP_LIMIT"])

	err := emu.Load(strings.NewReader("ADDI X1, XZR, #COUNT"))
	assert.NoError(err)
	_, err = emu.RunToCompletion(context.Background())
	assert.NoError(err)
	assert.Equal(uint64(7), reg(emu, "X1"))
}

func TestEmulator_Arithmetic(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X1, XZR, #10",
		"ADDI X2, XZR, #5",
		"ADD X3, X1, X2",
	)

	var stages []cpu.Stage
	for !emu.Finished() {
		report, err := emu.MicroStep()
		assert.NoError(err)
		stages = append(stages, report.Stage)
	}

	assert.Equal(uint64(15), reg(emu, "X3"))
	assert.Equal(uint64(10), reg(emu, "X1"))
	assert.Equal(uint64(5), reg(emu, "X2"))
	assert.Equal(uint64(12), emu.Pc)
	assert.Equal(3, emu.Retired())
	assert.Equal(12, len(stages))
	assert.Equal([]cpu.Stage{cpu.STAGE_FETCH, cpu.STAGE_DECODE, cpu.STAGE_EXECUTE, cpu.STAGE_WRITEBACK}, stages[8:])

	_, err := emu.MicroStep()
	assert.ErrorIs(err, ErrProgramFinished)
	_, err = emu.RunToCompletion(context.Background())
	assert.ErrorIs(err, ErrProgramFinished)
}

func TestEmulator_Report(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X1, XZR, #3",
		"STUR X1, [SP, #-8]",
	)

	reports, err := emu.FullInstruction()
	assert.NoError(err)
	assert.Equal(4, len(reports))
	for n, report := range reports {
		assert.Equal(n, report.Index)
		assert.Equal(uint64(0), report.Instruction.Address)
		assert.True(report.Signals.RegWrite)
		assert.NotEmpty(report.Log)
		assert.Equal(n == 3, report.Boundary)
		assert.False(report.End)
	}
	assert.Equal(uint64(3), reports[2].Latch.AluResult)
	assert.Equal(cpu.ALU_ADD, reports[2].Latch.AluFunc)
	assert.Equal(uint64(3), reports[3].Latch.WriteData)
	assert.Equal(uint64(4), reports[3].Latch.NextPc)

	reports, err = emu.FullInstruction()
	assert.NoError(err)
	stages := []cpu.Stage{}
	for _, report := range reports {
		stages = append(stages, report.Stage)
	}
	assert.Equal([]cpu.Stage{cpu.STAGE_FETCH, cpu.STAGE_DECODE, cpu.STAGE_EXECUTE, cpu.STAGE_MEMORY}, stages)
	assert.True(reports[3].End)
	assert.Equal(uint64(cpu.STACK_TOP-8), reports[3].Latch.AluResult)

	value, err := emu.ReadMemory(cpu.STACK_TOP-8, cpu.DOUBLEWORD)
	assert.NoError(err)
	assert.Equal(uint64(3), value)
}

func TestEmulator_StoreLoad(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"MOVZ X3, #0x1234, LSL #16",
		"STUR X3, [SP, #8]",
		"LDUR X4, [SP, #8]",
	)

	count, err := emu.RunToCompletion(context.Background())
	assert.NoError(err)
	assert.Equal(3, count)
	assert.Equal(uint64(0x12340000), reg(emu, "X3"))
	assert.Equal(reg(emu, "X3"), reg(emu, "X4"))
	assert.Equal(1, emu.Memory.Len())
}

func TestEmulator_MemoryDefault(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MemoryDefault = 0xDEADBEEF
	emu := NewEmulator(config)
	err := emu.Load(strings.NewReader("LDUR X1, [XZR, #16]"))
	assert.NoError(err)

	_, err = emu.RunToCompletion(context.Background())
	assert.NoError(err)
	assert.Equal(uint64(0xDEADBEEF), reg(emu, "X1"))
}

func TestEmulator_Loop(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X2, XZR, #5",
		"loop: SUBI X2, X2, #1",
		"CBZ X2, end",
		"B loop",
		"end: NOP",
	)

	iterations := 0
	for !emu.Finished() {
		if emu.Pc == 4 {
			iterations++
		}
		reports, err := emu.FullInstruction()
		assert.NoError(err)
		assert.LessOrEqual(len(reports), MICRO_STEP_LIMIT)
		assert.True(reports[len(reports)-1].Boundary)
		for _, report := range reports {
			assert.Empty(report.Warnings)
		}
	}

	assert.Equal(5, iterations)
	assert.Equal(uint64(0), reg(emu, "X2"))
	assert.Equal(uint64(20), emu.Pc)
	assert.Equal(1+5*2+4+1, emu.Retired())
}

func TestEmulator_Branch(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X1, XZR, #3",
		"SUBI X2, X1, #5",
		"B.LT negative",
		"ADDI X9, XZR, #1",
		"negative: CBNZ X1, done",
		"ADDI X9, XZR, #2",
		"done: NOP",
	)

	_, err := emu.RunToCompletion(context.Background())
	assert.NoError(err)
	assert.Equal(uint64(0), reg(emu, "X9"))
	assert.Equal(uint64(1<<64-2), reg(emu, "X2"))
	assert.True(emu.Flags.N)
	assert.False(emu.Flags.C)
	assert.Equal(5, emu.Retired())
}

func TestEmulator_Movk(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"MOVZ X1, #0xFFFF, LSL #48",
		"MOVK X1, #0xBEEF",
		"MOVK X1, #0x1111, LSL #48",
		"LSL X2, X1, #4",
		"ASR X3, X1, X2",
		"EORI X4, X1, #0xFFF",
	)

	_, err := emu.RunToCompletion(context.Background())
	assert.NoError(err)
	assert.Equal(uint64(0x111100000000BEEF), reg(emu, "X1"))
	assert.Equal(uint64(0x11100000000BEEF0), reg(emu, "X2"))
	assert.Equal(uint64(0x1111), reg(emu, "X3"))
	assert.Equal(uint64(0x111100000000B110), reg(emu, "X4"))
}

func TestEmulator_ZeroRegister(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI XZR, XZR, #10",
		"MOVZ XZR, #7",
		"ADDI X1, XZR, #1",
		"LDUR XZR, [SP, #0]",
		"ADD X2, XZR, XZR",
	)

	for !emu.Finished() {
		_, err := emu.MicroStep()
		assert.NoError(err)
		assert.Equal(uint64(0), reg(emu, "XZR"))
	}
	assert.Equal(uint64(1), reg(emu, "X1"))
	assert.Equal(uint64(0), reg(emu, "X2"))
}

func TestEmulator_ReturnBack(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X1, XZR, #10",
		"STUR X1, [SP, #0]",
		"SUBS_LABEL: SUBI X1, X1, #10",
		"CBZ X1, SUBS_LABEL",
	)

	type state struct {
		Register cpu.RegisterFile
		Pc       uint64
		Flags    cpu.Flags
		Memory   map[uint64]uint64
		Index    int
		Latch    Latch
	}
	capture := func() (s state) {
		s = state{
			Register: emu.Register,
			Pc:       emu.Pc,
			Flags:    emu.Flags,
			Memory:   map[uint64]uint64{},
			Index:    emu.MicroStepIndex(),
			Latch:    emu.Latch(),
		}
		for address, value := range emu.Memory.All() {
			s.Memory[address] = value
		}
		return
	}

	var states []state
	for range 20 {
		states = append(states, capture())
		_, err := emu.MicroStep()
		assert.NoError(err)
		assert.True(emu.CanReturnBack())
	}
	assert.Equal(20, emu.HistoryLen())

	for n := len(states) - 1; n >= 0; n-- {
		assert.NoError(emu.ReturnBack())
		assert.Equal(states[n], capture(), "step %d", n)
		assert.Equal(n > 0, emu.CanReturnBack())
	}
	assert.ErrorIs(emu.ReturnBack(), ErrNothingToUndo)

	// Replaying reaches the same state.
	for range 20 {
		_, err := emu.MicroStep()
		assert.NoError(err)
	}
	assert.Equal(uint64(1<<64-10), reg(emu, "X1"))
	assert.False(emu.Finished())
}

func TestEmulator_ReturnBackFinished(t *testing.T) {
	assert := assert.New(t)

	emu := load(t, "NOP")

	reports, err := emu.FullInstruction()
	assert.NoError(err)
	assert.Equal(3, len(reports))
	assert.True(emu.Finished())

	assert.NoError(emu.ReturnBack())
	assert.False(emu.Finished())
	assert.Equal(cpu.STAGE_EXECUTE, emu.NextStage())
	assert.Equal(2, emu.MicroStepIndex())
	assert.Equal("NOP", emu.Current().Text)
}

func TestEmulator_Misaligned(t *testing.T) {
	assert := assert.New(t)

	emu := load(t,
		"ADDI X1, XZR, #3",
		"STUR X1, [X1, #0]",
	)

	_, err := emu.FullInstruction()
	assert.NoError(err)

	for range 3 {
		_, err = emu.MicroStep()
		assert.NoError(err)
	}
	before := emu.snapshot()
	depth := emu.HistoryLen()

	_, err = emu.MicroStep()
	assert.ErrorIs(err, cpu.ErrMisaligned)
	var runtime *ErrRuntime
	if assert.True(errors.As(err, &runtime)) {
		assert.Equal(uint64(4), runtime.Address)
		assert.Equal(2, runtime.LineNo)
		assert.Equal(cpu.STAGE_MEMORY, runtime.Stage)
	}
	assert.Equal(before, emu.snapshot())
	assert.Equal(depth, emu.HistoryLen())
	assert.Equal(0, emu.Memory.Len())
}

func TestEmulator_LoadError(t *testing.T) {
	assert := assert.New(t)

	emu := load(t, "ADDI X1, XZR, #1")
	_, err := emu.MicroStep()
	assert.NoError(err)
	program := emu.Program
	before := emu.snapshot()

	err = emu.Load(strings.NewReader("B nowhere"))
	var missing cpu.ErrLabelMissing
	assert.ErrorAs(err, &missing)
	assert.Equal(program, emu.Program)
	assert.Equal(before, emu.snapshot())
	assert.True(emu.CanReturnBack())

	err = emu.Load(strings.NewReader("// nothing"))
	assert.ErrorIs(err, cpu.ErrProgramEmpty)
	assert.Equal(program, emu.Program)
}

func TestEmulator_Reset(t *testing.T) {
	assert := assert.New(t)

	emu := load(t, "ADDI X1, XZR, #1", "STUR X1, [SP, #0]")
	_, err := emu.RunToCompletion(context.Background())
	assert.NoError(err)

	emu.Restart()
	assert.True(emu.Loaded())
	assert.False(emu.Finished())
	assert.False(emu.CanReturnBack())
	assert.Equal(uint64(0), reg(emu, "X1"))
	assert.Equal(uint64(cpu.STACK_TOP), reg(emu, "SP"))
	assert.Equal(0, emu.Memory.Len())

	emu.Reset()
	assert.False(emu.Loaded())
	_, err = emu.MicroStep()
	assert.ErrorIs(err, ErrNotLoaded)
}

func TestEmulator_MicroStepLimit(t *testing.T) {
	assert := assert.New(t)

	config := DefaultConfig()
	config.MicroStepLimit = 2
	emu := NewEmulator(config)
	err := emu.Load(strings.NewReader("ADDI X1, XZR, #1\nADDI X2, XZR, #2"))
	assert.NoError(err)

	reports, err := emu.FullInstruction()
	assert.NoError(err)
	assert.Equal(2, len(reports))
	assert.True(reports[1].Boundary)
	assert.Equal(1, len(reports[1].Warnings))
	assert.Equal(uint64(4), emu.Pc)
	assert.Equal(uint64(0), reg(emu, "X1"))
	assert.Equal(cpu.STAGE_FETCH, emu.NextStage())
}

func TestEmulator_RunCancel(t *testing.T) {
	assert := assert.New(t)

	emu := load(t, "spin: B spin")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	count, err := emu.RunToCompletion(ctx)
	assert.ErrorIs(err, context.DeadlineExceeded)
	assert.Greater(count, 0)
	assert.False(emu.Finished())
	assert.Equal(uint64(0), emu.Pc)
}
