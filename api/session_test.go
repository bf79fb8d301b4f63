package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yudai/gojsondiff"
)

const loopProgram = `
	ADDI X2, XZR, #5
loop:	SUBI X2, X2, #1
	CBZ X2, end
	B loop
end:	NOP
`

func newSession() *Session {
	return NewSession("test", DefaultConfig(), nil)
}

func TestSession_Load(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	resp := s.Load(loopProgram)
	assert.Equal(STATUS_SUCCESS, resp.Status)
	assert.Equal("ADDI X2, XZR, #5", resp.InitialInstrStr)
	assert.Equal("0x0", resp.CpuState.Pc)
	assert.False(resp.CanReturnBack)

	resp = s.Load("B nowhere")
	assert.Equal(STATUS_ERROR, resp.Status)
	assert.Contains(resp.Message, "nowhere")

	// The loaded program is untouched.
	step := s.MicroStep()
	assert.Equal(STATUS_SUCCESS, step.Status)
	assert.Equal("ADDI X2, XZR, #5", step.StepData.CurrentInstructionString)
}

func TestSession_MicroStep(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	step := s.MicroStep()
	assert.Equal(STATUS_ERROR, step.Status)
	assert.Nil(step.StepData)
	assert.NotEmpty(step.Message)

	s.Load("ADDI X1, XZR, #10\nSTUR X1, [SP, #-8]")

	var statuses []string
	var stages []string
	for {
		step = s.MicroStep()
		if step.Status == STATUS_ERROR {
			break
		}
		statuses = append(statuses, step.Status)
		stages = append(stages, step.StepData.Stage)
		assert.NotEmpty(step.LogEntry)
		assert.True(step.CanReturnBack)
		assert.NotEmpty(step.StepData.Blocks)
	}
	assert.Equal([]string{
		STATUS_SUCCESS, STATUS_SUCCESS, STATUS_SUCCESS, STATUS_INSTRUCTION_COMPLETED,
		STATUS_SUCCESS, STATUS_SUCCESS, STATUS_SUCCESS, STATUS_FINISHED_PROGRAM,
	}, statuses)
	assert.Equal([]string{
		"Fetch", "Decode", "Execute", "Writeback",
		"Fetch", "Decode", "Execute", "Memory",
	}, stages)

	value, _ := step.CpuState.DataMemory.Get("0x7FFFFFFEF8")
	assert.Equal("0xA", value)
}

func TestSession_StepData(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	s.Load("ADD X3, X1, X2")

	s.MicroStep()
	s.MicroStep()
	step := s.MicroStep()
	data := step.StepData

	assert.Equal("Execute", data.Stage)
	assert.Equal(2, data.MicroStepIndex)
	assert.Equal("0x0", data.CurrentInstructionAddress)
	assert.Equal("0x8B020023", data.Encoded)
	assert.True(strings.HasPrefix(data.EncodedDisasm, "ADD"), data.EncodedDisasm)
	assert.Equal("add", data.ValuesInFlight.AluFunc)
	assert.True(data.ValuesInFlight.Zero)
	assert.True(data.ControlSignals.RegWrite)
	assert.False(data.IsInstructionBoundary)

	content, err := json.Marshal(step)
	assert.NoError(err)
	text := string(content)
	for _, key := range []string{
		`"stage"`, `"micro_step_index"`, `"current_instruction_address"`,
		`"current_instruction_string"`, `"active_blocks"`, `"active_paths"`,
		`"control_signals"`, `"ALUOp":"10"`, `"cpu_state"`, `"log_entry"`, `"can_return_back"`,
	} {
		assert.Contains(text, key)
	}
}

func TestSession_FullInstruction(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	s.Load(loopProgram)

	resp := s.FullInstruction()
	assert.Equal(STATUS_INSTRUCTION_COMPLETED, resp.Status)
	assert.Equal(4, len(resp.Steps))
	assert.Equal(4, len(strings.Split(resp.LogEntry, "\n")))
	value, _ := resp.CpuState.Registers.Get("X2")
	assert.Equal("0x5", value)

	for resp.Status != STATUS_FINISHED_PROGRAM {
		resp = s.FullInstruction()
		assert.NotEqual(STATUS_ERROR, resp.Status)
	}
	assert.Equal("0x14", resp.CpuState.Pc)

	resp = s.FullInstruction()
	assert.Equal(STATUS_ERROR, resp.Status)
	assert.Empty(resp.Steps)
}

func TestSession_Run(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	s.Load(loopProgram)

	resp := s.Run(context.Background())
	assert.Equal(STATUS_FINISHED_PROGRAM, resp.Status)
	assert.Equal(16, resp.Instructions)

	resp = s.Run(context.Background())
	assert.Equal(STATUS_ERROR, resp.Status)

	s.RunTimeout = 10 * time.Millisecond
	s.Load("spin: B spin")
	resp = s.Run(context.Background())
	assert.Equal(STATUS_TIMEOUT, resp.Status)
	assert.Greater(resp.Instructions, 0)
}

func TestSession_ReturnBack(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	back := s.ReturnBack()
	assert.Equal(STATUS_ERROR, back.Status)
	assert.False(back.CanReturnBack)

	s.Load(loopProgram)
	s.FullInstruction()
	s.MicroStep()

	before := s.state()
	step := s.MicroStep()
	assert.NotEqual(STATUS_ERROR, step.Status)

	back = s.ReturnBack()
	assert.Equal(STATUS_SUCCESS, back.Status)
	assert.True(back.CanReturnBack)
	assert.Equal("0x4", back.CurrentInstrAddr)
	assert.Equal("SUBI X2, X2, #1", back.CurrentInstrStr)
	assert.Equal(MicroStepInfo{NextStage: "Decode", MicroStepIndex: 1, InFlight: true}, back.MicroStepInfo)

	left, _ := json.Marshal(before)
	right, _ := json.Marshal(back.CpuState)
	assert.Equal(string(left), string(right))
}

func TestSession_ResetLoad(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	first := s.Load(loopProgram)
	s.Run(context.Background())

	reset := s.Reset()
	assert.Equal(STATUS_SUCCESS, reset.Status)
	assert.False(reset.CanReturnBack)
	step := s.MicroStep()
	assert.Equal(STATUS_ERROR, step.Status)

	second := s.Load(loopProgram)

	left, err := json.Marshal(first)
	assert.NoError(err)
	right, err := json.Marshal(second)
	assert.NoError(err)

	delta, err := gojsondiff.New().Compare(left, right)
	assert.NoError(err)
	assert.False(delta.Modified())
}

func TestSession_Do(t *testing.T) {
	assert := assert.New(t)

	s := newSession()
	resp, err := s.Do(context.Background(), &Request{Op: OP_LOAD, Code: "NOP"})
	assert.NoError(err)
	assert.IsType(LoadResponse{}, resp)

	for _, op := range []string{OP_MICRO_STEP, OP_FULL_INSTRUCTION, OP_RETURN_BACK, OP_RUN, OP_RESET} {
		_, err = s.Do(context.Background(), &Request{Op: op})
		assert.NoError(err, op)
	}

	_, err = s.Do(context.Background(), &Request{Op: "jump"})
	assert.ErrorIs(err, ErrOpUnknown)
}
