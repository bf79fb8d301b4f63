package api

import (
	"fmt"

	"github.com/ezrec/legv8/cpu"
	"github.com/ezrec/legv8/datapath"
	"github.com/ezrec/legv8/emulator"
)

// Response status values.
const (
	STATUS_SUCCESS               = "success"
	STATUS_INSTRUCTION_COMPLETED = "instruction_completed"
	STATUS_FINISHED_PROGRAM      = "finished_program"
	STATUS_TIMEOUT               = "timeout"
	STATUS_ERROR                 = "error"
)

// Request is an operation request. Code is only used by "load".
type Request struct {
	Op   string `json:"op"`
	Code string `json:"code,omitempty"`
}

// ValuesInFlight are the datapath values of a micro-step.
type ValuesInFlight struct {
	ReadData1    string `json:"read_data1"`
	ReadData2    string `json:"read_data2"`
	Immediate    string `json:"immediate"`
	AluFunc      string `json:"alu_func"`
	AluResult    string `json:"alu_result"`
	Zero         bool   `json:"zero"`
	BranchTarget string `json:"branch_target"`
	BranchTaken  bool   `json:"branch_taken"`
	MemData      string `json:"mem_data"`
	WriteData    string `json:"write_data"`
	NextPc       string `json:"next_pc"`
}

// StepData describes one micro-step.
type StepData struct {
	Stage                     string `json:"stage"`
	MicroStepIndex            int    `json:"micro_step_index"`
	CurrentInstructionAddress string `json:"current_instruction_address"`
	CurrentInstructionString  string `json:"current_instruction_string"`
	datapath.Activity
	ControlSignals        cpu.ControlSignals `json:"control_signals"`
	ValuesInFlight        ValuesInFlight     `json:"values_in_flight"`
	Encoded               string             `json:"encoded"`
	EncodedDisasm         string             `json:"encoded_disasm"`
	IsInstructionBoundary bool               `json:"is_instruction_boundary"`
	IsProgramEnd          bool               `json:"is_program_end"`
	Warnings              []string           `json:"warnings,omitempty"`
}

// NewStepData converts an emulator report.
func NewStepData(report *emulator.Report) (data StepData) {
	inst := report.Instruction
	latch := &report.Latch

	data = StepData{
		Stage:                     report.Stage.String(),
		MicroStepIndex:            report.Index,
		CurrentInstructionAddress: Hex(inst.Address),
		CurrentInstructionString:  inst.String(),
		Activity:                  datapath.Lookup(inst.Mnemonic.Class(), report.Stage),
		ControlSignals:            report.Signals,
		ValuesInFlight: ValuesInFlight{
			ReadData1:    Hex(latch.ReadData1),
			ReadData2:    Hex(latch.ReadData2),
			Immediate:    Hex(latch.Immediate),
			AluFunc:      latch.AluFunc.String(),
			AluResult:    Hex(latch.AluResult),
			Zero:         latch.Zero,
			BranchTarget: Hex(latch.BranchTarget),
			BranchTaken:  latch.BranchTaken,
			MemData:      Hex(latch.MemData),
			WriteData:    Hex(latch.WriteData),
			NextPc:       Hex(latch.NextPc),
		},
		Encoded:               fmt.Sprintf("0x%08X", inst.Word),
		EncodedDisasm:         inst.Disassembly(),
		IsInstructionBoundary: report.Boundary,
		IsProgramEnd:          report.End,
		Warnings:              report.Warnings,
	}
	if data.Blocks == nil {
		data.Blocks = []string{}
	}
	if data.Paths == nil {
		data.Paths = []string{}
	}

	return
}

// status of a micro-step report.
func status(report *emulator.Report) string {
	switch {
	case report.End:
		return STATUS_FINISHED_PROGRAM
	case report.Boundary:
		return STATUS_INSTRUCTION_COMPLETED
	}
	return STATUS_SUCCESS
}

type LoadResponse struct {
	Status          string   `json:"status"`
	Message         string   `json:"message"`
	CpuState        CpuState `json:"cpu_state"`
	InitialInstrStr string   `json:"initial_instr_str"`
	CanReturnBack   bool     `json:"can_return_back"`
}

type MicroStepResponse struct {
	Status        string    `json:"status"`
	StepData      *StepData `json:"step_data,omitempty"`
	CpuState      CpuState  `json:"cpu_state"`
	LogEntry      string    `json:"log_entry"`
	Message       string    `json:"message,omitempty"`
	CanReturnBack bool      `json:"can_return_back"`
}

type FullInstructionResponse struct {
	Status        string     `json:"status"`
	Steps         []StepData `json:"steps"`
	CpuState      CpuState   `json:"cpu_state"`
	LogEntry      string     `json:"log_entry"`
	Message       string     `json:"message,omitempty"`
	CanReturnBack bool       `json:"can_return_back"`
}

type RunResponse struct {
	Status        string   `json:"status"`
	Instructions  int      `json:"instructions"`
	CpuState      CpuState `json:"cpu_state"`
	Message       string   `json:"message,omitempty"`
	CanReturnBack bool     `json:"can_return_back"`
}

type ResetResponse struct {
	Status        string   `json:"status"`
	CpuState      CpuState `json:"cpu_state"`
	Message       string   `json:"message"`
	CanReturnBack bool     `json:"can_return_back"`
}

// MicroStepInfo is the position of the cursor within an instruction.
type MicroStepInfo struct {
	NextStage      string `json:"next_stage"`
	MicroStepIndex int    `json:"micro_step_index"`
	InFlight       bool   `json:"in_flight"`
}

type ReturnBackResponse struct {
	Status           string        `json:"status"`
	CpuState         CpuState      `json:"cpu_state"`
	CurrentInstrAddr string        `json:"current_instr_addr"`
	CurrentInstrStr  string        `json:"current_instr_str"`
	MicroStepInfo    MicroStepInfo `json:"micro_step_info"`
	CanReturnBack    bool          `json:"can_return_back"`
	Message          string        `json:"message"`
}
