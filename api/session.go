package api

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ezrec/legv8/emulator"
	"github.com/ezrec/legv8/translate"
)

var f = translate.From

var (
	ErrOpUnknown      = errors.New(f("unknown operation"))
	ErrSessionLimit   = errors.New(f("too many sessions"))
	ErrRequestInvalid = errors.New(f("invalid request"))
)

// Operations.
const (
	OP_LOAD             = "load"
	OP_MICRO_STEP       = "micro_step"
	OP_FULL_INSTRUCTION = "full_instruction"
	OP_RUN              = "run"
	OP_RESET            = "reset"
	OP_RETURN_BACK      = "return_back"
)

// Session is one emulator, serialized by a mutex.
type Session struct {
	ID         string
	RunTimeout time.Duration // Bound on a run; zero for none.

	mu     sync.Mutex
	emu    *emulator.Emulator
	logger *slog.Logger
}

// NewSession creates an empty session.
func NewSession(id string, config Config, logger *slog.Logger) (s *Session) {
	if logger == nil {
		logger = slog.Default()
	}
	s = &Session{
		ID:         id,
		RunTimeout: config.RunTimeout,
		emu:        emulator.NewEmulator(config.Engine),
		logger:     logger.With("session", id),
	}
	for name, value := range config.Defines {
		s.emu.Define(name, value)
	}
	return
}

func (s *Session) state() CpuState {
	return NewCpuState(s.emu.Cpu)
}

// Do performs a request.
func (s *Session) Do(ctx context.Context, req *Request) (resp any, err error) {
	switch req.Op {
	case OP_LOAD:
		resp = s.Load(req.Code)
	case OP_MICRO_STEP:
		resp = s.MicroStep()
	case OP_FULL_INSTRUCTION:
		resp = s.FullInstruction()
	case OP_RUN:
		resp = s.Run(ctx)
	case OP_RESET:
		resp = s.Reset()
	case OP_RETURN_BACK:
		resp = s.ReturnBack()
	default:
		err = ErrOpUnknown
	}
	return
}

// Load assembles and loads a program. On error, the session is unchanged.
func (s *Session) Load(code string) (resp LoadResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emu.Load(strings.NewReader(code))
	resp.CpuState = s.state()
	resp.CanReturnBack = s.emu.CanReturnBack()
	if err != nil {
		s.logger.Warn("load failed", "err", err)
		resp.Status = STATUS_ERROR
		resp.Message = err.Error()
		return
	}

	prog := s.emu.Program
	s.logger.Info("loaded", "instructions", len(prog.Instructions), "labels", len(prog.Labels))

	resp.Status = STATUS_SUCCESS
	resp.Message = f("loaded %v instructions", len(prog.Instructions))
	if inst := s.emu.Current(); inst != nil {
		resp.InitialInstrStr = inst.String()
	}

	return
}

// MicroStep performs one micro-step.
func (s *Session) MicroStep() (resp MicroStepResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, err := s.emu.MicroStep()
	resp.CpuState = s.state()
	resp.CanReturnBack = s.emu.CanReturnBack()
	if err != nil {
		s.logger.Debug("micro_step failed", "err", err)
		resp.Status = STATUS_ERROR
		resp.Message = err.Error()
		resp.LogEntry = err.Error()
		return
	}

	data := NewStepData(&report)
	resp.Status = status(&report)
	resp.StepData = &data
	resp.LogEntry = strings.Join(append([]string{report.Log}, report.Warnings...), "\n")

	return
}

// FullInstruction completes the instruction in flight.
func (s *Session) FullInstruction() (resp FullInstructionResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reports, err := s.emu.FullInstruction()
	resp.Steps = []StepData{}
	var entries []string
	for n := range reports {
		resp.Steps = append(resp.Steps, NewStepData(&reports[n]))
		entries = append(entries, reports[n].Log)
		entries = append(entries, reports[n].Warnings...)
	}
	resp.LogEntry = strings.Join(entries, "\n")
	resp.CpuState = s.state()
	resp.CanReturnBack = s.emu.CanReturnBack()

	switch {
	case err != nil:
		s.logger.Debug("full_instruction failed", "err", err)
		resp.Status = STATUS_ERROR
		resp.Message = err.Error()
	case len(reports) > 0:
		resp.Status = status(&reports[len(reports)-1])
	}

	return
}

// Run runs the program to completion, bounded by RunTimeout.
func (s *Session) Run(ctx context.Context) (resp RunResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	count, err := s.emu.RunToCompletion(ctx)
	resp.Instructions = count
	resp.CpuState = s.state()
	resp.CanReturnBack = s.emu.CanReturnBack()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("run timeout", "instructions", count, "elapsed", time.Since(start))
		resp.Status = STATUS_TIMEOUT
		resp.Message = f("timeout after %v instructions, run again to continue", count)
	case err != nil:
		s.logger.Debug("run failed", "err", err)
		resp.Status = STATUS_ERROR
		resp.Message = err.Error()
	default:
		s.logger.Info("run finished", "instructions", count, "elapsed", time.Since(start))
		resp.Status = STATUS_FINISHED_PROGRAM
		resp.Message = f("finished after %v instructions", count)
	}

	return
}

// Reset unloads the program, clearing all state and history.
func (s *Session) Reset() (resp ResetResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.emu.Reset()
	s.logger.Info("reset")

	resp.Status = STATUS_SUCCESS
	resp.CpuState = s.state()
	resp.Message = f("reset")
	resp.CanReturnBack = false

	return
}

// ReturnBack undoes the most recent micro-step.
func (s *Session) ReturnBack() (resp ReturnBackResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.emu.ReturnBack()
	resp.CpuState = s.state()
	resp.CanReturnBack = s.emu.CanReturnBack()
	resp.MicroStepInfo = MicroStepInfo{
		NextStage:      s.emu.NextStage().String(),
		MicroStepIndex: s.emu.MicroStepIndex(),
		InFlight:       s.emu.MicroStepIndex() > 0,
	}
	if inst := s.emu.Current(); inst != nil {
		resp.CurrentInstrAddr = Hex(inst.Address)
		resp.CurrentInstrStr = inst.String()
	}
	if err != nil {
		resp.Status = STATUS_ERROR
		resp.Message = err.Error()
		return
	}

	resp.Status = STATUS_SUCCESS
	resp.Message = f("returned to %v", resp.MicroStepInfo.NextStage)

	return
}
