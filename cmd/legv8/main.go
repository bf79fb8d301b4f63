// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ezrec/legv8/cpu"
	"github.com/ezrec/legv8/emulator"
)

var errDefine = errors.New("define must be NAME=VALUE")

// options shared by all subcommands.
type options struct {
	verbose        bool
	historyLimit   int
	memoryDefault  uint64
	microStepLimit int
	timeout        time.Duration
	defines        []string
}

func (opt *options) engineConfig() emulator.Config {
	config := emulator.DefaultConfig()
	config.Verbose = opt.verbose
	config.HistoryLimit = opt.historyLimit
	config.MemoryDefault = opt.memoryDefault
	config.MicroStepLimit = opt.microStepLimit
	return config
}

// predefine applies the -D NAME=VALUE options.
func (opt *options) predefine(define func(name, value string)) (err error) {
	for _, def := range opt.defines {
		name, value, ok := strings.Cut(def, "=")
		if !ok || len(name) == 0 {
			return fmt.Errorf("%v: %w", def, errDefine)
		}
		define(name, value)
	}
	return
}

// open returns the named file, or stdin for "-".
func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// newEmulator creates an emulator with the program in path loaded.
func (opt *options) newEmulator(path string) (emu *emulator.Emulator, err error) {
	emu = emulator.NewEmulator(opt.engineConfig())
	err = opt.predefine(emu.Define)
	if err != nil {
		return
	}

	inf, err := open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	err = emu.Load(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

// assemble parses the program in path.
func (opt *options) assemble(path string) (prog *cpu.Program, err error) {
	asm := &cpu.Assembler{Verbose: opt.verbose}
	err = opt.predefine(asm.Predefine)
	if err != nil {
		return
	}

	inf, err := open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	prog, err = asm.Parse(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

func newRootCmd() *cobra.Command {
	opt := &options{}

	rootCmd := &cobra.Command{
		Use:           "legv8",
		Short:         "LEGv8 assembler and micro-step simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&opt.verbose, "verbose", "v", false, "Verbose mode")
	flags.IntVar(&opt.historyLimit, "history", emulator.HISTORY_LIMIT, "Maximum undo depth, in micro-steps")
	flags.Uint64Var(&opt.memoryDefault, "memory-default", 0, "Value read from unmapped data memory")
	flags.IntVar(&opt.microStepLimit, "micro-step-limit", emulator.MICRO_STEP_LIMIT, "Micro-steps per instruction before a forced boundary")
	flags.DurationVar(&opt.timeout, "timeout", 5*time.Second, "Bound on a run (0 for none)")
	flags.StringArrayVarP(&opt.defines, "define", "D", nil, "Predefine an equate, as NAME=VALUE")

	rootCmd.AddCommand(
		newAsmCmd(opt),
		newRunCmd(opt),
		newDebugCmd(opt),
		newServeCmd(opt),
	)

	return rootCmd
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v: %v\n", os.Args[0], err)
		os.Exit(1)
	}
}
