package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ezrec/legv8/api"
	"github.com/ezrec/legv8/emulator"
)

var errCommandUnknown = errors.New("unknown command, try 'help'")

const debugHelp = `step [N]   perform N micro-steps (default 1)
next [N]   complete N instructions (default 1)
back [N]   undo N micro-steps (default 1)
run        run to completion
restart    restart the program
regs       show the registers
mem        show the mapped data memory
list       show the instruction at the PC
quit       exit
`

// console is an interactive stepping session.
type console struct {
	emu      *emulator.Emulator
	out      io.Writer
	ctx      context.Context
	timeout  time.Duration // Bound on 'run'; zero for none.
	coloring bool
}

func count(args []string) (n int, err error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err = strconv.Atoi(args[0])
	if err == nil && n < 1 {
		err = strconv.ErrRange
	}
	return
}

func (con *console) report(report *emulator.Report) {
	fmt.Fprintf(con.out, "%-9v %s\n", report.Stage, report.Log)
	for _, warning := range report.Warnings {
		fmt.Fprintf(con.out, "warning: %s\n", warning)
	}
	if report.End {
		fmt.Fprintln(con.out, "program finished")
	}
}

func (con *console) list() {
	inst := con.emu.Current()
	if inst == nil {
		fmt.Fprintln(con.out, "program finished")
		return
	}
	fmt.Fprintf(con.out, "0x%04X  %-28s next: %v\n", inst.Address, inst.Text, con.emu.NextStage())
}

// exec runs a console command, and shows the state change it caused.
func (con *console) exec(line string) (quit bool, err error) {
	words := strings.Fields(line)
	if len(words) == 0 {
		return
	}
	cmd, args := strings.ToLower(words[0]), words[1:]

	before := api.NewCpuState(con.emu.Cpu)

	switch cmd {
	case "step", "s":
		var n int
		n, err = count(args)
		for ; err == nil && n > 0; n-- {
			var report emulator.Report
			report, err = con.emu.MicroStep()
			if err == nil {
				con.report(&report)
			}
		}
	case "next", "n":
		var n int
		n, err = count(args)
		for ; err == nil && n > 0; n-- {
			var reports []emulator.Report
			reports, err = con.emu.FullInstruction()
			for i := range reports {
				con.report(&reports[i])
			}
		}
	case "back", "b":
		var n int
		n, err = count(args)
		for ; err == nil && n > 0; n-- {
			err = con.emu.ReturnBack()
		}
		if err == nil {
			con.list()
		}
	case "run", "r":
		ctx := con.ctx
		if con.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, con.timeout)
			defer cancel()
		}
		var retired int
		retired, err = con.emu.RunToCompletion(ctx)
		fmt.Fprintf(con.out, "%d instructions\n", retired)
		if con.emu.Finished() {
			fmt.Fprintln(con.out, "program finished")
		}
	case "restart":
		con.emu.Restart()
		con.list()
	case "regs":
		fmt.Fprintf(con.out, "%5s: 0x%016X\n", "pc", con.emu.Pc)
		fmt.Fprintf(con.out, "%5s: %v\n", "nzcv", con.emu.Flags)
		for reg, value := range con.emu.Register.All() {
			fmt.Fprintf(con.out, "%5v: 0x%016X\n", reg, value)
		}
		return
	case "mem":
		for address, value := range con.emu.Memory.All() {
			fmt.Fprintf(con.out, "[0x%X]: 0x%016X\n", address, value)
		}
		return
	case "list", "l":
		con.list()
		return
	case "help", "h", "?":
		fmt.Fprint(con.out, debugHelp)
		return
	case "quit", "q", "exit":
		quit = true
		return
	default:
		err = errCommandUnknown
		return
	}

	delta, modified, diff_err := api.Diff(before, api.NewCpuState(con.emu.Cpu), con.coloring)
	if diff_err != nil {
		return false, errors.Join(err, diff_err)
	}
	if modified {
		fmt.Fprint(con.out, delta)
	}

	return
}

func newDebugCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "debug FILE",
		Short: "Step through a program interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			emu, err := opt.newEmulator(args[0])
			if err != nil {
				return
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "legv8> ",
				HistoryFile: filepath.Join(os.TempDir(), "legv8_history"),
				AutoComplete: readline.NewPrefixCompleter(
					readline.PcItem("step"),
					readline.PcItem("next"),
					readline.PcItem("back"),
					readline.PcItem("run"),
					readline.PcItem("restart"),
					readline.PcItem("regs"),
					readline.PcItem("mem"),
					readline.PcItem("list"),
					readline.PcItem("help"),
					readline.PcItem("quit"),
				),
			})
			if err != nil {
				return
			}
			defer rl.Close()

			con := &console{
				emu:      emu,
				out:      rl.Stdout(),
				ctx:      cmd.Context(),
				timeout:  opt.timeout,
				coloring: true,
			}
			con.list()

			for {
				var line string
				line, err = rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					continue
				}
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return
				}

				quit, exec_err := con.exec(line)
				if exec_err != nil {
					fmt.Fprintf(con.out, "error: %v\n", exec_err)
				}
				if quit {
					return nil
				}
			}
		},
	}
}
