package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func newRunCmd(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE",
		Short: "Run a program to completion, and print the final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			emu, err := opt.newEmulator(args[0])
			if err != nil {
				return
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if opt.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opt.timeout)
				defer cancel()
			}

			count, err := emu.RunToCompletion(ctx)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, emu.Cpu.String())
			fmt.Fprintf(out, "retired: %d\n", count)

			return
		},
	}
}
