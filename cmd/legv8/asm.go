package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"

	"github.com/ezrec/legv8/cpu"
)

// listing renders a program as a tree of label branches.
func listing(name string, prog *cpu.Program) treeprint.Tree {
	tree := treeprint.NewWithRoot(name)

	branch := tree
	for n := range prog.Instructions {
		inst := &prog.Instructions[n]
		if labels := prog.LabelsAt(inst.Address); len(labels) > 0 {
			branch = tree.AddBranch(strings.Join(labels, ", ") + ":")
		}
		line := fmt.Sprintf("0x%04X  %08X  %-28s", inst.Address, inst.Word, inst.Text)
		if disasm := inst.Disassembly(); len(disasm) != 0 {
			line += "  ; " + disasm
		}
		branch.AddNode(strings.TrimRight(line, " "))
	}

	return tree
}

func newAsmCmd(opt *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "asm FILE",
		Short: "Assemble a program, and print its listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := opt.assemble(args[0])
			if err != nil {
				return
			}

			_, err = io.WriteString(cmd.OutOrStdout(), listing(args[0], prog).String())
			if err != nil || len(output) == 0 {
				return
			}

			return os.WriteFile(output, prog.Binary(), 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the encoded program to a file")

	return cmd
}
