package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wnxd/microhook/native"
	"github.com/wnxd/microhook/scan"
)

func newSelfCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "self <pattern>",
		Short: "Find a signature in the running sigscan executable",
		Long: `The self command searches the main module of the sigscan process
itself through the in-process memory backend. It checks that the backend
can enumerate modules and read live code on this platform.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := scan.Parse(args[0])
			if err != nil {
				return err
			}
			proc := native.New()
			addr, err := scan.Find(proc, proc, p, scan.Default())
			if err != nil {
				return err
			}
			if root.jsonOut {
				return printJSON(cmd.OutOrStdout(), scanResult{Pattern: p.String(), Matches: []uint64{addr}})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%#x\n", addr)
			return nil
		},
	}
}
