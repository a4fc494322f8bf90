package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wnxd/microhook/internal/logger"
	"github.com/wnxd/microhook/scan"
)

type scanOptions struct {
	mask string
	all  bool
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan <dump> <pattern>",
		Short: "Find a signature in a dump",
		Long: `The scan command prints the address of the first match of a signature.

Example:
  sigscan scan game.bin "8B 0D ?? ?? ?? ?? 8B 84 24"
  sigscan scan game.bin 8B0D000000008B8424 --mask "xx????xxx"
  sigscan scan game.bin "E8 ?? ?? ?? ?? 84 C0" --all`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pattern(args[1])
			if err != nil {
				return err
			}
			return runScan(cmd, root, opts, args[0], p)
		},
	}
	cmd.Flags().StringVar(&opts.mask, "mask", "", "Read the pattern as raw hex bytes with an x/? mask")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Print every match, overlapping ones included")
	return cmd
}

func (o *scanOptions) pattern(arg string) (scan.Pattern, error) {
	if o.mask == "" {
		return scan.Parse(arg)
	}
	raw, err := hex.DecodeString(strings.Join(strings.Fields(arg), ""))
	if err != nil {
		return scan.Pattern{}, fmt.Errorf("%w: %v", scan.ErrPatternSyntax, err)
	}
	return scan.FromMask(raw, o.mask)
}

type scanResult struct {
	Pattern string   `json:"pattern"`
	Matches []uint64 `json:"matches"`
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions, path string, p scan.Pattern) error {
	proc, img, err := root.open(path)
	if err != nil {
		return err
	}
	defer proc.Close()

	res := scanResult{Pattern: p.String(), Matches: []uint64{}}
	if opts.all {
		for _, off := range scan.FindAll(img.Regions[0].Data, p) {
			res.Matches = append(res.Matches, root.base+uint64(off))
		}
	} else {
		addr, err := scan.Find(proc, proc, p, scan.Default())
		if err != nil && !errors.Is(err, scan.ErrNotFound) {
			return err
		} else if err == nil {
			res.Matches = append(res.Matches, addr)
		}
	}
	logger.Info("scan", "pattern", res.Pattern, "matches", len(res.Matches))

	if root.jsonOut {
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	} else {
		for _, addr := range res.Matches {
			fmt.Fprintf(cmd.OutOrStdout(), "0x%08x\n", addr)
		}
	}
	if len(res.Matches) == 0 {
		return fmt.Errorf("%w: %s", scan.ErrNotFound, res.Pattern)
	}
	return nil
}
