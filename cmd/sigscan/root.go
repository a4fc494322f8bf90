package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wnxd/microhook/config"
	"github.com/wnxd/microhook/internal/logger"
	"github.com/wnxd/microhook/loader"
	"github.com/wnxd/microhook/process"
	"github.com/wnxd/microhook/sim"
)

type rootOptions struct {
	base    uint64
	x64     bool
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "sigscan",
		Short: "Search module dumps for byte signatures",
		Long: `sigscan maps a raw module dump at a base address and searches it
for byte signatures written as hex bytes with ?? wildcards.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level, _ := cfg.Level()
			return logger.Init(logger.Options{Level: level, File: cfg.LogFile, JSON: cfg.LogJSON})
		},
	}
	cmd.PersistentFlags().Uint64Var(&opts.base, "base", 0x400000, "Address the dump is mapped at")
	cmd.PersistentFlags().BoolVar(&opts.x64, "x64", false, "Treat the dump as 64 bit code")
	cmd.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "Output in JSON format")

	cmd.AddCommand(newScanCmd(opts), newSigsCmd(opts), newSelfCmd(opts))
	return cmd
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// open maps the dump at path as the main module of a fresh process.
func (o *rootOptions) open(path string) (*sim.Process, *loader.Image, error) {
	arch := process.ARCH_X86
	if o.x64 {
		arch = process.ARCH_X86_64
	}
	img, err := loader.FromFile(path, path, o.base)
	if err != nil {
		return nil, nil, err
	}
	p := sim.New(arch)
	if _, err := p.Load(img); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("map %s at %#x: %w", path, o.base, err)
	}
	logger.Debug("mapped dump", "path", path, "base", o.base, "size", img.Size(), "arch", arch)
	return p, img, nil
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
