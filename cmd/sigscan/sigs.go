package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wnxd/microhook/engine"
	"github.com/wnxd/microhook/scan"
)

func newSigsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sigs <dump>",
		Short: "Check the built-in host signatures against a dump",
		Long: `The sigs command searches a dump of the game executable for every
built-in signature that lives in the main module and reports which are
missing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSigs(cmd, root, args[0])
		},
	}
}

type sigResult struct {
	Name  string `json:"name"`
	Addr  uint64 `json:"addr,omitempty"`
	Found bool   `json:"found"`
}

type namedPattern struct {
	name string
	p    scan.Pattern
}

func mainModuleSignatures(sigs engine.Signatures) []namedPattern {
	return []namedPattern{
		{engine.StepNames, sigs.Names},
		{engine.StepObjects, sigs.Objects},
		{engine.StepProcessEvent, sigs.ProcessEvent},
		{engine.StepLevelLoad, sigs.LevelLoad},
		{engine.StepPreDeathAnchor, sigs.PreDeathAnchor},
		{engine.StepPreDeath, sigs.PreDeath},
		{engine.StepPostDeath, sigs.PostDeath},
		{engine.StepActorTick, sigs.ActorTick},
		{engine.StepBonesTick, sigs.BonesTick},
		{engine.StepProjection, sigs.Projection},
		{engine.StepTick, sigs.Tick},
	}
}

func runSigs(cmd *cobra.Command, root *rootOptions, path string) error {
	proc, _, err := root.open(path)
	if err != nil {
		return err
	}
	defer proc.Close()

	var results []sigResult
	var missing int
	for _, sig := range mainModuleSignatures(engine.DefaultSignatures()) {
		addr, err := scan.Find(proc, proc, sig.p, scan.Default())
		results = append(results, sigResult{Name: sig.name, Addr: addr, Found: err == nil})
		if err != nil {
			missing++
		}
	}

	if root.jsonOut {
		if err := printJSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, r := range results {
			if r.Found {
				fmt.Fprintf(w, "%s\t0x%08x\n", r.Name, r.Addr)
			} else {
				fmt.Fprintf(w, "%s\tmissing\n", r.Name)
			}
		}
		w.Flush()
	}
	if missing > 0 {
		return fmt.Errorf("%d of %d signatures missing", missing, len(results))
	}
	return nil
}
