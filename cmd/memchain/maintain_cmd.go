package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/engine"
)

// runMaintainCmd implements `memchain maintain` (spec §6 run_gc /
// update_decay_tiers), rebuilding the index from the chain and then running
// one orchestrated maintenance pass configured from the chain's
// maintenance.yaml policy (spec's Ambient Stack expansion).
func runMaintainCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("maintain", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var dir string
	var weekly bool
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.BoolVar(&weekly, "weekly", false, "Run the weekly pass (decay update + gc) instead of the hourly pass (decay update only)")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	idx, err := engine.OpenIndex(indexPath(dir))
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}
	defer idx.Close()

	ctx := context.Background()
	entries, err := eng.ReadChain()
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}
	if _, err := engine.RebuildIndex(ctx, idx, entries, engineLoader{eng}); err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	orch := eng.Orchestrator(idx)
	if weekly {
		out, err := orch.RunWeekly(ctx)
		if err != nil {
			printError(stderr, err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "promoted hot:  %d\n", out.Decay.PromotedHot)
		fmt.Fprintf(stdout, "promoted warm: %d\n", out.Decay.PromotedWarm)
		fmt.Fprintf(stdout, "promoted cold: %d\n", out.Decay.PromotedCold)
		fmt.Fprintf(stdout, "gc candidates: %d\n", out.GC.Candidates)
		fmt.Fprintf(stdout, "gc archived:   %d\n", out.GC.Archived)
		return exitOK
	}

	out, err := orch.RunHourly(ctx)
	if err != nil {
		printError(stderr, err)
		return exitFailure
	}
	fmt.Fprintf(stdout, "promoted hot:  %d\n", out.Decay.PromotedHot)
	fmt.Fprintf(stdout, "promoted warm: %d\n", out.Decay.PromotedWarm)
	fmt.Fprintf(stdout, "promoted cold: %d\n", out.Decay.PromotedCold)
	return exitOK
}
