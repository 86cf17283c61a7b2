package main

import (
	"flag"
	"fmt"
	"io"
)

// runStatsCmd implements `memchain stats` (spec's supplemented chain.Stats).
func runStatsCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("stats", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var dir string
	cmd.StringVar(&dir, "dir", "", "Chain directory")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	stats, err := eng.Stats()
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	fmt.Fprintf(stdout, "entries:   %d\n", stats.EntryCount)
	fmt.Fprintf(stdout, "tip hash:  %s\n", stats.TipHash)
	fmt.Fprintln(stdout, "by type:")
	for t, n := range stats.ByType {
		fmt.Fprintf(stdout, "  %-10s %d\n", t, n)
	}
	fmt.Fprintln(stdout, "by tier:")
	for t, n := range stats.ByTier {
		fmt.Fprintf(stdout, "  %-12s %d\n", t, n)
	}
	return exitOK
}
