package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/engine"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/retrieval"
)

// runSearchCmd implements `memchain search` (spec §6 retrieve). The index
// is rebuilt from the chain on every invocation since the CLI has no
// long-lived index process.
func runSearchCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("search", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	defaults := retrieval.DefaultOptions()
	var (
		dir        string
		maxTokens  int
		maxResults int
		types      stringSlice
		tiers      stringSlice
		explain    bool
		dryRun     bool
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.IntVar(&maxTokens, "max-tokens", defaults.MaxTokens, "Token budget for returned memories")
	cmd.IntVar(&maxResults, "max-results", defaults.MaxResults, "Maximum memories to return before budget packing")
	cmd.Var(&types, "type", "Restrict to entry type (repeatable)")
	cmd.Var(&tiers, "tier", "Restrict to retention tier (repeatable)")
	cmd.BoolVar(&explain, "explain", false, "Print each hit's score breakdown")
	cmd.BoolVar(&dryRun, "dry-run", false, "Do not bump access counters on matched memories")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: search requires <query>")
		return exitMisuse
	}
	query := cmd.Arg(0)

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

	hits, err := engine.Retrieve(ctx, idx, query, retrieval.Options{
		MaxTokens:        maxTokens,
		MaxResults:       maxResults,
		Types:            []string(types),
		Tiers:            []string(tiers),
		SkipAccessUpdate: dryRun,
	})
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	if len(hits) == 0 {
		fmt.Fprintln(stdout, "No matching memories.")
		return exitOK
	}
	for _, h := range hits {
		fmt.Fprintf(stdout, "[%.3f] seq=%d %s\n", h.Score, h.Memory.Seq, h.Memory.Content)
		if explain {
			printExplanation(stdout, retrieval.ExplainScore(h.Breakdown))
		}
	}
	return exitOK
}

// printExplanation renders a score breakdown under its hit line, in a fixed
// field order so --explain output is stable across runs.
func printExplanation(w io.Writer, explained map[string]float64) {
	for _, field := range []string{"fts_norm", "recency", "importance", "access_norm", "decay_weight", "base", "final"} {
		fmt.Fprintf(w, "    %-12s %.4f\n", field, explained[field])
	}
}
