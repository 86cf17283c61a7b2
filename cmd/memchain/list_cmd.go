package main

import (
	"flag"
	"fmt"
	"io"
)

// runListCmd implements `memchain list` (spec §6 read_chain).
func runListCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("list", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir         string
		showContent bool
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.BoolVar(&showContent, "show-content", false, "Resolve and print each entry's content")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	entries, err := eng.ReadChain()
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	for _, e := range entries {
		prev := "-"
		if e.PrevHash != nil {
			prev = *e.PrevHash
		}
		fmt.Fprintf(stdout, "seq=%d type=%-9s tier=%-12s hash=%s prev=%s\n", e.Seq, e.Type, e.Tier, e.ContentHash, prev)
		if showContent && e.ContentHash != "" {
			blob, ok, err := eng.GetContent(e.ContentHash)
			if err != nil {
				printError(stderr, err)
				return exitCodeFor(err)
			}
			if ok {
				fmt.Fprintf(stdout, "  %s\n", blob)
			}
		}
	}
	return exitOK
}
