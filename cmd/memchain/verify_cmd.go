package main

import (
	"flag"
	"fmt"
	"io"
)

// runVerifyCmd implements `memchain verify` (spec §6 verify_chain).
//
// Exit codes: 0 valid, 2 integrity findings, 3 misuse.
func runVerifyCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir         string
		skipContent bool
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.BoolVar(&skipContent, "skip-content", false, "Skip recomputing blob digests")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	result, err := eng.VerifyChain(!skipContent)
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	if result.Valid {
		fmt.Fprintf(stdout, "Chain valid: %d entries checked\n", result.EntriesChecked)
		return exitOK
	}

	fmt.Fprintf(stdout, "Chain INVALID: %d entries checked, %d findings\n", result.EntriesChecked, len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(stdout, "  - seq=%d kind=%s: %s\n", e.Seq, e.Kind, e.Message)
	}
	return exitIntegrity
}
