package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/chain"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/config"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/engine"
)

// runImportCmd implements `memchain import <in>` (spec §6 import). It
// writes into the CLI's chain directory, which may exist but must not
// already hold a non-empty chain.jsonl.
func runImportCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("import", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir          string
		verify       bool
		checkContent bool
	)
	cmd.StringVar(&dir, "dir", "", "Destination chain directory")
	cmd.BoolVar(&verify, "verify", true, "Verify the imported chain")
	cmd.BoolVar(&checkContent, "check-content", true, "Recompute blob digests during verification")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: import requires <in>")
		return exitMisuse
	}
	in := cmd.Arg(0)

	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(stderr, "Error: read %s: %v\n", in, err)
		return exitFailure
	}
	var exp chain.Export
	if err := json.Unmarshal(data, &exp); err != nil {
		fmt.Fprintf(stderr, "Error: parse %s: %v\n", in, err)
		return exitFailure
	}

	resolved := config.ResolveDataDir(dir)
	res, err := engine.ImportChain(exp, resolved, verify, checkContent)
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	fmt.Fprintf(stdout, "Imported %d entries (%d blobs) into %s\n", res.EntriesImported, res.BlobsImported, resolved)
	if res.VerifyResult != nil {
		if !res.VerifyResult.Valid {
			fmt.Fprintf(stdout, "Chain INVALID after import: %d findings\n", len(res.VerifyResult.Errors))
			return exitIntegrity
		}
		fmt.Fprintf(stdout, "Chain valid: %d entries checked\n", res.VerifyResult.EntriesChecked)
	}
	return exitOK
}
