package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
)

// runExportCmd implements `memchain export <out>` (spec §6 export).
func runExportCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("export", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir          string
		includeBlobs bool
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.BoolVar(&includeBlobs, "include-blobs", true, "Embed content blobs in the export")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: export requires <out>")
		return exitMisuse
	}
	out := cmd.Arg(0)

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	exp, err := eng.Export(includeBlobs)
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		fmt.Fprintf(stderr, "Error: marshal export: %v\n", err)
		return exitFailure
	}
	if err := os.WriteFile(out, append(data, '\n'), 0o600); err != nil {
		fmt.Fprintf(stderr, "Error: write %s: %v\n", out, err)
		return exitFailure
	}

	fmt.Fprintf(stdout, "Exported %d entries to %s\n", len(exp.Entries), out)
	return exitOK
}
