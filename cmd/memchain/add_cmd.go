package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/chain"
)

// runAddCmd implements `memchain add` (spec §6 add_entry).
func runAddCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("add", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir        string
		entryType  string
		tier       string
		metadataKV stringSlice
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory")
	cmd.StringVar(&entryType, "type", string(chain.TypeMemory), "Entry type: memory|decision")
	cmd.StringVar(&tier, "tier", string(chain.TierRelationship), "Retention tier: committed|relationship|ephemeral")
	cmd.Var(&metadataKV, "metadata", "Metadata as KEY=VAL (repeatable)")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}
	if cmd.NArg() < 1 {
		fmt.Fprintln(stderr, "Error: add requires <content>")
		return exitMisuse
	}
	content := strings.Join(cmd.Args(), " ")

	var metadata map[string]any
	if len(metadataKV) > 0 {
		metadata = make(map[string]any, len(metadataKV))
		for _, kv := range metadataKV {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				fmt.Fprintf(stderr, "Error: --metadata value %q is not KEY=VAL\n", kv)
				return exitMisuse
			}
			metadata[k] = v
		}
	}

	eng, code := openEngine(dir, stdin, stderr)
	if eng == nil {
		return code
	}

	entry, err := eng.AddEntry(chain.EntryType(entryType), chain.Tier(tier), []byte(content), metadata)
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	fmt.Fprintf(stdout, "Added entry seq=%d type=%s tier=%s hash=%s\n", entry.Seq, entry.Type, entry.Tier, entry.ContentHash)
	return exitOK
}
