package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/config"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/engine"
)

// envPassword lets a password be supplied without a terminal prompt,
// convenient for scripted or tested invocations.
const envPassword = "MEMORY_CHAIN_PASSWORD"

// openEngine resolves the data directory and opens an Engine, prompting on
// stdin for a password if the chain's key material is encrypted and
// MEMORY_CHAIN_PASSWORD is unset.
func openEngine(dirFlag string, stdin io.Reader, stderr io.Writer) (*engine.Engine, int) {
	dir := config.ResolveDataDir(dirFlag)
	provider := func() ([]byte, error) {
		if pw := os.Getenv(envPassword); pw != "" {
			return []byte(pw), nil
		}
		return readPassword(stdin, stderr)
	}

	eng, err := engine.Open(dir, provider, nil)
	if err != nil {
		printError(stderr, err)
		return nil, exitCodeFor(err)
	}
	return eng, exitOK
}

// indexPath returns the sqlite index path for a resolved chain directory.
func indexPath(dir string) string {
	return filepath.Join(config.ResolveDataDir(dir), "memory.db")
}

// engineLoader adapts an Engine's unverified content lookup to
// index.ContentLoader, matching the method signature exactly.
type engineLoader struct {
	eng *engine.Engine
}

func (l engineLoader) Get(digest string) ([]byte, bool, error) {
	return l.eng.GetContent(digest)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// printError renders err with its error-kind prefix (spec §7).
func printError(w io.Writer, err error) {
	var ve engine.ValidationError
	var ie engine.IntegrityError
	var ce engine.CryptoError
	var cie engine.ContentIntegrityError
	switch {
	case errors.As(err, &ve):
		fmt.Fprintf(w, "Error [validation]: %s\n", ve.Error())
	case errors.As(err, &ie):
		fmt.Fprintf(w, "Error [integrity]: %s\n", ie.Error())
	case errors.As(err, &ce):
		fmt.Fprintf(w, "Error [crypto]: %s\n", ce.Error())
	case errors.As(err, &cie):
		fmt.Fprintf(w, "Error [content_integrity]: %s\n", cie.Error())
	case errors.Is(err, engine.ErrNotFound):
		fmt.Fprintf(w, "Error [not_found]: %s\n", err.Error())
	default:
		fmt.Fprintf(w, "Error: %s\n", err.Error())
	}
}

// exitCodeFor maps an engine error onto the CLI's exit-code convention
// (spec §6: 0 success, 1 generic failure, 2 integrity failure, 3 misuse).
func exitCodeFor(err error) int {
	if err == nil {
		return exitOK
	}
	var ie engine.IntegrityError
	var cie engine.ContentIntegrityError
	if errors.As(err, &ie) || errors.As(err, &cie) {
		return exitIntegrity
	}
	return exitFailure
}

// stringSlice collects repeated occurrences of a flag, e.g. --type memory
// --type decision, in order.
type stringSlice []string

func (s *stringSlice) String() string {
	if s == nil {
		return ""
	}
	return fmt.Sprint([]string(*s))
}

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}
