package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/config"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/engine"
)

// runInitCmd implements `memchain init` (spec §6 init_chain).
func runInitCmd(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("init", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		dir     string
		name    string
		keyMode string
	)
	cmd.StringVar(&dir, "dir", "", "Chain directory (default: MEMORY_CHAIN_DIR or ./memchain-data)")
	cmd.StringVar(&name, "name", "agent", "Agent name recorded in the genesis identity entry")
	cmd.StringVar(&keyMode, "key-mode", "raw", "Key storage mode: raw|encrypted|env")

	if err := cmd.Parse(args); err != nil {
		return exitMisuse
	}

	mode := config.KeyMode(keyMode)
	switch mode {
	case config.KeyModeRaw, config.KeyModeEncrypted, config.KeyModeEnv:
	default:
		fmt.Fprintf(stderr, "Error: --key-mode must be one of raw, encrypted, env\n")
		return exitMisuse
	}

	var password []byte
	if mode == config.KeyModeEncrypted {
		var err error
		password, err = readPassword(stdin, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "Error: read password: %v\n", err)
			return exitMisuse
		}
	}

	resolved := config.ResolveDataDir(dir)
	cfg, err := engine.InitChain(resolved, engine.InitOptions{
		AgentName: name,
		KeyMode:   mode,
		Password:  password,
	})
	if err != nil {
		printError(stderr, err)
		return exitCodeFor(err)
	}

	fmt.Fprintf(stdout, "Initialized chain in %s\n", resolved)
	fmt.Fprintf(stdout, "  agent:      %s\n", cfg.AgentName)
	fmt.Fprintf(stdout, "  public key: %s\n", cfg.PublicKey)
	fmt.Fprintf(stdout, "  key mode:   %s\n", cfg.KeyMode)
	return exitOK
}

// readPassword reads a password from the environment, falling back to a
// single line of stdin (no terminal echo suppression; scripted callers
// should prefer MEMORY_CHAIN_PASSWORD).
func readPassword(stdin io.Reader, stderr io.Writer) ([]byte, error) {
	if pw := os.Getenv(envPassword); pw != "" {
		return []byte(pw), nil
	}
	fmt.Fprint(stderr, "Password: ")
	reader := bufio.NewReader(stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	return []byte(trimNewline(line)), nil
}
