package config

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

const (
	rawKeyFileName = "agent.key"
	encKeyFileName = "agent.key.enc"
	pubKeyFileName = "agent.pub"
)

// PasswordProvider supplies the password used to decrypt an encrypted key
// envelope. It is a process-wide callback (spec §5). engine.Open calls it
// once, and the decrypted key pair then stays in memory for the lifetime of
// the returned Engine; it is not dropped or re-derived after each add_entry.
type PasswordProvider func() ([]byte, error)

// WriteKeyMaterial persists kp under dir according to mode. For raw mode it
// writes the hex-encoded 32-byte seed to agent.key; for encrypted mode it
// seals the seed under password into agent.key.enc; for env mode no key
// file is written at all (the caller is expected to export
// MEMORY_CHAIN_PRIVATE_KEY out of band). The public key is always written
// to agent.pub.
func WriteKeyMaterial(dir string, kp crypto.KeyPair, mode KeyMode, password []byte) error {
	if err := os.WriteFile(filepath.Join(dir, pubKeyFileName), []byte(kp.PublicKeyHex()+"\n"), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", pubKeyFileName, err)
	}

	switch mode {
	case KeyModeRaw:
		if err := os.WriteFile(filepath.Join(dir, rawKeyFileName), []byte(kp.SeedHex()+"\n"), 0o600); err != nil {
			return fmt.Errorf("config: write %s: %w", rawKeyFileName, err)
		}
		return nil
	case KeyModeEncrypted:
		seed, err := hex.DecodeString(kp.SeedHex())
		if err != nil {
			return fmt.Errorf("config: decode seed: %w", err)
		}
		env, err := crypto.EncryptKey(seed, password, crypto.DefaultScryptN, crypto.DefaultScryptR, crypto.DefaultScryptP)
		if err != nil {
			return fmt.Errorf("config: encrypt key: %w", err)
		}
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return fmt.Errorf("config: marshal envelope: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, encKeyFileName), append(data, '\n'), 0o600); err != nil {
			return fmt.Errorf("config: write %s: %w", encKeyFileName, err)
		}
		return nil
	case KeyModeEnv:
		return nil
	default:
		return fmt.Errorf("config: unknown key mode %q", mode)
	}
}

// LoadKeyMaterial reconstructs the chain's KeyPair according to cfg.KeyMode:
// raw bytes from agent.key, a scrypt-encrypted envelope from agent.key.enc
// (password obtained from provider), or the MEMORY_CHAIN_PRIVATE_KEY
// environment variable.
func LoadKeyMaterial(dir string, cfg Config, provider PasswordProvider) (crypto.KeyPair, error) {
	switch cfg.KeyMode {
	case KeyModeRaw:
		data, err := os.ReadFile(filepath.Join(dir, rawKeyFileName))
		if err != nil {
			return crypto.KeyPair{}, fmt.Errorf("config: read %s: %w", rawKeyFileName, err)
		}
		return keyPairFromHexSeed(trimNewline(data))

	case KeyModeEncrypted:
		if provider == nil {
			return crypto.KeyPair{}, fmt.Errorf("config: key mode encrypted requires a password provider")
		}
		data, err := os.ReadFile(filepath.Join(dir, encKeyFileName))
		if err != nil {
			return crypto.KeyPair{}, fmt.Errorf("config: read %s: %w", encKeyFileName, err)
		}
		var env crypto.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return crypto.KeyPair{}, fmt.Errorf("config: parse envelope: %w", err)
		}
		password, err := provider()
		if err != nil {
			return crypto.KeyPair{}, fmt.Errorf("config: obtain password: %w", err)
		}
		seed, err := crypto.DecryptKey(env, password)
		if err != nil {
			return crypto.KeyPair{}, err
		}
		return crypto.KeyPairFromPrivate(seed)

	case KeyModeEnv:
		hexSeed := os.Getenv(EnvPrivateKey)
		if hexSeed == "" {
			return crypto.KeyPair{}, fmt.Errorf("config: key mode env requires %s to be set", EnvPrivateKey)
		}
		return keyPairFromHexSeed([]byte(hexSeed))

	default:
		return crypto.KeyPair{}, fmt.Errorf("config: unknown key mode %q", cfg.KeyMode)
	}
}

func keyPairFromHexSeed(hexSeed []byte) (crypto.KeyPair, error) {
	seed, err := hex.DecodeString(string(hexSeed))
	if err != nil {
		return crypto.KeyPair{}, fmt.Errorf("config: decode seed hex: %w", err)
	}
	return crypto.KeyPairFromPrivate(seed)
}

func trimNewline(b []byte) []byte {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return b
}
