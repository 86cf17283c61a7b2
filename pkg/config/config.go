// Package config loads and saves the per-chain config.json record, the
// key-material files it references, and the optional maintenance.yaml
// policy file, following the teacher's environment-driven Load() pattern
// (pkg/config/config.go) generalized to a file-backed record.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
)

// KeyMode is how the chain's private signing key is stored.
type KeyMode string

const (
	KeyModeRaw       KeyMode = "raw"
	KeyModeEncrypted KeyMode = "encrypted"
	KeyModeEnv       KeyMode = "env"
)

// CurrentSchemaVersion is the schema_version written by new chains. It is a
// semver string rather than an integer so it can be compared with
// Masterminds/semver/v3's LessThan (see NeedsMigration).
const CurrentSchemaVersion = "1.1.0"

// EnvPrivateKey and EnvDataDir are the environment variables recognized for
// key material and the default data directory (spec §6).
const (
	EnvPrivateKey = "MEMORY_CHAIN_PRIVATE_KEY"
	EnvDataDir    = "MEMORY_CHAIN_DIR"
)

const configFileName = "config.json"

// Config is the per-chain persisted record (spec §3, §6 on-disk layout),
// written bit-exact as config.json.
type Config struct {
	Version       string    `json:"version"`
	AgentName     string    `json:"agent_name"`
	PublicKey     string    `json:"public_key"`
	KeyMode       KeyMode   `json:"key_mode"`
	CreatedAt     time.Time `json:"created_at"`
	SchemaVersion string    `json:"schema_version"`
}

// Path returns the config.json path under dir.
func Path(dir string) string {
	return filepath.Join(dir, configFileName)
}

// Load reads and parses config.json from dir.
func Load(dir string) (Config, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", Path(dir), err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", Path(dir), err)
	}
	return cfg, nil
}

// Save writes cfg to dir/config.json, creating dir if needed.
func Save(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("config: create dir %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(Path(dir), data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", Path(dir), err)
	}
	return nil
}

// ResolveDataDir returns dir if non-empty, else the MEMORY_CHAIN_DIR
// environment variable, else "./memchain-data".
func ResolveDataDir(dir string) string {
	if dir != "" {
		return dir
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return env
	}
	return "./memchain-data"
}

// NeedsMigration reports whether a chain's persisted schema_version is
// older than CurrentSchemaVersion. An unparseable version is treated as
// needing migration. pkg/index does not call it: its column backfill
// inspects the table's columns directly.
func NeedsMigration(schemaVersion string) bool {
	current, err := semver.NewVersion(CurrentSchemaVersion)
	if err != nil {
		return false
	}
	existing, err := semver.NewVersion(schemaVersion)
	if err != nil {
		return true
	}
	return existing.LessThan(current)
}
