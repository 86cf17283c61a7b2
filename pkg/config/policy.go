package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/maintenance"
)

const policyFileName = "maintenance.yaml"

// Policy is the optional maintenance.yaml document (spec's Ambient Stack
// expansion), mirroring the teacher's RegionalProfile YAML shape
// (pkg/config/profile_loader.go) rather than a hand-rolled parser.
type Policy struct {
	HotDays                  int      `yaml:"hot_days"`
	WarmDays                 int      `yaml:"warm_days"`
	FrequencyResistThreshold int64    `yaml:"frequency_resist_threshold"`
	GCThreshold              float64  `yaml:"gc_threshold"`
	MaxAgeDays               int      `yaml:"max_age_days"`
	ProtectedTiers           []string `yaml:"protected_tiers"`
}

// DefaultPolicy mirrors the defaults documented in spec §6.
func DefaultPolicy() Policy {
	decay := maintenance.DefaultDecayThresholds()
	gc := maintenance.DefaultGCConfig()
	return Policy{
		HotDays:                  decay.HotDays,
		WarmDays:                 decay.WarmDays,
		FrequencyResistThreshold: decay.FrequencyResistThreshold,
		GCThreshold:              gc.Threshold,
		MaxAgeDays:               gc.MaxAgeDays,
		ProtectedTiers:           gc.ProtectedTiers,
	}
}

// PolicyPath returns the maintenance.yaml path under dir.
func PolicyPath(dir string) string {
	return filepath.Join(dir, policyFileName)
}

// LoadPolicy reads maintenance.yaml from dir, falling back to
// DefaultPolicy() when the file is absent — the policy file is optional
// (spec's Ambient Stack expansion).
func LoadPolicy(dir string) (Policy, error) {
	data, err := os.ReadFile(PolicyPath(dir))
	if os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return Policy{}, fmt.Errorf("config: read %s: %w", policyFileName, err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("config: parse %s: %w", policyFileName, err)
	}
	return policy, nil
}

// SavePolicy writes policy to dir/maintenance.yaml.
func SavePolicy(dir string, policy Policy) error {
	data, err := yaml.Marshal(policy)
	if err != nil {
		return fmt.Errorf("config: marshal %s: %w", policyFileName, err)
	}
	if err := os.WriteFile(PolicyPath(dir), data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", policyFileName, err)
	}
	return nil
}

// DecayThresholds projects the policy onto maintenance.DecayThresholds.
func (p Policy) DecayThresholds() maintenance.DecayThresholds {
	return maintenance.DecayThresholds{
		HotDays:                  p.HotDays,
		WarmDays:                 p.WarmDays,
		FrequencyResistThreshold: p.FrequencyResistThreshold,
	}
}

// GCConfig projects the policy onto maintenance.GCConfig.
func (p Policy) GCConfig() maintenance.GCConfig {
	return maintenance.GCConfig{
		Threshold:      p.GCThreshold,
		MaxAgeDays:     p.MaxAgeDays,
		ProtectedTiers: p.ProtectedTiers,
	}
}
