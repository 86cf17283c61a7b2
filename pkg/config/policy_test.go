package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPolicyMissingFileReturnsDefaults(t *testing.T) {
	policy, err := LoadPolicy(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), policy)
}

func TestSaveLoadPolicyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	policy := Policy{
		HotDays:                  3,
		WarmDays:                 14,
		FrequencyResistThreshold: 5,
		GCThreshold:              0.4,
		MaxAgeDays:               60,
		ProtectedTiers:           []string{"committed", "relationship"},
	}
	require.NoError(t, SavePolicy(dir, policy))

	loaded, err := LoadPolicy(dir)
	require.NoError(t, err)
	assert.Equal(t, policy, loaded)
}

func TestPolicyProjections(t *testing.T) {
	policy := DefaultPolicy()
	decay := policy.DecayThresholds()
	gc := policy.GCConfig()
	assert.Equal(t, policy.HotDays, decay.HotDays)
	assert.Equal(t, policy.GCThreshold, gc.Threshold)
	assert.Equal(t, policy.ProtectedTiers, gc.ProtectedTiers)
}
