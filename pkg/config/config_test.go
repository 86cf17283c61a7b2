package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		Version:       "1",
		AgentName:     "alice",
		PublicKey:     "abc123",
		KeyMode:       KeyModeRaw,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
		SchemaVersion: CurrentSchemaVersion,
	}
	require.NoError(t, Save(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.AgentName, loaded.AgentName)
	assert.Equal(t, cfg.PublicKey, loaded.PublicKey)
	assert.Equal(t, cfg.KeyMode, loaded.KeyMode)
	assert.True(t, cfg.CreatedAt.Equal(loaded.CreatedAt))
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestResolveDataDirPrefersExplicit(t *testing.T) {
	assert.Equal(t, "/explicit", ResolveDataDir("/explicit"))
}

func TestResolveDataDirFallsBackToEnv(t *testing.T) {
	t.Setenv(EnvDataDir, "/from-env")
	assert.Equal(t, "/from-env", ResolveDataDir(""))
}

func TestResolveDataDirDefault(t *testing.T) {
	t.Setenv(EnvDataDir, "")
	assert.Equal(t, "./memchain-data", ResolveDataDir(""))
}

func TestNeedsMigrationOlderVersion(t *testing.T) {
	assert.True(t, NeedsMigration("1.0.0"))
	assert.False(t, NeedsMigration(CurrentSchemaVersion))
	assert.True(t, NeedsMigration("not-a-semver"))
}

func TestWriteAndLoadKeyMaterialRaw(t *testing.T) {
	dir := t.TempDir()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)

	require.NoError(t, WriteKeyMaterial(dir, kp, KeyModeRaw, nil))

	loaded, err := LoadKeyMaterial(dir, Config{KeyMode: KeyModeRaw}, nil)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyHex(), loaded.PublicKeyHex())
}

func TestWriteAndLoadKeyMaterialEncrypted(t *testing.T) {
	dir := t.TempDir()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	password := []byte("correct-horse-battery-staple")

	require.NoError(t, WriteKeyMaterial(dir, kp, KeyModeEncrypted, password))

	provider := func() ([]byte, error) { return password, nil }
	loaded, err := LoadKeyMaterial(dir, Config{KeyMode: KeyModeEncrypted}, provider)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyHex(), loaded.PublicKeyHex())
}

func TestLoadKeyMaterialEncryptedWrongPasswordFails(t *testing.T) {
	dir := t.TempDir()
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	require.NoError(t, WriteKeyMaterial(dir, kp, KeyModeEncrypted, []byte("right")))

	provider := func() ([]byte, error) { return []byte("wrong"), nil }
	_, err = LoadKeyMaterial(dir, Config{KeyMode: KeyModeEncrypted}, provider)
	assert.ErrorIs(t, err, crypto.ErrDecryptionFailed)
}

func TestLoadKeyMaterialEnvMode(t *testing.T) {
	kp, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	t.Setenv(EnvPrivateKey, kp.SeedHex())

	loaded, err := LoadKeyMaterial(t.TempDir(), Config{KeyMode: KeyModeEnv}, nil)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKeyHex(), loaded.PublicKeyHex())
}

func TestLoadKeyMaterialEnvModeMissingVarFails(t *testing.T) {
	t.Setenv(EnvPrivateKey, "")
	_, err := LoadKeyMaterial(t.TempDir(), Config{KeyMode: KeyModeEnv}, nil)
	assert.Error(t, err)
}
