package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigestRoundTrip(t *testing.T) {
	d1 := Digest([]byte("hello"))
	d2 := Digest([]byte("hello"))
	assert.Equal(t, d1, d2)
	assert.Contains(t, d1, "sha256:")

	hex := DigestHex([]byte("hello"))
	assert.Equal(t, StripAlgoTag(d1), hex)
}

func TestSkeletonBytesFieldOrder(t *testing.T) {
	prev := "sha256:" + DigestHex([]byte("genesis"))
	sk := Skeleton{
		Seq:         1,
		Timestamp:   "2026-07-29T10:00:00.000Z",
		Type:        "memory",
		Tier:        "relationship",
		ContentHash: "sha256:" + DigestHex([]byte("content")),
		PrevHash:    &prev,
		Metadata:    map[string]any{"b": 1, "a": "x"},
	}

	b, err := sk.Bytes()
	require.NoError(t, err)

	s := string(b)
	// Fixed field order per spec §4.1, not JCS lexicographic order.
	assert.True(t, indexOf(s, `"seq":1`) < indexOf(s, `"ts":`))
	assert.True(t, indexOf(s, `"ts":`) < indexOf(s, `"type":`))
	assert.True(t, indexOf(s, `"type":`) < indexOf(s, `"tier":`))
	assert.True(t, indexOf(s, `"tier":`) < indexOf(s, `"content_hash":`))
	assert.True(t, indexOf(s, `"content_hash":`) < indexOf(s, `"prev_hash":`))
	assert.True(t, indexOf(s, `"prev_hash":`) < indexOf(s, `"metadata":`))
	// Nested metadata keys ARE sorted lexicographically by jcs.
	assert.True(t, indexOf(s, `"a":"x"`) < indexOf(s, `"b":1`))
}

func TestSkeletonNilMetadataSerializesNull(t *testing.T) {
	sk := Skeleton{Seq: 0, Timestamp: "2026-07-29T10:00:00.000Z", Type: "identity", Tier: "committed", ContentHash: "sha256:" + DigestHex([]byte("x")), PrevHash: nil}
	b, err := sk.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"prev_hash":null`)
	assert.Contains(t, string(b), `"metadata":null`)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	require.NoError(t, err)

	msg := []byte("sign me")
	sig := kp.Sign(msg)
	assert.Contains(t, sig, "ed25519:")

	ok, err := Verify(kp.PublicKeyHex(), sig, msg)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify(kp.PublicKeyHex(), sig, []byte("tampered"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyPairFromPrivateRoundTrip(t *testing.T) {
	kp1, err := GenerateKeyPair()
	require.NoError(t, err)

	seed, err := hex.DecodeString(kp1.SeedHex())
	require.NoError(t, err)

	kp2, err := KeyPairFromPrivate(seed)
	require.NoError(t, err)
	assert.Equal(t, kp1.PublicKeyHex(), kp2.PublicKeyHex())
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	env, err := EncryptKey(secret, []byte("correct horse"), 1<<12, 8, 1)
	require.NoError(t, err)

	got, err := DecryptKey(env, []byte("correct horse"))
	require.NoError(t, err)
	assert.Equal(t, secret, got)

	_, err = DecryptKey(env, []byte("wrong password"))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	env, err := EncryptKey(secret, []byte("pw"), 1<<12, 8, 1)
	require.NoError(t, err)

	raw, err := env.MarshalJSON()
	require.NoError(t, err)

	var env2 Envelope
	require.NoError(t, env2.UnmarshalJSON(raw))

	got, err := DecryptKey(env2, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
