package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// SigAlgoEd25519 is the algorithm tag prefixed to every signature.
const SigAlgoEd25519 = "ed25519"

// KeyPair holds an Ed25519 key pair.
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateKeyPair creates a fresh Ed25519 key pair, grounded on
// core/pkg/crypto/signer.go's NewEd25519Signer.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	return KeyPair{Public: pub, Private: priv}, nil
}

// KeyPairFromPrivate reconstructs a KeyPair from a 32-byte Ed25519 seed (the
// form persisted to agent.key).
func KeyPairFromPrivate(seed []byte) (KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return KeyPair{}, fmt.Errorf("crypto: private key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return KeyPair{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
}

// PublicKeyHex returns the hex-encoded public key (the form persisted to
// agent.pub, one line).
func (kp KeyPair) PublicKeyHex() string {
	return hex.EncodeToString(kp.Public)
}

// SeedHex returns the hex-encoded 32-byte private seed (the form persisted
// to agent.key when key_mode=raw).
func (kp KeyPair) SeedHex() string {
	return hex.EncodeToString(kp.Private.Seed())
}

// Sign signs message with the private key and returns a tagged signature,
// e.g. "ed25519:<hex>".
func (kp KeyPair) Sign(message []byte) string {
	sig := ed25519.Sign(kp.Private, message)
	return SigAlgoEd25519 + ":" + hex.EncodeToString(sig)
}

// Verify checks a tagged signature against message under pubKeyHex.
func Verify(pubKeyHex string, taggedSignature string, message []byte) (bool, error) {
	pub, err := hex.DecodeString(pubKeyHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid public key hex: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("crypto: invalid public key size %d", len(pub))
	}

	sigHex := taggedSignature
	const prefix = SigAlgoEd25519 + ":"
	if len(sigHex) > len(prefix) && sigHex[:len(prefix)] == prefix {
		sigHex = sigHex[len(prefix):]
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}

	return ed25519.Verify(ed25519.PublicKey(pub), message, sig), nil
}
