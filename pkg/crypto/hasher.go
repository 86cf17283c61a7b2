// Package crypto provides the cryptographic primitives the chain log and
// content-addressed store build on: tagged SHA-256 digests, Ed25519
// signatures over a canonical skeleton, and a scrypt+AES-256-GCM envelope
// for encrypting private key material at rest.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashAlgoSHA256 is the algorithm tag prefixed to every content/entry digest.
const HashAlgoSHA256 = "sha256"

// Digest returns the tagged SHA-256 digest of b, e.g. "sha256:<hex>".
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return HashAlgoSHA256 + ":" + hex.EncodeToString(sum[:])
}

// DigestHex returns the bare hex digest without the algorithm tag, the form
// used as a CAS filename.
func DigestHex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StripAlgoTag removes a leading "sha256:" tag if present, returning the bare
// hex digest. Digests without a recognized tag are returned unchanged.
func StripAlgoTag(digest string) string {
	const prefix = HashAlgoSHA256 + ":"
	if len(digest) > len(prefix) && digest[:len(prefix)] == prefix {
		return digest[len(prefix):]
	}
	return digest
}
