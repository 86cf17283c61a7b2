package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// Default scrypt cost parameters. N is the CPU/memory cost (must be a power
// of two), r the block size, p the parallelization factor — conservative
// interactive-login defaults per the scrypt paper's recommendation.
const (
	DefaultScryptN = 1 << 15 // 32768
	DefaultScryptR = 8
	DefaultScryptP = 1

	scryptKeyLen = 32 // AES-256
	saltLen      = 32
	gcmNonceLen  = 12 // 96-bit IV, per spec §6 envelope shape
)

// KDFParams records the scrypt cost parameters and salt used to derive the
// encryption key from a password.
type KDFParams struct {
	N    int
	R    int
	P    int
	Salt []byte
}

// Envelope is the on-disk encrypted-key-at-rest format (spec §6):
//
//	{"version":1,"algorithm":"aes-256-gcm","kdf":"scrypt",
//	 "kdfParams":{"n":..,"r":..,"p":..,"salt":"<hex>"},
//	 "iv":"<hex 24>", "ciphertext":"<hex>", "tag":"<hex 32>"}
type Envelope struct {
	Version    int
	Algorithm  string
	KDF        string
	KDFParams  KDFParams
	IV         []byte
	Ciphertext []byte
	Tag        []byte
}

// ErrDecryptionFailed is the single error kind returned for any decryption
// failure (wrong password or tampering) to avoid padding-oracle-style
// discrimination between the two causes, per spec §4.1.
var ErrDecryptionFailed = errors.New("crypto: key decryption failed")

// EncryptKey seals secret (e.g. a 32-byte Ed25519 seed) under password using
// scrypt for key derivation and AES-256-GCM for the cipher. Grounded on the
// AES-256-GCM construction in
// other_examples/6268662c_RuachTech-rep__gateway-internal-crypto-crypto.go.go
// (EncryptSensitive/DecryptSensitive), with scrypt (golang.org/x/crypto/scrypt,
// a teacher dependency not otherwise directly exercised) replacing that
// example's ephemeral HKDF derivation since this key must survive restarts.
func EncryptKey(secret, password []byte, n, r, p int) (Envelope, error) {
	if n <= 0 {
		n = DefaultScryptN
	}
	if r <= 0 {
		r = DefaultScryptR
	}
	if p <= 0 {
		p = DefaultScryptP
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generate salt: %w", err)
	}

	key, err := scrypt.Key(password, salt, n, r, p, scryptKeyLen)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: scrypt derive: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: new aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return Envelope{}, fmt.Errorf("crypto: new gcm: %w", err)
	}

	iv := make([]byte, gcmNonceLen)
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, fmt.Errorf("crypto: generate iv: %w", err)
	}

	sealed := gcm.Seal(nil, iv, secret, nil)
	// AES-GCM appends the 16-byte auth tag to the ciphertext; split it out
	// so the envelope carries them as distinct fields per spec §6.
	tagStart := len(sealed) - gcm.Overhead()
	ciphertext := sealed[:tagStart]
	tag := sealed[tagStart:]

	return Envelope{
		Version:    1,
		Algorithm:  "aes-256-gcm",
		KDF:        "scrypt",
		KDFParams:  KDFParams{N: n, R: r, P: p, Salt: salt},
		IV:         iv,
		Ciphertext: ciphertext,
		Tag:        tag,
	}, nil
}

// DecryptKey opens an Envelope with password, returning the original secret.
// Any failure — wrong password, corrupted ciphertext, tampered tag — returns
// the single ErrDecryptionFailed kind.
func DecryptKey(env Envelope, password []byte) ([]byte, error) {
	key, err := scrypt.Key(password, env.KDFParams.Salt, env.KDFParams.N, env.KDFParams.R, env.KDFParams.P, scryptKeyLen)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	sealed := append(append([]byte{}, env.Ciphertext...), env.Tag...)
	secret, err := gcm.Open(nil, env.IV, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return secret, nil
}

// envelopeJSON mirrors the on-disk hex-encoded shape; MarshalJSON/UnmarshalJSON
// on Envelope convert to/from this wire form in pkg/config.
type envelopeJSON struct {
	Version   int    `json:"version"`
	Algorithm string `json:"algorithm"`
	KDF       string `json:"kdf"`
	KDFParams struct {
		N    int    `json:"n"`
		R    int    `json:"r"`
		P    int    `json:"p"`
		Salt string `json:"salt"`
	} `json:"kdfParams"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	Tag        string `json:"tag"`
}

// MarshalJSON implements the on-disk envelope encoding (spec §6).
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := envelopeJSON{
		Version:   e.Version,
		Algorithm: e.Algorithm,
		KDF:       e.KDF,
	}
	w.KDFParams.N = e.KDFParams.N
	w.KDFParams.R = e.KDFParams.R
	w.KDFParams.P = e.KDFParams.P
	w.KDFParams.Salt = hex.EncodeToString(e.KDFParams.Salt)
	w.IV = hex.EncodeToString(e.IV)
	w.Ciphertext = hex.EncodeToString(e.Ciphertext)
	w.Tag = hex.EncodeToString(e.Tag)
	return json.Marshal(w)
}

// UnmarshalJSON implements the on-disk envelope decoding (spec §6).
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var w envelopeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	salt, err := hex.DecodeString(w.KDFParams.Salt)
	if err != nil {
		return fmt.Errorf("crypto: decode salt: %w", err)
	}
	iv, err := hex.DecodeString(w.IV)
	if err != nil {
		return fmt.Errorf("crypto: decode iv: %w", err)
	}
	ct, err := hex.DecodeString(w.Ciphertext)
	if err != nil {
		return fmt.Errorf("crypto: decode ciphertext: %w", err)
	}
	tag, err := hex.DecodeString(w.Tag)
	if err != nil {
		return fmt.Errorf("crypto: decode tag: %w", err)
	}

	e.Version = w.Version
	e.Algorithm = w.Algorithm
	e.KDF = w.KDF
	e.KDFParams = KDFParams{N: w.KDFParams.N, R: w.KDFParams.R, P: w.KDFParams.P, Salt: salt}
	e.IV = iv
	e.Ciphertext = ct
	e.Tag = tag
	return nil
}
