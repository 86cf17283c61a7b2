package crypto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/gowebpki/jcs"
)

// Skeleton is the exact byte sequence an Ed25519 signature is computed over
// (spec §4.1). Field order is fixed — seq, ts, type, tier, content_hash,
// prev_hash, metadata — and does NOT follow JSON-Canonicalization-Scheme
// lexicographic key order at the top level; only nested metadata keys are
// JCS-sorted. Implementers MUST reproduce this exact byte sequence.
type Skeleton struct {
	Seq         uint64
	Timestamp   string // ISO-8601, millisecond precision, UTC, e.g. "2026-07-29T10:00:00.000Z"
	Type        string
	Tier        string
	ContentHash string
	PrevHash    *string // nil only at genesis (seq 0)
	Metadata    map[string]any
}

// Bytes renders the skeleton as the canonical byte sequence used for both
// signing (skeleton alone) and the next entry's prev_hash (skeleton plus
// signature, see EntryHashBytes).
func (s Skeleton) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	if err := writeField(&buf, "seq", true, jsonNumber(s.Seq)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "ts", false, jsonString(s.Timestamp)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "type", false, jsonString(s.Type)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "tier", false, jsonString(s.Tier)); err != nil {
		return nil, err
	}
	if err := writeField(&buf, "content_hash", false, jsonString(s.ContentHash)); err != nil {
		return nil, err
	}

	prevHashBytes := []byte("null")
	if s.PrevHash != nil {
		var err error
		prevHashBytes, err = jsonString(*s.PrevHash)
		if err != nil {
			return nil, err
		}
	}
	if err := writeField(&buf, "prev_hash", false, prevHashBytes); err != nil {
		return nil, err
	}

	metaBytes, err := canonicalMetadata(s.Metadata)
	if err != nil {
		return nil, err
	}
	if err := writeField(&buf, "metadata", false, metaBytes); err != nil {
		return nil, err
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EntryHashBytes renders the skeleton with a trailing "signature" field
// appended — the digest of this byte sequence is the canonical entry hash
// used as the next entry's prev_hash (spec §4.1).
func EntryHashBytes(s Skeleton, signature string) ([]byte, error) {
	skelBytes, err := s.Bytes()
	if err != nil {
		return nil, err
	}
	sigBytes, err := jsonString(signature)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	// Replace the closing '}' with ',"signature":<sig>}'.
	buf.Write(skelBytes[:len(skelBytes)-1])
	buf.WriteString(`,"signature":`)
	buf.Write(sigBytes)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// canonicalMetadata serializes a metadata map using the JSON Canonicalization
// Scheme (RFC 8785) via github.com/gowebpki/jcs, so nested keys are sorted
// lexicographically and the result is byte-for-byte reproducible across
// implementations. A nil/empty map serializes as the literal null, never as
// an omitted field (spec §4.1).
func canonicalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("crypto: marshal metadata: %w", err)
	}
	canon, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("crypto: jcs-canonicalize metadata: %w", err)
	}
	return canon, nil
}

func writeField(buf *bytes.Buffer, name string, first bool, value []byte) error {
	if !first {
		buf.WriteByte(',')
	}
	keyBytes, err := jsonString(name)
	if err != nil {
		return err
	}
	buf.Write(keyBytes)
	buf.WriteByte(':')
	buf.Write(value)
	return nil
}

// jsonString encodes a Go string as a JSON string with HTML escaping
// disabled, matching RFC 8785 string encoding.
func jsonString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("crypto: encode string: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// jsonNumber encodes a uint64 as a bare JSON number.
func jsonNumber(n uint64) []byte {
	return []byte(fmt.Sprintf("%d", n))
}

// sortedKeys is exposed for tests that need to assert metadata key ordering
// independent of jcs's internal sort implementation.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
