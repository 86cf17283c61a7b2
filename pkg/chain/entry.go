package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

// EntryType enumerates the chain entry kinds (spec §3).
type EntryType string

const (
	TypeMemory    EntryType = "memory"
	TypeIdentity  EntryType = "identity"
	TypeDecision  EntryType = "decision"
	TypeRedaction EntryType = "redaction"
)

// Tier enumerates retention tiers.
type Tier string

const (
	TierCommitted    Tier = "committed"
	TierRelationship Tier = "relationship"
	TierEphemeral    Tier = "ephemeral"
)

// MaxMetadataDepth bounds nested metadata object/array depth.
const MaxMetadataDepth = 5

// Entry is one line of the append-only chain log.
type Entry struct {
	Seq         uint64         `json:"seq"`
	Timestamp   string         `json:"ts"`
	Type        EntryType      `json:"type"`
	Tier        Tier           `json:"tier"`
	ContentHash string         `json:"content_hash"`
	PrevHash    *string        `json:"prev_hash"`
	Signature   string         `json:"signature"`
	Metadata    map[string]any `json:"metadata"`
}

// Skeleton returns the canonical skeleton this entry's signature is computed
// over (the entry minus its own signature).
func (e Entry) Skeleton() crypto.Skeleton {
	return crypto.Skeleton{
		Seq:         e.Seq,
		Timestamp:   e.Timestamp,
		Type:        string(e.Type),
		Tier:        string(e.Tier),
		ContentHash: e.ContentHash,
		PrevHash:    e.PrevHash,
		Metadata:    e.Metadata,
	}
}

// CanonicalHash returns the canonical digest of this entry including its
// signature — the value the next entry's prev_hash must equal.
func (e Entry) CanonicalHash() (string, error) {
	b, err := crypto.EntryHashBytes(e.Skeleton(), e.Signature)
	if err != nil {
		return "", fmt.Errorf("chain: compute entry hash for seq %d: %w", e.Seq, err)
	}
	return crypto.Digest(b), nil
}

// MarshalLine renders e as one canonical, newline-terminated chain-file line.
// Field order follows the wire layout in spec §6, which matches json
// struct-tag order here so encoding/json's default marshaling is already
// correct; a dedicated encoder is used only for the signed skeleton.
func (e Entry) MarshalLine() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("chain: marshal entry %d: %w", e.Seq, err)
	}
	return append(b, '\n'), nil
}

// ParseEntry decodes one chain-file line (without its trailing newline).
func ParseEntry(line []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(line, &e); err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	return e, nil
}

// nowISO returns the current UTC time at millisecond precision, ISO-8601.
func nowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

