// Package chain implements the signed, hash-linked append-only log: entry
// encoding, the genesis/append/verify/redact protocol, and export/import.
package chain

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/cas"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

const chainFileName = "chain.jsonl"

// DefaultLockTimeout bounds how long Append waits to acquire the chain lock.
const DefaultLockTimeout = 10 * time.Second

// Chain is a handle on an on-disk chain directory.
type Chain struct {
	dir     string
	keyPair crypto.KeyPair
	cas     *cas.Store
}

// Open returns a Chain handle rooted at dir, using keyPair to sign new
// entries. It does not require the chain to already exist; callers use
// Init to create one.
func Open(dir string, keyPair crypto.KeyPair) (*Chain, error) {
	store, err := cas.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Chain{dir: dir, keyPair: keyPair, cas: store}, nil
}

func (c *Chain) path() string {
	return filepath.Join(c.dir, chainFileName)
}

// Init writes the genesis entry (spec §4.3): type=identity, tier=committed,
// prev_hash=null, signed over the skeleton. It fails if the chain file
// already exists and is non-empty.
func (c *Chain) Init(identityBlob []byte) (Entry, error) {
	if info, err := os.Stat(c.path()); err == nil && info.Size() > 0 {
		return Entry{}, ErrAlreadyInitialized
	}

	if len(identityBlob) > cas.MaxBlobSize {
		return Entry{}, ErrBlobTooLarge
	}

	contentHash, err := c.cas.Store(identityBlob)
	if err != nil {
		return Entry{}, fmt.Errorf("chain: store genesis blob: %w", err)
	}

	entry, err := c.buildAndSign(0, TypeIdentity, TierCommitted, contentHash, nil, nil)
	if err != nil {
		return Entry{}, err
	}

	if err := c.appendLine(entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Append runs the full add-entry protocol (spec §4.3 steps 1-6): lock,
// read tail, compute prev_hash, store content, sign, append, fsync, unlock.
func (c *Chain) Append(entryType EntryType, tier Tier, content []byte, metadata map[string]any) (Entry, error) {
	if err := validateType(entryType); err != nil {
		return Entry{}, err
	}
	if err := validateTier(tier); err != nil {
		return Entry{}, err
	}
	if len(content) > cas.MaxBlobSize {
		return Entry{}, ErrBlobTooLarge
	}
	if err := validateMetadataShape(metadata); err != nil {
		return Entry{}, err
	}

	lock := newFileLock(c.dir)
	if err := lock.lockExclusive(DefaultLockTimeout); err != nil {
		return Entry{}, err
	}
	defer lock.unlock()

	tail, err := c.readTailLocked()
	if err != nil {
		return Entry{}, err
	}

	var seq uint64
	var prevHash *string
	if tail != nil {
		seq = tail.Seq + 1
		h, err := tail.CanonicalHash()
		if err != nil {
			return Entry{}, err
		}
		prevHash = &h
	}

	contentHash, err := c.cas.Store(content)
	if err != nil {
		return Entry{}, fmt.Errorf("chain: store content blob: %w", err)
	}

	entry, err := c.buildAndSign(seq, entryType, tier, contentHash, prevHash, metadata)
	if err != nil {
		return Entry{}, err
	}

	if err := c.appendLineLocked(entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// Redact appends a type=redaction entry carrying metadata.target_seq, and
// optionally deletes the target's blob from the CAS. Redaction is only
// permitted when the target entry's tier is not committed (spec §4.3).
func (c *Chain) Redact(targetSeq uint64, reason string, deleteBlob bool) (Entry, error) {
	target, ok, err := c.GetBySeq(targetSeq)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrNotFound
	}
	if target.Tier == TierCommitted {
		return Entry{}, ErrRedactCommitted
	}

	metadata := map[string]any{"target_seq": float64(targetSeq), "reason": reason}
	entry, err := c.Append(TypeRedaction, target.Tier, []byte(reason), metadata)
	if err != nil {
		return Entry{}, err
	}

	if deleteBlob {
		if err := c.cas.Delete(target.ContentHash); err != nil {
			return entry, fmt.Errorf("chain: delete redacted blob: %w", err)
		}
	}
	return entry, nil
}

// ReadAll reads every entry in the chain, in append order.
func (c *Chain) ReadAll() ([]Entry, error) {
	f, err := os.Open(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chain: open chain file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), cas.MaxBlobSize*4)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		e, err := ParseEntry(line)
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("chain: scan chain file: %w", err)
	}
	return entries, nil
}

// GetBySeq returns the entry at seq, if present.
func (c *Chain) GetBySeq(seq uint64) (Entry, bool, error) {
	entries, err := c.ReadAll()
	if err != nil {
		return Entry{}, false, err
	}
	if seq >= uint64(len(entries)) {
		return Entry{}, false, nil
	}
	e := entries[seq]
	if e.Seq != seq {
		// Chain is not densely indexed by position (shouldn't happen under
		// the append protocol, but fall back to a scan for safety).
		for _, e := range entries {
			if e.Seq == seq {
				return e, true, nil
			}
		}
		return Entry{}, false, nil
	}
	return e, true, nil
}

// CAS exposes the underlying content store for callers (index rebuild,
// retrieval) that need to load entry content.
func (c *Chain) CAS() *cas.Store {
	return c.cas
}

// VerifyResult is the outcome of VerifyChain.
type VerifyResult struct {
	Valid          bool
	EntriesChecked int
	Errors         []VerificationError
}

// VerifyOptions configures VerifyChain.
type VerifyOptions struct {
	CheckContent bool
}

// VerifyChain iterates entries in order, checking sequence contiguity,
// prev_hash linkage, signature validity, and (optionally) content integrity
// (spec §4.3). It never aborts early — findings accumulate into the result,
// including a malformed_entry finding for a line that fails to parse as
// JSON, which it skips rather than treating as fatal; the entries that
// follow surface as sequence gaps against the skipped seq, as expected.
func (c *Chain) VerifyChain(opts VerifyOptions) (VerifyResult, error) {
	lines, err := c.scanLinesTolerant()
	if err != nil {
		return VerifyResult{}, err
	}

	res := VerifyResult{Valid: true}
	var prevHash *string
	for i, ln := range lines {
		if ln.malformed {
			res.Valid = false
			res.Errors = append(res.Errors, VerificationError{
				Seq: uint64(i), Kind: KindMalformedEntry,
				Message: fmt.Sprintf("entry at position %d could not be parsed as JSON", i),
			})
			prevHash = nil
			continue
		}
		e := ln.entry
		res.EntriesChecked++

		if uint64(i) != e.Seq {
			res.Valid = false
			res.Errors = append(res.Errors, VerificationError{
				Seq: e.Seq, Kind: KindSequenceGap,
				Message: fmt.Sprintf("expected seq %d, got %d", i, e.Seq),
			})
		}

		if i == 0 {
			if e.PrevHash != nil {
				res.Valid = false
				res.Errors = append(res.Errors, VerificationError{
					Seq: e.Seq, Kind: KindPrevHashMismatch,
					Message: "genesis entry must have prev_hash=null",
				})
			}
		} else {
			if prevHash == nil || e.PrevHash == nil || *e.PrevHash != *prevHash {
				res.Valid = false
				res.Errors = append(res.Errors, VerificationError{
					Seq: e.Seq, Kind: KindPrevHashMismatch,
					Message: "prev_hash does not match canonical hash of previous entry",
				})
			}
		}

		ok, err := c.verifySignature(e)
		if err != nil || !ok {
			res.Valid = false
			res.Errors = append(res.Errors, VerificationError{
				Seq: e.Seq, Kind: KindSignatureInvalid,
				Message: "signature does not verify under chain public key",
			})
		}

		if opts.CheckContent && e.Type != TypeRedaction {
			blob, present, err := c.cas.Get(e.ContentHash)
			if err != nil {
				return res, fmt.Errorf("chain: read blob for seq %d: %w", e.Seq, err)
			}
			if present {
				if crypto.Digest(blob) != e.ContentHash {
					res.Valid = false
					res.Errors = append(res.Errors, VerificationError{
						Seq: e.Seq, Kind: KindContentTampered,
						Message: "blob content does not match content_hash",
					})
				}
			}
		}

		h, err := e.CanonicalHash()
		if err != nil {
			return res, err
		}
		prevHash = &h
	}
	return res, nil
}

// scannedLine is one physical line of chain.jsonl: either a successfully
// decoded entry, or a marker that decoding failed.
type scannedLine struct {
	entry     Entry
	malformed bool
}

// scanLinesTolerant reads every non-blank line of chain.jsonl, decoding
// each independently so that one malformed line does not stop the scan;
// only I/O failure is fatal. Used by VerifyChain, which must accumulate a
// malformed_entry finding instead of aborting (spec §7).
func (c *Chain) scanLinesTolerant() ([]scannedLine, error) {
	f, err := os.Open(c.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("chain: open chain file: %w", err)
	}
	defer f.Close()

	var lines []scannedLine
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), cas.MaxBlobSize*4)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		e, err := ParseEntry(raw)
		if err != nil {
			lines = append(lines, scannedLine{malformed: true})
			continue
		}
		lines = append(lines, scannedLine{entry: e})
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("chain: scan chain file: %w", err)
	}
	return lines, nil
}

func (c *Chain) verifySignature(e Entry) (bool, error) {
	b, err := e.Skeleton().Bytes()
	if err != nil {
		return false, err
	}
	return crypto.Verify(c.keyPair.PublicKeyHex(), e.Signature, b)
}

func (c *Chain) buildAndSign(seq uint64, t EntryType, tier Tier, contentHash string, prevHash *string, metadata map[string]any) (Entry, error) {
	sk := crypto.Skeleton{
		Seq:         seq,
		Timestamp:   nowISO(),
		Type:        string(t),
		Tier:        string(tier),
		ContentHash: contentHash,
		PrevHash:    prevHash,
		Metadata:    metadata,
	}
	b, err := sk.Bytes()
	if err != nil {
		return Entry{}, fmt.Errorf("chain: render skeleton: %w", err)
	}
	sig := c.keyPair.Sign(b)

	return Entry{
		Seq:         seq,
		Timestamp:   sk.Timestamp,
		Type:        t,
		Tier:        tier,
		ContentHash: contentHash,
		PrevHash:    prevHash,
		Signature:   sig,
		Metadata:    metadata,
	}, nil
}

// readTailLocked reads the last entry of the chain file. Caller must hold
// the chain lock.
func (c *Chain) readTailLocked() (*Entry, error) {
	entries, err := c.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	tail := entries[len(entries)-1]
	return &tail, nil
}

// appendLine appends entry without acquiring the lock (used only by Init,
// which the caller is responsible for serializing externally, e.g. by
// running init against a fresh empty directory).
func (c *Chain) appendLine(entry Entry) error {
	return c.writeLine(entry)
}

func (c *Chain) appendLineLocked(entry Entry) error {
	return c.writeLine(entry)
}

func (c *Chain) writeLine(entry Entry) error {
	line, err := entry.MarshalLine()
	if err != nil {
		return err
	}

	f, err := os.OpenFile(c.path(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("chain: open chain file for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("chain: write entry %d: %w", entry.Seq, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("chain: fsync chain file: %w", err)
	}
	return nil
}

func validateType(t EntryType) error {
	switch t {
	case TypeMemory, TypeIdentity, TypeDecision, TypeRedaction:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidType, t)
	}
}

func validateTier(t Tier) error {
	switch t {
	case TierCommitted, TierRelationship, TierEphemeral:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTier, t)
	}
}
