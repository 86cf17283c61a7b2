// Package cas implements the content-addressed blob store: arbitrary byte
// blobs keyed by their tagged SHA-256 digest, with write-temp-then-rename
// atomicity and no locking (filenames are content-derived, so store/delete
// on a single digest are naturally idempotent).
package cas

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

// MaxBlobSize bounds a single stored blob, per spec.
const MaxBlobSize = 1 << 20 // 1 MiB

// ErrBlobTooLarge is returned by Store when the input exceeds MaxBlobSize.
var ErrBlobTooLarge = errors.New("cas: blob exceeds maximum size")

// ErrTampered is returned by GetVerified when the recomputed digest does not
// match the requested key.
var ErrTampered = errors.New("cas: content integrity check failed")

const contentDirName = "content"

// Store is a flat-file content-addressed blob store rooted at a chain
// directory's content/ subtree.
type Store struct {
	root string
}

// Open returns a Store rooted at filepath.Join(chainDir, "content"), creating
// the directory if it does not already exist.
func Open(chainDir string) (*Store, error) {
	root := filepath.Join(chainDir, contentDirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cas: create content dir: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) pathFor(digestHex string) string {
	return filepath.Join(s.root, digestHex)
}

// Store writes blob if not already present, returning its tagged digest.
// Idempotent: storing the same bytes twice leaves exactly one file on disk.
func (s *Store) Store(blob []byte) (string, error) {
	if len(blob) > MaxBlobSize {
		return "", ErrBlobTooLarge
	}

	digestHex := crypto.DigestHex(blob)
	digest := crypto.HashAlgoSHA256 + ":" + digestHex
	path := s.pathFor(digestHex)

	if _, err := os.Stat(path); err == nil {
		return digest, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("cas: stat %s: %w", path, err)
	}

	tmpPath := filepath.Join(s.root, ".tmp-"+uuid.NewString())
	if err := os.WriteFile(tmpPath, blob, 0o644); err != nil {
		return "", fmt.Errorf("cas: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("cas: rename temp file into place: %w", err)
	}
	return digest, nil
}

// Get returns the blob bytes for digest, or ok=false if absent.
func (s *Store) Get(digest string) (blob []byte, ok bool, err error) {
	path := s.pathFor(crypto.StripAlgoTag(digest))
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cas: read %s: %w", path, err)
	}
	return b, true, nil
}

// GetVerified returns the blob bytes for digest, recomputing the digest and
// failing with ErrTampered if it does not match the requested key.
func (s *Store) GetVerified(digest string) (blob []byte, ok bool, err error) {
	b, ok, err := s.Get(digest)
	if err != nil || !ok {
		return nil, ok, err
	}
	got := crypto.Digest(b)
	want := digest
	if crypto.StripAlgoTag(want) == want {
		want = crypto.HashAlgoSHA256 + ":" + want
	}
	if got != want {
		return nil, true, ErrTampered
	}
	return b, true, nil
}

// Exists reports whether digest is present in the store.
func (s *Store) Exists(digest string) (bool, error) {
	path := s.pathFor(crypto.StripAlgoTag(digest))
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("cas: stat %s: %w", path, err)
}

// Delete removes the blob for digest, if present. Used for redaction.
// Deleting an absent blob is not an error.
func (s *Store) Delete(digest string) error {
	path := s.pathFor(crypto.StripAlgoTag(digest))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cas: delete %s: %w", path, err)
	}
	return nil
}

// Verify recomputes the digest of the blob stored under digest and reports
// whether it matches, without returning the blob bytes.
func (s *Store) Verify(digest string) (ok bool, present bool, err error) {
	_, present, err = s.GetVerified(digest)
	if err != nil {
		if errors.Is(err, ErrTampered) {
			return false, true, nil
		}
		return false, present, err
	}
	return present, present, nil
}

// Stats summarizes the store's contents.
type Stats struct {
	BlobCount int
	TotalSize int64
}

// Stats walks the content directory and reports blob count and total size.
// Temp files (write-in-progress) are excluded.
func (s *Store) Stats() (Stats, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return Stats{}, fmt.Errorf("cas: read content dir: %w", err)
	}
	var st Stats
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != "" {
			continue
		}
		if len(e.Name()) >= 4 && e.Name()[:4] == ".tmp" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return Stats{}, fmt.Errorf("cas: stat entry %s: %w", e.Name(), err)
		}
		st.BlobCount++
		st.TotalSize += info.Size()
	}
	return st, nil
}

// Enumerate returns the digest (tagged) of every blob currently in the store.
func (s *Store) Enumerate() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("cas: read content dir: %w", err)
	}
	digests := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || (len(e.Name()) >= 4 && e.Name()[:4] == ".tmp") {
			continue
		}
		digests = append(digests, crypto.HashAlgoSHA256+":"+e.Name())
	}
	return digests, nil
}
