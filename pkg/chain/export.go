package chain

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/cas"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
)

// Export is a single self-describing record of a chain: its public key, all
// entries, and (optionally) their content blobs (spec §4.3, §6).
type Export struct {
	PublicKeyHex string            `json:"public_key"`
	Entries      []Entry           `json:"entries"`
	Blobs        map[string]string `json:"blobs,omitempty"` // digest -> base64 content
}

// ExportOptions configures ExportChain.
type ExportOptions struct {
	IncludeBlobs bool
}

// ExportChain reads the entire chain and produces a self-contained Export.
func (c *Chain) ExportChain(opts ExportOptions) (Export, error) {
	entries, err := c.ReadAll()
	if err != nil {
		return Export{}, err
	}

	exp := Export{PublicKeyHex: c.keyPair.PublicKeyHex(), Entries: entries}
	if opts.IncludeBlobs {
		exp.Blobs = make(map[string]string)
		for _, e := range entries {
			if e.Type == TypeRedaction {
				continue
			}
			if _, already := exp.Blobs[e.ContentHash]; already {
				continue
			}
			blob, ok, err := c.cas.Get(e.ContentHash)
			if err != nil {
				return Export{}, fmt.Errorf("chain: read blob for export, seq %d: %w", e.Seq, err)
			}
			if !ok {
				continue // redacted or absent; export carries no blob
			}
			exp.Blobs[e.ContentHash] = base64.StdEncoding.EncodeToString(blob)
		}
	}
	return exp, nil
}

// ImportResult summarizes an Import.
type ImportResult struct {
	EntriesImported int
	BlobsImported   int
	VerifyResult    *VerifyResult
}

// ImportOptions configures Import.
type ImportOptions struct {
	Verify       bool
	CheckContent bool
}

// Import writes an Export to a fresh directory. If opts.Verify is set, the
// resulting chain is verified before returning.
func Import(exp Export, dir string, opts ImportOptions) (ImportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ImportResult{}, fmt.Errorf("chain: create import dir: %w", err)
	}
	if info, err := os.Stat(filepath.Join(dir, chainFileName)); err == nil && info.Size() > 0 {
		return ImportResult{}, ErrAlreadyInitialized
	}

	store, err := cas.Open(dir)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{}
	for digest, b64 := range exp.Blobs {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return res, fmt.Errorf("chain: decode blob %s: %w", digest, err)
		}
		if _, err := store.Store(raw); err != nil {
			return res, fmt.Errorf("chain: store imported blob %s: %w", digest, err)
		}
		res.BlobsImported++
	}

	f, err := os.OpenFile(filepath.Join(dir, chainFileName), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return res, fmt.Errorf("chain: create chain file: %w", err)
	}
	for _, e := range exp.Entries {
		line, err := e.MarshalLine()
		if err != nil {
			f.Close()
			return res, err
		}
		if _, err := f.Write(line); err != nil {
			f.Close()
			return res, fmt.Errorf("chain: write imported entry %d: %w", e.Seq, err)
		}
		res.EntriesImported++
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return res, fmt.Errorf("chain: fsync imported chain: %w", err)
	}
	if err := f.Close(); err != nil {
		return res, fmt.Errorf("chain: close imported chain: %w", err)
	}

	if opts.Verify {
		pub, err := decodeHexPubkey(exp.PublicKeyHex)
		if err != nil {
			return res, err
		}
		ch := &Chain{dir: dir, keyPair: crypto.KeyPair{Public: pub}, cas: store}
		vr, err := ch.VerifyChain(VerifyOptions{CheckContent: opts.CheckContent})
		if err != nil {
			return res, err
		}
		res.VerifyResult = &vr
	}

	return res, nil
}

func decodeHexPubkey(hexStr string) ([]byte, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("chain: decode public key hex: %w", err)
	}
	return raw, nil
}

// WriteFile writes e to path as indented JSON, using the default struct
// tags above; a helper for callers that want a pretty-printed export file.
func (e Export) WriteFile(path string) error {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("chain: marshal export: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}

// ReadExportFile loads an Export previously written by WriteFile.
func ReadExportFile(path string) (Export, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Export{}, fmt.Errorf("chain: read export file: %w", err)
	}
	var exp Export
	if err := json.Unmarshal(b, &exp); err != nil {
		return Export{}, fmt.Errorf("chain: unmarshal export file: %w", err)
	}
	return exp, nil
}
