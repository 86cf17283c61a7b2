//go:build property
// +build property

// Package chain_test contains property-based tests for spec §8's hash-chain
// linkage, CAS idempotence, and GC isolation invariants.
package chain_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/cas"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/chain"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/crypto"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/maintenance"
)

// TestHashChainLinkageProperty verifies spec §8 invariant 1: for every
// entry after the genesis, seq increments by one and prev_hash equals the
// canonical hash (including signature) of the entry immediately before it.
func TestHashChainLinkageProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("appended entries chain by seq and prev_hash", prop.ForAll(
		func(bodies []string) bool {
			dir := t.TempDir()
			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return false
			}
			c, err := chain.Open(dir, kp)
			if err != nil {
				return false
			}
			if _, err := c.Init([]byte("property-agent")); err != nil {
				return false
			}
			for _, b := range bodies {
				if _, err := c.Append(chain.TypeMemory, chain.TierRelationship, []byte(b), nil); err != nil {
					return false
				}
			}

			entries, err := c.ReadAll()
			if err != nil {
				return false
			}
			for i := 1; i < len(entries); i++ {
				if entries[i].Seq != entries[i-1].Seq+1 {
					return false
				}
				prevHash, err := entries[i-1].CanonicalHash()
				if err != nil {
					return false
				}
				if entries[i].PrevHash == nil || *entries[i].PrevHash != prevHash {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

// TestCASStoreIdempotentDigestProperty verifies spec §8 invariant 8:
// storing the same blob twice returns the same digest and leaves exactly
// one file on disk.
func TestCASStoreIdempotentDigestProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("storing a blob twice is idempotent", prop.ForAll(
		func(blob string) bool {
			dir := t.TempDir()
			store, err := cas.Open(dir)
			if err != nil {
				return false
			}

			digest1, err := store.Store([]byte(blob))
			if err != nil {
				return false
			}
			digest2, err := store.Store([]byte(blob))
			if err != nil {
				return false
			}
			if digest1 != digest2 {
				return false
			}
			st, err := store.Stats()
			if err != nil || st.BlobCount != 1 {
				return false
			}

			got, ok, err := store.Get(digest1)
			if err != nil || !ok {
				return false
			}
			return string(got) == blob
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestGCNeverMutatesChainBytesProperty verifies spec §8 invariant 7: a GC
// pass, which only touches the sqlite index, leaves chain.jsonl's on-disk
// bytes byte-for-byte unchanged.
func TestGCNeverMutatesChainBytesProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("RunGC never modifies chain.jsonl", prop.ForAll(
		func(bodies []string) bool {
			dir := t.TempDir()
			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return false
			}
			c, err := chain.Open(dir, kp)
			if err != nil {
				return false
			}
			if _, err := c.Init([]byte("property-agent")); err != nil {
				return false
			}
			for _, b := range bodies {
				if _, err := c.Append(chain.TypeMemory, chain.TierEphemeral, []byte(b), nil); err != nil {
					return false
				}
			}

			chainPath := dir + "/chain.jsonl"
			before, err := os.ReadFile(chainPath)
			if err != nil {
				return false
			}

			idx, err := index.Open(dir + "/memory.db")
			if err != nil {
				return false
			}
			defer idx.Close()

			ctx := context.Background()
			entries, err := c.ReadAll()
			if err != nil {
				return false
			}
			for _, e := range entries {
				blob, ok, err := c.CAS().Get(e.ContentHash)
				if err != nil {
					return false
				}
				content := ""
				if ok {
					content = string(blob)
				}
				if err := idx.Insert(ctx, index.Memory{
					Seq: e.Seq, Content: content, Type: string(e.Type), Tier: string(e.Tier),
					CreatedAt: mustParseTime(e.Timestamp), DecayTier: index.DecayCold, Source: index.SourceManual,
				}); err != nil {
					return false
				}
			}

			if _, err := maintenance.RunGC(ctx, idx, maintenance.GCConfig{Threshold: 1.0, MaxAgeDays: 0}); err != nil {
				return false
			}

			after, err := os.ReadFile(chainPath)
			if err != nil {
				return false
			}
			return string(before) == string(after)
		},
		gen.SliceOfN(5, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func mustParseTime(s string) time.Time {
	ts, err := time.Parse("2006-01-02T15:04:05.000Z", s)
	if err != nil {
		return time.Now().UTC()
	}
	return ts
}
