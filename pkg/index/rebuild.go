package index

import (
	"context"
	"fmt"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/chain"
)

// ContentLoader resolves a content digest to its bytes, or reports absence.
// A narrow capability interface injected by the caller (spec §9 design
// notes) rather than a hidden singleton pointing at a specific CAS.
type ContentLoader interface {
	Get(digest string) (blob []byte, ok bool, err error)
}

// RebuildResult summarizes a RebuildFromChain run.
type RebuildResult struct {
	Indexed int
	Skipped int
}

// RebuildFromChain implements the rebuild protocol (spec §4.4): collect
// redacted target seqs, preload content for every live non-redaction entry,
// then in a single transaction clear and reinsert the memories table with
// default importance=0.5, access_count=0, last_accessed=null, decay_tier=hot,
// source=manual. Entries whose blob the loader reports absent are skipped.
func (i *Index) RebuildFromChain(ctx context.Context, entries []chain.Entry, loader ContentLoader) (RebuildResult, error) {
	redacted := make(map[uint64]bool)
	for _, e := range entries {
		if e.Type != chain.TypeRedaction {
			continue
		}
		if raw, ok := e.Metadata["target_seq"]; ok {
			if seq, ok := toUint64(raw); ok {
				redacted[seq] = true
			}
		}
	}

	type pending struct {
		entry   chain.Entry
		content []byte
	}
	var toInsert []pending
	result := RebuildResult{}
	for _, e := range entries {
		if e.Type == chain.TypeRedaction || redacted[e.Seq] {
			continue
		}
		blob, ok, err := loader.Get(e.ContentHash)
		if err != nil {
			return result, fmt.Errorf("index: load content for seq %d: %w", e.Seq, err)
		}
		if !ok {
			result.Skipped++
			continue
		}
		toInsert = append(toInsert, pending{entry: e, content: blob})
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("index: begin rebuild transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memories`); err != nil {
		return result, fmt.Errorf("index: clear memories table: %w", err)
	}

	for _, p := range toInsert {
		ts, err := time.Parse("2006-01-02T15:04:05.000Z", p.entry.Timestamp)
		if err != nil {
			return result, fmt.Errorf("index: parse timestamp for seq %d: %w", p.entry.Seq, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memories(seq, content, summary, type, tier, importance, access_count, last_accessed, created_at, decay_tier, source)
			VALUES (?, ?, '', ?, ?, 0.5, 0, NULL, ?, 'hot', 'manual')`,
			p.entry.Seq, string(p.content), string(p.entry.Type), string(p.entry.Tier), ts.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return result, fmt.Errorf("index: insert rebuilt seq %d: %w", p.entry.Seq, err)
		}
		result.Indexed++
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta(key, value) VALUES ('last_rebuild', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return result, fmt.Errorf("index: record rebuild timestamp: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta(key, value) VALUES ('indexed_count', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, fmt.Sprintf("%d", result.Indexed)); err != nil {
		return result, fmt.Errorf("index: record indexed count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("index: commit rebuild transaction: %w", err)
	}
	return result, nil
}

func toUint64(v any) (uint64, bool) {
	switch t := v.(type) {
	case float64:
		return uint64(t), true
	case uint64:
		return t, true
	case int:
		return uint64(t), true
	default:
		return 0, false
	}
}

