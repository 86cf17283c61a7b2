package index

import (
	"context"
	"fmt"
)

// SearchHit is one FTS match with its relevance rank (lower bm25 is better;
// Rank is negated so higher is better, matching the rest of the ranking
// pipeline's "higher is better" convention — see pkg/retrieval).
type SearchHit struct {
	Seq  uint64
	Rank float64
}

// SearchFTS runs a full-text query over content+summary, returning up to
// limit hits ordered by bm25 relevance (best first).
func (i *Index) SearchFTS(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if query == "" {
		return nil, nil
	}
	rows, err := i.db.QueryContext(ctx, `
		SELECT memories_fts.rowid, bm25(memories_fts) AS rank
		FROM memories_fts
		WHERE memories_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: fts search: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Seq, &h.Rank); err != nil {
			return nil, fmt.Errorf("index: scan fts hit: %w", err)
		}
		// bm25 is lower-is-better; invert so downstream scoring treats
		// higher as more relevant.
		h.Rank = -h.Rank
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("index: fts rows: %w", err)
	}
	return hits, nil
}

// ListRecent returns up to limit memories ordered by created_at descending,
// offset by offset — the "recency slice" merged with FTS results during
// retrieval (spec §3 "merge with recency slice").
func (i *Index) ListRecent(ctx context.Context, types, tiers []string, limit, offset int) ([]Memory, error) {
	query := `SELECT seq, content, summary, type, tier, importance, access_count, last_accessed, created_at, decay_tier, source
		FROM memories`
	var args []any
	where, whereArgs := buildFilterClause(types, tiers)
	if where != "" {
		query += " WHERE " + where
		args = append(args, whereArgs...)
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := i.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: list recent: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetMany loads memories for a set of seqs, preserving no particular order.
func (i *Index) GetMany(ctx context.Context, seqs []uint64) ([]Memory, error) {
	if len(seqs) == 0 {
		return nil, nil
	}
	placeholders := ""
	args := make([]any, 0, len(seqs))
	for idx, seq := range seqs {
		if idx > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args = append(args, seq)
	}
	rows, err := i.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT seq, content, summary, type, tier, importance, access_count, last_accessed, created_at, decay_tier, source
		FROM memories WHERE seq IN (%s)`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("index: get many: %w", err)
	}
	defer rows.Close()

	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func buildFilterClause(types, tiers []string) (string, []any) {
	var clauses []string
	var args []any
	if len(types) > 0 {
		ph := ""
		for idx, t := range types {
			if idx > 0 {
				ph += ","
			}
			ph += "?"
			args = append(args, t)
		}
		clauses = append(clauses, "type IN ("+ph+")")
	}
	if len(tiers) > 0 {
		ph := ""
		for idx, t := range tiers {
			if idx > 0 {
				ph += ","
			}
			ph += "?"
			args = append(args, t)
		}
		clauses = append(clauses, "tier IN ("+ph+")")
	}
	if len(clauses) == 0 {
		return "", nil
	}
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out, args
}
