package retrieval

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

// recentWindowDays bounds the "last N days" universe seeded into both
// query and context scoring (spec §4.5).
const recentWindowDays = 14

// recentCandidateCap bounds the size of the recency slice merged with FTS
// hits, described in spec §4.5 as "up to a generous cap".
const recentCandidateCap = 500

// Options configures Retrieve/RetrieveContext (spec §6 configuration
// options).
//
// MaxTokens of 0 is a valid, explicit request for an empty result (spec §8:
// "Token budget of 0 -> empty result"); it is NOT defaulted away. Use
// UnsetMaxTokens (a negative value) to ask fillDefaults for the documented
// default of 2000 instead.
type Options struct {
	MaxTokens        int
	MaxResults       int
	Offset           int
	Types            []string
	Tiers            []string
	MinImportance    float64
	SkipAccessUpdate bool
}

// UnsetMaxTokens requests the documented default token budget (spec §6)
// rather than an explicit value; it is distinct from 0, which means an
// explicit empty-budget request (spec §8).
const UnsetMaxTokens = -1

// DefaultOptions returns the spec's documented defaults (§6).
func DefaultOptions() Options {
	return Options{MaxTokens: 2000, MaxResults: 20, Offset: 0}
}

// Retrieve runs keyword search merged with a recency slice, scores with the
// query-aware hybrid formula, filters, pages, and packs into the token
// budget, bumping access counters on admitted memories as a side effect
// (spec §4.5; access-counter side effect kept unconditional per Open
// Question #1, with SkipAccessUpdate as an opt-in escape hatch).
func Retrieve(ctx context.Context, idx *index.Index, query string, opts Options) ([]ScoredMemory, error) {
	opts = fillDefaults(opts)
	now := time.Now().UTC()

	tokens := SanitizeQuery(query)
	var ftsNorm map[uint64]float64
	ftsSeqs := map[uint64]bool{}
	if len(tokens) > 0 {
		ftsQuery := buildFTSQuery(tokens)
		hits, err := idx.SearchFTS(ctx, ftsQuery, recentCandidateCap)
		if err != nil {
			return nil, fmt.Errorf("retrieval: fts search: %w", err)
		}
		ftsNorm = NormalizeFTSRanks(hits)
		for _, h := range hits {
			ftsSeqs[h.Seq] = true
		}
	}

	recent, err := idx.ListRecent(ctx, nil, nil, recentCandidateCap, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list recent: %w", err)
	}

	universe := map[uint64]index.Memory{}
	for _, m := range recent {
		if now.Sub(m.CreatedAt).Hours() <= recentWindowDays*24 {
			universe[m.Seq] = m
		}
	}
	if len(ftsSeqs) > 0 {
		seqs := make([]uint64, 0, len(ftsSeqs))
		for seq := range ftsSeqs {
			seqs = append(seqs, seq)
		}
		loaded, err := idx.GetMany(ctx, seqs)
		if err != nil {
			return nil, fmt.Errorf("retrieval: load fts hits: %w", err)
		}
		for _, m := range loaded {
			universe[m.Seq] = m
		}
	}

	maxAccess := maxAccessIn(universe)

	scored := make([]ScoredMemory, 0, len(universe))
	for _, m := range universe {
		fn := ftsNorm[m.Seq]
		bd := ScoreWithQuery(m, fn, maxAccess, now)
		scored = append(scored, ScoredMemory{Memory: m, Score: bd.Final, Breakdown: bd})
	}

	return finishRetrieval(ctx, idx, scored, opts, now)
}

// RetrieveContext runs the no-query context-scoring path: seed universe is
// the last 14 days plus any memory with importance >= 0.6 (spec §4.5).
func RetrieveContext(ctx context.Context, idx *index.Index, opts Options) ([]ScoredMemory, error) {
	opts = fillDefaults(opts)
	now := time.Now().UTC()

	recent, err := idx.ListRecent(ctx, nil, nil, recentCandidateCap, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieval: list recent: %w", err)
	}

	universe := map[uint64]index.Memory{}
	for _, m := range recent {
		if now.Sub(m.CreatedAt).Hours() <= recentWindowDays*24 || m.Importance >= 0.6 {
			universe[m.Seq] = m
		}
	}

	maxAccess := maxAccessIn(universe)

	scored := make([]ScoredMemory, 0, len(universe))
	for _, m := range universe {
		bd := ScoreContext(m, maxAccess, now)
		scored = append(scored, ScoredMemory{Memory: m, Score: bd.Final, Breakdown: bd})
	}

	return finishRetrieval(ctx, idx, scored, opts, now)
}

func finishRetrieval(ctx context.Context, idx *index.Index, scored []ScoredMemory, opts Options, now time.Time) ([]ScoredMemory, error) {
	filtered := applyFilters(scored, opts)

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Score > filtered[j].Score
	})

	paged := PageSlice(filtered, opts.Offset, opts.MaxResults)
	packed := PackIntoBudget(paged, opts.MaxTokens)

	if !opts.SkipAccessUpdate {
		for _, sm := range packed {
			if err := idx.UpdateAccess(ctx, sm.Memory.Seq, now); err != nil {
				return packed, fmt.Errorf("retrieval: bump access for seq %d: %w", sm.Memory.Seq, err)
			}
		}
	}

	return packed, nil
}

func applyFilters(scored []ScoredMemory, opts Options) []ScoredMemory {
	typeSet := toSet(opts.Types)
	tierSet := toSet(opts.Tiers)

	out := make([]ScoredMemory, 0, len(scored))
	for _, sm := range scored {
		if len(typeSet) > 0 && !typeSet[sm.Memory.Type] {
			continue
		}
		if len(tierSet) > 0 && !tierSet[sm.Memory.Tier] {
			continue
		}
		if sm.Memory.Importance < opts.MinImportance {
			continue
		}
		out = append(out, sm)
	}
	return out
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

func maxAccessIn(universe map[uint64]index.Memory) int64 {
	var max int64
	for _, m := range universe {
		if m.AccessCount > max {
			max = m.AccessCount
		}
	}
	return max
}

func buildFTSQuery(tokens []string) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = `"` + t + `"*`
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += " OR " + p
	}
	return out
}

func fillDefaults(opts Options) Options {
	if opts.MaxTokens < 0 {
		opts.MaxTokens = 2000
	}
	if opts.MaxResults == 0 {
		opts.MaxResults = 20
	}
	return opts
}
