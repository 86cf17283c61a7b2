package retrieval

import (
	"math"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

const (
	recencyHalfLifeDays = 7.0

	weightFTSQuery        = 0.40
	weightRecencyQuery    = 0.30
	weightImportanceQuery = 0.20
	weightAccessQuery     = 0.10

	weightRecencyContext    = 0.5
	weightImportanceContext = 0.35
	weightAccessContext     = 0.15
)

// RecencyScore computes the exponential decay with a seven-day half-life
// (spec §4.5): exp(-age_days * ln2 / 7).
func RecencyScore(createdAt, now time.Time) float64 {
	ageDays := now.Sub(createdAt).Seconds() / 86400
	if ageDays < 0 {
		ageDays = 0
	}
	return math.Exp(-ageDays * math.Ln2 / recencyHalfLifeDays)
}

// DecayWeight maps a decay tier to its scoring multiplier; unknown tiers
// default to hot (spec §4.5).
func DecayWeight(tier index.DecayTier) float64 {
	switch tier {
	case index.DecayHot:
		return 1.0
	case index.DecayWarm:
		return 0.7
	case index.DecayCold:
		return 0.4
	case index.DecayArchived:
		return 0
	default:
		return 1.0
	}
}

// AccessNorm normalizes an access count against the maximum observed in the
// candidate universe (spec §4.5): access / max(1, maxAccess).
func AccessNorm(access int64, maxAccess int64) float64 {
	denom := maxAccess
	if denom < 1 {
		denom = 1
	}
	return float64(access) / float64(denom)
}

// NormalizeFTSRanks maps raw FTS ranks (higher already means better, see
// index.SearchHit.Rank) to [0,1] via (rank-min)/(max-min); the single-result
// case returns 1 for that result (spec §4.5 "degenerate single-result case").
func NormalizeFTSRanks(hits []index.SearchHit) map[uint64]float64 {
	out := make(map[uint64]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	if len(hits) == 1 {
		out[hits[0].Seq] = 1
		return out
	}
	min, max := hits[0].Rank, hits[0].Rank
	for _, h := range hits {
		if h.Rank < min {
			min = h.Rank
		}
		if h.Rank > max {
			max = h.Rank
		}
	}
	if max == min {
		for _, h := range hits {
			out[h.Seq] = 1
		}
		return out
	}
	for _, h := range hits {
		out[h.Seq] = (h.Rank - min) / (max - min)
	}
	return out
}

// ScoredMemory pairs a memory with its computed score and score breakdown.
type ScoredMemory struct {
	Memory    index.Memory
	Score     float64
	Breakdown ScoreBreakdown
}

// ScoreBreakdown is the per-component contribution to a memory's score,
// exposed via ExplainScore for debugging and the `search --explain` CLI.
type ScoreBreakdown struct {
	FTSNorm     float64
	Recency     float64
	Importance  float64
	AccessNorm  float64
	DecayWeight float64
	Base        float64
	Final       float64
}

// ScoreWithQuery computes the hybrid score for a memory matched (or not)
// against an FTS query (spec §4.5 "Hybrid scoring (with query)").
func ScoreWithQuery(m index.Memory, ftsNorm float64, maxAccess int64, now time.Time) ScoreBreakdown {
	recency := RecencyScore(m.CreatedAt, now)
	access := AccessNorm(m.AccessCount, maxAccess)
	base := weightFTSQuery*ftsNorm + weightRecencyQuery*recency + weightImportanceQuery*m.Importance + weightAccessQuery*access
	dw := DecayWeight(m.DecayTier)
	return ScoreBreakdown{
		FTSNorm: ftsNorm, Recency: recency, Importance: m.Importance, AccessNorm: access,
		DecayWeight: dw, Base: base, Final: base * dw,
	}
}

// ScoreContext computes the no-query context score (spec §4.5 "Context
// scoring (no query)").
func ScoreContext(m index.Memory, maxAccess int64, now time.Time) ScoreBreakdown {
	recency := RecencyScore(m.CreatedAt, now)
	access := AccessNorm(m.AccessCount, maxAccess)
	base := weightRecencyContext*recency + weightImportanceContext*m.Importance + weightAccessContext*access
	dw := DecayWeight(m.DecayTier)
	return ScoreBreakdown{
		FTSNorm: 0, Recency: recency, Importance: m.Importance, AccessNorm: access,
		DecayWeight: dw, Base: base, Final: base * dw,
	}
}

// ExplainScore renders a ScoreBreakdown's components, a supplemented
// debugging aid beyond the strict spec surface.
func ExplainScore(b ScoreBreakdown) map[string]float64 {
	return map[string]float64{
		"fts_norm":     b.FTSNorm,
		"recency":      b.Recency,
		"importance":   b.Importance,
		"access_norm":  b.AccessNorm,
		"decay_weight": b.DecayWeight,
		"base":         b.Base,
		"final":        b.Final,
	}
}
