package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/retrieval"
)

// GCConfig configures RunGC (spec §6).
type GCConfig struct {
	Threshold      float64
	MaxAgeDays     int
	ProtectedTiers []string
	DryRun         bool
}

// DefaultGCConfig returns the spec's documented defaults.
func DefaultGCConfig() GCConfig {
	return GCConfig{Threshold: 0.2, MaxAgeDays: 30, ProtectedTiers: []string{"committed"}}
}

const (
	gcWeightRecency    = 0.3
	gcWeightAccess     = 0.4
	gcWeightImportance = 0.3
)

var gcTierBoost = map[string]float64{
	"committed":    1.5,
	"relationship": 1.0,
	"ephemeral":    0.8,
}

// GCResult summarizes a RunGC pass.
type GCResult struct {
	Candidates int
	Archived   int
	DryRun     bool
}

// RunGC is index-only: it MUST NOT touch the chain or the CAS (spec §4.7).
// Candidates are non-archived, non-protected-tier entries that are either
// older than max_age_days or already cold; each is scored and marked
// archived if its score falls below threshold. dry_run counts without
// mutating.
func RunGC(ctx context.Context, idx *index.Index, cfg GCConfig) (GCResult, error) {
	protected := make(map[string]bool, len(cfg.ProtectedTiers))
	for _, t := range cfg.ProtectedTiers {
		protected[t] = true
	}

	all, err := idx.ListRecent(ctx, nil, nil, 1_000_000, 0)
	if err != nil {
		return GCResult{}, fmt.Errorf("maintenance: list memories for gc: %w", err)
	}

	now := time.Now().UTC()
	var maxAccess int64
	for _, m := range all {
		if m.AccessCount > maxAccess {
			maxAccess = m.AccessCount
		}
	}

	res := GCResult{DryRun: cfg.DryRun}
	for _, m := range all {
		if m.DecayTier == index.DecayArchived || protected[m.Tier] {
			continue
		}
		ageDays := now.Sub(m.CreatedAt).Hours() / 24
		isCandidate := ageDays > float64(cfg.MaxAgeDays) || m.DecayTier == index.DecayCold
		if !isCandidate {
			continue
		}
		res.Candidates++

		recency := retrieval.RecencyScore(m.CreatedAt, now)
		accessNorm := retrieval.AccessNorm(m.AccessCount, maxAccess)
		base := gcWeightRecency*recency + gcWeightAccess*accessNorm + gcWeightImportance*m.Importance
		boost := gcTierBoost[m.Tier]
		if boost == 0 {
			boost = 1.0
		}
		score := base * boost

		if score < cfg.Threshold {
			res.Archived++
			if !cfg.DryRun {
				if err := idx.UpdateDecayTier(ctx, m.Seq, index.DecayArchived); err != nil {
					return res, fmt.Errorf("maintenance: archive seq %d: %w", m.Seq, err)
				}
			}
		}
	}
	return res, nil
}

// Restore moves an archived entry back to cold (spec §4.7 `restore(seq)`).
func Restore(ctx context.Context, idx *index.Index, seq uint64) error {
	if err := idx.UpdateDecayTier(ctx, seq, index.DecayCold); err != nil {
		return fmt.Errorf("maintenance: restore seq %d: %w", seq, err)
	}
	return nil
}
