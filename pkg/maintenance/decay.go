// Package maintenance implements decay-tier updates, garbage collection,
// and deduplication — the background upkeep that keeps the index's
// projection of the chain useful without ever mutating the chain or CAS
// (spec §4.7).
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

// DecayThresholds configures UpdateDecayTiers (spec §6 configuration
// options).
type DecayThresholds struct {
	HotDays                  int
	WarmDays                 int
	FrequencyResistThreshold int64
}

// DefaultDecayThresholds returns the spec's documented defaults.
func DefaultDecayThresholds() DecayThresholds {
	return DecayThresholds{HotDays: 7, WarmDays: 30, FrequencyResistThreshold: 10}
}

// DecayUpdateResult summarizes an UpdateDecayTiers run.
type DecayUpdateResult struct {
	PromotedHot    int
	PromotedWarm   int
	PromotedCold   int
	ResistedToWarm int
}

// UpdateDecayTiers moves entries between hot/warm/cold based on
// last_accessed age, then promotes frequently-accessed cold entries back to
// warm. archived entries are never touched by this pass (spec §4.7).
func UpdateDecayTiers(ctx context.Context, idx *index.Index, thresholds DecayThresholds, now time.Time) (DecayUpdateResult, error) {
	all, err := idx.ListRecent(ctx, nil, nil, 1_000_000, 0)
	if err != nil {
		return DecayUpdateResult{}, fmt.Errorf("maintenance: list memories for decay update: %w", err)
	}

	var res DecayUpdateResult
	for _, m := range all {
		if m.DecayTier == index.DecayArchived {
			continue
		}

		var ageDays float64
		if m.LastAccessed != nil {
			ageDays = now.Sub(*m.LastAccessed).Hours() / 24
		} else {
			ageDays = now.Sub(m.CreatedAt).Hours() / 24
		}

		var target index.DecayTier
		switch {
		case m.LastAccessed != nil && ageDays <= float64(thresholds.HotDays):
			target = index.DecayHot
		case m.LastAccessed != nil && ageDays <= float64(thresholds.WarmDays):
			target = index.DecayWarm
		default:
			target = index.DecayCold
		}

		if target == index.DecayCold && m.AccessCount >= thresholds.FrequencyResistThreshold {
			target = index.DecayWarm
			res.ResistedToWarm++
		}

		if target == m.DecayTier {
			continue
		}
		if err := idx.UpdateDecayTier(ctx, m.Seq, target); err != nil {
			return res, fmt.Errorf("maintenance: update decay tier for seq %d: %w", m.Seq, err)
		}
		switch target {
		case index.DecayHot:
			res.PromotedHot++
		case index.DecayWarm:
			res.PromotedWarm++
		case index.DecayCold:
			res.PromotedCold++
		}
	}
	return res, nil
}
