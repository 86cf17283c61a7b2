package maintenance

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

// Orchestrator runs the hourly/weekly maintenance passes (decay update and
// gc) at a bounded rate, so a misconfigured caller driving
// a tight loop cannot hammer the index harder than the maintenance work is
// meant to run.
type Orchestrator struct {
	idx     *index.Index
	limiter *rate.Limiter

	decayThresholds DecayThresholds
	gcConfig        GCConfig
}

// NewOrchestrator returns an Orchestrator allowing at most one maintenance
// pass per minPeriod, with a burst of 1 (no queued catch-up runs).
func NewOrchestrator(idx *index.Index, minPeriod time.Duration, decay DecayThresholds, gc GCConfig) *Orchestrator {
	return &Orchestrator{
		idx:             idx,
		limiter:         rate.NewLimiter(rate.Every(minPeriod), 1),
		decayThresholds: decay,
		gcConfig:        gc,
	}
}

// RunResult summarizes one orchestrated maintenance pass.
type RunResult struct {
	Decay DecayUpdateResult
	GC    GCResult
}

// RunHourly runs the decay-tier update only — the cheaper, more frequent
// pass.
func (o *Orchestrator) RunHourly(ctx context.Context) (RunResult, error) {
	if !o.limiter.Allow() {
		return RunResult{}, fmt.Errorf("maintenance: rate limited, try again later")
	}
	decayRes, err := UpdateDecayTiers(ctx, o.idx, o.decayThresholds, time.Now().UTC())
	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Decay: decayRes}, nil
}

// RunWeekly runs decay update followed by garbage collection — the more
// expensive, less frequent pass.
func (o *Orchestrator) RunWeekly(ctx context.Context) (RunResult, error) {
	if !o.limiter.Allow() {
		return RunResult{}, fmt.Errorf("maintenance: rate limited, try again later")
	}
	decayRes, err := UpdateDecayTiers(ctx, o.idx, o.decayThresholds, time.Now().UTC())
	if err != nil {
		return RunResult{}, err
	}
	gcRes, err := RunGC(ctx, o.idx, o.gcConfig)
	if err != nil {
		return RunResult{Decay: decayRes}, err
	}
	return RunResult{Decay: decayRes, GC: gcRes}, nil
}
