package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

func TestEstimateTokensEmpty(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
}

func TestEstimateTokensNonEmptyAtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, EstimateTokens("a"), 1)
}

func TestEstimateTokensCodeLikeUsesShorterDivisor(t *testing.T) {
	code := "func main() {\n\treturn\n}"
	prose := "func main returns nothing at all here"
	// Code-like text divides ASCII by 3: 23 ASCII characters / 3 = 7.67,
	// rounded up to 8 (the plain-text divisor of 4 would give 6); the
	// 5-word floor (0.8 * 5 = 4) does not dominate.
	assert.Greater(t, EstimateTokens(code), 0)
	assert.Greater(t, EstimateTokens(prose), 0)
	assert.Equal(t, 8, EstimateTokens(code))
}

func TestSanitizeQueryStripsPunctuationAndSplits(t *testing.T) {
	tokens := SanitizeQuery("hello, world! don't-stop")
	assert.Equal(t, []string{"hello", "world", "don't-stop"}, tokens)
}

func TestSanitizeQueryAllEmpty(t *testing.T) {
	tokens := SanitizeQuery("!!!@@@###")
	assert.Empty(t, tokens)
}

func TestRecencyScoreDecaysWithHalfLife(t *testing.T) {
	now := time.Now().UTC()
	fresh := RecencyScore(now, now)
	assert.InDelta(t, 1.0, fresh, 1e-9)

	weekOld := RecencyScore(now.Add(-7*24*time.Hour), now)
	assert.InDelta(t, 0.5, weekOld, 1e-6)
}

func TestDecayWeightMapping(t *testing.T) {
	assert.Equal(t, 1.0, DecayWeight(index.DecayHot))
	assert.Equal(t, 0.7, DecayWeight(index.DecayWarm))
	assert.Equal(t, 0.4, DecayWeight(index.DecayCold))
	assert.Equal(t, 0.0, DecayWeight(index.DecayArchived))
	assert.Equal(t, 1.0, DecayWeight(index.DecayTier("unknown")))
}

func TestNormalizeFTSRanksSingleResult(t *testing.T) {
	norm := NormalizeFTSRanks([]index.SearchHit{{Seq: 1, Rank: 5}})
	assert.Equal(t, 1.0, norm[1])
}

func TestNormalizeFTSRanksSpread(t *testing.T) {
	norm := NormalizeFTSRanks([]index.SearchHit{{Seq: 1, Rank: 0}, {Seq: 2, Rank: 10}})
	assert.Equal(t, 0.0, norm[1])
	assert.Equal(t, 1.0, norm[2])
}

func TestFillDefaultsPreservesExplicitZeroMaxTokens(t *testing.T) {
	opts := fillDefaults(Options{MaxTokens: 0, MaxResults: 20})
	assert.Equal(t, 0, opts.MaxTokens)
}

func TestFillDefaultsAppliesDefaultForUnsetMaxTokens(t *testing.T) {
	opts := fillDefaults(Options{MaxTokens: UnsetMaxTokens, MaxResults: 20})
	assert.Equal(t, 2000, opts.MaxTokens)
}

func TestRetrieveContextMaxTokensZeroYieldsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	idx, err := index.Open(dir + "/memory.db")
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, idx.Insert(ctx, index.Memory{
		Seq: 1, Content: "old but important", Type: "memory", Tier: "committed",
		Importance: 0.9, CreatedAt: now, DecayTier: index.DecayHot, Source: index.SourceManual,
	}))

	results, err := RetrieveContext(ctx, idx, Options{MaxTokens: 0, MaxResults: 20, SkipAccessUpdate: true})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestExplainScoreRendersAllComponents(t *testing.T) {
	bd := ScoreBreakdown{FTSNorm: 0.5, Recency: 0.6, Importance: 0.7, AccessNorm: 0.8, DecayWeight: 1.0, Base: 0.9, Final: 0.9}
	explained := ExplainScore(bd)
	assert.Equal(t, 0.5, explained["fts_norm"])
	assert.Equal(t, 0.6, explained["recency"])
	assert.Equal(t, 0.7, explained["importance"])
	assert.Equal(t, 0.8, explained["access_norm"])
	assert.Equal(t, 1.0, explained["decay_weight"])
	assert.Equal(t, 0.9, explained["base"])
	assert.Equal(t, 0.9, explained["final"])
}

func TestPackIntoBudgetStopsAtFirstNonAdmission(t *testing.T) {
	ranked := []ScoredMemory{
		{Memory: index.Memory{Seq: 1, Content: "short"}},
		{Memory: index.Memory{Seq: 2, Content: string(make([]byte, 10000))}},
		{Memory: index.Memory{Seq: 3, Content: "tiny"}},
	}
	packed := PackIntoBudget(ranked, 50)
	require.Len(t, packed, 1)
	assert.Equal(t, uint64(1), packed[0].Memory.Seq)
}

func TestFormatForPromptEmpty(t *testing.T) {
	assert.Equal(t, "", FormatForPrompt(nil))
}

func TestFormatForPromptRendersBulletList(t *testing.T) {
	out := FormatForPrompt([]ScoredMemory{
		{Memory: index.Memory{Type: "memory", Content: "first fact"}},
	})
	assert.Contains(t, out, "[Memory] first fact")
}

func TestRetrieveContextSeedsFromImportanceAndRecency(t *testing.T) {
	dir := t.TempDir()
	idx, err := index.Open(dir + "/memory.db")
	require.NoError(t, err)
	defer idx.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, idx.Insert(ctx, index.Memory{
		Seq: 1, Content: "old but important", Type: "memory", Tier: "committed",
		Importance: 0.9, CreatedAt: now.Add(-100 * 24 * time.Hour), DecayTier: index.DecayCold, Source: index.SourceManual,
	}))
	require.NoError(t, idx.Insert(ctx, index.Memory{
		Seq: 2, Content: "recent but trivial", Type: "memory", Tier: "ephemeral",
		Importance: 0.1, CreatedAt: now, DecayTier: index.DecayHot, Source: index.SourceManual,
	}))

	results, err := RetrieveContext(ctx, idx, Options{MaxTokens: 2000, MaxResults: 20, SkipAccessUpdate: true})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}
