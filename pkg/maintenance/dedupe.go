package maintenance

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/SeMmyT/witness-memory-chain-sub000/pkg/index"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctOnlyRe  = regexp.MustCompile(`[^\w\s]`)
)

// NormalizeForDedupe lowercases, collapses whitespace, and strips
// punctuation (spec §4.7).
func NormalizeForDedupe(text string) string {
	lower := strings.ToLower(text)
	stripped := punctOnlyRe.ReplaceAllString(lower, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(stripped, " "))
}

// DailyCaptureFile is the narrow capability interface over an external
// scratchpad of today's raw captures (spec §6 on-disk layout's opaque
// `anchors/`-adjacent capture file), injected by the caller.
type DailyCaptureFile interface {
	Contains(normalized string) (bool, error)
}

// CuratedFile is the narrow capability interface over the curated
// long-term capture file, injected by the caller.
type CuratedFile interface {
	Contains(normalized string) (bool, error)
}

// DedupeResult reports which stage, if any, found a duplicate.
type DedupeResult struct {
	Duplicate bool
	Stage     string // "daily_capture", "fts", "curated", or "" if none
	MatchSeq  uint64
}

// IsDuplicate compares text against the daily capture file, then an FTS
// lookup over its first five length>=4 tokens, then the curated long-term
// file, in that fixed order, stopping at the first "duplicate" verdict
// (spec §4.7). Used only by automated captures; never affects
// user-initiated commits.
func IsDuplicate(ctx context.Context, idx *index.Index, daily DailyCaptureFile, curated CuratedFile, text string) (DedupeResult, error) {
	normalized := NormalizeForDedupe(text)
	hash := sha256.Sum256([]byte(normalized))
	hashHex := hex.EncodeToString(hash[:])

	if daily != nil {
		ok, err := daily.Contains(normalized)
		if err != nil {
			return DedupeResult{}, fmt.Errorf("maintenance: check daily capture file: %w", err)
		}
		if ok {
			return DedupeResult{Duplicate: true, Stage: "daily_capture"}, nil
		}
	}

	tokens := firstLongTokens(normalized, 5, 4)
	if len(tokens) > 0 {
		query := strings.Join(tokens, " OR ")
		hits, err := idx.SearchFTS(ctx, query, 1)
		if err != nil {
			return DedupeResult{}, fmt.Errorf("maintenance: fts dedupe lookup: %w", err)
		}
		if len(hits) > 0 {
			candidate, err := idx.Get(ctx, hits[0].Seq)
			if err != nil && err != index.ErrNotFound {
				return DedupeResult{}, fmt.Errorf("maintenance: load fts dedupe candidate: %w", err)
			}
			if err == nil {
				candNorm := NormalizeForDedupe(candidate.Content)
				candHash := sha256.Sum256([]byte(candNorm))
				if strings.Contains(candNorm, normalized) || strings.Contains(normalized, candNorm) || hex.EncodeToString(candHash[:]) == hashHex {
					return DedupeResult{Duplicate: true, Stage: "fts", MatchSeq: hits[0].Seq}, nil
				}
			}
		}
	}

	if curated != nil {
		ok, err := curated.Contains(normalized)
		if err != nil {
			return DedupeResult{}, fmt.Errorf("maintenance: check curated file: %w", err)
		}
		if ok {
			return DedupeResult{Duplicate: true, Stage: "curated"}, nil
		}
	}

	return DedupeResult{}, nil
}

func firstLongTokens(normalized string, n, minLen int) []string {
	var out []string
	for _, tok := range strings.Fields(normalized) {
		if len(tok) < minLen {
			continue
		}
		out = append(out, tok)
		if len(out) == n {
			break
		}
	}
	return out
}

// JaccardSimilarity computes word-set Jaccard similarity between two texts,
// for batch comparison against a caller-provided threshold (default 0.8,
// spec §4.7).
func JaccardSimilarity(a, b string) float64 {
	setA := toWordSet(NormalizeForDedupe(a))
	setB := toWordSet(NormalizeForDedupe(b))
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func toWordSet(s string) map[string]bool {
	out := map[string]bool{}
	for _, w := range strings.Fields(s) {
		out[w] = true
	}
	return out
}
