// Package retrieval implements hybrid-scored memory retrieval: token
// estimation, query sanitization, FTS+recency+importance+access scoring,
// decay-weighted ranking, and token-budget packing (spec §4.5).
package retrieval

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	codeFenceRe = regexp.MustCompile("```")
	codeLineRe  = regexp.MustCompile(`(?m)^\s*(func|def|class|import|package|const|let|var|return|if|for|while)\b`)
	punctRe     = regexp.MustCompile(`[.,!?;:]`)
)

// EstimateTokens implements the spec §4.5 heuristic token estimator. The
// coefficients are frozen exactly as specified; do not recalibrate them.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	var asciiCount, nonASCIICount, wordCount float64
	for _, r := range text {
		if r <= unicode.MaxASCII {
			asciiCount++
		} else {
			nonASCIICount++
		}
	}
	wordCount = float64(len(strings.Fields(text)))
	punctCount := float64(len(punctRe.FindAllString(text, -1)))

	// Non-ASCII-heavy and plain-text branches share the same formula in the
	// spec; only the code-like branch differs.
	var base float64
	if isCodeLike(text) {
		base = asciiCount/3 + nonASCIICount/1.5
	} else {
		base = asciiCount/4 + nonASCIICount/1.5
	}

	estimate := math.Max(base, 0.8*wordCount)
	estimate += 0.3 * punctCount

	n := int(math.Ceil(estimate))
	if n < 1 {
		n = 1
	}
	return n
}

// isCodeLike detects code-like text via simple signals: language keywords
// at line starts, triple-backtick fences, or a mixture of braces/brackets.
func isCodeLike(text string) bool {
	if codeFenceRe.MatchString(text) {
		return true
	}
	if codeLineRe.MatchString(text) {
		return true
	}
	braces := strings.Count(text, "{") + strings.Count(text, "}")
	brackets := strings.Count(text, "[") + strings.Count(text, "]")
	arrows := strings.Count(text, "=>") + strings.Count(text, "->")
	return braces > 0 && (brackets > 0 || arrows > 0)
}
