// Package compress implements extractive (non-LLM) text summarization:
// sentence scoring by keyword overlap, position, and entity presence, plus
// named-entity extraction and a pronoun-referent heuristic (spec §4.6).
package compress

import (
	"regexp"
	"sort"
	"strings"
)

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]+[\s]+`)
	wordRe          = regexp.MustCompile(`[A-Za-z']+`)
	commonAbbrevs   = map[string]bool{
		"mr.": true, "mrs.": true, "ms.": true, "dr.": true, "prof.": true,
		"sr.": true, "jr.": true, "vs.": true, "etc.": true, "e.g.": true, "i.e.": true,
	}
)

// Options configures Summarize.
type Options struct {
	CharBudget       int
	PreserveEntities bool
}

// Summarize produces a shorter variant of text without invoking a model
// (spec §4.6). If text already fits within the budget, it is returned
// unchanged.
func Summarize(text string, opts Options) string {
	if opts.CharBudget <= 0 || len(text) <= opts.CharBudget {
		return text
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return text
	}

	keywords := topKeywords(text, 10)
	var entities map[string]bool
	if opts.PreserveEntities {
		entities = toSet(ExtractEntities(text))
	}

	scores := make([]float64, len(sentences))
	for i, s := range sentences {
		scores[i] = scoreSentence(s, i, len(sentences), keywords, entities)
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	var selected []int
	total := 0
	truncated := false
	for _, idx := range order {
		l := len(sentences[idx])
		if total+l > opts.CharBudget {
			truncated = true
			continue
		}
		selected = append(selected, idx)
		total += l
	}
	if len(selected) == 0 {
		// Budget smaller than any single sentence: take the best one, truncated.
		best := order[0]
		if len(sentences[best]) > opts.CharBudget {
			return strings.TrimSpace(sentences[best][:opts.CharBudget]) + "..."
		}
		return sentences[best]
	}

	sort.Ints(selected)
	parts := make([]string, len(selected))
	for i, idx := range selected {
		parts[i] = strings.TrimSpace(sentences[idx])
	}
	out := strings.Join(parts, " ")
	if truncated {
		out += "..."
	}
	return out
}

func scoreSentence(s string, pos, total int, keywords map[string]float64, entities map[string]bool) float64 {
	var score float64
	for _, w := range wordRe.FindAllString(strings.ToLower(s), -1) {
		score += keywords[w]
	}
	if pos == 0 || pos == total-1 {
		score += 0.5
	}
	if entities != nil {
		for e := range entities {
			if strings.Contains(s, e) {
				score += 0.3
			}
		}
	}
	return score
}

// splitSentences splits text by .!? while respecting a minimal set of
// common abbreviations (spec §4.6).
func splitSentences(text string) []string {
	raw := sentenceSplitRe.Split(text, -1)
	var out []string
	buf := ""
	for _, piece := range raw {
		trimmed := strings.TrimSpace(piece)
		if buf != "" {
			lastWord := lastToken(buf)
			if commonAbbrevs[strings.ToLower(lastWord)] {
				buf += " " + trimmed
				continue
			}
			out = append(out, buf)
			buf = trimmed
			continue
		}
		buf = trimmed
	}
	if buf != "" {
		out = append(out, buf)
	}
	return out
}

func lastToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// topKeywords returns a frequency-weighted keyword map from the n most
// frequent non-trivial words in text.
func topKeywords(text string, n int) map[string]float64 {
	freq := map[string]int{}
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 4 || stopwords[w] {
			continue
		}
		freq[w]++
	}
	type kv struct {
		word  string
		count int
	}
	all := make([]kv, 0, len(freq))
	for w, c := range freq {
		all = append(all, kv{w, c})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].count > all[j].count })
	if len(all) > n {
		all = all[:n]
	}
	out := make(map[string]float64, len(all))
	maxCount := 1
	if len(all) > 0 {
		maxCount = all[0].count
	}
	for _, e := range all {
		out[e.word] = float64(e.count) / float64(maxCount)
	}
	return out
}

var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true,
	"were": true, "been": true, "their": true, "which": true, "about": true,
	"would": true, "there": true, "could": true, "these": true, "where": true,
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}
