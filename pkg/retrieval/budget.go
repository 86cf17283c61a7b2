package retrieval

// PackIntoBudget iterates the filtered, score-sorted list in order and
// admits memories while running_tokens + tokens(memory) <= maxTokens. On
// the first non-admission it stops entirely — no attempt to pack smaller
// later entries (spec §4.5: "preserves the ranking contract").
func PackIntoBudget(ranked []ScoredMemory, maxTokens int) []ScoredMemory {
	var out []ScoredMemory
	running := 0
	for _, sm := range ranked {
		text := sm.Memory.Summary
		if text == "" {
			text = sm.Memory.Content
		}
		tokens := EstimateTokens(text)
		if running+tokens > maxTokens {
			break
		}
		running += tokens
		out = append(out, sm)
	}
	return out
}

// PageSlice applies offset/limit paging to an already score-sorted list,
// per spec §4.5 ("Filtering and paging ... Then take [offset, offset+max)").
func PageSlice(ranked []ScoredMemory, offset, maxResults int) []ScoredMemory {
	if offset >= len(ranked) {
		return nil
	}
	end := offset + maxResults
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
