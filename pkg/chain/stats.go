package chain

// Stats is a read-only summary of a chain, built while replaying entries
// (spec's supplemented-features §4.9: "chain.Stats generalizes cas.Stats to
// the log"), backing the CLI's `stats` command.
type Stats struct {
	EntryCount int
	TipHash    string
	ByType     map[EntryType]int
	ByTier     map[Tier]int
}

// Stats replays the chain and summarizes entry counts, tip hash, and
// per-type/per-tier breakdowns. An empty chain has EntryCount 0 and an
// empty TipHash.
func (c *Chain) Stats() (Stats, error) {
	entries, err := c.ReadAll()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{
		ByType: make(map[EntryType]int),
		ByTier: make(map[Tier]int),
	}
	for _, e := range entries {
		st.EntryCount++
		st.ByType[e.Type]++
		st.ByTier[e.Tier]++
	}
	if len(entries) > 0 {
		tip := entries[len(entries)-1]
		h, err := tip.CanonicalHash()
		if err != nil {
			return st, err
		}
		st.TipHash = h
	}
	return st, nil
}
