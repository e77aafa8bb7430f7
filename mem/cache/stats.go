package cache

// Stats are the counters kept for one stream. Traffic is counted in words.
type Stats struct {
	Accesses      uint64 `json:"accesses"`
	Misses        uint64 `json:"misses"`
	Replacements  uint64 `json:"replacements"`
	DemandFetches uint64 `json:"demand_fetches"`
	CopiesBack    uint64 `json:"copies_back"`
}

// Hits returns the number of accesses that hit.
func (s Stats) Hits() uint64 {
	return s.Accesses - s.Misses
}

// MissRate returns misses over accesses, or 0 if there was no access.
func (s Stats) MissRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return float64(s.Misses) / float64(s.Accesses)
}

// HitRate returns 1 - MissRate, or 0 if there was no access.
func (s Stats) HitRate() float64 {
	if s.Accesses == 0 {
		return 0
	}

	return 1 - s.MissRate()
}

// Add returns the element-wise sum of two Stats.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		Accesses:      s.Accesses + o.Accesses,
		Misses:        s.Misses + o.Misses,
		Replacements:  s.Replacements + o.Replacements,
		DemandFetches: s.DemandFetches + o.DemandFetches,
		CopiesBack:    s.CopiesBack + o.CopiesBack,
	}
}
