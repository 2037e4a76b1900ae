package domain

// ComputeProfile derives an ethical profile from the options a player chose
// over a whole game. It is recomputed from scratch after every answer rather
// than patched incrementally, so it is a pure function of the history and
// cannot drift. Averages use integer division; the dominant framework is
// the highest average, ties broken by the fixed enumeration order.
func ComputeProfile(chosen []Option) *EthicalProfile {
	if len(chosen) == 0 {
		return nil
	}

	sums := make(map[Framework]int, len(Frameworks()))
	for _, opt := range chosen {
		for _, fs := range opt.Frameworks {
			sums[fs.Framework] += fs.Score
		}
	}

	profile := &EthicalProfile{Scores: make(map[Framework]int, len(sums))}
	best := -1
	for _, fw := range Frameworks() {
		avg := sums[fw] / len(chosen)
		profile.Scores[fw] = avg
		if avg > best {
			best = avg
			profile.Dominant = fw
		}
	}
	return profile
}
