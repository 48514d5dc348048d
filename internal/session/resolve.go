package session

import "sort"

// Candidate is one resolvable tool name surface.
type Candidate struct {
	WireName     string
	OriginalName string
	StrippedName string
}

// Resolution is the outcome of resolving a user-typed name against the
// known candidates.
type Resolution struct {
	Candidate Candidate
	Ambiguous bool
	TopThree  []Candidate // populated only when Ambiguous
	Found     bool
}

// Resolve implements a four-step resolution order: exact namespaced
// match, exact original-name match, exact stripped-name match, then
// fuzzy match with a 2x-runner-up ambiguity rule (below that ratio,
// report ambiguous + top 3 candidates).
func Resolve(query string, candidates []Candidate) Resolution {
	for _, c := range candidates {
		if c.WireName == query {
			return Resolution{Candidate: c, Found: true}
		}
	}
	for _, c := range candidates {
		if c.OriginalName == query {
			return Resolution{Candidate: c, Found: true}
		}
	}
	for _, c := range candidates {
		if c.StrippedName == query {
			return Resolution{Candidate: c, Found: true}
		}
	}

	type scored struct {
		c     Candidate
		score float64
	}
	var ranked []scored
	for _, c := range candidates {
		s := FuzzyScore(query, c.StrippedName)
		if s > 0 {
			ranked = append(ranked, scored{c, s})
		}
	}
	if len(ranked) == 0 {
		return Resolution{Found: false}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) == 1 {
		return Resolution{Candidate: ranked[0].c, Found: true}
	}

	best, runnerUp := ranked[0], ranked[1]
	if runnerUp.score == 0 || best.score >= 2*runnerUp.score {
		return Resolution{Candidate: best.c, Found: true}
	}

	top := make([]Candidate, 0, 3)
	for i := 0; i < len(ranked) && i < 3; i++ {
		top = append(top, ranked[i].c)
	}
	return Resolution{Candidate: best.c, Ambiguous: true, TopThree: top, Found: true}
}
