package matching

import (
	"sort"
	"time"
)

// Candidate is an open ride reduced to what ranking needs.
type Candidate struct {
	RideID      string
	Route       Route
	DepartureAt time.Time
}

// Ranked is a candidate with its compatibility score.
type Ranked struct {
	Candidate
	Score int
	Tag   Tag
}

// Rank scores every candidate against the passenger route, drops
// incompatible ones and orders the rest by score, then earliest departure,
// then ride id.
// The input slice is not modified.
func (s *Scorer) Rank(candidates []Candidate, passenger Route) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		score, tag := s.Score(c.Route, passenger)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, Ranked{Candidate: c, Score: score, Tag: tag})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if !ranked[i].DepartureAt.Equal(ranked[j].DepartureAt) {
			return ranked[i].DepartureAt.Before(ranked[j].DepartureAt)
		}
		return ranked[i].RideID < ranked[j].RideID
	})

	return ranked
}
