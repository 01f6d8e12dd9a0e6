package fusion

import "github.com/conhub/rde/internal/model"

// DefaultRRFK is the k used for Reciprocal Rank Fusion in Hybrid strategy.
const DefaultRRFK = 60

// ReciprocalRankFusion combines one or more ranked candidate lists by
// summing 1/(k+rank) per list, then renormalizing to [0,1] by max.
// Candidates appearing in more than one list are matched by ID and
// accumulate across lists; near-duplicates with different IDs are left
// for Deduplicate, which Run applies to the fused output.
func ReciprocalRankFusion(lists [][]model.Candidate, k int) []model.Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := map[string]float64{}
	byID := map[string]model.Candidate{}
	order := make([]string, 0)

	for _, list := range lists {
		for rank, c := range list {
			if _, ok := byID[c.ID]; !ok {
				order = append(order, c.ID)
				byID[c.ID] = c
			}
			scores[c.ID] += 1.0 / float64(k+rank+1)
		}
	}

	maxScore := 0.0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		if maxScore > 0 {
			c.Score = scores[id] / maxScore
		} else {
			c.Score = 0
		}
		out = append(out, c)
	}
	return out
}
