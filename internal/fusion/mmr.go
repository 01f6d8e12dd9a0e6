package fusion

import "github.com/conhub/rde/internal/model"

// DefaultMMRLambda is λ used for Maximal Marginal Relevance in the
// diversity-aware ranking step.
const DefaultMMRLambda = 0.7

// MMR greedily selects up to maxBlocks candidates maximizing
// λ·relevance − (1−λ)·max_similarity_to_selected, with similarity as
// Jaccard over lowercased whitespace-token sets. Relevance is the
// candidate's fused Score. O(n·k) in n=len(candidates), k=maxBlocks, per
// the cooperative-suspension design note.
func MMR(candidates []model.Candidate, lambda float64, maxBlocks int) []model.Candidate {
	if lambda <= 0 {
		lambda = DefaultMMRLambda
	}
	if maxBlocks <= 0 || maxBlocks > len(candidates) {
		maxBlocks = len(candidates)
	}

	pool := make([]model.Candidate, len(candidates))
	copy(pool, candidates)
	sets := make([]map[string]struct{}, len(pool))
	for i, c := range pool {
		sets[i] = tokenSet(c.Text)
	}

	selected := make([]model.Candidate, 0, maxBlocks)
	selectedSets := make([]map[string]struct{}, 0, maxBlocks)
	used := make([]bool, len(pool))

	for len(selected) < maxBlocks {
		bestIdx := -1
		bestMMR := -1.0
		for i, c := range pool {
			if used[i] {
				continue
			}
			maxSim := 0.0
			for _, s := range selectedSets {
				if sim := jaccard(sets[i], s); sim > maxSim {
					maxSim = sim
				}
			}
			mmrScore := lambda*c.Score - (1-lambda)*maxSim
			if mmrScore > bestMMR {
				bestMMR = mmrScore
				bestIdx = i
			}
		}
		if bestIdx == -1 {
			break
		}
		used[bestIdx] = true
		selected = append(selected, pool[bestIdx])
		selectedSets = append(selectedSets, sets[bestIdx])
	}

	return selected
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
