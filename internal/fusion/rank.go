package fusion

import (
	"sort"
	"time"

	"github.com/conhub/rde/internal/model"
)

// RerankMode is the re-rank strategy chosen from query kind.
type RerankMode string

const (
	RerankScoreBased     RerankMode = "score_based"
	RerankRecencyBiased  RerankMode = "recency_biased"
	RerankDiversityAware RerankMode = "diversity_aware"
)

// ModeForKind maps a QueryKind to its re-rank mode.
func ModeForKind(kind model.QueryKind) RerankMode {
	switch kind {
	case model.KindFactLookup, model.KindAggregation, model.KindComparison, model.KindHowTo:
		return RerankScoreBased
	case model.KindEpisodicLookup, model.KindTroubleshooting:
		return RerankRecencyBiased
	case model.KindExplainer, model.KindTaskSupport, model.KindTopologyQuestion, model.KindUnknown:
		return RerankDiversityAware
	default:
		return RerankDiversityAware
	}
}

// Config parameterizes the ranking pipeline's tunable constants
// (rrf_k, mmr_lambda, recency_tau_days).
type Config struct {
	RRFK           int
	MMRLambda      float64
	RecencyTauDays float64
}

// DefaultConfig returns the defaults used across the ranking steps.
func DefaultConfig() Config {
	return Config{RRFK: DefaultRRFK, MMRLambda: DefaultMMRLambda, RecencyTauDays: DefaultRecencyTauDays}
}

// FuseSingleBackend fuses a single backend's candidates (VectorOnly or
// GraphOnly): identity on base_score.
func FuseSingleBackend(candidates []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = c.BaseScore
		out[i] = c
	}
	return out
}

// FuseHybrid fuses candidates for the Hybrid strategy via Reciprocal Rank
// Fusion across every backend's own ranked list.
func FuseHybrid(lists [][]model.Candidate, cfg Config) []model.Candidate {
	return ReciprocalRankFusion(lists, cfg.RRFK)
}

// FuseWeighted fuses candidates for VectorThenGraph/GraphThenVector: a
// linear combination of each side's max-normalized score, weighted by
// primaryWeight/secondaryWeight. Candidates present on only one side
// contribute 0 for the other.
func FuseWeighted(primary, secondary []model.Candidate, primaryWeight, secondaryWeight float64) []model.Candidate {
	pNorm := normalizeByMax(primary)
	sNorm := normalizeByMax(secondary)

	byID := map[string]model.Candidate{}
	order := make([]string, 0, len(primary)+len(secondary))
	pScore := map[string]float64{}
	sScore := map[string]float64{}

	for i, c := range primary {
		if _, ok := byID[c.ID]; !ok {
			order = append(order, c.ID)
		}
		byID[c.ID] = c
		pScore[c.ID] = pNorm[i]
	}
	for i, c := range secondary {
		if existing, ok := byID[c.ID]; ok {
			existing.Backend = mergeBackends(existing.Backend, c.Backend)
			if c.Path != nil {
				existing.Path = c.Path
			}
			byID[c.ID] = existing
		} else {
			order = append(order, c.ID)
			byID[c.ID] = c
		}
		sScore[c.ID] = sNorm[i]
	}

	out := make([]model.Candidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Score = primaryWeight*pScore[id] + secondaryWeight*sScore[id]
		out = append(out, c)
	}
	return out
}

func normalizeByMax(candidates []model.Candidate) []float64 {
	out := make([]float64, len(candidates))
	max := 0.0
	for _, c := range candidates {
		if c.Score > max {
			max = c.Score
		}
	}
	for i, c := range candidates {
		if max > 0 {
			out[i] = c.Score / max
		}
	}
	return out
}

// Rerank applies the mode's scoring transform, then sorts by score with
// tie-breakers. For DiversityAware, MMR first selects up to maxBlocks
// candidates, and that selection is then sorted the same way.
func Rerank(candidates []model.Candidate, mode RerankMode, cfg Config, maxBlocks int, now time.Time) []model.Candidate {
	switch mode {
	case RerankRecencyBiased:
		rescored := RecencyBiased(candidates, cfg.RecencyTauDays, now)
		return sortByScoreWithTieBreak(rescored)
	case RerankDiversityAware:
		sorted := sortByScoreWithTieBreak(candidates)
		return sortByScoreWithTieBreak(MMR(sorted, cfg.MMRLambda, maxBlocks))
	case RerankScoreBased:
		fallthrough
	default:
		return sortByScoreWithTieBreak(candidates)
	}
}

// sortByScoreWithTieBreak sorts by descending score, with ties broken by
// newer timestamp, then shorter text, then id.
func sortByScoreWithTieBreak(candidates []model.Candidate) []model.Candidate {
	out := make([]model.Candidate, len(candidates))
	copy(out, candidates)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		at, bt := timestampOrZero(a), timestampOrZero(b)
		if !at.Equal(bt) {
			return at.After(bt)
		}
		if len(a.Text) != len(b.Text) {
			return len(a.Text) < len(b.Text)
		}
		return a.ID < b.ID
	})
	return out
}

func timestampOrZero(c model.Candidate) time.Time {
	if c.Timestamp != nil {
		return *c.Timestamp
	}
	return time.Time{}
}
