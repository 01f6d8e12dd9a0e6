package fusion

import (
	"time"

	"github.com/conhub/rde/internal/model"
)

// Input bundles the per-backend candidate lists a single request
// produced, already normalized via FromVectorHits/FromGraphHits.
type Input struct {
	Strategy    model.Strategy
	QueryKind   model.QueryKind
	MaxBlocks   int
	VectorLists [][]model.Candidate // one list per collection searched
	GraphList   []model.Candidate
}

// Run dedups, fuses per-strategy, re-ranks, and tie-breaks. Fusion is
// total — empty input yields empty output, never an error.
func Run(in Input, cfg Config, now time.Time) []model.Candidate {
	var fused []model.Candidate

	switch in.Strategy {
	case model.StrategyVectorOnly:
		fused = FuseSingleBackend(Deduplicate(flatten(in.VectorLists)))
	case model.StrategyGraphOnly:
		fused = FuseSingleBackend(Deduplicate(in.GraphList))
	case model.StrategyHybrid:
		lists := make([][]model.Candidate, 0, len(in.VectorLists)+1)
		lists = append(lists, in.VectorLists...)
		if len(in.GraphList) > 0 {
			lists = append(lists, in.GraphList)
		}
		fused = Deduplicate(FuseHybrid(lists, cfg))
	case model.StrategyVectorThenGraph:
		vector := Deduplicate(flatten(in.VectorLists))
		fused = Deduplicate(FuseWeighted(vector, in.GraphList, 0.6, 0.4))
	case model.StrategyGraphThenVector:
		graph := Deduplicate(in.GraphList)
		fused = Deduplicate(FuseWeighted(graph, flatten(in.VectorLists), 0.6, 0.4))
	default:
		fused = FuseSingleBackend(Deduplicate(flatten(in.VectorLists)))
	}

	mode := ModeForKind(in.QueryKind)
	return Rerank(fused, mode, cfg, in.MaxBlocks, now)
}

func flatten(lists [][]model.Candidate) []model.Candidate {
	total := 0
	for _, l := range lists {
		total += len(l)
	}
	out := make([]model.Candidate, 0, total)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
