package fusion

import (
	"testing"
	"time"

	"github.com/conhub/rde/internal/model"
)

func ptrTime(t time.Time) *time.Time { return &t }

func TestDeduplicate_MergesSameSourceNearDuplicateText(t *testing.T) {
	a := model.Candidate{ID: "c1", SourceID: "doc1", Text: "the payment service owns the billing ledger", BaseScore: 0.8, Backend: []string{"vector"}}
	b := model.Candidate{ID: "c2", SourceID: "doc1", Text: "the payment service owns the billing ledger.", BaseScore: 0.9, Backend: []string{"graph"}}

	out := Deduplicate([]model.Candidate{a, b})
	if len(out) != 1 {
		t.Fatalf("expected 1 deduplicated candidate, got %d", len(out))
	}
	if out[0].BaseScore != 0.9 {
		t.Errorf("expected surviving candidate to keep higher base_score, got %v", out[0].BaseScore)
	}
	if len(out[0].Backend) != 2 {
		t.Errorf("expected merged provenance from both backends, got %v", out[0].Backend)
	}
}

func TestDeduplicate_KeepsDistinctSources(t *testing.T) {
	a := model.Candidate{ID: "c1", SourceID: "doc1", Text: "alpha beta gamma", BaseScore: 0.8}
	b := model.Candidate{ID: "c2", SourceID: "doc2", Text: "completely unrelated text about something else entirely", BaseScore: 0.5}

	out := Deduplicate([]model.Candidate{a, b})
	if len(out) != 2 {
		t.Fatalf("expected 2 distinct candidates, got %d", len(out))
	}
}

func TestReciprocalRankFusion_CombinesOverlappingLists(t *testing.T) {
	vector := []model.Candidate{{ID: "a", Score: 1}, {ID: "b", Score: 0.9}}
	graph := []model.Candidate{{ID: "b", Score: 1}, {ID: "c", Score: 0.8}}

	out := ReciprocalRankFusion([][]model.Candidate{vector, graph}, DefaultRRFK)
	if len(out) != 3 {
		t.Fatalf("expected 3 unique candidates, got %d", len(out))
	}

	var bScore float64
	for _, c := range out {
		if c.ID == "b" {
			bScore = c.Score
		}
	}
	if bScore != 1.0 {
		t.Errorf("candidate present in both lists should renormalize to the max score 1.0, got %v", bScore)
	}
}

func TestMMR_PenalizesNearDuplicateText(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: "the payment service handles billing", Score: 0.95},
		{ID: "b", Text: "the payment service handles billing and invoicing", Score: 0.94},
		{ID: "c", Text: "deployment pipelines run on kubernetes clusters", Score: 0.6},
	}

	out := MMR(candidates, DefaultMMRLambda, 2)
	if len(out) != 2 {
		t.Fatalf("expected 2 selected candidates, got %d", len(out))
	}
	if out[0].ID != "a" {
		t.Errorf("expected highest-score candidate selected first, got %s", out[0].ID)
	}
	if out[1].ID != "c" {
		t.Errorf("expected diverse candidate c preferred over near-duplicate b, got %s", out[1].ID)
	}
}

func TestRecencyBiased_PrefersNewerAtEqualBaseScore(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	old := model.Candidate{ID: "old", Score: 0.8, Timestamp: ptrTime(now.AddDate(0, 0, -90))}
	recent := model.Candidate{ID: "recent", Score: 0.8, Timestamp: ptrTime(now.AddDate(0, 0, -1))}

	out := RecencyBiased([]model.Candidate{old, recent}, DefaultRecencyTauDays, now)
	sorted := sortByScoreWithTieBreak(out)
	if sorted[0].ID != "recent" {
		t.Errorf("expected recency-biased rescoring to rank the newer candidate first, got %s", sorted[0].ID)
	}
}

func TestRun_HybridExplainerScenario(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	vectorList := []model.Candidate{
		{ID: "v1", SourceID: "doc-a", Text: "the retrieval engine fans out to vector and graph backends", BaseScore: 0.9, Score: 0.9, Backend: []string{"vector"}},
		{ID: "v2", SourceID: "doc-b", Text: "fusion combines ranked lists using reciprocal rank fusion", BaseScore: 0.7, Score: 0.7, Backend: []string{"vector"}},
	}
	graphList := []model.Candidate{
		{ID: "g1", SourceID: "node-a", Text: "the orchestrator calls the vector client then the graph client", BaseScore: 0.85, Score: 0.85, Backend: []string{"graph"}},
	}

	in := Input{
		Strategy:    model.StrategyHybrid,
		QueryKind:   model.KindExplainer,
		MaxBlocks:   10,
		VectorLists: [][]model.Candidate{vectorList},
		GraphList:   graphList,
	}

	out := Run(in, DefaultConfig(), now)
	if len(out) == 0 {
		t.Fatal("expected fused results for hybrid explainer scenario")
	}
	for i := 1; i < len(out); i++ {
		if out[i].Score > out[i-1].Score {
			t.Fatalf("expected descending score order, violated at index %d", i)
		}
	}
}

func TestRun_TroubleshootingRecencyScenario(t *testing.T) {
	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	graphList := []model.Candidate{
		{ID: "incident-old", SourceID: "node-old", Text: "the outage last year was caused by a bad deploy", BaseScore: 0.9, Score: 0.9, Timestamp: ptrTime(now.AddDate(0, 0, -200))},
		{ID: "incident-recent", SourceID: "node-recent", Text: "the outage yesterday was caused by a connection pool leak", BaseScore: 0.82, Score: 0.82, Timestamp: ptrTime(now.AddDate(0, 0, -1))},
	}

	in := Input{
		Strategy:  model.StrategyGraphOnly,
		QueryKind: model.KindTroubleshooting,
		MaxBlocks: 10,
		GraphList: graphList,
	}

	out := Run(in, DefaultConfig(), now)
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
	if out[0].ID != "incident-recent" {
		t.Errorf("expected troubleshooting query to rank the recent incident first, got %s", out[0].ID)
	}
}

func TestFuseWeighted_VectorThenGraphOrdering(t *testing.T) {
	vector := []model.Candidate{{ID: "a", Score: 1.0}, {ID: "b", Score: 0.5}}
	graph := []model.Candidate{{ID: "a", Score: 0.2}, {ID: "c", Score: 1.0}}

	out := FuseWeighted(vector, graph, 0.6, 0.4)
	byID := map[string]model.Candidate{}
	for _, c := range out {
		byID[c.ID] = c
	}
	if len(out) != 3 {
		t.Fatalf("expected union of both sides, got %d", len(out))
	}
	if byID["a"].Score <= byID["b"].Score {
		t.Errorf("expected candidate present on both sides to outscore vector-only candidate b")
	}
}
