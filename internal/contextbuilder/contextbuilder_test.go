package contextbuilder

import (
	"strings"
	"testing"

	"github.com/conhub/rde/internal/model"
)

func TestBuild_RespectsMaxBlocks(t *testing.T) {
	candidates := make([]model.Candidate, 5)
	for i := range candidates {
		candidates[i] = model.Candidate{ID: string(rune('a' + i)), Text: "short text", TokenCount: 10, Score: float64(5 - i)}
	}

	blocks := Build(candidates, model.StrategyVectorOnly, 3, 1000)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	if blocks[0].ID != "a" {
		t.Errorf("expected builder to preserve incoming rank order, got first id %q", blocks[0].ID)
	}
}

func TestBuild_RespectsMaxTokens(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: "a", TokenCount: 400, Backend: []string{"vector"}},
		{ID: "b", Text: "b", TokenCount: 400, Backend: []string{"vector"}},
		{ID: "c", Text: "c", TokenCount: 400, Backend: []string{"vector"}},
	}

	blocks := Build(candidates, model.StrategyVectorOnly, 10, 900)
	sum := 0
	for _, b := range blocks {
		sum += b.TokenCount
	}
	if sum > 900 {
		t.Fatalf("expected token sum <= 900, got %d", sum)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks to fit under budget, got %d", len(blocks))
	}
}

func TestBuild_TruncatesAtSentenceBoundaryWhenSelectionThin(t *testing.T) {
	longSentence := strings.Repeat("word ", 100) + "end of first sentence. " + strings.Repeat("more ", 100)
	candidates := []model.Candidate{
		{ID: "a", Text: longSentence, TokenCount: 2000, Backend: []string{"vector"}},
	}

	blocks := Build(candidates, model.StrategyVectorOnly, 10, 150)
	if len(blocks) != 1 {
		t.Fatalf("expected the thin selection to get a truncated block, got %d blocks", len(blocks))
	}
	if blocks[0].TokenCount > 150 {
		t.Errorf("truncated block should fit the remaining budget, got %d tokens", blocks[0].TokenCount)
	}
	if blocks[0].TokenCount < minTruncatedTokens {
		t.Errorf("truncated block below the minimum inclusion threshold should have been dropped, got %d tokens", blocks[0].TokenCount)
	}
}

func TestBuild_DropsOverflowWhenSelectionNotThin(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: "first", TokenCount: 50, Backend: []string{"vector"}},
		{ID: "b", Text: "second", TokenCount: 50, Backend: []string{"vector"}},
		{ID: "c", Text: "third", TokenCount: 50, Backend: []string{"vector"}},
		{ID: "overflow", Text: strings.Repeat("x ", 500), TokenCount: 1000, Backend: []string{"vector"}},
	}

	// max_blocks=4 -> truncation budget = ceil(0.25*4) = 1, already exhausted by earlier adds only if
	// they themselves overflowed; here they don't, so by the time we reach "overflow" selection has 3
	// blocks >= budget(1), so it must be skipped rather than truncated.
	blocks := Build(candidates, model.StrategyVectorOnly, 4, 160)
	for _, b := range blocks {
		if b.ID == "overflow" {
			t.Fatalf("expected overflow candidate to be dropped once the thin-selection budget is exhausted")
		}
	}
}

func TestBuild_OverflowAfterFullBlockIsDroppedNotTruncated(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: "short enough to fit whole", TokenCount: 200, Score: 0.91, Backend: []string{"vector"}},
		{ID: "b", Text: "far too long to fit in the remaining budget", TokenCount: 500, Score: 0.72, Backend: []string{"vector"}},
	}

	blocks := Build(candidates, model.StrategyVectorOnly, model.DefaultMaxBlocks, 400)
	if len(blocks) != 1 {
		t.Fatalf("expected exactly one block once the top hit exhausts most of the budget, got %d", len(blocks))
	}
	if blocks[0].ID != "a" {
		t.Errorf("expected the higher-scored hit to be the one kept, got %q", blocks[0].ID)
	}
}

func TestBuild_FallsBackToCharTokenCount(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: strings.Repeat("x", 40), Backend: []string{"graph"}},
	}

	blocks := Build(candidates, model.StrategyGraphOnly, 5, 1000)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	if blocks[0].TokenCount != 10 {
		t.Errorf("expected fallback token count ceil(40/4)=10, got %d", blocks[0].TokenCount)
	}
}

func TestBuild_TagsProvenance(t *testing.T) {
	candidates := []model.Candidate{
		{ID: "a", Text: "x", TokenCount: 1, Backend: []string{"graph"}, Path: []string{"OWNS", "BELONGS_TO"}},
		{ID: "b", Text: "y", TokenCount: 1, Backend: []string{"vector", "graph"}},
	}

	blocks := Build(candidates, model.StrategyHybrid, 5, 1000)
	if blocks[0].Metadata["backend"] != "graph" {
		t.Errorf("expected single-backend candidate tagged graph, got %v", blocks[0].Metadata["backend"])
	}
	if blocks[0].Metadata["path"] == nil {
		t.Error("expected graph-sourced block to carry path in metadata")
	}
	if blocks[1].Metadata["backend"] != "fused" {
		t.Errorf("expected multi-backend candidate tagged fused, got %v", blocks[1].Metadata["backend"])
	}
	if blocks[0].Metadata["strategy_used"] != "hybrid" {
		t.Errorf("expected strategy_used tag, got %v", blocks[0].Metadata["strategy_used"])
	}
}

func TestValidate_CatchesDuplicateSourceTextPair(t *testing.T) {
	blocks := []model.Block{
		{ID: "a", SourceID: "doc1", Text: "same", TokenCount: 10},
		{ID: "b", SourceID: "doc1", Text: "same", TokenCount: 10},
	}
	if err := Validate(blocks, 10, 1000); err == nil {
		t.Error("expected duplicate (source_id, text) pair to be rejected")
	}
}

func TestValidate_CatchesBudgetViolations(t *testing.T) {
	blocks := []model.Block{{ID: "a", TokenCount: 5000}}
	if err := Validate(blocks, 10, 1000); err == nil {
		t.Error("expected token budget violation to be caught")
	}
}
