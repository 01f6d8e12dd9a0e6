// Package fusion normalizes raw backend hits to Candidates, deduplicates
// near-identical results, fuses per-strategy scores (RRF / weighted /
// direct), and re-ranks by score, recency, or diversity (MMR).
package fusion

import (
	"strconv"
	"strings"

	"github.com/conhub/rde/common/id"
	"github.com/conhub/rde/internal/model"
)

// FromVectorHits normalizes a VectorHit list to Candidates, keeping the
// list's order, which RRF later reads as each candidate's rank.
func FromVectorHits(hits []model.VectorHit) []model.Candidate {
	out := make([]model.Candidate, len(hits))
	for i, h := range hits {
		chunkID := h.ChunkID
		if chunkID == "" {
			// Some vector backends omit chunk_id on raw hits; synthesize a
			// stable candidate ID so downstream dedup and Block.ID still
			// have something to key on.
			chunkID = strconv.FormatInt(id.New(), 10)
		}
		out[i] = model.Candidate{
			ID:         chunkID,
			SourceID:   h.DocumentID,
			Text:       h.Content,
			TokenCount: h.TokenCount,
			BaseScore:  h.Score,
			Score:      h.Score,
			Backend:    []string{"vector"},
			SourceType: h.SourceType,
			Timestamp:  h.Timestamp,
			Metadata:   h.Metadata,
		}
	}
	return out
}

// FromGraphHits normalizes a GraphHit list to Candidates.
func FromGraphHits(hits []model.GraphHit) []model.Candidate {
	out := make([]model.Candidate, len(hits))
	for i, h := range hits {
		id := h.ChunkID
		if id == "" {
			id = h.NodeID
		}
		out[i] = model.Candidate{
			ID:         id,
			SourceID:   h.NodeID,
			Text:       h.Content,
			TokenCount: h.TokenCount,
			BaseScore:  h.Score,
			Score:      h.Score,
			Backend:    []string{"graph"},
			Path:       h.Path,
			Timestamp:  h.Timestamp,
			Metadata:   h.Metadata,
		}
	}
	return out
}

// tokenSet returns the lowercased whitespace-token set of s, used by
// MMR's Jaccard similarity.
func tokenSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
