// Package contextbuilder takes the ranked candidate list produced by
// fusion and trims it to the caller's block-count and token budgets
// without ever re-sorting it.
package contextbuilder

import (
	"fmt"
	"math"
	"strings"

	"github.com/conhub/rde/internal/model"
)

// minTruncatedTokens is the floor below which a sentence-truncated
// candidate is dropped rather than included.
const minTruncatedTokens = 64

// Build enforces max_blocks and max_tokens over candidates already ranked
// by fusion, in order, tagging provenance on the way out.
func Build(candidates []model.Candidate, strategyUsed model.Strategy, maxBlocks, maxTokens int) []model.Block {
	if maxBlocks <= 0 {
		return nil
	}

	selected := make([]model.Block, 0, maxBlocks)
	running := 0
	truncationBudget := int(math.Ceil(0.25 * float64(maxBlocks)))

	for _, c := range candidates {
		if len(selected) >= maxBlocks {
			break
		}

		tokens := tokenCount(c)
		if running+tokens <= maxTokens {
			selected = append(selected, toBlock(c, tokens, strategyUsed))
			running += tokens
			continue
		}

		// Truncation only rescues a candidate while the selection is still
		// empty; once any full block has landed, a later overflowing
		// candidate is dropped rather than stitched in as a partial one.
		if len(selected) != 0 || len(selected) >= truncationBudget {
			continue
		}

		remaining := maxTokens - running
		if remaining < minTruncatedTokens {
			continue
		}
		truncatedText, truncatedTokens := truncateToTokenBudget(c.Text, remaining)
		if truncatedTokens < minTruncatedTokens {
			continue
		}
		tc := c
		tc.Text = truncatedText
		selected = append(selected, toBlock(tc, truncatedTokens, strategyUsed))
		running += truncatedTokens
	}

	return selected
}

// tokenCount returns the candidate's backend-supplied token count, falling
// back to ceil(len_chars/4) when absent.
func tokenCount(c model.Candidate) int {
	if c.TokenCount > 0 {
		return c.TokenCount
	}
	return charFallbackTokens(c.Text)
}

func charFallbackTokens(text string) int {
	if text == "" {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / 4))
}

// truncateToTokenBudget cuts text at the last sentence boundary that fits
// within budget tokens (char/4 estimate), falling back to a hard cut if no
// sentence boundary exists.
func truncateToTokenBudget(text string, budget int) (string, int) {
	maxChars := budget * 4
	if maxChars >= len(text) {
		return text, charFallbackTokens(text)
	}

	window := text[:maxChars]
	cut := lastSentenceBoundary(window)
	if cut <= 0 {
		cut = maxChars
	}
	truncated := strings.TrimSpace(text[:cut])
	return truncated, charFallbackTokens(truncated)
}

func lastSentenceBoundary(s string) int {
	best := -1
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			best = i + 1
		}
	}
	return best
}

func toBlock(c model.Candidate, tokens int, strategyUsed model.Strategy) model.Block {
	meta := make(map[string]any, len(c.Metadata)+3)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta["backend"] = backendTag(c.Backend)
	meta["strategy_used"] = string(strategyUsed)
	if len(c.Path) > 0 {
		meta["path"] = c.Path
	}

	return model.Block{
		ID:         c.ID,
		SourceID:   c.SourceID,
		Text:       c.Text,
		SourceType: c.SourceType,
		Score:      c.Score,
		TokenCount: tokens,
		Metadata:   meta,
	}
}

// backendTag collapses a candidate's accumulated provenance into the
// single backend∈{vector,graph,fused} tag required on every block.
func backendTag(backends []string) string {
	switch len(backends) {
	case 0:
		return "fused"
	case 1:
		return backends[0]
	default:
		return "fused"
	}
}

// Summary captures the block list plus the total-before-truncation count
// the orchestrator needs for QueryResult.total_results.
type Summary struct {
	Blocks       []model.Block
	TotalResults int
}

// BuildSummary is a convenience wrapper pairing Build's output with the
// candidate count prior to truncation.
func BuildSummary(candidates []model.Candidate, strategyUsed model.Strategy, maxBlocks, maxTokens int) Summary {
	return Summary{
		Blocks:       Build(candidates, strategyUsed, maxBlocks, maxTokens),
		TotalResults: len(candidates),
	}
}

// Validate checks a block list holds its budget and dedup invariants; it
// does not check block order. Used by tests and as a defensive assertion
// point for callers building a QueryResult.
func Validate(blocks []model.Block, maxBlocks, maxTokens int) error {
	if len(blocks) > maxBlocks {
		return fmt.Errorf("contextbuilder: %d blocks exceeds max_blocks %d", len(blocks), maxBlocks)
	}
	sum := 0
	seen := map[string]bool{}
	for _, b := range blocks {
		sum += b.TokenCount
		key := b.SourceID + "\x00" + b.Text
		if seen[key] {
			return fmt.Errorf("contextbuilder: duplicate (source_id, text) pair for source_id %q", b.SourceID)
		}
		seen[key] = true
	}
	if sum > maxTokens {
		return fmt.Errorf("contextbuilder: token sum %d exceeds max_tokens %d", sum, maxTokens)
	}
	return nil
}
