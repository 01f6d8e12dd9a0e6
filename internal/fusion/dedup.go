package fusion

import "github.com/conhub/rde/internal/model"

// dedupSimilarityThreshold and dedupLenRatioThreshold tune the
// near-duplicate detector below.
const (
	dedupSimilarityThreshold = 0.9
	dedupLenRatioThreshold   = 0.1
)

// Deduplicate collapses candidates that share an id, or that share a
// source_id and are near-duplicate text (5-gram shingle containment
// standing in for token-set cosine similarity, plus the length-ratio
// guard). The surviving candidate keeps the higher base_score; its
// Backend provenance accumulates both sides'.
func Deduplicate(candidates []model.Candidate) []model.Candidate {
	kept := make([]model.Candidate, 0, len(candidates))
	shingleCache := make([]map[string]struct{}, 0, len(candidates))

	for _, c := range candidates {
		dupIdx := -1
		cShingles := shingles(c.Text, 5)
		for i, k := range kept {
			if k.ID != "" && c.ID != "" && k.ID == c.ID {
				dupIdx = i
				break
			}
			if k.SourceID != "" && k.SourceID == c.SourceID &&
				lenRatio(k.Text, c.Text) < dedupLenRatioThreshold &&
				shingleContainment(shingleCache[i], cShingles) > dedupSimilarityThreshold {
				dupIdx = i
				break
			}
		}

		if dupIdx == -1 {
			kept = append(kept, c)
			shingleCache = append(shingleCache, cShingles)
			continue
		}

		existing := kept[dupIdx]
		merged := existing
		if c.BaseScore > existing.BaseScore {
			merged = c
		}
		merged.Backend = mergeBackends(existing.Backend, c.Backend)
		kept[dupIdx] = merged
	}

	return kept
}

func mergeBackends(a, b []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func lenRatio(a, b string) float64 {
	la, lb := float64(len(a)), float64(len(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	if maxLen == 0 {
		return 0
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	return diff / maxLen
}

// shingles returns the set of n-gram character shingles for a lowercased,
// whitespace-collapsed text, grounded on the 5-gram containment technique
// used for echo/near-duplicate detection in adjacent retrieval pipelines.
func shingles(text string, n int) map[string]struct{} {
	normalized := normalizeForShingles(text)
	set := map[string]struct{}{}
	if len(normalized) < n {
		if normalized != "" {
			set[normalized] = struct{}{}
		}
		return set
	}
	for i := 0; i+n <= len(normalized); i++ {
		set[normalized[i:i+n]] = struct{}{}
	}
	return set
}

func normalizeForShingles(text string) string {
	out := make([]byte, 0, len(text))
	prevSpace := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+('a'-'A'))
			prevSpace = false
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			if !prevSpace {
				out = append(out, ' ')
			}
			prevSpace = true
		default:
			out = append(out, c)
			prevSpace = false
		}
	}
	return string(out)
}

// shingleContainment approximates token-set cosine similarity with
// |A∩B| / min(|A|,|B|) over character shingle sets — a cheap, order
// sensitive proxy that catches truncated/re-chunked duplicate content.
func shingleContainment(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	small, big := a, b
	if len(b) < len(a) {
		small, big = b, a
	}
	for s := range small {
		if _, ok := big[s]; ok {
			inter++
		}
	}
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	return float64(inter) / float64(minLen)
}
