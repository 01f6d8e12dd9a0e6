package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/conhub/rde/internal/model"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Key computes a stable cache key: a hash of tenant_id, normalized text,
// sources, filters, and the budget/override fields, so that equivalent
// queries (modulo whitespace and case) share an entry.
func Key(q model.Query) string {
	sources := append([]model.ModalityHint{}, q.Sources...)
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })

	var filters model.Filters
	if q.Filters != nil {
		filters = *q.Filters
	}

	canonical := struct {
		TenantID      string               `json:"tenant_id"`
		Text          string               `json:"text"`
		Sources       []model.ModalityHint `json:"sources"`
		Filters       model.Filters        `json:"filters"`
		MaxBlocks     int                  `json:"max_blocks"`
		MaxTokens     int                  `json:"max_tokens"`
		ForceStrategy model.Strategy       `json:"force_strategy"`
	}{
		TenantID:      q.TenantID,
		Text:          normalizeText(q.Text),
		Sources:       sources,
		Filters:       filters,
		MaxBlocks:     q.MaxBlocks,
		MaxTokens:     q.MaxTokens,
		ForceStrategy: q.ForceStrategy,
	}

	b, err := json.Marshal(canonical)
	if err != nil {
		// Marshal of a fully concrete struct cannot fail; this branch only
		// exists to keep Key() panic-free if the struct ever grows a
		// non-marshalable field.
		b = []byte(fmt.Sprintf("%+v", canonical))
	}

	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func normalizeText(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	return whitespaceRe.ReplaceAllString(lower, " ")
}
