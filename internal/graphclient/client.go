package graphclient

import (
	"context"
	"log/slog"
	"time"

	"github.com/conhub/rde/internal/model"
)

// codeEdgeAllowlist narrows traversal on code-modality topology
// questions to the edge types that matter for call/import/ownership
// structure.
var codeEdgeAllowlist = []string{"AUTHORED", "BELONGS_TO", "CALLS", "IMPORTS", "REFERS_TO"}

const (
	defaultHops     = 2
	defaultMaxNodes = 50
)

type client struct {
	backend    Backend
	logger     *slog.Logger
	retryDelay time.Duration
}

// New wraps a Backend with the seed/expand/hydrate orchestration and
// retry policy shared with the Vector Client. Pass nil logger to use
// slog.Default().
func New(backend Backend, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &client{backend: backend, logger: logger, retryDelay: 100 * time.Millisecond}
}

func (c *client) Search(ctx context.Context, entities []string, nounPhrases []string, modality model.ModalityHint) (Result, error) {
	filters := ExpandFilters{MaxHops: defaultHops, MaxNodes: defaultMaxNodes}
	if modality == model.ModalityCode {
		filters.EdgeAllowlist = codeEdgeAllowlist
	}

	seedTerms := entities
	if len(seedTerms) == 0 {
		seedTerms = topNounPhrases(nounPhrases, 3)
	}

	seeds, err := c.withRetry(ctx, func(ctx context.Context) ([]model.GraphHit, error) {
		return c.backend.SearchSeeds(ctx, seedTerms, filters)
	})
	if err != nil {
		return Result{}, model.NewBackendUnavailable(err)
	}
	if len(seeds) == 0 {
		return Result{}, nil
	}

	seedIDs := make([]string, len(seeds))
	for i, s := range seeds {
		seedIDs[i] = s.NodeID
	}

	expanded, err := c.withRetryExpand(ctx, seedIDs, filters)
	partial := false
	if err != nil {
		c.logger.WarnContext(ctx, "graph expand failed, falling back to seeds only", "error", err)
		partial = true
		expanded = ExpandResult{Nodes: seeds}
	}

	nodeIDs := make([]string, 0, len(expanded.Nodes))
	for _, n := range expanded.Nodes {
		nodeIDs = append(nodeIDs, n.NodeID)
	}

	hydrated, err := c.withRetry(ctx, func(ctx context.Context) ([]model.GraphHit, error) {
		return c.backend.Hydrate(ctx, nodeIDs)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "graph hydrate failed, using unhydrated nodes", "error", err)
		partial = true
		hydrated = expanded.Nodes
	}

	for i := range hydrated {
		if path, ok := expanded.Paths[hydrated[i].NodeID]; ok {
			hydrated[i].Path = path
		}
	}

	return Result{Hits: normalizeScores(hydrated), Partial: partial}, nil
}

func (c *client) withRetry(ctx context.Context, fn func(context.Context) ([]model.GraphHit, error)) ([]model.GraphHit, error) {
	hits, err := fn(ctx)
	if err == nil {
		return hits, nil
	}
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return fn(ctx)
}

func (c *client) withRetryExpand(ctx context.Context, seedIDs []string, filters ExpandFilters) (ExpandResult, error) {
	res, err := c.backend.Expand(ctx, seedIDs, filters)
	if err == nil {
		return res, nil
	}
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return ExpandResult{}, ctx.Err()
	}
	return c.backend.Expand(ctx, seedIDs, filters)
}

func (c *client) Health(ctx context.Context) bool {
	return c.backend.Health(ctx)
}

func topNounPhrases(phrases []string, n int) []string {
	if len(phrases) <= n {
		return phrases
	}
	return phrases[:n]
}

// normalizeScores re-normalizes raw backend scores into [0,1] by max,
// since backends are free to return scores on their own scale.
func normalizeScores(hits []model.GraphHit) []model.GraphHit {
	max := 0.0
	for _, h := range hits {
		if h.Score > max {
			max = h.Score
		}
	}
	if max <= 0 {
		return hits
	}
	out := make([]model.GraphHit, len(hits))
	for i, h := range hits {
		h.Score = h.Score / max
		out[i] = h
	}
	return out
}
