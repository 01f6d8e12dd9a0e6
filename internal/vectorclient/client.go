package vectorclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/conhub/rde/internal/model"
)

// CollectionMap resolves a modality into a tenant-scoped collection name,
// e.g. code -> tenant_X_code.
type CollectionMap func(tenantID string, modality model.ModalityHint) string

// DefaultCollectionMap is the static map shipped with the engine.
func DefaultCollectionMap(tenantID string, modality model.ModalityHint) string {
	return fmt.Sprintf("tenant_%s_%s", tenantID, modality)
}

type client struct {
	backend    Backend
	collection CollectionMap
	logger     *slog.Logger
	retryDelay time.Duration
}

// New returns a Client wrapping a single Backend, using the given
// CollectionMap to resolve modalities to collections. Pass nil logger to
// use slog.Default().
func New(backend Backend, collection CollectionMap, logger *slog.Logger) Client {
	if collection == nil {
		collection = DefaultCollectionMap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &client{backend: backend, collection: collection, logger: logger, retryDelay: 100 * time.Millisecond}
}

func (c *client) Search(ctx context.Context, q model.Query, modality model.ModalityHint, filters SearchFilters, topK int) (Result, error) {
	collections := c.resolveCollections(q, modality)
	if topK <= 0 {
		topK = defaultTopK(q.MaxBlocks)
	}

	type collResult struct {
		coll string
		hits []model.VectorHit
		err  error
	}

	results := make([]collResult, len(collections))
	var wg sync.WaitGroup
	for i, coll := range collections {
		wg.Add(1)
		go func(i int, coll string) {
			defer wg.Done()
			hits, err := c.searchOneWithRetry(ctx, coll, q.Text, filters, topK)
			results[i] = collResult{coll: coll, hits: hits, err: err}
		}(i, coll)
	}
	wg.Wait()

	var all []model.VectorHit
	partial := false
	searched := make([]string, 0, len(collections))
	var lastErr error
	for _, r := range results {
		if r.err != nil {
			partial = true
			lastErr = r.err
			c.logger.WarnContext(ctx, "vector collection search failed", "collection", r.coll, "error", r.err)
			continue
		}
		searched = append(searched, r.coll)
		all = append(all, r.hits...)
	}

	if partial && len(searched) == 0 {
		return Result{}, model.NewBackendUnavailable(lastErr)
	}

	return Result{Hits: all, CollectionsSearched: searched, Partial: partial}, nil
}

func (c *client) resolveCollections(q model.Query, modality model.ModalityHint) []string {
	sources := q.Sources
	if len(sources) == 0 {
		sources = []model.ModalityHint{modality}
	}
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, c.collection(q.TenantID, s))
	}
	return out
}

func (c *client) searchOneWithRetry(ctx context.Context, collection, text string, filters SearchFilters, topK int) ([]model.VectorHit, error) {
	hits, err := c.backend.Search(ctx, collection, text, filters, topK)
	if err == nil {
		return hits, nil
	}
	select {
	case <-time.After(c.retryDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return c.backend.Search(ctx, collection, text, filters, topK)
}

func (c *client) SearchByIDs(ctx context.Context, ids []string) ([]model.VectorHit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	hits, err := c.backend.SearchByIDs(ctx, ids)
	if err != nil {
		return nil, model.NewBackendUnavailable(err)
	}
	return hits, nil
}

func (c *client) Health(ctx context.Context) bool {
	return c.backend.Health(ctx)
}

func defaultTopK(maxBlocks int) int {
	if maxBlocks <= 0 {
		maxBlocks = model.DefaultMaxBlocks
	}
	topK := 2 * maxBlocks
	if topK < 50 {
		topK = 50
	}
	return topK
}
