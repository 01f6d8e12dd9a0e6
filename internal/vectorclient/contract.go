// Package vectorclient implements a narrow, replaceable client to the
// external Vector Backend. The engine depends only on the Backend
// interface; Typesense is one concrete backend, and an in-memory fake
// stands in for tests.
package vectorclient

import (
	"context"

	"github.com/conhub/rde/internal/model"
)

// SearchFilters narrows a vector search beyond collection scope.
type SearchFilters struct {
	TenantID     string
	Repos        []string
	PathPrefixes []string
	Authors      []string
	TimeWindow   *model.TimeWindow
}

// Backend is the narrow contract a concrete vector search engine
// implements: collection search and ID lookup. ConHub's embedding/storage
// layer sits behind it — this package never implements storage, only the
// query side.
type Backend interface {
	Search(ctx context.Context, collection, queryText string, filters SearchFilters, topK int) ([]model.VectorHit, error)
	SearchByIDs(ctx context.Context, ids []string) ([]model.VectorHit, error)
	Health(ctx context.Context) bool
}

// Client resolves Query sources into backend collections, fans out in
// parallel, and normalizes partial failures.
type Client interface {
	Search(ctx context.Context, q model.Query, modality model.ModalityHint, filters SearchFilters, topK int) (Result, error)
	SearchByIDs(ctx context.Context, ids []string) ([]model.VectorHit, error)
	Health(ctx context.Context) bool
}

// Result bundles the fanned-out hits with whether any collection failed.
type Result struct {
	Hits               []model.VectorHit
	CollectionsSearched []string
	Partial            bool
}
