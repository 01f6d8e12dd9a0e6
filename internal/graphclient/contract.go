// Package graphclient implements a narrow, replaceable client to the
// external Graph Backend. ArangoDB is one concrete backend, adapted from
// the traversal style the engine's other graph-backed service uses; an
// in-memory fake stands in for tests.
package graphclient

import (
	"context"

	"github.com/conhub/rde/internal/model"
)

// ExpandFilters narrows graph expansion beyond the seed set.
type ExpandFilters struct {
	MaxHops        int
	EdgeAllowlist  []string
	MaxNodes       int
}

// ExpandResult is the raw output of a traversal: nodes, edges, and the
// path (ordered edge types) that reached each node.
type ExpandResult struct {
	Nodes []model.GraphHit
	Edges []Edge
	Paths map[string][]string // node_id -> ordered edge types traversed
}

// Edge is one traversed graph edge.
type Edge struct {
	From, To, Type string
}

// Backend is the narrow contract a concrete graph database implements:
// seed lookup, bounded traversal, and hydration. ConHub's graph
// ingestion/ownership model sits behind it — this package never implements
// storage, only the query side.
type Backend interface {
	SearchSeeds(ctx context.Context, entities []string, filters ExpandFilters) ([]model.GraphHit, error)
	Expand(ctx context.Context, seedNodeIDs []string, filters ExpandFilters) (ExpandResult, error)
	Hydrate(ctx context.Context, nodeIDs []string) ([]model.GraphHit, error)
	Health(ctx context.Context) bool
}

// Client drives seed -> expand -> hydrate for a single query, applying
// modality-narrowed edge allowlists and score normalization.
type Client interface {
	Search(ctx context.Context, entities []string, nounPhrases []string, modality model.ModalityHint) (Result, error)
	Health(ctx context.Context) bool
}

// Result bundles the hydrated hits with whether the backend reported a
// partial failure.
type Result struct {
	Hits    []model.GraphHit
	Partial bool
}
