// Package cache implements query-level memoization with a TTL and
// tag-based invalidation. Redis is the backend the server uses; an
// in-memory LRU stands in for tests.
package cache

import (
	"context"
	"time"

	"github.com/conhub/rde/internal/model"
)

// Entry is a cached QueryResult plus the bookkeeping invalidate needs.
type Entry struct {
	Value             model.QueryResult
	CreatedAt         time.Time
	TTL               time.Duration
	SourceTypesTouched []string
}

// Cache fronts the fusion pipeline with TTL + tag-based invalidation.
// Misses and write failures are
// non-fatal to callers; implementations log write failures rather than
// returning them where the contract allows (Put/Invalidate still return
// an error so callers CAN log, but must treat it as advisory).
type Cache interface {
	Get(ctx context.Context, key string) (model.QueryResult, bool)
	Put(ctx context.Context, key string, value model.QueryResult, ttl time.Duration, sourceTypesTouched []string) error
	Invalidate(ctx context.Context, tenantID string, sourceTypes []model.ModalityHint) error
	Size(ctx context.Context) int
}

// Tags builds the tenant-scoped (tenant_id, source_type) tuples an entry
// touched, used both when writing an entry's SourceTypesTouched and when
// matching an Invalidate call against it.
func Tags(tenantID string, sourceTypes []model.ModalityHint) []string {
	out := make([]string, len(sourceTypes))
	for i, st := range sourceTypes {
		out[i] = tenantID + "\x00" + string(st)
	}
	return out
}
