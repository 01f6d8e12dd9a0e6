package cache

import (
	"context"
	"testing"
	"time"

	"github.com/conhub/rde/internal/model"
)

func TestMemoryCache_GetMiss(t *testing.T) {
	c := NewMemoryCache(10)
	if _, ok := c.Get(context.Background(), "missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCache_PutGetRoundTrip(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()
	want := model.QueryResult{TotalResults: 3, QueryKind: model.KindFactLookup}

	if err := c.Put(ctx, "k1", want, time.Minute, nil); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, ok := c.Get(ctx, "k1")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.TotalResults != want.TotalResults {
		t.Errorf("got TotalResults = %d, want %d", got.TotalResults, want.TotalResults)
	}
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	c := NewMemoryCache(10)
	fixed := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	ctx := context.Background()
	_ = c.Put(ctx, "k1", model.QueryResult{}, time.Second, nil)

	c.now = func() time.Time { return fixed.Add(2 * time.Second) }
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("expected entry to have expired")
	}
}

func TestMemoryCache_EvictsLRUOverCapacity(t *testing.T) {
	c := NewMemoryCache(2)
	ctx := context.Background()

	_ = c.Put(ctx, "a", model.QueryResult{}, time.Minute, nil)
	_ = c.Put(ctx, "b", model.QueryResult{}, time.Minute, nil)
	c.Get(ctx, "a") // touch a, making b the least recently used
	_ = c.Put(ctx, "c", model.QueryResult{}, time.Minute, nil)

	if _, ok := c.Get(ctx, "b"); ok {
		t.Error("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get(ctx, "a"); !ok {
		t.Error("expected a to survive eviction")
	}
	if _, ok := c.Get(ctx, "c"); !ok {
		t.Error("expected freshly inserted c to survive")
	}
}

func TestMemoryCache_InvalidateBySourceType(t *testing.T) {
	c := NewMemoryCache(10)
	ctx := context.Background()

	tags := Tags("tenant1", []model.ModalityHint{model.ModalityCode})
	_ = c.Put(ctx, "k1", model.QueryResult{}, time.Minute, tags)
	_ = c.Put(ctx, "k2", model.QueryResult{}, time.Minute, Tags("tenant1", []model.ModalityHint{model.ModalityDocs}))

	if err := c.Invalidate(ctx, "tenant1", []model.ModalityHint{model.ModalityCode}); err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if _, ok := c.Get(ctx, "k1"); ok {
		t.Error("expected k1 to be invalidated")
	}
	if _, ok := c.Get(ctx, "k2"); !ok {
		t.Error("expected k2 (different source type) to survive invalidation")
	}
}

func TestKey_StableAcrossWhitespaceAndCase(t *testing.T) {
	a := model.Query{TenantID: "t1", Text: "Hello   World", MaxBlocks: 20, MaxTokens: 8000}
	b := model.Query{TenantID: "t1", Text: "hello world", MaxBlocks: 20, MaxTokens: 8000}
	if Key(a) != Key(b) {
		t.Error("expected whitespace/case-insensitive keys to match")
	}
}

func TestKey_DiffersOnFilters(t *testing.T) {
	a := model.Query{TenantID: "t1", Text: "hello", MaxBlocks: 20, MaxTokens: 8000}
	b := model.Query{TenantID: "t1", Text: "hello", MaxBlocks: 20, MaxTokens: 8000, Filters: &model.Filters{Repos: []string{"repo1"}}}
	if Key(a) == Key(b) {
		t.Error("expected differing filters to produce differing keys")
	}
}
