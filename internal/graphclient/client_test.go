package graphclient

import (
	"context"
	"testing"

	"github.com/conhub/rde/internal/model"
)

func TestClient_Search_SeedExpandHydrate(t *testing.T) {
	backend := NewMemoryBackend()
	backend.SeedNode(model.GraphHit{NodeID: "repos/payment-service", Score: 0.9, Metadata: map[string]any{"name": "payment-service"}})
	backend.SeedNode(model.GraphHit{NodeID: "people/alice", Score: 0.85, Metadata: map[string]any{"name": "alice"}})
	backend.SeedEdge(Edge{From: "repos/payment-service", To: "people/alice", Type: "OWNS"})

	c := New(backend, nil)
	res, err := c.Search(context.Background(), []string{"payment-service"}, nil, model.ModalityMixed)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Hits) != 2 {
		t.Fatalf("Search() hits = %+v, want 2", res.Hits)
	}
	var alice *model.GraphHit
	for i := range res.Hits {
		if res.Hits[i].NodeID == "people/alice" {
			alice = &res.Hits[i]
		}
	}
	if alice == nil {
		t.Fatal("expected alice in expanded results")
	}
	if len(alice.Path) != 1 || alice.Path[0] != "OWNS" {
		t.Errorf("alice.Path = %v, want [OWNS]", alice.Path)
	}
}

func TestClient_Search_NoSeedsReturnsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	c := New(backend, nil)
	res, err := c.Search(context.Background(), []string{"nonexistent"}, nil, model.ModalityMixed)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Hits) != 0 {
		t.Errorf("Search() hits = %+v, want empty", res.Hits)
	}
}

func TestNormalizeScores(t *testing.T) {
	hits := []model.GraphHit{{Score: 0.5}, {Score: 1.0}, {Score: 0.25}}
	out := normalizeScores(hits)
	if out[1].Score != 1.0 || out[2].Score != 0.25 {
		t.Errorf("normalizeScores() = %+v", out)
	}
}
