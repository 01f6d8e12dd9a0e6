package graphclient

import (
	"context"
	"strings"
	"sync"

	"github.com/conhub/rde/internal/model"
)

// MemoryBackend is an in-memory fake Backend for tests.
type MemoryBackend struct {
	mu       sync.Mutex
	nodes    map[string]model.GraphHit
	edges    []Edge
	healthy  bool
	err      error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{nodes: map[string]model.GraphHit{}, healthy: true}
}

func (m *MemoryBackend) SeedNode(hit model.GraphHit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes[hit.NodeID] = hit
}

func (m *MemoryBackend) SeedEdge(e Edge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, e)
}

func (m *MemoryBackend) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MemoryBackend) SetHealthy(healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.healthy = healthy
}

func (m *MemoryBackend) SearchSeeds(_ context.Context, entities []string, _ ExpandFilters) ([]model.GraphHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.GraphHit
	for _, n := range m.nodes {
		for _, e := range entities {
			if strings.Contains(strings.ToLower(n.NodeID), strings.ToLower(e)) ||
				strings.Contains(strings.ToLower(fmtMeta(n)), strings.ToLower(e)) {
				out = append(out, n)
				break
			}
		}
	}
	return out, nil
}

func fmtMeta(n model.GraphHit) string {
	if name, ok := n.Metadata["name"].(string); ok {
		return name
	}
	return n.NodeID
}

func (m *MemoryBackend) Expand(_ context.Context, seedNodeIDs []string, filters ExpandFilters) (ExpandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return ExpandResult{}, m.err
	}

	visited := map[string]bool{}
	paths := map[string][]string{}
	var nodes []model.GraphHit
	for _, s := range seedNodeIDs {
		if n, ok := m.nodes[s]; ok && !visited[s] {
			visited[s] = true
			nodes = append(nodes, n)
			paths[s] = nil
		}
	}

	for _, e := range m.edges {
		if allowed(filters.EdgeAllowlist, e.Type) && visited[e.From] && !visited[e.To] {
			if n, ok := m.nodes[e.To]; ok {
				visited[e.To] = true
				nodes = append(nodes, n)
				paths[e.To] = append(append([]string{}, paths[e.From]...), e.Type)
			}
		}
	}

	return ExpandResult{Nodes: nodes, Edges: m.edges, Paths: paths}, nil
}

func allowed(allowlist []string, edgeType string) bool {
	if len(allowlist) == 0 {
		return true
	}
	for _, t := range allowlist {
		if t == edgeType {
			return true
		}
	}
	return false
}

func (m *MemoryBackend) Hydrate(_ context.Context, nodeIDs []string) ([]model.GraphHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.GraphHit
	for _, id := range nodeIDs {
		if n, ok := m.nodes[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *MemoryBackend) Health(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}
