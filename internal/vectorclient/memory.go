package vectorclient

import (
	"context"
	"sync"

	"github.com/conhub/rde/internal/model"
)

// MemoryBackend is an in-memory fake Backend for tests.
type MemoryBackend struct {
	mu          sync.Mutex
	byCollection map[string][]model.VectorHit
	byChunkID    map[string]model.VectorHit
	healthy      bool
	err          error
}

// NewMemoryBackend returns a healthy, empty fake.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		byCollection: map[string][]model.VectorHit{},
		byChunkID:    map[string]model.VectorHit{},
		healthy:      true,
	}
}

// Seed installs hits under the given collection for Search to return,
// and indexes them by ChunkID for SearchByIDs.
func (m *MemoryBackend) Seed(collection string, hits ...model.VectorHit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byCollection[collection] = append(m.byCollection[collection], hits...)
	for _, h := range hits {
		m.byChunkID[h.ChunkID] = h
	}
}

// SetErr forces every Search/SearchByIDs call to fail, for exercising
// BackendUnavailable paths.
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

func (m *MemoryBackend) Search(_ context.Context, collection, _ string, _ SearchFilters, topK int) ([]model.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	hits := m.byCollection[collection]
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]model.VectorHit, len(hits))
	copy(out, hits)
	return out, nil
}

func (m *MemoryBackend) SearchByIDs(_ context.Context, ids []string) ([]model.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []model.VectorHit
	for _, id := range ids {
		if h, ok := m.byChunkID[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MemoryBackend) Health(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.healthy
}
