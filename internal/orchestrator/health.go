package orchestrator

import (
	"sync"
	"time"

	"github.com/conhub/rde/internal/strategy"
)

// graphHealthTracker records the last time the graph backend answered
// successfully, shared and mutated across concurrent requests.
type graphHealthTracker struct {
	mu                 sync.RWMutex
	lastSuccessfulCall time.Time
	staleAfter         time.Duration
}

func newGraphHealthTracker(staleAfter time.Duration) *graphHealthTracker {
	return &graphHealthTracker{staleAfter: staleAfter}
}

func (t *graphHealthTracker) RecordSuccess(at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if at.After(t.lastSuccessfulCall) {
		t.lastSuccessfulCall = at
	}
}

func (t *graphHealthTracker) Snapshot() strategy.GraphHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strategy.GraphHealth{LastSuccessfulCall: t.lastSuccessfulCall, StalenessThreshold: t.staleAfter}
}
