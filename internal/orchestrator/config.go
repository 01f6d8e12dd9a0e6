// Package orchestrator drives the analyzer, strategy selector, backend
// clients, fusion, and context builder through the cache, with the
// concurrency, timeout, and cancellation model for the engine.
package orchestrator

import "time"

// Config names the tunables the engine loads from core/config.
type Config struct {
	PerBackendTimeout time.Duration
	RequestTimeout    time.Duration
	MaxConcurrency    int
	CacheTTL          time.Duration
	GraphStaleAfter   time.Duration
}

// DefaultConfig mirrors the defaults named for the engine.
func DefaultConfig() Config {
	return Config{
		PerBackendTimeout: 3 * time.Second,
		RequestTimeout:    8 * time.Second,
		MaxConcurrency:    256,
		CacheTTL:          60 * time.Second,
		GraphStaleAfter:   30 * time.Second,
	}
}
