package model

import "time"

// VectorHit is a single ranked result from the Vector Backend.
type VectorHit struct {
	ChunkID    string
	DocumentID string
	Score      float64
	SourceType ModalityHint
	Content    string
	TokenCount int
	Timestamp  *time.Time
	Metadata   map[string]any
}

// GraphHit is a single ranked result from the Graph Backend.
type GraphHit struct {
	NodeID    string
	NodeType  string
	Score     float64
	ChunkID   string
	Content   string
	TokenCount int
	Path      []string
	Timestamp *time.Time
	Metadata  map[string]any
}

// Candidate is the normalized form of a VectorHit or GraphHit produced by
// the fusion stage's Step 1. It is the only shape the ranker operates on.
type Candidate struct {
	ID         string
	SourceID   string
	Text       string
	TokenCount int
	BaseScore  float64
	Score      float64
	Backend    []string // "vector", "graph" — accumulates on dedup merge
	SourceType ModalityHint
	Path       []string
	Timestamp  *time.Time
	Metadata   map[string]any
}

// Block is one unit of the final, token-budgeted context returned to the
// caller.
type Block struct {
	ID         string         `json:"id"`
	SourceID   string         `json:"source_id"`
	Text       string         `json:"text"`
	SourceType ModalityHint   `json:"source_type"`
	Score      float64        `json:"score"`
	TokenCount int            `json:"token_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Debug carries optional per-stage diagnostics, only populated when the
// caller sets IncludeDebug.
type Debug struct {
	QueryID            string       `json:"query_id,omitempty"`
	ModalityHint       ModalityHint `json:"modality_hint,omitempty"`
	CollectionsSearched []string    `json:"collections_searched,omitempty"`
	VectorResults      int          `json:"vector_results"`
	GraphResults       int          `json:"graph_results"`
	Cache              string       `json:"cache"`
	Partial            bool         `json:"partial"`
	GraphDegraded      bool         `json:"graph_degraded,omitempty"`
	Error              string       `json:"error,omitempty"`
}

// QueryResult is the full response to a search request.
type QueryResult struct {
	Blocks       []Block   `json:"blocks"`
	TotalResults int       `json:"total_results"`
	QueryKind    QueryKind `json:"query_kind"`
	StrategyUsed Strategy  `json:"strategy_used"`
	TookMS       int64     `json:"took_ms"`
	Debug        *Debug    `json:"debug,omitempty"`
}
