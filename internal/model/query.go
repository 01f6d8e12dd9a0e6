// Package model holds the shared data types that flow through the
// retrieval pipeline: the inbound Query, the intermediate hits and
// candidates, and the outbound QueryResult.
package model

import (
	"fmt"
	"time"
)

// QueryKind is the closed set of classifications the analyzer may emit.
type QueryKind string

const (
	KindFactLookup       QueryKind = "fact_lookup"
	KindEpisodicLookup   QueryKind = "episodic_lookup"
	KindTopologyQuestion QueryKind = "topology_question"
	KindExplainer        QueryKind = "explainer"
	KindHowTo            QueryKind = "how_to"
	KindTroubleshooting  QueryKind = "troubleshooting"
	KindTaskSupport      QueryKind = "task_support"
	KindComparison       QueryKind = "comparison"
	KindAggregation      QueryKind = "aggregation"
	KindUnknown          QueryKind = "unknown"
)

// ModalityHint is the kind of underlying content a query is most likely
// about.
type ModalityHint string

const (
	ModalityCode          ModalityHint = "code"
	ModalityDocs          ModalityHint = "docs"
	ModalityChat          ModalityHint = "chat"
	ModalityTickets       ModalityHint = "tickets"
	ModalityRobotEpisodic ModalityHint = "robot_episodic"
	ModalityRobotSemantic ModalityHint = "robot_semantic"
	ModalityMixed         ModalityHint = "mixed"
)

// Strategy is the retrieval plan the orchestrator will execute.
type Strategy string

const (
	StrategyVectorOnly      Strategy = "vector_only"
	StrategyGraphOnly       Strategy = "graph_only"
	StrategyHybrid          Strategy = "hybrid"
	StrategyVectorThenGraph Strategy = "vector_then_graph"
	StrategyGraphThenVector Strategy = "graph_then_vector"
)

// TimeWindow narrows results to a half-open interval.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filters narrows retrieval scope beyond tenant/source.
type Filters struct {
	Repos       []string    `json:"repos,omitempty"`
	PathPrefixes []string   `json:"path_prefixes,omitempty"`
	Authors     []string    `json:"authors,omitempty"`
	TimeWindow  *TimeWindow `json:"time_window,omitempty"`
}

// Query is one inbound search request. It is never persisted.
type Query struct {
	TenantID      string         `json:"tenant_id"`
	UserID        string         `json:"user_id,omitempty"`
	Text          string         `json:"query"`
	Sources       []ModalityHint `json:"sources,omitempty"`
	Filters       *Filters       `json:"filters,omitempty"`
	MaxBlocks     int            `json:"max_blocks,omitempty"`
	MaxTokens     int            `json:"max_tokens,omitempty"`
	ForceStrategy Strategy       `json:"force_strategy,omitempty"`
	IncludeDebug  bool           `json:"include_debug,omitempty"`
}

const (
	DefaultMaxBlocks = 20
	DefaultMaxTokens = 8000
	MinMaxBlocks     = 1
	MaxMaxBlocks     = 200
	MinMaxTokens     = 256
	MaxMaxTokens     = 64 * 1024
)

// Normalize fills in defaults for unset optional fields. Callers should
// call Validate after Normalize.
func (q *Query) Normalize() {
	if q.MaxBlocks == 0 {
		q.MaxBlocks = DefaultMaxBlocks
	}
	if q.MaxTokens == 0 {
		q.MaxTokens = DefaultMaxTokens
	}
}

// Validate enforces Query's field invariants. It returns a plain error;
// callers at the API boundary translate it into an InvalidInput failure.
func (q *Query) Validate() error {
	if q.Text == "" {
		return fmt.Errorf("query text must not be empty")
	}
	if q.TenantID == "" {
		return fmt.Errorf("tenant_id is required")
	}
	if q.MaxBlocks < MinMaxBlocks || q.MaxBlocks > MaxMaxBlocks {
		return fmt.Errorf("max_blocks must be in [%d, %d], got %d", MinMaxBlocks, MaxMaxBlocks, q.MaxBlocks)
	}
	if q.MaxTokens < MinMaxTokens || q.MaxTokens > MaxMaxTokens {
		return fmt.Errorf("max_tokens must be in [%d, %d], got %d", MinMaxTokens, MaxMaxTokens, q.MaxTokens)
	}
	return nil
}
