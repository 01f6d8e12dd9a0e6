// Package strategy implements a table-driven map from classifier output
// to a retrieval Strategy, with override rules for forced strategies,
// modality-narrowed topology questions, and graph degradation.
package strategy

import (
	"time"

	"github.com/conhub/rde/internal/model"
)

// defaultTable is the base query-kind-to-strategy mapping, before the
// forced-strategy, modality, and graph-staleness overrides in Select.
var defaultTable = map[model.QueryKind]model.Strategy{
	model.KindTopologyQuestion: model.StrategyGraphOnly,
	model.KindEpisodicLookup:   model.StrategyVectorOnly,
	model.KindFactLookup:       model.StrategyVectorOnly,
	model.KindExplainer:        model.StrategyHybrid,
	model.KindHowTo:            model.StrategyHybrid,
	model.KindTroubleshooting:  model.StrategyVectorThenGraph,
	model.KindTaskSupport:      model.StrategyHybrid,
	model.KindComparison:       model.StrategyVectorOnly,
	model.KindAggregation:      model.StrategyVectorOnly,
	model.KindUnknown:          model.StrategyHybrid,
}

// GraphHealth reports whether the graph backend has answered recently
// enough to be trusted for this request.
type GraphHealth struct {
	LastSuccessfulCall time.Time
	StalenessThreshold time.Duration
}

func (h GraphHealth) IsStale(now time.Time) bool {
	if h.LastSuccessfulCall.IsZero() {
		return true
	}
	return now.Sub(h.LastSuccessfulCall) > h.StalenessThreshold
}

// Decision is the selector's output: the chosen strategy plus whether
// degradation occurred, for debug annotation.
type Decision struct {
	Strategy      model.Strategy
	GraphDegraded bool
}

// Selector maps analyzer output to a Strategy.
type Selector interface {
	Select(kind model.QueryKind, modality model.ModalityHint, forced model.Strategy, health GraphHealth) Decision
}

type selector struct {
	now func() time.Time
}

// New returns the default Selector. nowFn defaults to time.Now; pass a
// fixed clock in tests that exercise staleness.
func New(nowFn func() time.Time) Selector {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &selector{now: nowFn}
}

func (s *selector) Select(kind model.QueryKind, modality model.ModalityHint, forced model.Strategy, health GraphHealth) Decision {
	if forced != "" {
		return Decision{Strategy: forced}
	}

	strat, ok := defaultTable[kind]
	if !ok {
		strat = model.StrategyHybrid
	}

	if strat == model.StrategyGraphOnly && (modality == model.ModalityCode || modality == model.ModalityDocs) {
		strat = model.StrategyVectorThenGraph
	}

	degraded := false
	if involvesGraph(strat) && health.IsStale(s.now()) {
		strat = model.StrategyVectorOnly
		degraded = true
	}

	return Decision{Strategy: strat, GraphDegraded: degraded}
}

func involvesGraph(s model.Strategy) bool {
	switch s {
	case model.StrategyGraphOnly, model.StrategyHybrid, model.StrategyVectorThenGraph, model.StrategyGraphThenVector:
		return true
	default:
		return false
	}
}
