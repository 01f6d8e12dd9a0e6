package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/conhub/rde/common/id"
	"github.com/conhub/rde/common/logger"
	"github.com/conhub/rde/internal/analyzer"
	"github.com/conhub/rde/internal/cache"
	"github.com/conhub/rde/internal/contextbuilder"
	"github.com/conhub/rde/internal/fusion"
	"github.com/conhub/rde/internal/graphclient"
	"github.com/conhub/rde/internal/model"
	"github.com/conhub/rde/internal/strategy"
	"github.com/conhub/rde/internal/vectorclient"
)

// ErrAtCapacity is returned when the bounded concurrency limit is
// exhausted. The public API maps it to 503 + Retry-After.
var ErrAtCapacity = errors.New("orchestrator: at capacity")

// Orchestrator wires the analyzer, strategy selector, and both backend
// clients together through the cache with the concurrency/timeout/
// cancellation model.
type Orchestrator struct {
	analyzer analyzer.Analyzer
	selector strategy.Selector
	vector   vectorclient.Client
	graph    graphclient.Client
	cache    cache.Cache

	cfg         Config
	fusionCfg   fusion.Config
	sem         semaphore
	graphHealth *graphHealthTracker
	now         func() time.Time
	logger      *slog.Logger
}

// Deps bundles the components an Orchestrator wires together. Graph may
// be nil if no graph backend is configured; every graph-involving
// strategy then degrades to its vector-only counterpart.
type Deps struct {
	Analyzer analyzer.Analyzer
	Selector strategy.Selector
	Vector   vectorclient.Client
	Graph    graphclient.Client
	Cache    cache.Cache
	Logger   *slog.Logger
}

// New builds an Orchestrator. cfg is used as given: zero-value fields are
// not replaced by DefaultConfig's values (a zero MaxConcurrency admits no
// requests).
func New(deps Deps, cfg Config, fusionCfg fusion.Config) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Orchestrator{
		analyzer:    deps.Analyzer,
		selector:    deps.Selector,
		vector:      deps.Vector,
		graph:       deps.Graph,
		cache:       deps.Cache,
		cfg:         cfg,
		fusionCfg:   fusionCfg,
		sem:         newSemaphore(cfg.MaxConcurrency),
		graphHealth: newGraphHealthTracker(cfg.GraphStaleAfter),
		now:         time.Now,
		logger:      deps.Logger,
	}
}

// Run executes the full pipeline for one query.
func (o *Orchestrator) Run(ctx context.Context, q model.Query) (model.QueryResult, error) {
	start := o.now()

	q.Normalize()
	if err := q.Validate(); err != nil {
		return model.QueryResult{}, model.NewInvalidInput(err)
	}

	if !o.sem.TryAcquire() {
		return model.QueryResult{}, ErrAtCapacity
	}
	defer o.sem.Release()

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestTimeout)
	defer cancel()

	queryID := strconv.FormatInt(id.New(), 10)
	ctx = logger.WithLogFields(ctx, logger.LogFields{TenantID: q.TenantID, QueryID: queryID, Component: "rde.orchestrator"})

	key := cache.Key(q)
	if cached, ok := o.cache.Get(ctx, key); ok {
		cached.TookMS = o.now().Sub(start).Milliseconds()
		if q.IncludeDebug && cached.Debug != nil {
			hit := *cached.Debug
			hit.Cache = "hit"
			hit.QueryID = queryID
			cached.Debug = &hit
		}
		return cached, nil
	}

	analysis := o.analyzer.Analyze(q.Text, q.Sources)
	decision := o.selector.Select(analysis.Kind, analysis.Modality, q.ForceStrategy, o.graphHealth.Snapshot())
	ctx = logger.WithLogFields(ctx, logger.LogFields{QueryID: queryID, Strategy: string(decision.Strategy), QueryKind: string(analysis.Kind)})

	result, partial, err := o.execute(ctx, q, analysis, decision.Strategy)
	if err != nil {
		var rerr *model.RDEError
		if errors.As(err, &rerr) && rerr.Kind == model.KindDeadlineExceeded {
			return model.QueryResult{}, err
		}
		return model.QueryResult{}, model.NewInternal(err)
	}

	result.QueryKind = analysis.Kind
	result.StrategyUsed = decision.Strategy
	result.TookMS = o.now().Sub(start).Milliseconds()
	if q.IncludeDebug {
		if result.Debug == nil {
			result.Debug = &model.Debug{}
		}
		result.Debug.QueryID = queryID
		result.Debug.ModalityHint = analysis.Modality
		result.Debug.Cache = "miss"
		result.Debug.Partial = partial
		result.Debug.GraphDegraded = decision.GraphDegraded
	}

	if ctx.Err() != nil {
		// Cancelled or deadline-exceeded after useful work completed: the
		// caller already has nothing to do with a cache write.
		return result, nil
	}

	if !partial {
		sourceTypes := q.Sources
		if len(sourceTypes) == 0 {
			sourceTypes = []model.ModalityHint{analysis.Modality}
		}
		tags := cache.Tags(q.TenantID, sourceTypes)
		if err := o.cache.Put(ctx, key, result, o.cfg.CacheTTL, tags); err != nil {
			o.logger.WarnContext(ctx, "cache put failed", "error", err)
		}
	}

	return result, nil
}

// execute runs the selected strategy against the vector and graph
// backends, fuses the results, and builds context blocks. The returned
// bool reports whether any backend failure was tolerated (partial result).
func (o *Orchestrator) execute(ctx context.Context, q model.Query, analysis analyzer.Result, strat model.Strategy) (model.QueryResult, bool, error) {
	vectorFilters := vectorclient.SearchFilters{TenantID: q.TenantID}
	if q.Filters != nil {
		vectorFilters.Repos = q.Filters.Repos
		vectorFilters.PathPrefixes = q.Filters.PathPrefixes
		vectorFilters.Authors = q.Filters.Authors
		vectorFilters.TimeWindow = q.Filters.TimeWindow
	}
	if analysis.TimeHint != nil {
		vectorFilters.TimeWindow = analysis.TimeHint
	}

	nounPhrases := strings.Fields(strings.ToLower(q.Text))

	switch strat {
	case model.StrategyVectorOnly:
		return o.runVectorOnly(ctx, q, analysis, vectorFilters, strat)
	case model.StrategyGraphOnly:
		return o.runGraphOnly(ctx, q, analysis, nounPhrases, strat)
	case model.StrategyHybrid:
		return o.runHybrid(ctx, q, analysis, vectorFilters, nounPhrases, strat)
	case model.StrategyVectorThenGraph:
		return o.runVectorThenGraph(ctx, q, analysis, vectorFilters, nounPhrases, strat)
	case model.StrategyGraphThenVector:
		return o.runGraphThenVector(ctx, q, analysis, nounPhrases, strat)
	default:
		return o.runVectorOnly(ctx, q, analysis, vectorFilters, strat)
	}
}

func (o *Orchestrator) perBackendCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.cfg.PerBackendTimeout)
}

func (o *Orchestrator) runVectorOnly(ctx context.Context, q model.Query, analysis analyzer.Result, filters vectorclient.SearchFilters, strat model.Strategy) (model.QueryResult, bool, error) {
	vctx, cancel := o.perBackendCtx(ctx)
	defer cancel()

	sc := logger.StartSpan(vctx, "rde.vector.search")
	vres, err := o.vector.Search(sc.Context(), q, analysis.Modality, filters, 0)
	if err != nil {
		sc.RecordError(err)
	}
	sc.End()
	if err != nil {
		return model.QueryResult{}, false, deadlineAwareErr(ctx, err)
	}

	candidates := fusion.FromVectorHits(vres.Hits)
	return o.fuseAndBuild(q, strat, analysis.Kind, [][]model.Candidate{candidates}, nil, vres.CollectionsSearched, len(vres.Hits), 0, vres.Partial)
}

func (o *Orchestrator) runGraphOnly(ctx context.Context, q model.Query, analysis analyzer.Result, nounPhrases []string, strat model.Strategy) (model.QueryResult, bool, error) {
	if o.graph == nil {
		return o.runVectorOnly(ctx, q, analysis, vectorclient.SearchFilters{TenantID: q.TenantID}, model.StrategyVectorOnly)
	}

	gctx, cancel := o.perBackendCtx(ctx)
	defer cancel()

	sc := logger.StartSpan(gctx, "rde.graph.search")
	gres, err := o.graph.Search(sc.Context(), analysis.Entities, nounPhrases, analysis.Modality)
	if err != nil {
		sc.RecordError(err)
	}
	sc.End()
	if err != nil {
		o.logger.WarnContext(ctx, "graph search failed, degrading to vector_only", "error", err)
		return o.runVectorOnly(ctx, q, analysis, vectorclient.SearchFilters{TenantID: q.TenantID}, model.StrategyVectorOnly)
	}
	o.graphHealth.RecordSuccess(o.now())

	candidates := fusion.FromGraphHits(gres.Hits)
	return o.fuseAndBuild(q, strat, analysis.Kind, nil, candidates, nil, 0, len(gres.Hits), gres.Partial)
}

func (o *Orchestrator) runHybrid(ctx context.Context, q model.Query, analysis analyzer.Result, vf vectorclient.SearchFilters, nounPhrases []string, strat model.Strategy) (model.QueryResult, bool, error) {
	var (
		wg   sync.WaitGroup
		vRes vectorclient.Result
		vErr error
		gRes graphclient.Result
		gErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		vctx, cancel := o.perBackendCtx(ctx)
		defer cancel()
		sc := logger.StartSpan(vctx, "rde.vector.search")
		vRes, vErr = o.vector.Search(sc.Context(), q, analysis.Modality, vf, 0)
		if vErr != nil {
			sc.RecordError(vErr)
		}
		sc.End()
	}()

	if o.graph != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gctx, cancel := o.perBackendCtx(ctx)
			defer cancel()
			sc := logger.StartSpan(gctx, "rde.graph.search")
			gRes, gErr = o.graph.Search(sc.Context(), analysis.Entities, nounPhrases, analysis.Modality)
			if gErr != nil {
				sc.RecordError(gErr)
			}
			sc.End()
		}()
	} else {
		gErr = errNoGraphBackend
	}

	wg.Wait()

	if vErr != nil && gErr != nil {
		return model.QueryResult{}, false, deadlineAwareErr(ctx, vErr)
	}

	partial := vErr != nil || gErr != nil
	var vectorCandidates, graphCandidates []model.Candidate
	vectorHits, graphHits := 0, 0
	var collectionsSearched []string

	if vErr == nil {
		vectorCandidates = fusion.FromVectorHits(vRes.Hits)
		vectorHits = len(vRes.Hits)
		collectionsSearched = vRes.CollectionsSearched
		partial = partial || vRes.Partial
	} else {
		o.logger.WarnContext(ctx, "vector search failed in hybrid, continuing with graph only", "error", vErr)
	}
	if gErr == nil {
		graphCandidates = fusion.FromGraphHits(gRes.Hits)
		graphHits = len(gRes.Hits)
		partial = partial || gRes.Partial
		o.graphHealth.RecordSuccess(o.now())
	} else if !errors.Is(gErr, errNoGraphBackend) {
		o.logger.WarnContext(ctx, "graph search failed in hybrid, continuing with vector only", "error", gErr)
	}

	return o.fuseAndBuild(q, strat, analysis.Kind, [][]model.Candidate{vectorCandidates}, graphCandidates, collectionsSearched, vectorHits, graphHits, partial)
}

func (o *Orchestrator) runVectorThenGraph(ctx context.Context, q model.Query, analysis analyzer.Result, vf vectorclient.SearchFilters, nounPhrases []string, strat model.Strategy) (model.QueryResult, bool, error) {
	vctx, cancel := o.perBackendCtx(ctx)
	vRes, vErr := o.vector.Search(vctx, q, analysis.Modality, vf, 0)
	cancel()
	if vErr != nil {
		return model.QueryResult{}, false, deadlineAwareErr(ctx, vErr)
	}

	vectorCandidates := fusion.FromVectorHits(vRes.Hits)
	seedKeep := seedCount(q.MaxBlocks)
	seeds := append([]string{}, analysis.Entities...)
	for i, h := range vRes.Hits {
		if i >= seedKeep {
			break
		}
		seeds = append(seeds, entityIDsFromMetadata(h.Metadata)...)
	}

	if o.graph == nil {
		return o.fuseAndBuild(q, strat, analysis.Kind, [][]model.Candidate{vectorCandidates}, nil, vRes.CollectionsSearched, len(vRes.Hits), 0, vRes.Partial)
	}

	gctx, gcancel := o.perBackendCtx(ctx)
	gRes, gErr := o.graph.Search(gctx, dedupeStrings(seeds), nounPhrases, analysis.Modality)
	gcancel()

	partial := vRes.Partial
	var graphCandidates []model.Candidate
	graphHits := 0
	if gErr != nil {
		o.logger.WarnContext(ctx, "graph expansion failed in vector_then_graph, using vector only", "error", gErr)
		partial = true
	} else {
		graphCandidates = fusion.FromGraphHits(gRes.Hits)
		graphHits = len(gRes.Hits)
		partial = partial || gRes.Partial
		o.graphHealth.RecordSuccess(o.now())
	}

	return o.fuseAndBuild(q, strat, analysis.Kind, [][]model.Candidate{vectorCandidates}, graphCandidates, vRes.CollectionsSearched, len(vRes.Hits), graphHits, partial)
}

func (o *Orchestrator) runGraphThenVector(ctx context.Context, q model.Query, analysis analyzer.Result, nounPhrases []string, strat model.Strategy) (model.QueryResult, bool, error) {
	if o.graph == nil {
		return o.runVectorOnly(ctx, q, analysis, vectorclient.SearchFilters{TenantID: q.TenantID}, model.StrategyVectorOnly)
	}

	gctx, gcancel := o.perBackendCtx(ctx)
	gRes, gErr := o.graph.Search(gctx, analysis.Entities, nounPhrases, analysis.Modality)
	gcancel()
	if gErr != nil {
		return model.QueryResult{}, false, deadlineAwareErr(ctx, gErr)
	}
	o.graphHealth.RecordSuccess(o.now())

	graphCandidates := fusion.FromGraphHits(gRes.Hits)

	var chunkIDs []string
	for _, h := range gRes.Hits {
		if h.ChunkID != "" {
			chunkIDs = append(chunkIDs, h.ChunkID)
		}
	}

	partial := gRes.Partial
	var vectorCandidates []model.Candidate
	vectorHits := 0
	if len(chunkIDs) > 0 {
		vctx, vcancel := o.perBackendCtx(ctx)
		vHits, vErr := o.vector.SearchByIDs(vctx, chunkIDs)
		vcancel()
		if vErr != nil {
			o.logger.WarnContext(ctx, "vector search_by_ids failed in graph_then_vector, using graph only", "error", vErr)
			partial = true
		} else {
			vectorCandidates = fusion.FromVectorHits(vHits)
			vectorHits = len(vHits)
		}
	}

	return o.fuseAndBuild(q, strat, analysis.Kind, [][]model.Candidate{vectorCandidates}, graphCandidates, nil, vectorHits, len(gRes.Hits), partial)
}

func (o *Orchestrator) fuseAndBuild(q model.Query, strat model.Strategy, kind model.QueryKind, vectorLists [][]model.Candidate, graphList []model.Candidate, collectionsSearched []string, vectorHits, graphHits int, partial bool) (model.QueryResult, bool, error) {
	in := fusion.Input{
		Strategy:    strat,
		QueryKind:   kind,
		MaxBlocks:   q.MaxBlocks,
		VectorLists: vectorLists,
		GraphList:   graphList,
	}
	ranked := fusion.Run(in, o.fusionCfg, o.now())
	summary := contextbuilder.BuildSummary(ranked, strat, q.MaxBlocks, q.MaxTokens)

	result := model.QueryResult{
		Blocks:       summary.Blocks,
		TotalResults: summary.TotalResults,
	}
	if q.IncludeDebug {
		result.Debug = &model.Debug{
			CollectionsSearched: collectionsSearched,
			VectorResults:       vectorHits,
			GraphResults:        graphHits,
		}
	}
	return result, partial, nil
}

var errNoGraphBackend = errors.New("no graph backend configured")

func deadlineAwareErr(ctx context.Context, err error) error {
	if ctx.Err() == context.DeadlineExceeded {
		return model.NewDeadlineExceeded(err)
	}
	return model.NewBackendUnavailable(err)
}

func seedCount(maxBlocks int) int {
	if maxBlocks <= 0 {
		maxBlocks = model.DefaultMaxBlocks
	}
	n := 2 * maxBlocks
	if n < 20 {
		n = 20
	}
	return n
}

func entityIDsFromMetadata(meta map[string]any) []string {
	raw, ok := meta["entity_ids"]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func dedupeStrings(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
