// Package httpapi implements the gin router, handlers, and middleware
// fronting the Orchestrator.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/conhub/rde/internal/cache"
	"github.com/conhub/rde/internal/graphclient"
	"github.com/conhub/rde/internal/model"
	"github.com/conhub/rde/internal/orchestrator"
	"github.com/conhub/rde/internal/vectorclient"
)

// Handler wires the Orchestrator into gin handlers, plus the health/stats
// surfaces that read the backend clients directly.
type Handler struct {
	orch   *orchestrator.Orchestrator
	vector vectorclient.Client
	graph  graphclient.Client
	cache  cache.Cache
	stats  *Stats
}

func NewHandler(orch *orchestrator.Orchestrator, vector vectorclient.Client, graph graphclient.Client, c cache.Cache, stats *Stats) *Handler {
	return &Handler{orch: orch, vector: vector, graph: graph, cache: c, stats: stats}
}

// Search handles POST /memory/search.
func (h *Handler) Search(c *gin.Context) {
	var q model.Query
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(model.NewInvalidInput(err)))
		return
	}

	requestedDebug := q.IncludeDebug
	q.IncludeDebug = true // always compute debug internally so stats stay accurate

	result, err := h.orch.Run(c.Request.Context(), q)
	if err != nil {
		h.respondError(c, err)
		return
	}

	cacheHit := result.Debug != nil && result.Debug.Cache == "hit"
	h.stats.Record(result.StrategyUsed, cacheHit, result.TookMS)

	if !requestedDebug {
		result.Debug = nil
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	if errors.Is(err, orchestrator.ErrAtCapacity) {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, errorResponse(model.NewBackendUnavailable(err)))
		return
	}

	var rerr *model.RDEError
	if errors.As(err, &rerr) {
		c.JSON(rerr.HTTPStatus(), errorResponse(rerr))
		return
	}

	c.JSON(http.StatusInternalServerError, errorResponse(model.NewInternal(err)))
}

// errorBody is the nested error object every non-200 response carries.
type errorBody struct {
	Kind      model.ErrorKind `json:"kind"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
}

func errorResponse(err *model.RDEError) gin.H {
	return gin.H{"error": errorBody{
		Kind:      err.Kind,
		Message:   err.Message(),
		Retryable: err.Retryable,
	}}
}

type healthResponse struct {
	Status    string `json:"status"`
	VectorOK  bool   `json:"vector_ok"`
	GraphOK   bool   `json:"graph_ok"`
	CacheSize int    `json:"cache_size"`
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	vectorOK := h.vector == nil || h.vector.Health(ctx)
	graphOK := h.graph == nil || h.graph.Health(ctx)

	status := "ok"
	if !vectorOK && !graphOK {
		status = "down"
	} else if !vectorOK || !graphOK {
		status = "degraded"
	}

	c.JSON(http.StatusOK, healthResponse{
		Status:    status,
		VectorOK:  vectorOK,
		GraphOK:   graphOK,
		CacheSize: h.cache.Size(ctx),
	})
}

// Stats handles GET /stats.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.stats.Snapshot())
}

// Schema handles GET /schema.
func (h *Handler) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, buildSchemaResponse())
}
