package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/conhub/rde/internal/analyzer"
	"github.com/conhub/rde/internal/cache"
	"github.com/conhub/rde/internal/fusion"
	"github.com/conhub/rde/internal/graphclient"
	"github.com/conhub/rde/internal/httpapi"
	"github.com/conhub/rde/internal/model"
	"github.com/conhub/rde/internal/orchestrator"
	"github.com/conhub/rde/internal/strategy"
	"github.com/conhub/rde/internal/vectorclient"
)

var _ = Describe("Handler", func() {
	var (
		router *gin.Engine
		vb     *vectorclient.MemoryBackend
		gb     *graphclient.MemoryBackend
		mc     *cache.MemoryCache
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)

		vb = vectorclient.NewMemoryBackend()
		gb = graphclient.NewMemoryBackend()
		mc = cache.NewMemoryCache(100)

		vectorClient := vectorclient.New(vb, vectorclient.DefaultCollectionMap, nil)
		graphClient := graphclient.New(gb, nil)

		orch := orchestrator.New(orchestrator.Deps{
			Analyzer: analyzer.New(),
			Selector: strategy.New(nil),
			Vector:   vectorClient,
			Graph:    graphClient,
			Cache:    mc,
		}, orchestrator.Config{
			PerBackendTimeout: 300 * time.Millisecond,
			RequestTimeout:    2 * time.Second,
			MaxConcurrency:    8,
			CacheTTL:          time.Minute,
			GraphStaleAfter:   time.Hour,
		}, fusion.DefaultConfig())

		stats := httpapi.NewStats()
		h := httpapi.NewHandler(orch, vectorClient, graphClient, mc, stats)

		router = gin.New()
		router.GET("/health", h.Health)
		router.GET("/stats", h.Stats)
		router.GET("/schema", h.Schema)
		router.POST("/memory/search", h.Search)

		now := time.Now()
		collection := vectorclient.DefaultCollectionMap("tenant-a", model.ModalityDocs)
		vb.Seed(collection, model.VectorHit{
			ChunkID:    "c1",
			DocumentID: "d1",
			Score:      0.9,
			SourceType: model.ModalityDocs,
			Content:    "the onboarding doc explains setup steps",
			TokenCount: 40,
			Timestamp:  &now,
		})
	})

	doSearch := func(body map[string]any) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, "/memory/search", bytes.NewBuffer(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("serves a search request and returns ranked blocks", func() {
		w := doSearch(map[string]any{
			"tenant_id": "tenant-a",
			"query":     "how do I onboard a new engineer",
			"sources":   []string{"docs"},
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp model.QueryResult
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Blocks).NotTo(BeEmpty())
		Expect(resp.Debug).To(BeNil(), "debug should be stripped when not requested")
	})

	It("includes debug info when requested", func() {
		w := doSearch(map[string]any{
			"tenant_id":     "tenant-a",
			"query":         "how do I onboard a new engineer",
			"sources":       []string{"docs"},
			"include_debug": true,
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp model.QueryResult
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Debug).NotTo(BeNil())
		Expect(resp.Debug.Cache).To(Equal("miss"))
	})

	It("rejects a request missing a tenant id", func() {
		w := doSearch(map[string]any{
			"query": "how do I onboard a new engineer",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(HaveKey("error"))
		errBody, ok := resp["error"].(map[string]any)
		Expect(ok).To(BeTrue(), "error must be a nested object, not a string")
		Expect(errBody["kind"]).To(Equal("invalid_input"))
		Expect(errBody["message"]).NotTo(BeEmpty())
		Expect(errBody["retryable"]).To(Equal(false))
	})

	It("reports health for both backends", func() {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["status"]).To(Equal("ok"))
		Expect(resp["vector_ok"]).To(Equal(true))
		Expect(resp["graph_ok"]).To(Equal(true))
	})

	It("degrades health when a backend is unhealthy", func() {
		vb.SetHealthy(false)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["status"]).To(Equal("degraded"))
		Expect(resp["vector_ok"]).To(Equal(false))
	})

	It("accumulates request counters in stats", func() {
		doSearch(map[string]any{"tenant_id": "tenant-a", "query": "onboarding steps", "sources": []string{"docs"}})
		doSearch(map[string]any{"tenant_id": "tenant-a", "query": "onboarding steps", "sources": []string{"docs"}})

		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["requests"]).To(BeNumerically(">=", 2))
		Expect(resp["hits"]).To(BeNumerically(">=", 1), "second identical request should hit cache")
	})

	It("serves a JSON schema for query and result types", func() {
		req := httptest.NewRequest(http.MethodGet, "/schema", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp).To(HaveKey("query"))
		Expect(resp).To(HaveKey("query_result"))
	})
})
