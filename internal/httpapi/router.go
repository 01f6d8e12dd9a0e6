package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/conhub/rde/core/config"
)

// NewRouter builds the gin engine: OTel span -> Recovery -> Logger, then
// routes. Order matters: OTel creates the span, Recovery catches panics
// within it, and Logger logs with the resulting trace context attached.
func NewRouter(cfg config.Config, h *Handler) *gin.Engine {
	router := gin.New()

	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(Recovery())
	router.Use(Logger())

	router.GET("/health", h.Health)
	router.GET("/stats", h.Stats)
	router.GET("/schema", h.Schema)
	router.POST("/memory/search", h.Search)

	return router
}
