package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/conhub/rde/common/id"
	"github.com/conhub/rde/common/logger"
	"github.com/conhub/rde/common/otel"
	"github.com/conhub/rde/core/config"
	"github.com/conhub/rde/internal/analyzer"
	"github.com/conhub/rde/internal/cache"
	"github.com/conhub/rde/internal/fusion"
	"github.com/conhub/rde/internal/graphclient"
	"github.com/conhub/rde/internal/httpapi"
	"github.com/conhub/rde/internal/orchestrator"
	"github.com/conhub/rde/internal/strategy"
	"github.com/conhub/rde/internal/vectorclient"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "rde starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.SnowflakeNodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	vectorBackend := vectorclient.NewTypesenseBackend(cfg.VectorBackendURL, cfg.TypesenseAPIKey)
	vectorClient := vectorclient.New(vectorBackend, vectorclient.DefaultCollectionMap, nil)

	var graphClient graphclient.Client
	switch cfg.GraphBackend {
	case "memory":
		graphClient = graphclient.New(graphclient.NewMemoryBackend(), nil)
		slog.WarnContext(ctx, "graph backend running in-memory — not for production use")
	default:
		arangoCfg := graphclient.ArangoConfig{
			URL:      cfg.ArangoURL,
			Username: cfg.ArangoUsername,
			Password: cfg.ArangoPassword,
			Database: cfg.ArangoDatabase,
			Graph:    cfg.ArangoGraph,
		}
		arangoBackend, err := graphclient.NewArangoBackend(ctx, arangoCfg)
		if err != nil {
			slog.ErrorContext(ctx, "failed to connect to arangodb", "error", err)
			os.Exit(1)
		}
		graphClient = graphclient.New(arangoBackend, nil)
		slog.InfoContext(ctx, "arangodb connected", "database", cfg.ArangoDatabase, "graph", cfg.ArangoGraph)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected")

	queryCache := cache.NewRedisCache(redisClient, slog.Default())

	orch := orchestrator.New(orchestrator.Deps{
		Analyzer: analyzer.New(),
		Selector: strategy.New(nil),
		Vector:   vectorClient,
		Graph:    graphClient,
		Cache:    queryCache,
		Logger:   slog.Default(),
	}, orchestrator.Config{
		PerBackendTimeout: time.Duration(cfg.PerBackendTimeoutMS) * time.Millisecond,
		RequestTimeout:    time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		MaxConcurrency:    cfg.MaxConcurrency,
		CacheTTL:          time.Duration(cfg.CacheTTLSeconds) * time.Second,
		GraphStaleAfter:   30 * time.Second,
	}, fusion.Config{
		RRFK:           cfg.RRFK,
		MMRLambda:      cfg.MMRLambda,
		RecencyTauDays: cfg.RecencyTauDays,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := httpapi.NewHandler(orch, vectorClient, graphClient, queryCache, httpapi.NewStats())
	router := httpapi.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if err := redisClient.Close(); err != nil {
		slog.ErrorContext(shutdownCtx, "redis close error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

const banner = `
██████╗ ██████╗ ███████╗
██╔══██╗██╔══██╗██╔════╝
██████╔╝██║  ██║█████╗
██╔══██╗██║  ██║██╔══╝
██║  ██║██████╔╝███████╗
╚═╝  ╚═╝╚═════╝ ╚══════╝
`
