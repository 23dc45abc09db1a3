// Command searcher serves college search, suggestions, and review submission.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	reviewhandler "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/reviews/handler"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/reviews/publisher"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/searcher/service"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/database"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/resilience"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	instanceID := uuid.NewString()
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"version", version,
		"instance", instanceID,
		"match_mode", cfg.Search.MatchMode,
		"score_mode", cfg.Search.ScoreMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database)
	if err != nil {
		slog.Error("failed to open catalog database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := catalog.NewSQLStore(db)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics, err := metrics.StartServer(cfg.Metrics.Port)
		if err != nil {
			slog.Error("failed to start metrics server", "error", err)
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker
	var changeProducer kafka.Publisher
	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		collector := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize, m)
		collector.Start(ctx)
		defer collector.Close()
		if cfg.Analytics.Enabled {
			tracker = collector
		}

		// Each instance consumes under its own group so every instance
		// sees every event.
		analyticsConsumer := kafka.NewGroupConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents,
			cfg.Kafka.ConsumerGroup+"-analytics-"+instanceID, analytics.HandleEvent(aggregator))
		go runConsumer(ctx, analyticsConsumer, "analytics")

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.CatalogChanges)
		defer producer.Close()
		changeProducer = producer

		if queryCache != nil {
			changeConsumer := kafka.NewGroupConsumer(cfg.Kafka, cfg.Kafka.Topics.CatalogChanges,
				cfg.Kafka.ConsumerGroup+"-"+instanceID, cache.HandleCatalogChange(queryCache, instanceID))
			go runConsumer(ctx, changeConsumer, "catalog-changes")
		}
	} else if cfg.Analytics.Enabled {
		tracker = aggregator
		slog.Info("kafka disabled, analytics aggregated in-process")
	}

	svc, err := service.New(store, service.Config{
		Filter: filter.Options{
			MatchMode:    filter.MatchMode(cfg.Search.MatchMode),
			ScoreMode:    filter.ScoreMode(cfg.Search.ScoreMode),
			WindowBucket: cfg.Search.ScoreWindowBucket,
			WindowSpan:   cfg.Search.ScoreWindowSpan,
		},
		SampleReviews:  cfg.Search.SampleReviews,
		CatalogTimeout: cfg.Search.CatalogTimeout,
		CatalogRetries: cfg.Search.CatalogRetries,
		Tracing:        cfg.Tracing.Enabled,
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold:    cfg.Search.BreakerThreshold,
			ResetTimeout:        cfg.Search.BreakerReset,
			HalfOpenMaxRequests: 1,
		},
	}, m)
	if err != nil {
		slog.Error("failed to configure search service", "error", err)
		os.Exit(1)
	}

	// Interfaces stay nil when the optional backends are off.
	var invalidator publisher.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	reviewPublisher := publisher.New(store, invalidator, changeProducer, instanceID)
	reviewH := reviewhandler.New(reviewPublisher, tracker, m)

	h := handler.New(svc, handler.Options{
		Cache:   queryCache,
		Tracker: tracker,
		Metrics: m,
		DB:      db,
		Version: version,
	})
	analyticsH := analytics.NewHandler(aggregator, nil)

	checker := health.NewChecker()
	checker.Register("database", health.PingCheck(db.Ping, true))
	checker.Register("catalog_breaker", func(ctx context.Context) health.ComponentHealth {
		state := svc.BreakerState()
		if state == resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusUp}
		}
		return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
	})
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient.Ping, false))
	}
	if cfg.Kafka.Enabled {
		checker.Register("kafka", health.PingCheck(func(ctx context.Context) error {
			return kafka.Ping(ctx, cfg.Kafka)
		}, false))
	}

	limiter := ratelimit.New(cfg.Search.RateLimitPerMinute, time.Minute)
	go limiter.RunCleanup(ctx, 5*time.Minute)
	limited := middleware.RateLimit(limiter, m)

	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/search", limited(http.HandlerFunc(h.Search)))
	mux.Handle("POST /api/v1/search", limited(http.HandlerFunc(h.Search)))
	mux.Handle("GET /api/v1/suggestions", limited(http.HandlerFunc(h.Suggestions)))
	mux.Handle("POST /api/v1/reviews", limited(http.HandlerFunc(reviewH.Submit)))
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /api/v1/version", h.Version)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Paths used by the existing web front end.
	mux.Handle("POST /api/search", limited(http.HandlerFunc(h.Search)))
	mux.Handle("POST /api/submit_review", limited(http.HandlerFunc(reviewH.Submit)))
	mux.HandleFunc("GET /api/version", h.Version)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

func runConsumer(ctx context.Context, c *kafka.Consumer, name string) {
	if err := c.Start(ctx); err != nil {
		slog.Error("consumer stopped with error", "consumer", name, "error", err)
	}
}
