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

	"github.com/joho/godotenv"

	"github.com/aiteacher/chat-search-service/internal/analytics"
	"github.com/aiteacher/chat-search-service/internal/searcher"
	"github.com/aiteacher/chat-search-service/internal/searcher/cache"
	"github.com/aiteacher/chat-search-service/internal/searcher/handler"
	"github.com/aiteacher/chat-search-service/internal/store"
	"github.com/aiteacher/chat-search-service/pkg/config"
	"github.com/aiteacher/chat-search-service/pkg/health"
	"github.com/aiteacher/chat-search-service/pkg/kafka"
	"github.com/aiteacher/chat-search-service/pkg/logger"
	"github.com/aiteacher/chat-search-service/pkg/metrics"
	"github.com/aiteacher/chat-search-service/pkg/middleware"
	"github.com/aiteacher/chat-search-service/pkg/postgres"
	pkgredis "github.com/aiteacher/chat-search-service/pkg/redis"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting chat search service", "port", cfg.Server.Port, "data_dir", cfg.Storage.DataDir)

	st, err := store.Open(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to open message store", "error", err)
		os.Exit(1)
	}
	svc := searcher.New(st)
	slog.Info("index built", "messages", st.Len(), "terms", svc.TermCount())

	m := metrics.New()
	m.StoredMessages.Set(float64(st.Len()))
	m.IndexedTerms.Set(float64(svc.TermCount()))

	var queryCache *cache.QueryCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
		redisClient = nil
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	collector := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	var aggregator *analytics.Aggregator
	aggregator = analytics.NewAggregator(
		kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, func(ctx context.Context, key, value []byte) error {
			return analytics.HandleEvent(aggregator)(ctx, key, value)
		}),
	)
	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	analyticsH := analytics.NewHandler(aggregator)

	if cfg.Postgres.Enabled {
		pg, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshot persistence disabled", "error", err)
		} else {
			defer pg.Close()
			snapshots := analytics.NewStore(pg)
			snapshots.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		}
	}

	checker := health.NewChecker()
	checker.Register("store", func(ctx context.Context) health.ComponentHealth {
		if err := st.CheckWritable(); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d messages", st.Len()),
		}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(svc, queryCache, collector, m, cfg.Search.DefaultLimit, cfg.Search.MaxResults)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = rateLimiter.Middleware(chain)
	chain = middleware.RequestID(chain)

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownMetrics(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

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

	slog.Info("chat search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("chat search service stopped")
}
