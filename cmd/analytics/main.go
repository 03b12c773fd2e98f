// Command analytics starts the standalone analytics service.
//
// It consumes verification events from Kafka, aggregates them in memory
// (request totals, rejection counts, latency percentiles, top words), ranks
// rejected words in a Redis sorted set and records challenge outcomes in
// PostgreSQL. Redis and PostgreSQL are optional: when either is unreachable
// at startup the service runs without it and its endpoint answers 503.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Analytics.Port, "topic", cfg.Kafka.Topics.VerificationEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	aggregator := analytics.NewAggregator(cfg.Analytics.TopN)
	checker := health.NewChecker()

	var (
		sinks   []analytics.Sink
		ranking analytics.RejectedRanking
		audit   analytics.ChallengeLog
	)

	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, rejected-word ranking disabled", "error", err)
	} else {
		defer rdb.Close()
		leaderboard := analytics.NewLeaderboard(rdb, cfg.Redis.LeaderboardKey)
		sinks = append(sinks, leaderboard)
		ranking = leaderboard
		checker.Register("redis", health.Ping(rdb.Ping, health.StatusDegraded))
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, challenge audit disabled", "error", err)
	} else {
		defer db.Close()
		store := analytics.NewAuditStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			slog.Error("creating audit schema", "error", err)
			os.Exit(1)
		}
		if last, err := store.LatestSnapshot(ctx); err == nil && last != nil {
			slog.Info("previous snapshot found", "total_requests", last.TotalRequests)
		}
		store.StartPeriodicSave(ctx, aggregator, cfg.Analytics.SnapshotInterval)
		sinks = append(sinks, store)
		audit = store
		checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.VerificationEvents, analytics.HandleEvent(aggregator, m, sinks...))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		stats := consumer.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d messages, %d errors", stats.Messages, stats.Errors),
		}
	})

	mux := http.NewServeMux()
	analytics.NewHandler(aggregator, ranking, audit).Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.Timeout(10 * time.Second)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
		Handler:      chain,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-consumerDone
	slog.Info("analytics service stopped")
}
