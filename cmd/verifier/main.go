// Command verifier starts the word-verification server.
//
// It listens for one-line requests of the form ACTION,file1,...,fileN,word
// on a TCP port, answers "true" or "false" from the per-file dictionary
// indexes, and optionally publishes every answer to Kafka for the analytics
// service. An admin HTTP server exposes /metrics, health probes and
// GET /api/v1/dictionaries.
//
// Usage:
//
//	go run ./cmd/verifier [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/dictionary/registry"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/internal/server"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/word-verifier/pkg/middleware"
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
	slog.Info("starting verifier",
		"addr", cfg.Server.Addr,
		"max_conns", cfg.Server.MaxConcurrentConns,
		"hash_algorithms", cfg.Dictionary.HashAlgorithms,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	reg := registry.New(dictionary.OptionsFromConfig(cfg.Dictionary, m), cfg.Dictionary.BaseDir)
	if len(cfg.Dictionary.Preload) > 0 {
		if err := reg.Preload(ctx, cfg.Dictionary.Preload); err != nil {
			slog.Error("preloading dictionaries", "error", err)
			os.Exit(1)
		}
		slog.Info("dictionaries preloaded", "count", reg.Size())
	}

	var (
		collector *analytics.Collector
		producer  *kafka.Producer
	)
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.VerificationEvents)
		collector = analytics.NewCollector(producer, cfg.Analytics.BufferSize, m)
		collector.Start(ctx)
	} else {
		slog.Info("kafka disabled, verification events will not be published")
	}

	srv := server.New(cfg.Server, server.NewVerificationHandler(reg, collector, m), m)
	if err := srv.Start(); err != nil {
		slog.Error("starting server", "error", err)
		os.Exit(1)
	}

	var shutdownAdmin func(context.Context) error
	if cfg.Admin.Enabled {
		checker := health.NewChecker()
		checker.Register("listener", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: srv.Addr().String()}
		})
		checker.Register("dictionaries", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d loaded", reg.Size())}
		})
		if producer != nil {
			checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
				return health.ComponentHealth{Status: health.StatusUp, Message: "producer for " + producer.Topic()}
			})
		}

		shutdownAdmin = metrics.StartServer(cfg.Admin.Port, func(mux *http.ServeMux) {
			mux.HandleFunc("GET /health/live", checker.LiveHandler())
			mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
			mux.HandleFunc("GET /api/v1/dictionaries", server.DictionariesHandler(reg))
		}, func(h http.Handler) http.Handler {
			return middleware.RequestID(middleware.Metrics(m)(h))
		})
	}

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	if shutdownAdmin != nil {
		if err := shutdownAdmin(shutdownCtx); err != nil {
			slog.Error("admin server shutdown error", "error", err)
		}
	}
	collector.Close()
	if producer != nil {
		if err := producer.Close(); err != nil {
			slog.Error("closing kafka producer", "error", err)
		}
	}

	slog.Info("verifier stopped")
}
