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

	"github.com/eventura/movie-autocomplete/internal/api"
	"github.com/eventura/movie-autocomplete/internal/archive"
	"github.com/eventura/movie-autocomplete/internal/movies"
	"github.com/eventura/movie-autocomplete/internal/store"
	"github.com/eventura/movie-autocomplete/internal/views"
	"github.com/eventura/movie-autocomplete/pkg/config"
	"github.com/eventura/movie-autocomplete/pkg/health"
	"github.com/eventura/movie-autocomplete/pkg/kafka"
	"github.com/eventura/movie-autocomplete/pkg/logger"
	"github.com/eventura/movie-autocomplete/pkg/metrics"
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
	slog.Info("starting movie autocomplete service", "port", cfg.Server.Port)

	st, err := store.NewRedis(cfg.Redis)
	if err != nil {
		slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("connected to redis", "addr", cfg.Redis.Addr, "cache_ttl", cfg.Redis.CacheTTL)

	var movieArchive movies.Archive
	var archiveStore *archive.Store
	if cfg.Postgres.Enabled {
		archiveStore, err = archive.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to archive", "error", err)
			os.Exit(1)
		}
		defer archiveStore.Close()
		movieArchive = archiveStore
		slog.Info("archive enabled", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	svc := movies.NewService(st, cfg.Search, cfg.Redis.CacheTTL, movieArchive, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var collector *views.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.ViewTopic)
		defer producer.Close()
		collector = views.NewCollector(producer, cfg.Kafka.BufferSize)
		collector.Start(ctx)
		defer collector.Close()

		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.ViewTopic, views.Handler(svc))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("view consumer error", "error", err)
			}
		}()
		slog.Info("view pipeline started", "topic", cfg.Kafka.ViewTopic)
	}

	checker := health.NewChecker()
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if err := st.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if archiveStore != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := archiveStore.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := api.New(svc, collector, m)
	handler := api.NewRouter(h, checker, m, cfg.Server)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
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

	slog.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
