// Package main is the entry point for the feed ranking server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/petfolk/feedrank/internal/api"
	"github.com/petfolk/feedrank/internal/config"
	"github.com/petfolk/feedrank/internal/feed"
	"github.com/petfolk/feedrank/internal/health"
	"github.com/petfolk/feedrank/internal/middleware"
	"github.com/petfolk/feedrank/internal/post"
	"github.com/petfolk/feedrank/internal/prefs"
	"github.com/petfolk/feedrank/internal/ranking"
	"github.com/petfolk/feedrank/internal/tracing"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("Feedrank Ranking Server")
		fmt.Println()
		fmt.Println("Usage: rankd [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	// Tracing
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "rankd",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporter,
		OTLPEndpoint: cfg.TracingEndpoint,
		SamplingRate: cfg.TracingSampling,
		InsecureMode: !cfg.IsProduction(),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	// Ranking calibration
	rankCfg := ranking.DefaultConfig()
	if cfg.CalibrationPath != "" {
		rankCfg, err = ranking.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			logger.Warn("calibration load failed, using defaults", "path", cfg.CalibrationPath, "error", err)
		}
	}

	// Redis-backed stores when configured, in-process otherwise.
	var redisClient *redis.Client
	var kv prefs.KV = prefs.NewMemoryKV()
	var scoreCache ranking.ScoreCache = ranking.NewMemoryScoreCache()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		kv = prefs.NewRedisKV(redisClient)
		ttl := time.Duration(cfg.ScoreCacheTTLMinutes) * time.Minute
		scoreCache = ranking.NewRedisScoreCache(redisClient, ttl, logger)
		logger.Info("using redis", "addr", cfg.RedisAddr)
	}

	// Postgres-backed post store when configured, in-memory otherwise.
	var db *sql.DB
	var posts post.Source
	var comments post.CommentSource
	var users post.UserSource
	var saves post.SaveSource
	var places post.PlaceSource
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		pg := post.NewPostgresStore(db)
		posts, comments, users, saves, places = pg, pg, pg.Users(), pg.Saves(), pg
		logger.Info("using postgres post store")
	} else {
		mem := post.NewInMemoryStore()
		posts, comments, users, saves, places = mem, mem, mem.Users(), mem.Saves(), mem
		logger.Info("using in-memory post store")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	rankMetrics := ranking.NewMetrics()
	if err := rankMetrics.Register(registry); err != nil {
		logger.Error("failed to register ranking metrics", "error", err)
		os.Exit(1)
	}
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}

	ranker := ranking.NewRanker(ranking.RankerConfig{
		Config:  rankCfg,
		Cache:   scoreCache,
		Metrics: rankMetrics,
		Logger:  logger,
		Tracer:  tracerProvider.Tracer("rankd/ranking"),
	})

	svc := feed.NewService(feed.ServiceConfig{
		Posts:    posts,
		Comments: comments,
		Users:    users,
		Saves:    saves,
		Places:   places,
		Prefs:    prefs.NewStore(kv, logger),
		Ranker:   ranker,
		Config:   rankCfg,
		Logger:   logger,
		Tracer:   tracerProvider.Tracer("rankd/feed"),
	})

	rankHandlers := api.NewRankHandlers(svc, posts)

	healthConfig := api.HealthHandlersConfig{}
	if db != nil {
		healthConfig.DBChecker = health.NewDBChecker(db)
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/rank", rankHandlers.Rank)
	mux.HandleFunc("/v1/score/", rankHandlers.Explain)
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			api.WriteError(w, r.Context(), http.StatusNotFound, api.ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"rankd","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	// Apply middleware: RequestID -> Logging -> HTTPMetrics
	handler := middleware.RequestID(middleware.Logging(logger)(middleware.HTTPMetrics(httpMetrics)(mux)))

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := tracerProvider.Shutdown(ctx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}

	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("database close failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}

	logger.Info("server stopped")
}
