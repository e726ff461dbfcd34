package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"certifai/internal/analytics"
	"certifai/internal/platform/config"
	"certifai/internal/platform/database"
	"certifai/internal/platform/health"
	"certifai/internal/platform/httpserver"
	"certifai/internal/platform/kafka/producer"
	"certifai/internal/platform/logger"
	platformmetrics "certifai/internal/platform/metrics"
	"certifai/internal/platform/middleware"
	redisclient "certifai/internal/platform/redis"
	"certifai/internal/platform/token"
	"certifai/internal/ratelimit"
	"certifai/internal/verification/analysis"
	"certifai/internal/verification/audit"
	"certifai/internal/verification/cache"
	"certifai/internal/verification/handler"
	verifmetrics "certifai/internal/verification/metrics"
	"certifai/internal/verification/service"
	"certifai/internal/verification/store"
)

func newServeCmd() *cobra.Command {
	var disableRateLimit bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), disableRateLimit)
		},
	}
	cmd.Flags().BoolVar(&disableRateLimit, "no-ratelimit", false, "disable rate limiting (demo mode)")
	return cmd
}

func runServe(ctx context.Context, disableRateLimit bool) error {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing certifai", "addr", cfg.Addr)

	httpMetrics := platformmetrics.New()
	workflowMetrics := verifmetrics.New()
	healthHandler := health.New(os.Getenv("ENVIRONMENT"))

	// Storage. The service runs on in-memory stores when no database is
	// configured, which only makes sense for local demos.
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	pool, err := database.New(dbCfg)
	if err != nil {
		return err
	}
	var records store.RecordStore
	if pool != nil {
		defer pool.Close()
		if err := database.RunMigrations(ctx, pool.DB()); err != nil {
			return err
		}
		records = store.NewPostgres(pool.DB())
		healthHandler.RegisterCheck("postgres", func() error {
			probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(probeCtx)
		})
	} else {
		log.Warn("DATABASE_URL not set, using in-memory record store")
		records = store.NewMemory()
	}

	rdb, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	var (
		resultCache cache.ResultCache
		auditStore  audit.Store
		limiter     ratelimit.Limiter
	)
	if rdb != nil {
		defer rdb.Close()
		resultCache = cache.NewRedisCache(rdb.Client, workflowMetrics)
		auditStore = audit.NewRedisStore(rdb.Client, cfg.AuditLogTTL)
		limiter = ratelimit.NewRedisLimiter(rdb.Client)
		healthHandler.RegisterCheck("redis", func() error {
			probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rdb.Health(probeCtx)
		})
	} else {
		log.Warn("REDIS_URL not set, using in-memory cache and audit store")
		resultCache = cache.NewMemoryCache()
		auditStore = audit.NewMemoryStore()
		limiter = ratelimit.NewMemoryLimiter()
	}

	var publisher audit.Publisher
	if cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Retries:         3,
			DeliveryTimeout: 10 * time.Second,
		}, log)
		if err != nil {
			return err
		}
		defer prod.Close()
		kafkaPublisher := audit.NewKafkaPublisher(prod, cfg.Kafka.Topic)
		if err := kafkaPublisher.EnsureTopic(ctx); err != nil {
			log.Warn("failed to ensure audit topic", "topic", cfg.Kafka.Topic, "error", err)
		}
		publisher = kafkaPublisher
		healthHandler.RegisterCheck("kafka", func() error {
			probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !prod.Healthy(probeCtx) {
				return errors.New("kafka unreachable")
			}
			return nil
		})
	}

	if cfg.Analysis.Endpoint == "" {
		log.Warn("ANALYSIS_ENDPOINT not set, verification calls will fail")
	}
	analyzer := analysis.NewHTTPClient(cfg.Analysis)

	verifier, err := service.New(records, resultCache, analyzer, auditStore, publisher,
		log, workflowMetrics, cfg.ResultCacheTTL)
	if err != nil {
		return err
	}

	analyticsService, err := analytics.NewService(records)
	if err != nil {
		return err
	}

	var jwtValidator middleware.JWTValidator
	if cfg.JWTSigningKey == "" {
		log.Warn("JWT_SIGNING_KEY is not set, bearer authentication is DISABLED; set it before exposing this service")
	} else {
		jwtValidator = token.NewService(cfg.JWTSigningKey, "certifai")
	}
	rateLimitMW := ratelimit.NewMiddleware(limiter, log, cfg.RateLimitPerMin,
		ratelimit.WithDisabled(disableRateLimit))

	router := chi.NewRouter()
	router.Use(middleware.CORS)
	router.Use(rateLimitMW.Limit)
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	healthHandler.Register(router)
	handler.New(verifier, log, httpMetrics, jwtValidator).Register(router)
	analytics.NewHandler(analyticsService, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server", "addr", cfg.Addr)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
