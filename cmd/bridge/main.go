package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pharmabridge/pharma-bridge-bff-go/internal/config"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/domain"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/handler"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/cache"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/coalesce"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/observability"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/resilience"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/session"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/infra/upstream"
	"github.com/pharmabridge/pharma-bridge-bff-go/internal/service"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("upstream_url", cfg.UpstreamURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Duration("draft_idle_ttl", cfg.DraftIdleTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "pharma-bridge-bff")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Session store ---
	sessions := session.New(cfg.SessionTTL)
	defer sessions.Close()

	// --- Metrics ---
	// The drafts gauge is wired after the wizard service exists.
	var wizardSvc *service.WizardService
	metrics := observability.NewMetrics(sessions.Len, func() int {
		if wizardSvc == nil {
			return 0
		}
		return wizardSvc.Len()
	})

	// --- Caches & flight table ---
	detailCache := cache.New[*domain.QuoteDetail](cfg.CacheTTL)
	defer detailCache.Close()
	flights := coalesce.New()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("pharmacy-api")

	// --- Upstream client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	pharmacyAPI := upstream.NewClient(httpClient, cfg.UpstreamURL, cb, resilienceCfg, metrics, logger)

	// --- Services ---
	tokens := service.NewTokenIssuer(cfg.JWTSecret, cfg.SessionTokenTTL)
	authSvc := service.NewAuthService(pharmacyAPI, sessions, tokens, metrics, logger)
	quotesSvc := service.NewQuotesService(pharmacyAPI, sessions, flights, detailCache, metrics, logger)
	ordersSvc := service.NewOrdersService(pharmacyAPI, sessions, flights, metrics, logger)
	wizardSvc = service.NewWizardService(pharmacyAPI, sessions, logger)
	dashboardSvc := service.NewDashboardService(quotesSvc, ordersSvc)

	// --- Scheduled jobs ---
	scheduler := gocron.NewScheduler(time.Local)
	if _, err := scheduler.Every(15).Minutes().Do(func() {
		wizardSvc.SweepIdle(cfg.DraftIdleTTL)
	}); err != nil {
		logger.Fatal("failed to schedule draft sweep", zap.Error(err))
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	// --- Router ---
	router := handler.NewRouter(cfg, handler.Services{
		Auth:          authSvc,
		Tokens:        tokens,
		Sessions:      sessions,
		Quotes:        quotesSvc,
		Orders:        ordersSvc,
		Wizard:        wizardSvc,
		Dashboard:     dashboardSvc,
		UpstreamState: pharmacyAPI.CircuitState,
	}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
