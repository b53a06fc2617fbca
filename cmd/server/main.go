package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exchange-rate-viewer/internal/adapter/cache"
	httpRouter "exchange-rate-viewer/internal/adapter/http"
	"exchange-rate-viewer/internal/adapter/repository"
	"exchange-rate-viewer/internal/config"
	"exchange-rate-viewer/internal/domain/ports"
	"exchange-rate-viewer/internal/metrics"
	"exchange-rate-viewer/internal/service"
	"exchange-rate-viewer/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	log.Info("Starting exchange rate proxy")

	appMetrics := metrics.NewMetrics(prometheus.DefaultRegisterer)

	rateCache, closeCache, err := newRateCache(cfg, log)
	if err != nil {
		log.Error("Failed to initialise cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	rateRepo := repository.NewAlphaVantage(
		cfg.AlphaVantage.BaseURL,
		cfg.AlphaVantage.APIKey,
		cfg.AlphaVantage.Timeout,
		log,
	)

	exchangeService := service.NewExchangeService(rateRepo, rateCache, appMetrics, log)
	handler := httpRouter.NewHandler(exchangeService, log, appMetrics)

	router := httpRouter.NewRouter(handler, log, appMetrics, cfg.CORS.AllowedOrigins)
	routes := router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      routes,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	sweeper, err := scheduleSweep(cfg.Cache.SweepSchedule, exchangeService, log)
	if err != nil {
		log.Error("Invalid cache sweep schedule", "schedule", cfg.Cache.SweepSchedule, "error", err)
		os.Exit(1)
	}
	sweeper.Start()

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	<-sweeper.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}

// newRateCache picks redis when a URL is configured and the in-process
// cache otherwise.
func newRateCache(cfg *config.Config, log *logger.Logger) (ports.RateCache, func(), error) {
	if cfg.Cache.RedisURL == "" {
		log.Info("Using in-memory rate cache")
		return cache.NewMemoryCache(cfg.Cache.LatestTTL, cfg.Cache.HistoricalTTL, log), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisURL, cfg.Cache.LatestTTL, cfg.Cache.HistoricalTTL, log)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Using redis rate cache")
	return rc, func() {
		if err := rc.Close(); err != nil {
			log.Error("Failed to close redis cache", "error", err)
		}
	}, nil
}

// scheduleSweep periodically drops expired proxy-side cache entries.
func scheduleSweep(schedule string, svc ports.ExchangeService, log *logger.Logger) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		log.Debug("Running cache sweep")
		// Failures are logged by the service.
		_ = svc.ClearExpired(context.Background())
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}
