package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HELLO-50/Sahatak-sub003/internal/api/router"
	"github.com/HELLO-50/Sahatak-sub003/internal/app/bootstrap"
	appconfig "github.com/HELLO-50/Sahatak-sub003/internal/config"
	"github.com/HELLO-50/Sahatak-sub003/internal/http/handlers"
	"github.com/HELLO-50/Sahatak-sub003/internal/observability/metrics"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

func main() {
	// Load .env in local development; absence is fine.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sahatak booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set; all /api/v1 requests will be rejected")
	}

	bookingMetrics := metrics.NewBookingMetrics(nil)

	ctx := context.Background()
	booking, cleanup, err := bootstrap.BuildBooking(ctx, cfg, bookingMetrics, logger)
	if err != nil {
		logger.Error("failed to build booking stack", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	appointmentsHandler := handlers.NewAppointmentsHandler(
		booking.Reservations,
		booking.Reschedules,
		booking.Cancellations,
		booking.Sessions,
		booking.Store,
		booking.Schedules,
		bookingMetrics,
		logger,
	)
	statsHandler := handlers.NewStatsHandler(prometheus.DefaultGatherer, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		Appointments:       appointmentsHandler,
		Stats:              statsHandler,
		MetricsHandler:     promhttp.Handler(),
		AuthSecret:         cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
