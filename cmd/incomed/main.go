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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/cfg"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/history"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/metrics"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/model"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/predict"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/server"
	"github.com/edadso/IncomeGauge-Predicting-Economic-Disparities-Using-ML/internal/uploads"
)

func main() {
	// Optional .env for local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env load failed")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()

	registry := model.NewRegistry(c.ModelsDir, c.ModelsBaseURL, c.RESTTimeout)
	engine := predict.NewEngine(metrics.NewTracker(m))

	hist, err := history.New(c.HistoryDir)
	if err != nil {
		log.Fatal().Err(err).Msg("history store initialization failed")
	}

	cache, err := uploads.Open(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Msg("uploads cache initialization failed")
	}
	defer cache.Close()

	// Warm the default model so the first request does not pay the load.
	if _, err := registry.Load(ctx, c.DefaultModel); err != nil {
		log.Warn().Err(err).Str("model", c.DefaultModel).Msg("default model not preloaded")
	} else {
		m.ModelLoads.Inc()
	}

	startMetricsServer(ctx, c)

	srv := server.New(c, registry, engine, hist, cache, m)
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server start failed")
	}

	waitForShutdown(ctx, cancel)

	if err := srv.Stop(); err != nil {
		log.Error().Err(err).Msg("server stop failed")
	}
}

// startMetricsServer starts the Prometheus metrics HTTP server.
func startMetricsServer(ctx context.Context, c cfg.Settings) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", c.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown blocks until a shutdown signal arrives.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()
}
