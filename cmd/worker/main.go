package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acekavi/docqa/internal/bootstrap"
	"github.com/acekavi/docqa/internal/observability/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	container, cleanup, err := bootstrap.New("docqa-worker")
	if err != nil {
		return err
	}
	defer cleanup()

	cfg := container.Config
	log := container.Log

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workerMetrics := metrics.NewWorkerMetrics(registry)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := func(ctx context.Context, documentID string) error {
		ctx, cancel := context.WithTimeout(ctx, cfg.Worker.ProcessTimeout)
		defer cancel()

		workerMetrics.InFlight.Inc()
		defer workerMetrics.InFlight.Dec()

		start := time.Now()
		err := container.Processor.ProcessByID(ctx, documentID)
		workerMetrics.ProcessingDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			workerMetrics.DocumentsProcessed.WithLabelValues("error").Inc()
			return err
		}
		workerMetrics.DocumentsProcessed.WithLabelValues("ok").Inc()
		return nil
	}

	log.Info("worker consuming", "subject", cfg.NATS.Subject)
	if err := container.Queue.SubscribeDocumentIngested(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("subscription: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	return nil
}
