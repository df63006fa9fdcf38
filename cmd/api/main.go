package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	httpadapter "github.com/acekavi/docqa/internal/adapters/http"
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
	container, cleanup, err := bootstrap.New("docqa-api")
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
	httpMetrics := metrics.NewHTTPMetrics(registry)
	workerMetrics := metrics.NewWorkerMetrics(registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The api embeds the ingestion worker so a single binary serves the
	// full pipeline. Standalone workers join the same queue group, so a
	// document is only ever processed once.
	subscriptionDone := make(chan error, 1)
	go func() {
		subscriptionDone <- container.Queue.SubscribeDocumentIngested(ctx, processHandler(container, workerMetrics))
	}()

	router := httpadapter.NewRouter(httpadapter.RouterOptions{
		Log:            log,
		Ingestor:       container.Ingestor,
		Documents:      container.Registry,
		Questions:      container.Questions,
		Extraction:     container.Extraction,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.API.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	listener = netutil.LimitListener(listener, cfg.API.MaxConns)

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info("api listening", "port", cfg.API.Port, "max_conns", cfg.API.MaxConns)
		serverDone <- server.Serve(listener)
	}()

	select {
	case err := <-serverDone:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := <-subscriptionDone; err != nil && !errors.Is(err, context.Canceled) {
		log.Error("subscription closed with error", "error", err)
	}
	return nil
}

func processHandler(container *bootstrap.Container, m *metrics.WorkerMetrics) func(context.Context, string) error {
	timeout := container.Config.Worker.ProcessTimeout
	return func(ctx context.Context, documentID string) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		m.InFlight.Inc()
		defer m.InFlight.Dec()

		start := time.Now()
		err := container.Processor.ProcessByID(ctx, documentID)
		m.ProcessingDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.DocumentsProcessed.WithLabelValues("error").Inc()
			return err
		}
		m.DocumentsProcessed.WithLabelValues("ok").Inc()
		return nil
	}
}
