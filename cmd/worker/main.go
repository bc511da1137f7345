package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/vat-compliance-checker/internal/bootstrap"
	"github.com/kirillkom/vat-compliance-checker/internal/config"
	"github.com/kirillkom/vat-compliance-checker/internal/infrastructure/queue/nats"
	"github.com/kirillkom/vat-compliance-checker/internal/observability/logging"
	"github.com/kirillkom/vat-compliance-checker/internal/observability/metrics"
)

const serviceName = "vat-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	// The worker always runs checks in-process; CHECK_DISPATCH only applies to the API.
	cfg.CheckDispatch = config.DispatchLocal
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Registerer:   workerMetrics.Registerer(),
		Service:      serviceName,
		ConnectQueue: true,
	})
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.Serve(ctx, app.Compliance, nats.ServeHooks{
		OnStart: workerMetrics.StartCheck,
		OnFinish: func(status string, duration time.Duration) {
			workerMetrics.FinishCheck(serviceName, status, duration)
		},
	})
	if err != nil {
		slog.Error("worker_serve_failed", "error", err)
		os.Exit(1)
	}
}
