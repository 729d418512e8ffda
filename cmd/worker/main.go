package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/processedornot/scanner/internal/bootstrap"
	"github.com/processedornot/scanner/internal/config"
	"github.com/processedornot/scanner/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "worker")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker metrics server error", "error", err.Error())
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeProductResolved(ctx, func(handlerCtx context.Context, barcode string) error {
		start := time.Now()
		workerMetrics.StartBackfill()

		backfillCtx, cancel := context.WithTimeout(handlerCtx, 2*time.Minute)
		defer cancel()

		err := app.Backfill.BackfillByBarcode(backfillCtx, barcode)
		status := "ok"
		if err != nil {
			status = "error"
		}
		workerMetrics.FinishBackfill("worker", status, time.Since(start))
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
