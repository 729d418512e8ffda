package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/processedornot/scanner/internal/adapters/http"
	"github.com/processedornot/scanner/internal/bootstrap"
	"github.com/processedornot/scanner/internal/config"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, "api")
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	router, err := httpadapter.NewRouter(httpadapter.RouterDeps{
		Service:      app.Lookup,
		History:      app.History,
		Metrics:      app.Metrics,
		Logger:       app.Logger,
		ServiceName:  "api",
		HistoryLimit: cfg.HistoryListLimit,
		ExportLimit:  cfg.HistoryExportLimit,
	})
	if err != nil {
		log.Fatalf("router error: %v", err)
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		app.Logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("api shutdown error", "error", err.Error())
	}
}
