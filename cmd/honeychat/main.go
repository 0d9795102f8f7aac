package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/laxmihoney/honeychat/internal/app"
	"github.com/laxmihoney/honeychat/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	built, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("build error: %v", err)
	}
	defer func() {
		if err := built.Cleanup(); err != nil {
			logger.Error("cleanup failed", slog.String("error", err.Error()))
		}
	}()

	// No server-wide read/write timeouts: the websocket chat endpoint holds
	// connections open well past any sane request deadline.
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: built.API.Router(),
	}

	go func() {
		logger.Info("server listening", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.String("error", err.Error()))
		_ = httpServer.Close()
	}

	logger.Info("shutdown complete")
}
