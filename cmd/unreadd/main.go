package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/strogmv/unread/internal/adapter/request"
	"github.com/strogmv/unread/internal/app"
	"github.com/strogmv/unread/internal/config"
	"github.com/strogmv/unread/internal/pkg/logger"
	httptransport "github.com/strogmv/unread/internal/transport/http"
)

func main() {
	logger.Init()
	log := logger.Component("unreadd")

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend := request.New(cfg.BackendURL, cfg.BackendToken)

	container, err := app.NewContainer(ctx, cfg, cfg.UserID, backend.Func())
	if err != nil {
		log.Error("build container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	container.Engine.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httptransport.NewServer(container.Engine).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "user", cfg.UserID)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	log.Info("stopped")
}
