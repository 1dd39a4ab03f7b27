package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"notes/internal/config"
	"notes/internal/logging"
	"notes/internal/notes"
	"notes/internal/web"
)

const shutdownTimeout = 5 * time.Second

func main() {
	closeLog := logging.Setup(os.Stdout, logging.FromEnv())
	err := run()
	if err != nil {
		slog.Error("notes failed", "err", err)
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// run owns every resource so deferred cleanup happens before main exits.
func run() error {
	cfg := config.Load()
	if cfg.UsingDefaultSecret() {
		slog.Warn("NOTES_SECRET_KEY is not set, using the development default")
	}

	store, err := notes.OpenWithOptions(cfg.DBPath, notes.OpenOptions{
		BusyTimeout: cfg.DBBusyTimeout,
		LockTimeout: cfg.DBLockTimeout,
	})
	if err != nil {
		return fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Warn("close store", "err", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = store.Init(initCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("init schema %s: %w", cfg.DBPath, err)
	}

	srv, err := web.NewServer(cfg, store)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	if err := serve(ctx, cfg.ListenAddr, srv.Handler()); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("server exiting")
	return nil
}

// serve runs the HTTP server until ctx is cancelled, then drains in-flight
// requests.
func serve(ctx context.Context, addr string, handler http.Handler) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	eg, groupCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		slog.Info("listening", "addr", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-groupCtx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}
