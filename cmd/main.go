package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terabiome/cloudprofile/internal/config"
	"github.com/terabiome/cloudprofile/internal/handler"
	"github.com/terabiome/cloudprofile/internal/routes"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		slog.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	app := newApplication(os.Stdout, os.Stderr)
	if err := app.cli(ctx).Run(os.Args); err != nil {
		app.log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// runServer starts the HTTP API server
func runServer(ctx context.Context, cfg *config.Config, log *slog.Logger, address string) error {
	log.Info("initializing HTTP server", slog.String("address", address))

	profileService, err := initProfileService(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize profile service: %w", err)
	}

	profileHandler := handler.NewProfile(profileService, defaultParams(cfg), log)
	router := routes.SetupMux(profileHandler, log)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", slog.String("address", address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrChan:
		return err
	case <-ctx.Done():
		log.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info("HTTP server stopped")
		return nil
	}
}
