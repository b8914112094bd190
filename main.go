package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"assetedge/logger"
)

func main() {
	lg := logger.NewLogger()

	configService := NewConfigService(lg.Log)
	if err := configService.Initialize(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize storage: %v\n", err)
		os.Exit(1)
	}

	storageDir, err := configService.GetStorageDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve storage dir: %v\n", err)
		os.Exit(1)
	}
	if err := lg.Init(filepath.Join(storageDir, "logs")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
	}
	defer lg.Close()

	app, err := NewApp(configService, lg)
	if err != nil {
		lg.Logf("failed to build application: %v", err)
		fmt.Fprintf(os.Stderr, "failed to build application: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg, err := configService.GetConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           NewServer(app, lg).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		lg.Logf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Logf("server error: %v", err)
			stop()
		}
	}()

	// Warm the dashboard so the first page load has data.
	app.RefreshDashboard(ctx)

	<-ctx.Done()
	lg.Log("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Logf("shutdown error: %v", err)
	}
}
